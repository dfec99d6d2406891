package services

import (
	"context"
	"testing"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatedRatings(t *testing.T) {
	tests := []struct {
		name         string
		winnerRating int
		loserRating  int
		wantWinner   int
		wantLoser    int
	}{
		{name: "equal ratings", winnerRating: 1500, loserRating: 1500, wantWinner: 1516, wantLoser: 1484},
		{name: "default ratings", winnerRating: 1000, loserRating: 1000, wantWinner: 1016, wantLoser: 984},
		{name: "favorite wins", winnerRating: 1800, loserRating: 1400, wantWinner: 1803, wantLoser: 1397},
		{name: "underdog wins", winnerRating: 1400, loserRating: 1800, wantWinner: 1429, wantLoser: 1771},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotWinner, gotLoser := updatedRatings(tc.winnerRating, tc.loserRating)
			assert.Equal(t, tc.wantWinner, gotWinner)
			assert.Equal(t, tc.wantLoser, gotLoser)
		})
	}
}

func TestUpdatedRatingsZeroSum(t *testing.T) {
	pairs := [][2]int{{1500, 1500}, {1000, 2000}, {1650, 1230}}
	for _, p := range pairs {
		newWinner, newLoser := updatedRatings(p[0], p[1])
		assert.Equal(t, p[0]+p[1], newWinner+newLoser,
			"ratings %d vs %d must be redistributed, not created", p[0], p[1])
	}
}

func TestExpectedScoreSymmetry(t *testing.T) {
	a, b := 1450, 1720
	assert.InDelta(t, 1.0, expectedScore(a, b)+expectedScore(b, a), 1e-9)
}

func TestApplyMatchOutcomeSkipsByeMatches(t *testing.T) {
	svc := NewEloService(&fakeRatingRepo{}, &fakeTeamRepo{}, testLogger())

	winner := userRef(1)
	match := &models.Match{
		ID:           7,
		Status:       models.MatchStatusCompleted,
		Participants: models.ParticipantList{winner},
		Winner:       &winner,
	}
	// Рейтинговые репозитории без поведения: любое обращение уронит тест.
	err := svc.ApplyMatchOutcome(context.Background(), nil, match, 1)
	require.NoError(t, err)
}

func TestApplyMatchOutcomeSkipsMatchesWithoutWinner(t *testing.T) {
	svc := NewEloService(&fakeRatingRepo{}, &fakeTeamRepo{}, testLogger())

	match := &models.Match{
		ID:           7,
		Status:       models.MatchStatusCanceled,
		Participants: models.ParticipantList{userRef(1), userRef(2)},
	}
	err := svc.ApplyMatchOutcome(context.Background(), nil, match, 1)
	require.NoError(t, err)
}

func TestApplyMatchOutcomeUsers(t *testing.T) {
	ratings := map[int]int{1: 1500, 2: 1500}
	stored := map[int]int{}

	ratingRepo := &fakeRatingRepo{
		getUserRating: func(ctx context.Context, exec repositories.SQLExecutor, userID, gameID int) (int, error) {
			return ratings[userID], nil
		},
		upsertUserRating: func(ctx context.Context, exec repositories.SQLExecutor, userID, gameID, rating int) error {
			stored[userID] = rating
			return nil
		},
	}
	svc := NewEloService(ratingRepo, &fakeTeamRepo{}, testLogger())

	winner := userRef(1)
	match := &models.Match{
		ID:           3,
		Status:       models.MatchStatusCompleted,
		Participants: models.ParticipantList{userRef(1), userRef(2)},
		Winner:       &winner,
	}

	err := svc.ApplyMatchOutcome(context.Background(), nil, match, 42)
	require.NoError(t, err)
	assert.Equal(t, 1516, stored[1])
	assert.Equal(t, 1484, stored[2])
}

func TestApplyMatchOutcomeTeams(t *testing.T) {
	teams := map[int]*models.Team{
		10: {ID: 10, Stats: models.TeamStats{RankPoints: 1000, Wins: 4, Losses: 1}},
		11: {ID: 11, Stats: models.TeamStats{RankPoints: 1000, Wins: 2, Losses: 3}},
	}
	stored := map[int]models.TeamStats{}

	teamRepo := &fakeTeamRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
			return teams[id], nil
		},
		updateStats: func(ctx context.Context, exec repositories.SQLExecutor, teamID int, stats models.TeamStats) error {
			stored[teamID] = stats
			return nil
		},
	}
	svc := NewEloService(&fakeRatingRepo{}, teamRepo, testLogger())

	winner := teamRef(10)
	match := &models.Match{
		ID:           5,
		Status:       models.MatchStatusCompleted,
		Participants: models.ParticipantList{teamRef(10), teamRef(11)},
		Winner:       &winner,
	}

	err := svc.ApplyMatchOutcome(context.Background(), nil, match, 42)
	require.NoError(t, err)

	assert.Equal(t, 1016, stored[10].RankPoints)
	assert.Equal(t, 5, stored[10].Wins)
	assert.Equal(t, 984, stored[11].RankPoints)
	assert.Equal(t, 4, stored[11].Losses)
}
