package services

import (
	"context"
	"testing"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type disputeFixture struct {
	tx          *fakeTxRunner
	disputeRepo *fakeDisputeRepo
	matchRepo   *fakeMatchRepo
	ratingRepo  *fakeRatingRepo
	notifier    *fakeNotifier

	match   *models.Match
	dispute *models.Dispute
	ratings map[int]int
}

func newDisputeFixture() *disputeFixture {
	reporter := 5
	f := &disputeFixture{
		tx:       &fakeTxRunner{},
		notifier: &fakeNotifier{},
		match: &models.Match{
			ID:           1,
			TournamentID: 1,
			BracketID:    1,
			Round:        1,
			Status:       models.MatchStatusDisputed,
			Participants: models.ParticipantList{userRef(5), userRef(6)},
			Scores:       headToHeadScores(5, 6),
			ReportedBy:   &reporter,
		},
		ratings: map[int]int{5: 1000, 6: 1000},
	}
	f.dispute = &models.Dispute{
		ID:           1,
		MatchID:      1,
		TournamentID: 1,
		ReporterID:   5,
		Status:       models.DisputeStatusOpen,
		Reason:       "opponent left mid-game",
	}
	f.disputeRepo = &fakeDisputeRepo{
		create: func(ctx context.Context, exec repositories.SQLExecutor, d *models.Dispute) error {
			d.ID = 1
			return nil
		},
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dispute, error) {
			if id != f.dispute.ID {
				return nil, repositories.ErrDisputeNotFound
			}
			return f.dispute, nil
		},
		update: func(ctx context.Context, exec repositories.SQLExecutor, d *models.Dispute) error {
			f.dispute = d
			return nil
		},
	}
	f.matchRepo = &fakeMatchRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
			if id != f.match.ID {
				return nil, repositories.ErrMatchNotFound
			}
			return f.match, nil
		},
		update: func(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
			f.match = m
			return nil
		},
	}
	f.ratingRepo = &fakeRatingRepo{
		getUserRating: func(ctx context.Context, exec repositories.SQLExecutor, userID, gameID int) (int, error) {
			return f.ratings[userID], nil
		},
		upsertUserRating: func(ctx context.Context, exec repositories.SQLExecutor, userID, gameID, rating int) error {
			f.ratings[userID] = rating
			return nil
		},
	}
	return f
}

func (f *disputeFixture) service() DisputeService {
	tournamentRepo := &fakeTournamentRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
			return &models.Tournament{ID: id, GameID: 1, OrganizerID: 100}, nil
		},
	}
	elo := NewEloService(f.ratingRepo, &fakeTeamRepo{}, testLogger())
	return NewDisputeService(f.tx, f.disputeRepo, f.matchRepo, tournamentRepo, &fakeTeamRepo{},
		elo, nil, NoopBroadcaster(), f.notifier, testLogger())
}

var staff = models.Principal{UserID: 50, Role: models.RoleSupport}

func TestCreateDispute(t *testing.T) {
	f := newDisputeFixture()
	f.match.Status = models.MatchStatusActive

	dispute, err := f.service().Create(context.Background(), models.Principal{UserID: 5, Role: models.RoleUser},
		CreateDisputeInput{MatchID: 1, Reason: "score is wrong"})
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, 5, dispute.ReporterID)
	assert.Equal(t, models.MatchStatusDisputed, f.match.Status)
}

func TestCreateDisputeRejectsOutsider(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().Create(context.Background(), models.Principal{UserID: 99, Role: models.RoleUser},
		CreateDisputeInput{MatchID: 1, Reason: "I disagree"})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestCreateDisputeRejectsCompletedMatch(t *testing.T) {
	f := newDisputeFixture()
	winner := userRef(5)
	f.match.Status = models.MatchStatusCompleted
	f.match.Winner = &winner

	_, err := f.service().Create(context.Background(), models.Principal{UserID: 5, Role: models.RoleUser},
		CreateDisputeInput{MatchID: 1, Reason: "too late"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateSecondDisputeConflicts(t *testing.T) {
	f := newDisputeFixture()
	f.disputeRepo.create = func(ctx context.Context, exec repositories.SQLExecutor, d *models.Dispute) error {
		return repositories.ErrDisputeConflict
	}

	_, err := f.service().Create(context.Background(), models.Principal{UserID: 5, Role: models.RoleUser},
		CreateDisputeInput{MatchID: 1, Reason: "again"})
	assert.ErrorIs(t, err, ErrDisputeConflict)
}

func TestTakeUnderReview(t *testing.T) {
	f := newDisputeFixture()

	dispute, err := f.service().TakeUnderReview(context.Background(), staff, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeStatusUnderReview, dispute.Status)
	require.NotNil(t, dispute.AssignedTo)
	assert.Equal(t, staff.UserID, *dispute.AssignedTo)
}

func TestTakeUnderReviewStaffOnly(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().TakeUnderReview(context.Background(), models.Principal{UserID: 5, Role: models.RoleUser}, 1)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestResolveAwardWinToReporter(t *testing.T) {
	f := newDisputeFixture()

	dispute, err := f.service().Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision:     models.DecisionAwardWinToReporter,
		FinalComment: "screenshots confirm the reporter",
	})
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusResolved, dispute.Status)
	require.NotNil(t, dispute.Resolution)
	assert.Equal(t, models.DecisionAwardWinToReporter, dispute.Resolution.Decision)

	assert.Equal(t, models.MatchStatusCompleted, f.match.Status)
	require.NotNil(t, f.match.Winner)
	assert.Equal(t, userRef(5), *f.match.Winner)

	// Рейтинги двигаются в той же транзакции, что и завершение матча.
	assert.Equal(t, 1016, f.ratings[5])
	assert.Equal(t, 984, f.ratings[6])
}

func TestResolveAwardWinToOpponent(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision: models.DecisionAwardWinToOpponent,
	})
	require.NoError(t, err)

	require.NotNil(t, f.match.Winner)
	assert.Equal(t, userRef(6), *f.match.Winner)
	assert.Equal(t, 1016, f.ratings[6])
	assert.Equal(t, 984, f.ratings[5])
}

func TestResolveCancelMatch(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision: models.DecisionCancelMatch,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCanceled, f.match.Status)
	assert.Nil(t, f.match.Winner)
	assert.Equal(t, 1000, f.ratings[5], "canceled match must not move ratings")
	assert.Equal(t, 1000, f.ratings[6])
}

func TestResolveResetMatchClearsReportedState(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision: models.DecisionResetMatch,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusActive, f.match.Status)
	assert.Nil(t, f.match.Winner)
	assert.Nil(t, f.match.Scores)
	assert.Nil(t, f.match.Results)
	assert.Nil(t, f.match.ReportedBy)
}

func TestResolveNoActionLeavesMatchUntouched(t *testing.T) {
	f := newDisputeFixture()

	dispute, err := f.service().Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision: models.DecisionNoAction,
	})
	require.NoError(t, err)

	assert.Equal(t, models.DisputeStatusResolved, dispute.Status)
	assert.Equal(t, models.MatchStatusDisputed, f.match.Status)
	assert.NotNil(t, f.match.ReportedBy)
}

func TestResolveRejectsDoubleResolution(t *testing.T) {
	f := newDisputeFixture()
	svc := f.service()

	_, err := svc.Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision: models.DecisionNoAction,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision: models.DecisionAwardWinToReporter,
	})
	assert.ErrorIs(t, err, ErrDisputeNotResolvable)
}

func TestResolveRejectsUnknownDecision(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().Resolve(context.Background(), staff, 1, ResolveDisputeInput{
		Decision: models.DisputeDecision("split_the_difference"),
	})
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestResolveStaffOnly(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().Resolve(context.Background(), models.Principal{UserID: 5, Role: models.RoleUser}, 1,
		ResolveDisputeInput{Decision: models.DecisionNoAction})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestAddCommentRequiresContent(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.service().AddComment(context.Background(), staff, 1, "")
	assert.ErrorIs(t, err, ErrValidationFailed)
}
