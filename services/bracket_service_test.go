package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

type bracketFixture struct {
	tx               *fakeTxRunner
	tournamentRepo   *fakeTournamentRepo
	registrationRepo *fakeRegistrationRepo
	bracketRepo      *fakeBracketRepo
	matchRepo        *fakeMatchRepo

	createdMatches  []*models.Match
	playingStatuses []models.RegistrationStatus
	statusSet       []models.TournamentStatus
}

func newBracketFixture(tournament *models.Tournament, registrations []*models.Registration) *bracketFixture {
	f := &bracketFixture{tx: &fakeTxRunner{}}
	f.tournamentRepo = &fakeTournamentRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
			if id != tournament.ID {
				return nil, repositories.ErrTournamentNotFound
			}
			return tournament, nil
		},
		updateStatus: func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
			f.statusSet = append(f.statusSet, status)
			return nil
		},
	}
	f.registrationRepo = &fakeRegistrationRepo{
		listByTournament: func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]*models.Registration, error) {
			return registrations, nil
		},
		updateStatus: func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RegistrationStatus) error {
			f.playingStatuses = append(f.playingStatuses, status)
			return nil
		},
	}
	f.bracketRepo = &fakeBracketRepo{
		create: func(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
			bracket.ID = 10
			return nil
		},
	}
	f.matchRepo = &fakeMatchRepo{
		create: func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
			match.ID = len(f.createdMatches) + 1
			f.createdMatches = append(f.createdMatches, match)
			return nil
		},
	}
	return f
}

func (f *bracketFixture) service() BracketService {
	return NewBracketService(f.tx, f.tournamentRepo, f.registrationRepo,
		f.bracketRepo, f.matchRepo, NoopBroadcaster(), testLogger())
}

func closedTournament() *models.Tournament {
	return &models.Tournament{
		ID:              1,
		Name:            "Spring Cup",
		GameID:          1,
		OrganizerID:     100,
		Structure:       models.StructureSingleElimination,
		Status:          models.TournamentStatusRegistrationClosed,
		TeamSize:        1,
		MaxParticipants: 8,
	}
}

func seededRegistrations(userIDs ...int) []*models.Registration {
	regs := make([]*models.Registration, 0, len(userIDs))
	for i, id := range userIDs {
		regs = append(regs, &models.Registration{
			ID:           i + 1,
			UserID:       id,
			TournamentID: 1,
			Status:       models.RegistrationStatusCheckedIn,
		})
	}
	return regs
}

func TestGenerateBracketActivatesTournament(t *testing.T) {
	f := newBracketFixture(closedTournament(), seededRegistrations(5, 6, 7, 8))

	bracket, err := f.service().GenerateBracket(context.Background(), organizer, 1)
	require.NoError(t, err)

	assert.Equal(t, 10, bracket.ID)
	assert.Len(t, bracket.Matches, 2)
	assert.Len(t, f.createdMatches, 2)
	for _, m := range f.createdMatches {
		assert.Equal(t, 10, m.BracketID)
		assert.Equal(t, 1, m.Round)
	}

	// Все посеянные переходят в playing, турнир становится active, и всё
	// это в одной транзакции.
	require.Len(t, f.playingStatuses, 4)
	for _, status := range f.playingStatuses {
		assert.Equal(t, models.RegistrationStatusPlaying, status)
	}
	assert.Equal(t, []models.TournamentStatus{models.TournamentStatusActive}, f.statusSet)
	assert.Equal(t, 1, f.tx.calls)
}

func TestGenerateBracketOddFieldGetsBye(t *testing.T) {
	f := newBracketFixture(closedTournament(), seededRegistrations(5, 6, 7))

	bracket, err := f.service().GenerateBracket(context.Background(), organizer, 1)
	require.NoError(t, err)
	require.Len(t, bracket.Matches, 2)

	byes := 0
	for _, m := range f.createdMatches {
		if m.IsBye() {
			byes++
			assert.Equal(t, models.MatchStatusCompleted, m.Status)
			require.NotNil(t, m.Winner)
			assert.Equal(t, m.Participants[0], *m.Winner)
		}
	}
	assert.Equal(t, 1, byes)
}

func TestGenerateBracketRequiresClosedRegistration(t *testing.T) {
	for _, status := range []models.TournamentStatus{
		models.TournamentStatusDraft,
		models.TournamentStatusRegistrationOpen,
		models.TournamentStatusActive,
		models.TournamentStatusCompleted,
		models.TournamentStatusCanceled,
	} {
		tournament := closedTournament()
		tournament.Status = status
		f := newBracketFixture(tournament, seededRegistrations(5, 6))

		_, err := f.service().GenerateBracket(context.Background(), organizer, 1)
		assert.ErrorIs(t, err, ErrInvalidState, string(status))
		assert.Equal(t, 0, f.tx.calls, string(status))
	}
}

func TestGenerateBracketRequiresTwoParticipants(t *testing.T) {
	f := newBracketFixture(closedTournament(), seededRegistrations(5))

	_, err := f.service().GenerateBracket(context.Background(), organizer, 1)
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
	assert.Equal(t, 0, f.tx.calls)
}

func TestGenerateBracketRejectsUnsupportedStructure(t *testing.T) {
	tournament := closedTournament()
	tournament.Structure = models.StructureDoubleElimination
	f := newBracketFixture(tournament, seededRegistrations(5, 6))

	_, err := f.service().GenerateBracket(context.Background(), organizer, 1)
	assert.ErrorIs(t, err, ErrStructureUnsupported)
}

func TestGenerateBracketForbiddenForOutsiders(t *testing.T) {
	f := newBracketFixture(closedTournament(), seededRegistrations(5, 6))

	outsider := models.Principal{UserID: 999, Role: models.RoleUser}
	_, err := f.service().GenerateBracket(context.Background(), outsider, 1)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// Персоналу генерация доступна и без организаторства.
	_, err = f.service().GenerateBracket(context.Background(), staff, 1)
	assert.NoError(t, err)
}
