package services

import (
	"context"
	"testing"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tournamentFixture struct {
	tx               *fakeTxRunner
	tournamentRepo   *fakeTournamentRepo
	gameRepo         *fakeGameRepo
	registrationRepo *fakeRegistrationRepo
	bracketRepo      *fakeBracketRepo
	matchRepo        *fakeMatchRepo
	disputeRepo      *fakeDisputeRepo
	notifier         *fakeNotifier

	tournament *models.Tournament
	created    *models.Tournament
	statusSet  models.TournamentStatus
}

func newTournamentFixture() *tournamentFixture {
	f := &tournamentFixture{
		tx:       &fakeTxRunner{},
		notifier: &fakeNotifier{},
	}
	regStart, regEnd, checkIn, start := validTournamentDates(time.Now().Add(time.Hour).UTC())
	f.tournament = &models.Tournament{
		ID:                    1,
		Name:                  "Spring Cup",
		GameID:                1,
		OrganizerID:           100,
		Structure:             models.StructureSingleElimination,
		TeamSize:              1,
		MaxParticipants:       8,
		Status:                models.TournamentStatusDraft,
		RegistrationStartDate: regStart,
		RegistrationEndDate:   regEnd,
		CheckInStartDate:      checkIn,
		TournamentStartDate:   start,
	}
	f.tournamentRepo = &fakeTournamentRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
			if id != f.tournament.ID {
				return nil, repositories.ErrTournamentNotFound
			}
			return f.tournament, nil
		},
		update: func(ctx context.Context, t *models.Tournament) error {
			f.tournament = t
			return nil
		},
		updateStatus: func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
			f.statusSet = status
			return nil
		},
	}
	f.gameRepo = &fakeGameRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Game, error) {
			return &models.Game{ID: id, Name: "Rocket Duel", IsActive: true}, nil
		},
	}
	f.registrationRepo = &fakeRegistrationRepo{
		listByTournament: func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]*models.Registration, error) {
			return nil, nil
		},
	}
	f.bracketRepo = &fakeBracketRepo{}
	f.matchRepo = &fakeMatchRepo{}
	f.disputeRepo = &fakeDisputeRepo{}
	return f
}

func (f *tournamentFixture) service() TournamentService {
	return NewTournamentService(f.tx, f.tournamentRepo, f.gameRepo, &fakeUserRepo{},
		f.registrationRepo, f.bracketRepo, f.matchRepo, f.disputeRepo, f.notifier, testLogger())
}

func (f *tournamentFixture) createInput() CreateTournamentInput {
	regStart, regEnd, checkIn, start := validTournamentDates(time.Now().Add(time.Hour).UTC())
	return CreateTournamentInput{
		Name:                  "Autumn Clash",
		GameID:                1,
		Structure:             models.StructureSingleElimination,
		TeamSize:              1,
		MaxParticipants:       16,
		RegistrationStartDate: regStart,
		RegistrationEndDate:   regEnd,
		CheckInStartDate:      checkIn,
		TournamentStartDate:   start,
	}
}

var organizer = models.Principal{UserID: 100, Role: models.RoleUser}

func TestCreateTournament(t *testing.T) {
	f := newTournamentFixture()
	f.tournamentRepo.create = func(ctx context.Context, tt *models.Tournament) error {
		tt.ID = 2
		return nil
	}

	got, err := f.service().Create(context.Background(), organizer, f.createInput())
	require.NoError(t, err)

	assert.Equal(t, 2, got.ID)
	assert.Equal(t, models.TournamentStatusDraft, got.Status)
	assert.Equal(t, organizer.UserID, got.OrganizerID)
}

func TestCreateTournamentValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(input *CreateTournamentInput)
		wantErr error
	}{
		{
			name:    "empty name",
			mutate:  func(input *CreateTournamentInput) { input.Name = "" },
			wantErr: ErrValidationFailed,
		},
		{
			name:    "unknown structure",
			mutate:  func(input *CreateTournamentInput) { input.Structure = "ladder" },
			wantErr: ErrValidationFailed,
		},
		{
			name:    "capacity below two",
			mutate:  func(input *CreateTournamentInput) { input.MaxParticipants = 1 },
			wantErr: ErrTournamentInvalidCapacity,
		},
		{
			name:    "negative entry fee",
			mutate:  func(input *CreateTournamentInput) { input.EntryFee = -100 },
			wantErr: ErrValidationFailed,
		},
		{
			name: "dates out of order",
			mutate: func(input *CreateTournamentInput) {
				input.RegistrationEndDate = input.RegistrationStartDate.Add(-time.Hour)
			},
			wantErr: ErrTournamentInvalidDates,
		},
		{
			name: "check-in before registration end",
			mutate: func(input *CreateTournamentInput) {
				input.CheckInStartDate = input.RegistrationEndDate.Add(-time.Minute)
			},
			wantErr: ErrTournamentInvalidDates,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newTournamentFixture()
			input := f.createInput()
			tc.mutate(&input)

			_, err := f.service().Create(context.Background(), organizer, input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUpdateRestrictedFieldsFrozenAfterDraft(t *testing.T) {
	f := newTournamentFixture()
	f.tournament.Status = models.TournamentStatusRegistrationOpen

	fee := int64(1000)
	_, err := f.service().Update(context.Background(), organizer, 1, UpdateTournamentInput{EntryFee: &fee})
	assert.ErrorIs(t, err, ErrRestrictedFieldChange)

	capacity := 32
	_, err = f.service().Update(context.Background(), organizer, 1, UpdateTournamentInput{MaxParticipants: &capacity})
	assert.ErrorIs(t, err, ErrRestrictedFieldChange)
}

func TestUpdateUnrestrictedFieldsAllowedAfterDraft(t *testing.T) {
	f := newTournamentFixture()
	f.tournament.Status = models.TournamentStatusRegistrationOpen

	name := "Spring Cup Renamed"
	got, err := f.service().Update(context.Background(), organizer, 1, UpdateTournamentInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Spring Cup Renamed", got.Name)
}

func TestUpdateRejectsTerminalTournament(t *testing.T) {
	f := newTournamentFixture()
	f.tournament.Status = models.TournamentStatusCompleted

	name := "too late"
	_, err := f.service().Update(context.Background(), organizer, 1, UpdateTournamentInput{Name: &name})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateForbiddenForNonOrganizer(t *testing.T) {
	f := newTournamentFixture()

	name := "hijacked"
	_, err := f.service().Update(context.Background(), models.Principal{UserID: 7, Role: models.RoleUser}, 1,
		UpdateTournamentInput{Name: &name})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestCloseRegistrationTransition(t *testing.T) {
	f := newTournamentFixture()
	f.tournament.Status = models.TournamentStatusRegistrationOpen

	got, err := f.service().CloseRegistration(context.Background(), organizer, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusRegistrationClosed, got.Status)
	assert.Equal(t, models.TournamentStatusRegistrationClosed, f.statusSet)
}

func TestCloseRegistrationRejectsDraft(t *testing.T) {
	f := newTournamentFixture()

	_, err := f.service().CloseRegistration(context.Background(), organizer, 1)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
}

func TestCancelNotifiesRegistrants(t *testing.T) {
	f := newTournamentFixture()
	f.tournament.Status = models.TournamentStatusRegistrationOpen
	f.registrationRepo.listByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]*models.Registration, error) {
		return []*models.Registration{
			{ID: 1, UserID: 5, TournamentID: tournamentID},
			{ID: 2, UserID: 6, TournamentID: tournamentID},
		}, nil
	}

	got, err := f.service().Cancel(context.Background(), organizer, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusCanceled, got.Status)
	require.Len(t, f.notifier.calls, 2)
	assert.Equal(t, TemplateTournamentCanceled, f.notifier.calls[0].TemplateKey)
}

func TestCancelRejectedForTerminalTournament(t *testing.T) {
	f := newTournamentFixture()
	f.tournament.Status = models.TournamentStatusCompleted

	_, err := f.service().Cancel(context.Background(), organizer, 1)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
}

func TestDeleteCascadesInOrder(t *testing.T) {
	f := newTournamentFixture()

	var order []string
	f.disputeRepo.deleteByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
		order = append(order, "disputes")
		return nil
	}
	f.matchRepo.deleteByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
		order = append(order, "matches")
		return nil
	}
	f.bracketRepo.deleteByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
		order = append(order, "brackets")
		return nil
	}
	f.registrationRepo.deleteByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
		order = append(order, "registrations")
		return nil
	}
	f.tournamentRepo.deleteFn = func(ctx context.Context, exec repositories.SQLExecutor, id int) error {
		order = append(order, "tournament")
		return nil
	}

	err := f.service().Delete(context.Background(), organizer, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"disputes", "matches", "brackets", "registrations", "tournament"}, order)
	assert.Equal(t, 1, f.tx.calls)
}

func TestDeleteRejectsActiveTournament(t *testing.T) {
	f := newTournamentFixture()
	f.tournament.Status = models.TournamentStatusActive

	err := f.service().Delete(context.Background(), organizer, 1)
	assert.ErrorIs(t, err, ErrTournamentNotDeletable)
}

func TestTournamentTransitionTable(t *testing.T) {
	tests := []struct {
		current models.TournamentStatus
		next    models.TournamentStatus
		allowed bool
	}{
		{models.TournamentStatusDraft, models.TournamentStatusRegistrationOpen, true},
		{models.TournamentStatusDraft, models.TournamentStatusActive, false},
		{models.TournamentStatusRegistrationOpen, models.TournamentStatusRegistrationClosed, true},
		{models.TournamentStatusRegistrationOpen, models.TournamentStatusCompleted, false},
		{models.TournamentStatusRegistrationClosed, models.TournamentStatusActive, true},
		{models.TournamentStatusActive, models.TournamentStatusCompleted, true},
		{models.TournamentStatusActive, models.TournamentStatusRegistrationOpen, false},
		{models.TournamentStatusCompleted, models.TournamentStatusCanceled, false},
		{models.TournamentStatusCanceled, models.TournamentStatusDraft, false},
		{models.TournamentStatusDraft, models.TournamentStatusCanceled, true},
		{models.TournamentStatusActive, models.TournamentStatusActive, true},
	}
	for _, tc := range tests {
		t.Run(string(tc.current)+"_to_"+string(tc.next), func(t *testing.T) {
			assert.Equal(t, tc.allowed, isValidTournamentTransition(tc.current, tc.next))
		})
	}
}
