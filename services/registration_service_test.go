package services

import (
	"context"
	"testing"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationFixture struct {
	tx               *fakeTxRunner
	tournamentRepo   *fakeTournamentRepo
	userRepo         *fakeUserRepo
	teamRepo         *fakeTeamRepo
	registrationRepo *fakeRegistrationRepo
	transactionRepo  *fakeTransactionRepo
	notifier         *fakeNotifier
}

func newRegistrationFixture(tournament *models.Tournament) *registrationFixture {
	f := &registrationFixture{
		tx:              &fakeTxRunner{},
		transactionRepo: &fakeTransactionRepo{},
		notifier:        &fakeNotifier{},
	}
	f.tournamentRepo = &fakeTournamentRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
			if id != tournament.ID {
				return nil, repositories.ErrTournamentNotFound
			}
			return tournament, nil
		},
		lockRow: func(ctx context.Context, exec repositories.SQLExecutor, id int) error {
			return nil
		},
	}
	f.userRepo = &fakeUserRepo{
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
			return &models.User{ID: id, Username: "player", WalletBalance: 10_000}, nil
		},
	}
	f.teamRepo = &fakeTeamRepo{}
	f.registrationRepo = &fakeRegistrationRepo{
		countByTournament: func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
			return 0, nil
		},
		findByUserAndTournament: func(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
			return nil, repositories.ErrRegistrationNotFound
		},
		create: func(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
			reg.ID = 1
			return nil
		},
	}
	return f
}

func (f *registrationFixture) service() RegistrationService {
	return NewRegistrationService(f.tx, f.tournamentRepo, f.userRepo, f.teamRepo,
		f.registrationRepo, f.transactionRepo, f.notifier, testLogger())
}

func openTournament() *models.Tournament {
	return &models.Tournament{
		ID:              1,
		Name:            "Spring Cup",
		GameID:          1,
		Status:          models.TournamentStatusRegistrationOpen,
		TeamSize:        1,
		MaxParticipants: 8,
	}
}

func TestRegisterIndividualFreeTournament(t *testing.T) {
	f := newRegistrationFixture(openTournament())

	reg, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationStatusRegistered, reg.Status)
	assert.Equal(t, models.PaymentStatusNotApplicable, reg.PaymentStatus)
	assert.Equal(t, 1, f.tx.calls)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, TemplateRegistrationConfirmed, f.notifier.calls[0].TemplateKey)
}

func TestRegisterChargesEntryFee(t *testing.T) {
	tournament := openTournament()
	tournament.EntryFee = 500
	f := newRegistrationFixture(tournament)

	var debited int64
	f.userRepo.debitWallet = func(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
		debited = amount
		return nil
	}
	var recorded *models.Transaction
	f.transactionRepo.create = func(ctx context.Context, exec repositories.SQLExecutor, tx *models.Transaction) error {
		recorded = tx
		return nil
	}

	reg, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, reg.PaymentStatus)
	assert.Equal(t, int64(500), debited)
	require.NotNil(t, recorded)
	assert.Equal(t, models.TransactionTournamentFee, recorded.Type)
	assert.Equal(t, models.TransactionStatusCompleted, recorded.Status)
}

func TestRegisterInsufficientFundsLeavesNoRegistration(t *testing.T) {
	tournament := openTournament()
	tournament.EntryFee = 500
	f := newRegistrationFixture(tournament)

	f.userRepo.debitWallet = func(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
		return repositories.ErrInsufficientBalance
	}
	created := false
	f.registrationRepo.create = func(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
		created = true
		return nil
	}

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.False(t, created, "failed debit must abort the registration insert")
	assert.Empty(t, f.notifier.calls)
}

func TestRegisterRejectsWhenRegistrationNotOpen(t *testing.T) {
	for _, status := range []models.TournamentStatus{
		models.TournamentStatusDraft,
		models.TournamentStatusRegistrationClosed,
		models.TournamentStatusActive,
		models.TournamentStatusCompleted,
		models.TournamentStatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			tournament := openTournament()
			tournament.Status = status
			f := newRegistrationFixture(tournament)

			_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
			assert.ErrorIs(t, err, ErrRegistrationNotOpen)
		})
	}
}

func TestRegisterRejectsFullTournament(t *testing.T) {
	f := newRegistrationFixture(openTournament())
	f.registrationRepo.countByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
		return 8, nil
	}

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	assert.ErrorIs(t, err, ErrTournamentFull)
}

func TestRegisterCapacityRecheckedInsideTransaction(t *testing.T) {
	f := newRegistrationFixture(openTournament())

	// Первый счётчик (вне транзакции) сообщает о свободном месте, повторный
	// внутри транзакции видит уже заполненный турнир.
	calls := 0
	f.registrationRepo.countByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
		calls++
		if calls == 1 {
			return 7, nil
		}
		return 8, nil
	}

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	assert.ErrorIs(t, err, ErrTournamentFull)
	assert.Equal(t, 2, calls)
}

func TestRegisterLocksTournamentRowBeforeCapacityRecheck(t *testing.T) {
	f := newRegistrationFixture(openTournament())

	// Без блокировки строки две конкурирующие регистрации на границе
	// вместимости обе прочитали бы max-1 и обе вставились. Проверяем, что
	// блокировка берётся внутри транзакции и строго до пересчёта.
	var order []string
	f.tournamentRepo.lockRow = func(ctx context.Context, exec repositories.SQLExecutor, id int) error {
		order = append(order, "lock")
		return nil
	}
	f.registrationRepo.countByTournament = func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
		order = append(order, "count")
		return 0, nil
	}

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, f.tx.calls)
	// Первый count предварительный, вне транзакции; после lock следует
	// решающий пересчёт.
	require.Equal(t, []string{"count", "lock", "count"}, order)
}

func TestRegisterLockFailureAbortsRegistration(t *testing.T) {
	f := newRegistrationFixture(openTournament())
	f.tournamentRepo.lockRow = func(ctx context.Context, exec repositories.SQLExecutor, id int) error {
		return repositories.ErrTournamentNotFound
	}

	created := false
	f.registrationRepo.create = func(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
		created = true
		return nil
	}

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)
	assert.False(t, created)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	f := newRegistrationFixture(openTournament())
	f.registrationRepo.findByUserAndTournament = func(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
		return &models.Registration{ID: 9, UserID: userID, TournamentID: tournamentID}, nil
	}

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1})
	assert.ErrorIs(t, err, ErrRegistrationConflict)
}

func TestRegisterIndividualRejectsTeam(t *testing.T) {
	f := newRegistrationFixture(openTournament())

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1, TeamID: intPtr(3)})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func teamTournamentFixture() (*models.Tournament, *models.Team) {
	tournament := openTournament()
	tournament.TeamSize = 2
	team := &models.Team{
		ID:        3,
		Name:      "Night Owls",
		GameID:    tournament.GameID,
		CaptainID: 5,
		MemberIDs: []int{5, 6},
	}
	return tournament, team
}

func TestRegisterTeamTournament(t *testing.T) {
	tournament, team := teamTournamentFixture()
	f := newRegistrationFixture(tournament)
	f.teamRepo.getByID = func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
		return team, nil
	}
	f.registrationRepo.findByTeamAndTournament = func(ctx context.Context, exec repositories.SQLExecutor, teamID, tournamentID int) (*models.Registration, error) {
		return nil, repositories.ErrRegistrationNotFound
	}

	reg, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1, TeamID: intPtr(3)})
	require.NoError(t, err)
	require.NotNil(t, reg.TeamID)
	assert.Equal(t, 3, *reg.TeamID)
}

func TestRegisterTeamTournamentValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tournament *models.Tournament, team *models.Team, input *RegisterInput)
		wantErr error
	}{
		{
			name:    "team required",
			mutate:  func(_ *models.Tournament, _ *models.Team, input *RegisterInput) { input.TeamID = nil },
			wantErr: ErrValidationFailed,
		},
		{
			name:    "actor not a member",
			mutate:  func(_ *models.Tournament, team *models.Team, _ *RegisterInput) { team.MemberIDs = []int{6, 7} },
			wantErr: ErrForbiddenOperation,
		},
		{
			name:    "wrong game",
			mutate:  func(_ *models.Tournament, team *models.Team, _ *RegisterInput) { team.GameID = 99 },
			wantErr: ErrTeamNotEligible,
		},
		{
			name:    "roster too small",
			mutate:  func(_ *models.Tournament, team *models.Team, _ *RegisterInput) { team.MemberIDs = []int{5} },
			wantErr: ErrValidationFailed,
		},
		{
			name:    "roster too large",
			mutate:  func(_ *models.Tournament, team *models.Team, _ *RegisterInput) { team.MemberIDs = []int{5, 6, 7} },
			wantErr: ErrValidationFailed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tournament, team := teamTournamentFixture()
			f := newRegistrationFixture(tournament)
			f.teamRepo.getByID = func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
				return team, nil
			}
			f.registrationRepo.findByTeamAndTournament = func(ctx context.Context, exec repositories.SQLExecutor, teamID, tournamentID int) (*models.Registration, error) {
				return nil, repositories.ErrRegistrationNotFound
			}

			input := RegisterInput{UserID: 5, TournamentID: 1, TeamID: intPtr(3)}
			tc.mutate(tournament, team, &input)

			_, err := f.service().Register(context.Background(), input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegisterTeamAlreadyRegistered(t *testing.T) {
	tournament, team := teamTournamentFixture()
	f := newRegistrationFixture(tournament)
	f.teamRepo.getByID = func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
		return team, nil
	}
	f.registrationRepo.findByTeamAndTournament = func(ctx context.Context, exec repositories.SQLExecutor, teamID, tournamentID int) (*models.Registration, error) {
		return &models.Registration{ID: 4, TeamID: &teamID, TournamentID: tournamentID}, nil
	}

	_, err := f.service().Register(context.Background(), RegisterInput{UserID: 5, TournamentID: 1, TeamID: intPtr(3)})
	assert.ErrorIs(t, err, ErrRegistrationConflict)
}

func TestCancelRefundsPaidFee(t *testing.T) {
	tournament := openTournament()
	tournament.EntryFee = 500
	f := newRegistrationFixture(tournament)

	f.registrationRepo.findByUserAndTournament = func(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
		return &models.Registration{ID: 9, UserID: userID, TournamentID: tournamentID, PaymentStatus: models.PaymentStatusPaid}, nil
	}
	var credited int64
	f.userRepo.creditWallet = func(ctx context.Context, exec repositories.SQLExecutor, userID int, amount int64) error {
		credited = amount
		return nil
	}
	var refund *models.Transaction
	f.transactionRepo.create = func(ctx context.Context, exec repositories.SQLExecutor, tx *models.Transaction) error {
		refund = tx
		return nil
	}
	deleted := false
	f.registrationRepo.deleteFn = func(ctx context.Context, exec repositories.SQLExecutor, id int) error {
		deleted = true
		return nil
	}

	err := f.service().Cancel(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), credited)
	require.NotNil(t, refund)
	assert.Equal(t, models.TransactionRefund, refund.Type)
	assert.True(t, deleted)
}

func TestCancelRejectedAfterRegistrationCloses(t *testing.T) {
	tournament := openTournament()
	tournament.Status = models.TournamentStatusRegistrationClosed
	f := newRegistrationFixture(tournament)

	err := f.service().Cancel(context.Background(), 5, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCheckIn(t *testing.T) {
	tournament := openTournament()
	tournament.Status = models.TournamentStatusRegistrationClosed
	f := newRegistrationFixture(tournament)

	f.registrationRepo.findByUserAndTournament = func(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
		return &models.Registration{ID: 9, UserID: userID, TournamentID: tournamentID, Status: models.RegistrationStatusRegistered}, nil
	}
	var updatedTo models.RegistrationStatus
	f.registrationRepo.updateStatus = func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RegistrationStatus) error {
		updatedTo = status
		return nil
	}

	reg, err := f.service().CheckIn(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusCheckedIn, reg.Status)
	assert.Equal(t, models.RegistrationStatusCheckedIn, updatedTo)
}

func TestCheckInRequiresClosedRegistration(t *testing.T) {
	f := newRegistrationFixture(openTournament())

	_, err := f.service().CheckIn(context.Background(), 5, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
}
