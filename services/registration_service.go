package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"golang.org/x/sync/errgroup"
)

type RegisterInput struct {
	UserID       int
	TournamentID int
	TeamID       *int
}

type RegistrationService interface {
	Register(ctx context.Context, input RegisterInput) (*models.Registration, error)
	Cancel(ctx context.Context, userID, tournamentID int) error
	CheckIn(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error)
}

type registrationService struct {
	tx               TxRunner
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	teamRepo         repositories.TeamRepository
	registrationRepo repositories.RegistrationRepository
	transactionRepo  repositories.TransactionRepository
	notifier         Notifier
	logger           *slog.Logger
}

func NewRegistrationService(
	tx TxRunner,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	registrationRepo repositories.RegistrationRepository,
	transactionRepo repositories.TransactionRepository,
	notifier Notifier,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		teamRepo:         teamRepo,
		registrationRepo: registrationRepo,
		transactionRepo:  transactionRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

// Register проводит весь процесс регистрации. Предварительные проверки идут
// параллельно вне транзакции; списание взноса и вставка строки выполняются
// в одной транзакции, где уникальные индексы и защищённый UPDATE кошелька
// остаются последними арбитрами при одновременных попытках.
func (s *registrationService) Register(ctx context.Context, input RegisterInput) (*models.Registration, error) {
	var (
		tournament *models.Tournament
		user       *models.User
		count      int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, nil, input.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		u, err := s.userRepo.GetByID(gctx, nil, input.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		user = u
		return nil
	})
	g.Go(func() error {
		c, err := s.registrationRepo.CountByTournament(gctx, nil, input.TournamentID)
		if err != nil {
			return err
		}
		count = c
		return nil
	})
	g.Go(func() error {
		_, err := s.registrationRepo.FindByUserAndTournament(gctx, nil, input.UserID, input.TournamentID)
		if err == nil {
			return ErrRegistrationConflict
		}
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if tournament.Status != models.TournamentStatusRegistrationOpen {
		return nil, ErrRegistrationNotOpen
	}
	if count >= tournament.MaxParticipants {
		return nil, ErrTournamentFull
	}

	if tournament.IsTeamTournament() {
		if err := s.validateTeamRegistration(ctx, tournament, input); err != nil {
			return nil, err
		}
	} else if input.TeamID != nil {
		return nil, fmt.Errorf("%w: individual tournaments do not accept team registrations", ErrValidationFailed)
	}

	registration := &models.Registration{
		UserID:        input.UserID,
		TournamentID:  input.TournamentID,
		TeamID:        input.TeamID,
		Status:        models.RegistrationStatusRegistered,
		PaymentStatus: models.PaymentStatusNotApplicable,
	}

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		// Блокировка строки турнира сериализует конкурирующие регистрации:
		// без неё две транзакции на границе вместимости обе прочитали бы
		// max-1 и обе вставились. Дубликаты отсеет уникальный индекс.
		if err := s.tournamentRepo.LockRow(ctx, exec, input.TournamentID); err != nil {
			return err
		}
		currentCount, err := s.registrationRepo.CountByTournament(ctx, exec, input.TournamentID)
		if err != nil {
			return err
		}
		if currentCount >= tournament.MaxParticipants {
			return ErrTournamentFull
		}

		if tournament.EntryFee > 0 {
			if err := s.userRepo.DebitWallet(ctx, exec, input.UserID, tournament.EntryFee); err != nil {
				if errors.Is(err, repositories.ErrInsufficientBalance) {
					return ErrInsufficientFunds
				}
				return err
			}
			entityKind := "tournament"
			txn := &models.Transaction{
				UserID:            input.UserID,
				Amount:            tournament.EntryFee,
				Type:              models.TransactionTournamentFee,
				Status:            models.TransactionStatusCompleted,
				Description:       fmt.Sprintf("Entry fee for tournament %q", tournament.Name),
				RelatedEntityKind: &entityKind,
				RelatedEntityID:   &tournament.ID,
			}
			if err := s.transactionRepo.Create(ctx, exec, txn); err != nil {
				return err
			}
			registration.PaymentStatus = models.PaymentStatusPaid
		}

		if err := s.registrationRepo.Create(ctx, exec, registration); err != nil {
			if errors.Is(err, repositories.ErrRegistrationConflict) {
				return ErrRegistrationConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration created",
		slog.Int("registration_id", registration.ID),
		slog.Int("user_id", input.UserID),
		slog.Int("tournament_id", input.TournamentID))

	s.notifier.Notify(ctx, user.ID, TemplateRegistrationConfirmed,
		models.NotificationParams{"tournament_name": tournament.Name},
		"tournament", tournament.ID)

	return registration, nil
}

func (s *registrationService) validateTeamRegistration(ctx context.Context, tournament *models.Tournament, input RegisterInput) error {
	if input.TeamID == nil {
		return fmt.Errorf("%w: team tournaments require a team", ErrValidationFailed)
	}
	team, err := s.teamRepo.GetByID(ctx, nil, *input.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	if !team.HasMember(input.UserID) {
		return ErrForbiddenOperation
	}
	if team.GameID != tournament.GameID {
		return ErrTeamNotEligible
	}
	if len(team.MemberIDs) != tournament.TeamSize {
		return fmt.Errorf("%w: team has %d members, tournament requires exactly %d",
			ErrValidationFailed, len(team.MemberIDs), tournament.TeamSize)
	}
	_, err = s.registrationRepo.FindByTeamAndTournament(ctx, nil, team.ID, tournament.ID)
	if err == nil {
		return ErrRegistrationConflict
	}
	if !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return err
	}
	return nil
}

// Cancel снимает регистрацию, пока открыт набор. Оплаченный взнос
// возвращается на кошелёк в той же транзакции, что и удаление строки.
func (s *registrationService) Cancel(ctx context.Context, userID, tournamentID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if tournament.Status != models.TournamentStatusRegistrationOpen {
		return ErrInvalidState
	}

	registration, err := s.registrationRepo.FindByUserAndTournament(ctx, nil, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if registration.PaymentStatus == models.PaymentStatusPaid {
			if err := s.userRepo.CreditWallet(ctx, exec, userID, tournament.EntryFee); err != nil {
				return err
			}
			entityKind := "tournament"
			txn := &models.Transaction{
				UserID:            userID,
				Amount:            tournament.EntryFee,
				Type:              models.TransactionRefund,
				Status:            models.TransactionStatusCompleted,
				Description:       fmt.Sprintf("Refunded entry fee for tournament %q", tournament.Name),
				RelatedEntityKind: &entityKind,
				RelatedEntityID:   &tournament.ID,
			}
			if err := s.transactionRepo.Create(ctx, exec, txn); err != nil {
				return err
			}
		}
		return s.registrationRepo.Delete(ctx, exec, registration.ID)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, userID, TemplateRegistrationRefunded,
		models.NotificationParams{"tournament_name": tournament.Name},
		"tournament", tournament.ID)
	return nil
}

func (s *registrationService) CheckIn(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.TournamentStatusRegistrationClosed {
		return nil, ErrInvalidState
	}

	registration, err := s.registrationRepo.FindByUserAndTournament(ctx, nil, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	if registration.Status != models.RegistrationStatusRegistered {
		return nil, ErrInvalidState
	}

	if err := s.registrationRepo.UpdateStatus(ctx, nil, registration.ID, models.RegistrationStatusCheckedIn); err != nil {
		return nil, err
	}
	registration.Status = models.RegistrationStatusCheckedIn
	return registration, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	return s.registrationRepo.ListByTournament(ctx, nil, tournamentID, nil)
}
