package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name            string
	GameID          int
	Structure       models.TournamentStructure
	TeamSize        int
	MaxParticipants int
	EntryFee        int64
	Rules           string
	PrizeStructure  models.PrizeStructure

	RegistrationStartDate time.Time
	RegistrationEndDate   time.Time
	CheckInStartDate      time.Time
	TournamentStartDate   time.Time
}

// UpdateTournamentInput — частичное обновление: nil-поля не трогаются.
type UpdateTournamentInput struct {
	Name           *string
	Rules          *string
	PrizeStructure *models.PrizeStructure

	// Ограниченные поля: замораживаются после открытия регистрации.
	GameID          *int
	Structure       *models.TournamentStructure
	TeamSize        *int
	MaxParticipants *int
	EntryFee        *int64

	RegistrationStartDate *time.Time
	RegistrationEndDate   *time.Time
	CheckInStartDate      *time.Time
	TournamentStartDate   *time.Time
}

type TournamentService interface {
	Create(ctx context.Context, actor models.Principal, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, statuses []models.TournamentStatus, page, perPage int) ([]*models.Tournament, int, error)
	Update(ctx context.Context, actor models.Principal, id int, input UpdateTournamentInput) (*models.Tournament, error)
	// CloseRegistration — явное действие организатора, дублирующее
	// переход планировщика registration_open -> registration_closed.
	CloseRegistration(ctx context.Context, actor models.Principal, id int) (*models.Tournament, error)
	Cancel(ctx context.Context, actor models.Principal, id int) (*models.Tournament, error)
	// Delete каскадно удаляет регистрации, матчи, сетки и споры турнира
	// в одной транзакции.
	Delete(ctx context.Context, actor models.Principal, id int) error
}

type tournamentService struct {
	tx               TxRunner
	tournamentRepo   repositories.TournamentRepository
	gameRepo         repositories.GameRepository
	userRepo         repositories.UserRepository
	registrationRepo repositories.RegistrationRepository
	bracketRepo      repositories.BracketRepository
	matchRepo        repositories.MatchRepository
	disputeRepo      repositories.DisputeRepository
	notifier         Notifier
	logger           *slog.Logger
}

func NewTournamentService(
	tx TxRunner,
	tournamentRepo repositories.TournamentRepository,
	gameRepo repositories.GameRepository,
	userRepo repositories.UserRepository,
	registrationRepo repositories.RegistrationRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	disputeRepo repositories.DisputeRepository,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		gameRepo:         gameRepo,
		userRepo:         userRepo,
		registrationRepo: registrationRepo,
		bracketRepo:      bracketRepo,
		matchRepo:        matchRepo,
		disputeRepo:      disputeRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor models.Principal, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if !input.Structure.Valid() {
		return nil, fmt.Errorf("%w: unknown tournament structure %q", ErrValidationFailed, input.Structure)
	}
	if input.TeamSize < 1 {
		return nil, fmt.Errorf("%w: team size must be at least 1", ErrValidationFailed)
	}
	if input.MaxParticipants < 2 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.EntryFee < 0 {
		return nil, fmt.Errorf("%w: entry fee cannot be negative", ErrValidationFailed)
	}

	game, err := s.gameRepo.GetByID(ctx, nil, input.GameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if !game.IsActive {
		return nil, fmt.Errorf("%w: game %q is not accepting new tournaments", ErrValidationFailed, game.Name)
	}

	tournament := &models.Tournament{
		Name:                  input.Name,
		GameID:                input.GameID,
		OrganizerID:           actor.UserID,
		Structure:             input.Structure,
		TeamSize:              input.TeamSize,
		MaxParticipants:       input.MaxParticipants,
		EntryFee:              input.EntryFee,
		Rules:                 input.Rules,
		PrizeStructure:        input.PrizeStructure,
		Status:                models.TournamentStatusDraft,
		RegistrationStartDate: input.RegistrationStartDate,
		RegistrationEndDate:   input.RegistrationEndDate,
		CheckInStartDate:      input.CheckInStartDate,
		TournamentStartDate:   input.TournamentStartDate,
	}
	if err := tournament.ValidateDates(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentInvalidDates, err)
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("organizer_id", actor.UserID),
		slog.String("name", tournament.Name))
	return tournament, nil
}

// GetByID подгружает игру, организатора и сетки параллельно.
func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		game, err := s.gameRepo.GetByID(gctx, nil, tournament.GameID)
		if err != nil {
			// Каталог мог измениться; отсутствие игры не скрывает турнир.
			s.logger.Warn("failed to populate tournament game",
				slog.Int("tournament_id", id), slog.Any("error", err))
			return nil
		}
		tournament.Game = game
		return nil
	})
	g.Go(func() error {
		organizer, err := s.userRepo.GetByID(gctx, nil, tournament.OrganizerID)
		if err != nil {
			s.logger.Warn("failed to populate tournament organizer",
				slog.Int("tournament_id", id), slog.Any("error", err))
			return nil
		}
		organizer.PasswordHash = ""
		tournament.Organizer = organizer
		return nil
	})
	g.Go(func() error {
		bracketsList, err := s.bracketRepo.ListByTournament(gctx, nil, id)
		if err != nil {
			return err
		}
		tournament.Brackets = make([]models.Bracket, 0, len(bracketsList))
		for _, b := range bracketsList {
			tournament.Brackets = append(tournament.Brackets, *b)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, statuses []models.TournamentStatus, page, perPage int) ([]*models.Tournament, int, error) {
	for _, status := range statuses {
		if !status.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown tournament status %q", ErrValidationFailed, status)
		}
	}
	limit, offset := paginate(page, perPage)
	return s.tournamentRepo.List(ctx, statuses, limit, offset)
}

func (s *tournamentService) loadForOrganizer(ctx context.Context, actor models.Principal, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.OrganizerID != actor.UserID && !actor.IsStaff() {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *tournamentService) Update(ctx context.Context, actor models.Principal, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.loadForOrganizer(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Terminal() {
		return nil, fmt.Errorf("%w: a %s tournament cannot be edited", ErrInvalidState, tournament.Status)
	}

	// После открытия регистрации условия участия заморожены: менять взнос,
	// вместимость, структуру или игру под ногами зарегистрированных нельзя.
	restricted := input.GameID != nil || input.Structure != nil || input.TeamSize != nil ||
		input.MaxParticipants != nil || input.EntryFee != nil
	if restricted && tournament.Status != models.TournamentStatusDraft {
		return nil, ErrRestrictedFieldChange
	}

	if input.Name != nil {
		tournament.Name = *input.Name
	}
	if input.Rules != nil {
		tournament.Rules = *input.Rules
	}
	if input.PrizeStructure != nil {
		tournament.PrizeStructure = *input.PrizeStructure
	}
	if input.GameID != nil {
		game, err := s.gameRepo.GetByID(ctx, nil, *input.GameID)
		if err != nil {
			if errors.Is(err, repositories.ErrGameNotFound) {
				return nil, ErrGameNotFound
			}
			return nil, err
		}
		if !game.IsActive {
			return nil, fmt.Errorf("%w: game %q is not accepting new tournaments", ErrValidationFailed, game.Name)
		}
		tournament.GameID = game.ID
	}
	if input.Structure != nil {
		if !input.Structure.Valid() {
			return nil, fmt.Errorf("%w: unknown tournament structure %q", ErrValidationFailed, *input.Structure)
		}
		tournament.Structure = *input.Structure
	}
	if input.TeamSize != nil {
		if *input.TeamSize < 1 {
			return nil, fmt.Errorf("%w: team size must be at least 1", ErrValidationFailed)
		}
		tournament.TeamSize = *input.TeamSize
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants < 2 {
			return nil, ErrTournamentInvalidCapacity
		}
		tournament.MaxParticipants = *input.MaxParticipants
	}
	if input.EntryFee != nil {
		if *input.EntryFee < 0 {
			return nil, fmt.Errorf("%w: entry fee cannot be negative", ErrValidationFailed)
		}
		tournament.EntryFee = *input.EntryFee
	}
	if input.RegistrationStartDate != nil {
		tournament.RegistrationStartDate = *input.RegistrationStartDate
	}
	if input.RegistrationEndDate != nil {
		tournament.RegistrationEndDate = *input.RegistrationEndDate
	}
	if input.CheckInStartDate != nil {
		tournament.CheckInStartDate = *input.CheckInStartDate
	}
	if input.TournamentStartDate != nil {
		tournament.TournamentStartDate = *input.TournamentStartDate
	}
	if err := tournament.ValidateDates(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentInvalidDates, err)
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) transition(ctx context.Context, actor models.Principal, id int, next models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.loadForOrganizer(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !isValidTournamentTransition(tournament.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, next)
	}
	if tournament.Status == next {
		return tournament, nil
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, next); err != nil {
		return nil, err
	}
	tournament.Status = next
	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("status", string(next)))
	return tournament, nil
}

func (s *tournamentService) CloseRegistration(ctx context.Context, actor models.Principal, id int) (*models.Tournament, error) {
	return s.transition(ctx, actor, id, models.TournamentStatusRegistrationClosed)
}

func (s *tournamentService) Cancel(ctx context.Context, actor models.Principal, id int) (*models.Tournament, error) {
	tournament, err := s.transition(ctx, actor, id, models.TournamentStatusCanceled)
	if err != nil {
		return nil, err
	}

	registrations, err := s.registrationRepo.ListByTournament(ctx, nil, id, nil)
	if err != nil {
		s.logger.Error("failed to list registrations for cancellation notices",
			slog.Int("tournament_id", id), slog.Any("error", err))
		return tournament, nil
	}
	for _, reg := range registrations {
		s.notifier.Notify(ctx, reg.UserID, TemplateTournamentCanceled,
			models.NotificationParams{"tournament_name": tournament.Name},
			"tournament", tournament.ID)
	}
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, actor models.Principal, id int) error {
	tournament, err := s.loadForOrganizer(ctx, actor, id)
	if err != nil {
		return err
	}
	if tournament.Status == models.TournamentStatusActive {
		return ErrTournamentNotDeletable
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.disputeRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return err
		}
		if err := s.matchRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return err
		}
		if err := s.bracketRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return err
		}
		if err := s.registrationRepo.DeleteByTournament(ctx, exec, id); err != nil {
			return err
		}
		return s.tournamentRepo.Delete(ctx, exec, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("tournament deleted",
		slog.Int("tournament_id", id),
		slog.Int("deleted_by", actor.UserID))
	return nil
}
