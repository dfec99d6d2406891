package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaone/arena/brackets"
	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

// BracketBroadcaster отдаёт живые обновления сетки подписчикам комнаты
// турнира. Реализация — websocket-хаб; в тестах подменяется заглушкой.
type BracketBroadcaster interface {
	BroadcastToRoom(roomID string, message brackets.Message)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToRoom(string, brackets.Message) {}

// NoopBroadcaster используется, когда живые обновления отключены.
func NoopBroadcaster() BracketBroadcaster { return noopBroadcaster{} }

type BracketService interface {
	// GenerateBracket строит первый раунд и переводит турнир в active.
	GenerateBracket(ctx context.Context, actor models.Principal, tournamentID int) (*models.Bracket, error)
	GetBracket(ctx context.Context, bracketID int) (*models.Bracket, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Bracket, error)
}

type bracketService struct {
	tx               TxRunner
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	bracketRepo      repositories.BracketRepository
	matchRepo        repositories.MatchRepository
	broadcaster      BracketBroadcaster
	logger           *slog.Logger
}

func NewBracketService(
	tx TxRunner,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	broadcaster BracketBroadcaster,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		bracketRepo:      bracketRepo,
		matchRepo:        matchRepo,
		broadcaster:      broadcaster,
		logger:           logger,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, actor models.Principal, tournamentID int) (*models.Bracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.OrganizerID != actor.UserID && !actor.IsStaff() {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentStatusRegistrationClosed {
		return nil, fmt.Errorf("%w: bracket generation requires a closed registration, tournament is %s",
			ErrInvalidState, tournament.Status)
	}

	generator, err := brackets.ForStructure(tournament.Structure)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStructureUnsupported, tournament.Structure)
	}

	registrations, err := s.registrationRepo.ListByTournament(ctx, nil, tournamentID, []models.RegistrationStatus{
		models.RegistrationStatusRegistered,
		models.RegistrationStatusCheckedIn,
	})
	if err != nil {
		return nil, err
	}
	if len(registrations) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	teamTournament := tournament.IsTeamTournament()
	participants := make([]models.ParticipantRef, 0, len(registrations))
	for _, reg := range registrations {
		participants = append(participants, reg.ParticipantRef(teamTournament))
	}

	matches, err := generator.Generate(ctx, brackets.GenerateParams{
		Tournament:   tournament,
		Participants: participants,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughParticipants) {
			return nil, ErrNotEnoughParticipants
		}
		return nil, err
	}

	bracket := &models.Bracket{
		TournamentID: tournamentID,
		Name:         fmt.Sprintf("%s Round 1", generator.Name()),
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.bracketRepo.Create(ctx, exec, bracket); err != nil {
			return err
		}
		for _, m := range matches {
			m.BracketID = bracket.ID
			if err := s.matchRepo.Create(ctx, exec, m); err != nil {
				return err
			}
		}
		for _, reg := range registrations {
			if err := s.registrationRepo.UpdateStatus(ctx, exec, reg.ID, models.RegistrationStatusPlaying); err != nil {
				return err
			}
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentStatusActive)
	})
	if err != nil {
		return nil, err
	}

	bracket.Matches = make([]models.Match, 0, len(matches))
	for _, m := range matches {
		bracket.Matches = append(bracket.Matches, *m)
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("bracket_id", bracket.ID),
		slog.Int("matches", len(matches)))

	s.broadcaster.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.Message{
		Type:    "BRACKET_GENERATED",
		Payload: bracket,
		RoomID:  brackets.TournamentRoom(tournamentID),
	})
	return bracket, nil
}

func (s *bracketService) GetBracket(ctx context.Context, bracketID int) (*models.Bracket, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, bracketID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	matches, err := s.matchRepo.ListByBracket(ctx, nil, bracketID)
	if err != nil {
		return nil, err
	}
	bracket.Matches = make([]models.Match, 0, len(matches))
	for _, m := range matches {
		bracket.Matches = append(bracket.Matches, *m)
	}
	return bracket, nil
}

func (s *bracketService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Bracket, error) {
	return s.bracketRepo.ListByTournament(ctx, nil, tournamentID)
}
