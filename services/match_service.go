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

// ReportResultInput несёт ровно одно из двух: Scores для матчей "лицом к
// лицу" либо Results для battle-royale.
type ReportResultInput struct {
	Scores  models.ScoreList
	Results models.ResultList
}

type LobbyInput struct {
	Code     string
	Password string
}

type MatchService interface {
	// ReportResult фиксирует заявленный результат и переводит матч в
	// disputed: каждый самоотчёт предварителен и ждёт рассмотрения.
	ReportResult(ctx context.Context, actor models.Principal, matchID int, input ReportResultInput) (*models.Match, error)
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID, page, perPage int) ([]*models.Match, int, error)
	ListByParticipant(ctx context.Context, ref models.ParticipantRef, page, perPage int) ([]*models.Match, int, error)
	// SetLobby сохраняет данные лобби, PublishLobby открывает их участникам
	// и переводит матч из pending в ready.
	SetLobby(ctx context.Context, actor models.Principal, matchID int, input LobbyInput) (*models.Match, error)
	PublishLobby(ctx context.Context, actor models.Principal, matchID int) (*models.Match, error)
	StartMatch(ctx context.Context, actor models.Principal, matchID int) (*models.Match, error)
}

type matchService struct {
	tx             TxRunner
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	broadcaster    BracketBroadcaster
	notifier       Notifier
	logger         *slog.Logger
}

func NewMatchService(
	tx TxRunner,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	broadcaster BracketBroadcaster,
	notifier Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:             tx,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		broadcaster:    broadcaster,
		notifier:       notifier,
		logger:         logger,
	}
}

// actorParticipant возвращает участника матча, за которого выступает actor:
// самого пользователя либо команду, в которой он состоит.
func (s *matchService) actorParticipant(ctx context.Context, match *models.Match, userID int) (*models.ParticipantRef, error) {
	for _, p := range match.Participants {
		switch p.Kind {
		case models.ParticipantKindUser:
			if p.ID == userID {
				ref := p
				return &ref, nil
			}
		case models.ParticipantKindTeam:
			team, err := s.teamRepo.GetByID(ctx, nil, p.ID)
			if err != nil {
				if errors.Is(err, repositories.ErrTeamNotFound) {
					continue
				}
				return nil, err
			}
			if team.HasMember(userID) {
				ref := p
				return &ref, nil
			}
		}
	}
	return nil, ErrForbiddenOperation
}

func (s *matchService) ReportResult(ctx context.Context, actor models.Principal, matchID int, input ReportResultInput) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if _, err := s.actorParticipant(ctx, match, actor.UserID); err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusActive {
		return nil, fmt.Errorf("%w: results can only be reported for an active match, got %s",
			ErrInvalidState, match.Status)
	}
	if match.ReportedBy != nil {
		return nil, ErrResultAlreadyReported
	}

	if err := validateReportedResult(match, input); err != nil {
		return nil, err
	}

	match.Scores = input.Scores
	match.Results = input.Results
	match.ReportedBy = &actor.UserID
	match.Status = models.MatchStatusDisputed

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.matchRepo.Update(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match result reported",
		slog.Int("match_id", matchID),
		slog.Int("reporter_id", actor.UserID))

	room := brackets.TournamentRoom(match.TournamentID)
	s.broadcaster.BroadcastToRoom(room, brackets.Message{
		Type:    "MATCH_UPDATED",
		Payload: match,
		RoomID:  room,
	})
	return match, nil
}

// validateReportedResult сверяет заявленный результат с матчем: ровно один
// из двух видов payload, полный и точный состав участников, исключение
// ничьих для счёта "лицом к лицу".
func validateReportedResult(match *models.Match, input ReportResultInput) error {
	hasScores := len(input.Scores) > 0
	hasResults := len(input.Results) > 0
	if hasScores == hasResults {
		return fmt.Errorf("%w: exactly one of scores or results is required", ErrValidationFailed)
	}

	if hasScores {
		if len(input.Scores) != 2 {
			return fmt.Errorf("%w: head-to-head results require exactly two scores", ErrValidationFailed)
		}
		reported := models.ParticipantList{input.Scores[0].Participant, input.Scores[1].Participant}
		if err := participantSetsEqual(match.Participants, reported); err != nil {
			return err
		}
		if input.Scores[0].Score == input.Scores[1].Score {
			return ErrTieNotAllowed
		}
		return nil
	}

	reported := make(models.ParticipantList, 0, len(input.Results))
	for _, r := range input.Results {
		reported = append(reported, r.Participant)
	}
	return participantSetsEqual(match.Participants, reported)
}

// participantSetsEqual сравнивает составы как неупорядоченные множества.
func participantSetsEqual(expected, reported models.ParticipantList) error {
	if len(expected) != len(reported) {
		return ErrParticipantMismatch
	}
	for _, p := range expected {
		if !reported.Contains(p) {
			return ErrParticipantMismatch
		}
	}
	for _, p := range reported {
		if !expected.Contains(p) {
			return ErrParticipantMismatch
		}
	}
	return nil
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID, page, perPage int) ([]*models.Match, int, error) {
	limit, offset := paginate(page, perPage)
	return s.matchRepo.ListByTournament(ctx, tournamentID, limit, offset)
}

func (s *matchService) ListByParticipant(ctx context.Context, ref models.ParticipantRef, page, perPage int) ([]*models.Match, int, error) {
	limit, offset := paginate(page, perPage)
	return s.matchRepo.ListByParticipant(ctx, ref, limit, offset)
}

func (s *matchService) loadMatchForOrganizer(ctx context.Context, actor models.Principal, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.OrganizerID != actor.UserID && !actor.IsStaff() {
		return nil, ErrForbiddenOperation
	}
	return match, nil
}

func (s *matchService) SetLobby(ctx context.Context, actor models.Principal, matchID int, input LobbyInput) (*models.Match, error) {
	match, err := s.loadMatchForOrganizer(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	match.Lobby.Code = input.Code
	match.Lobby.Password = input.Password
	if err := s.matchRepo.Update(ctx, nil, match); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) PublishLobby(ctx context.Context, actor models.Principal, matchID int) (*models.Match, error) {
	match, err := s.loadMatchForOrganizer(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusPending {
		return nil, fmt.Errorf("%w: lobby can only be published for a pending match, got %s",
			ErrInvalidState, match.Status)
	}
	if match.Lobby.Code == "" {
		return nil, fmt.Errorf("%w: lobby details must be set before publishing", ErrValidationFailed)
	}

	match.Lobby.IsPublished = true
	match.Status = models.MatchStatusReady
	if err := s.matchRepo.Update(ctx, nil, match); err != nil {
		return nil, err
	}

	for _, p := range match.Participants {
		if p.Kind == models.ParticipantKindUser {
			s.notifier.Notify(ctx, p.ID, TemplateMatchReady,
				models.NotificationParams{"match_id": match.ID},
				"match", match.ID)
		}
	}

	room := brackets.TournamentRoom(match.TournamentID)
	s.broadcaster.BroadcastToRoom(room, brackets.Message{
		Type:    "MATCH_UPDATED",
		Payload: match,
		RoomID:  room,
	})
	return match, nil
}

func (s *matchService) StartMatch(ctx context.Context, actor models.Principal, matchID int) (*models.Match, error) {
	match, err := s.loadMatchForOrganizer(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusReady {
		return nil, fmt.Errorf("%w: only a ready match can be started, got %s",
			ErrInvalidState, match.Status)
	}
	match.Status = models.MatchStatusActive
	if err := s.matchRepo.Update(ctx, nil, match); err != nil {
		return nil, err
	}

	room := brackets.TournamentRoom(match.TournamentID)
	s.broadcaster.BroadcastToRoom(room, brackets.Message{
		Type:    "MATCH_UPDATED",
		Payload: match,
		RoomID:  room,
	})
	return match, nil
}
