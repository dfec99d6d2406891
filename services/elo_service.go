package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

// eloKFactor — стандартный K-фактор для всех обновлений.
const eloKFactor = 32

// expectedScore возвращает ожидаемый результат участника a против b.
func expectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// updatedRatings вычисляет новые рейтинги победителя и проигравшего.
func updatedRatings(winnerRating, loserRating int) (int, int) {
	newWinner := int(math.Round(float64(winnerRating) + eloKFactor*(1-expectedScore(winnerRating, loserRating))))
	newLoser := int(math.Round(float64(loserRating) + eloKFactor*(0-expectedScore(loserRating, winnerRating))))
	return newWinner, newLoser
}

// EloService обновляет рейтинги по итогам решённого матча.
// Вызывается внутри транзакции, завершившей матч: exec прокидывается в
// репозитории, чтобы обновления рейтинга откатывались вместе с ней.
type EloService interface {
	ApplyMatchOutcome(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, gameID int) error
}

type eloService struct {
	ratingRepo repositories.RatingRepository
	teamRepo   repositories.TeamRepository
	logger     *slog.Logger
}

func NewEloService(
	ratingRepo repositories.RatingRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) EloService {
	return &eloService{
		ratingRepo: ratingRepo,
		teamRepo:   teamRepo,
		logger:     logger,
	}
}

// ApplyMatchOutcome — no-op, если у матча не ровно два участника или нет
// победителя: bye-матчи и battle-royale рейтинг не двигают.
func (s *eloService) ApplyMatchOutcome(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, gameID int) error {
	if len(match.Participants) != 2 || match.Winner == nil {
		return nil
	}

	winner := *match.Winner
	var loser models.ParticipantRef
	found := false
	for _, p := range match.Participants {
		if !p.Equal(winner) {
			loser = p
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("match %d winner is not distinct from participants", match.ID)
	}

	switch winner.Kind {
	case models.ParticipantKindUser:
		return s.applyUserOutcome(ctx, exec, winner.ID, loser.ID, gameID, match.ID)
	case models.ParticipantKindTeam:
		return s.applyTeamOutcome(ctx, exec, winner.ID, loser.ID, match.ID)
	default:
		return fmt.Errorf("match %d has unknown participant kind %q", match.ID, winner.Kind)
	}
}

func (s *eloService) applyUserOutcome(ctx context.Context, exec repositories.SQLExecutor, winnerID, loserID, gameID, matchID int) error {
	winnerRating, err := s.ratingRepo.GetUserRating(ctx, exec, winnerID, gameID)
	if err != nil {
		return fmt.Errorf("failed to load winner rating: %w", err)
	}
	loserRating, err := s.ratingRepo.GetUserRating(ctx, exec, loserID, gameID)
	if err != nil {
		return fmt.Errorf("failed to load loser rating: %w", err)
	}

	newWinner, newLoser := updatedRatings(winnerRating, loserRating)

	if err := s.ratingRepo.UpsertUserRating(ctx, exec, winnerID, gameID, newWinner); err != nil {
		return fmt.Errorf("failed to store winner rating: %w", err)
	}
	if err := s.ratingRepo.UpsertUserRating(ctx, exec, loserID, gameID, newLoser); err != nil {
		return fmt.Errorf("failed to store loser rating: %w", err)
	}

	s.logger.Info("elo ratings applied",
		slog.Int("match_id", matchID),
		slog.Int("winner_id", winnerID), slog.Int("winner_rating", newWinner),
		slog.Int("loser_id", loserID), slog.Int("loser_rating", newLoser))
	return nil
}

func (s *eloService) applyTeamOutcome(ctx context.Context, exec repositories.SQLExecutor, winnerID, loserID, matchID int) error {
	winnerTeam, err := s.teamRepo.GetByID(ctx, exec, winnerID)
	if err != nil {
		return fmt.Errorf("failed to load winner team: %w", err)
	}
	loserTeam, err := s.teamRepo.GetByID(ctx, exec, loserID)
	if err != nil {
		return fmt.Errorf("failed to load loser team: %w", err)
	}

	newWinner, newLoser := updatedRatings(winnerTeam.Stats.RankPoints, loserTeam.Stats.RankPoints)

	winnerStats := winnerTeam.Stats
	winnerStats.RankPoints = newWinner
	winnerStats.Wins++
	if err := s.teamRepo.UpdateStats(ctx, exec, winnerID, winnerStats); err != nil {
		return fmt.Errorf("failed to store winner team stats: %w", err)
	}

	loserStats := loserTeam.Stats
	loserStats.RankPoints = newLoser
	loserStats.Losses++
	if err := s.teamRepo.UpdateStats(ctx, exec, loserID, loserStats); err != nil {
		return fmt.Errorf("failed to store loser team stats: %w", err)
	}

	s.logger.Info("team rank points applied",
		slog.Int("match_id", matchID),
		slog.Int("winner_team_id", winnerID), slog.Int("winner_rank_points", newWinner),
		slog.Int("loser_team_id", loserID), slog.Int("loser_rank_points", newLoser))
	return nil
}
