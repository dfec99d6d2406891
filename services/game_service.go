package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

type GameInput struct {
	Name      string
	ShortName string
	IconURL   string
	BannerURL string
	IsActive  bool
}

// GameService ведёт каталог игр. Мутации доступны только администраторам.
type GameService interface {
	Create(ctx context.Context, actor models.Principal, input GameInput) (*models.Game, error)
	Update(ctx context.Context, actor models.Principal, gameID int, input GameInput) (*models.Game, error)
	GetByID(ctx context.Context, gameID int) (*models.Game, error)
	List(ctx context.Context, onlyActive bool) ([]*models.Game, error)
}

type gameService struct {
	gameRepo repositories.GameRepository
	logger   *slog.Logger
}

func NewGameService(gameRepo repositories.GameRepository, logger *slog.Logger) GameService {
	return &gameService{gameRepo: gameRepo, logger: logger}
}

func (s *gameService) Create(ctx context.Context, actor models.Principal, input GameInput) (*models.Game, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: game name is required", ErrValidationFailed)
	}
	game := &models.Game{
		Name:      input.Name,
		ShortName: input.ShortName,
		IconURL:   input.IconURL,
		BannerURL: input.BannerURL,
		IsActive:  input.IsActive,
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		if errors.Is(err, repositories.ErrGameNameConflict) {
			return nil, fmt.Errorf("%w: a game with this name already exists", ErrValidationFailed)
		}
		return nil, err
	}
	s.logger.Info("game created", slog.Int("game_id", game.ID), slog.String("name", game.Name))
	return game, nil
}

func (s *gameService) Update(ctx context.Context, actor models.Principal, gameID int, input GameInput) (*models.Game, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	game, err := s.gameRepo.GetByID(ctx, nil, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if input.Name != "" {
		game.Name = input.Name
	}
	if input.ShortName != "" {
		game.ShortName = input.ShortName
	}
	if input.IconURL != "" {
		game.IconURL = input.IconURL
	}
	if input.BannerURL != "" {
		game.BannerURL = input.BannerURL
	}
	game.IsActive = input.IsActive
	if err := s.gameRepo.Update(ctx, game); err != nil {
		if errors.Is(err, repositories.ErrGameNameConflict) {
			return nil, fmt.Errorf("%w: a game with this name already exists", ErrValidationFailed)
		}
		return nil, err
	}
	return game, nil
}

func (s *gameService) GetByID(ctx context.Context, gameID int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, nil, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

func (s *gameService) List(ctx context.Context, onlyActive bool) ([]*models.Game, error) {
	return s.gameRepo.List(ctx, onlyActive)
}
