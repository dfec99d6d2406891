package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaone/arena/cache"
	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
)

type CreateTeamInput struct {
	Name   string
	Tag    string
	GameID int
}

type TeamService interface {
	Create(ctx context.Context, actor models.Principal, input CreateTeamInput) (*models.Team, error)
	// GetByID читает сквозь кэш; промах заполняется из БД.
	GetByID(ctx context.Context, teamID int) (*models.Team, error)
	List(ctx context.Context, gameID *int, page, perPage int) ([]*models.Team, int, error)
	Rename(ctx context.Context, actor models.Principal, teamID int, name, tag string) (*models.Team, error)
	AddMember(ctx context.Context, actor models.Principal, teamID, userID int) (*models.Team, error)
	RemoveMember(ctx context.Context, actor models.Principal, teamID, userID int) (*models.Team, error)
	TransferCaptaincy(ctx context.Context, actor models.Principal, teamID, newCaptainID int) (*models.Team, error)
	Delete(ctx context.Context, actor models.Principal, teamID int) error
}

type teamService struct {
	teamRepo         repositories.TeamRepository
	gameRepo         repositories.GameRepository
	userRepo         repositories.UserRepository
	registrationRepo repositories.RegistrationRepository
	teamCache        cache.TeamCache
	logger           *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	gameRepo repositories.GameRepository,
	userRepo repositories.UserRepository,
	registrationRepo repositories.RegistrationRepository,
	teamCache cache.TeamCache,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:         teamRepo,
		gameRepo:         gameRepo,
		userRepo:         userRepo,
		registrationRepo: registrationRepo,
		teamCache:        teamCache,
		logger:           logger,
	}
}

func (s *teamService) Create(ctx context.Context, actor models.Principal, input CreateTeamInput) (*models.Team, error) {
	if input.Name == "" || input.Tag == "" {
		return nil, fmt.Errorf("%w: team name and tag are required", ErrValidationFailed)
	}
	if _, err := s.gameRepo.GetByID(ctx, nil, input.GameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	team := &models.Team{
		Name:      input.Name,
		Tag:       input.Tag,
		GameID:    input.GameID,
		CaptainID: actor.UserID,
		Stats:     models.TeamStats{RankPoints: models.DefaultEloRating},
		MemberIDs: []int{actor.UserID},
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		case errors.Is(err, repositories.ErrTeamTagConflict):
			return nil, ErrTeamTagConflict
		}
		return nil, err
	}

	s.logger.Info("team created",
		slog.Int("team_id", team.ID),
		slog.Int("captain_id", actor.UserID))
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, teamID int) (*models.Team, error) {
	if team, err := s.teamCache.Get(ctx, teamID); err == nil {
		return team, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Недоступный кэш не ломает чтение, идём в БД.
		s.logger.Warn("team cache read failed", slog.Int("team_id", teamID), slog.Any("error", err))
	}

	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if err := s.teamCache.Set(ctx, team); err != nil {
		s.logger.Warn("team cache write failed", slog.Int("team_id", teamID), slog.Any("error", err))
	}
	return team, nil
}

func (s *teamService) List(ctx context.Context, gameID *int, page, perPage int) ([]*models.Team, int, error) {
	limit, offset := paginate(page, perPage)
	return s.teamRepo.List(ctx, gameID, limit, offset)
}

// invalidate сбрасывает кэш команды после любой мутации.
func (s *teamService) invalidate(ctx context.Context, teamID int) {
	if err := s.teamCache.Invalidate(ctx, teamID); err != nil {
		s.logger.Warn("team cache invalidation failed", slog.Int("team_id", teamID), slog.Any("error", err))
	}
}

func (s *teamService) loadForCaptain(ctx context.Context, actor models.Principal, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.CaptainID != actor.UserID && !actor.IsStaff() {
		return nil, ErrCaptainActionForbidden
	}
	return team, nil
}

func (s *teamService) Rename(ctx context.Context, actor models.Principal, teamID int, name, tag string) (*models.Team, error) {
	team, err := s.loadForCaptain(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		team.Name = name
	}
	if tag != "" {
		team.Tag = tag
	}
	if err := s.teamRepo.Update(ctx, team); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		case errors.Is(err, repositories.ErrTeamTagConflict):
			return nil, ErrTeamTagConflict
		}
		return nil, err
	}
	s.invalidate(ctx, teamID)
	return team, nil
}

func (s *teamService) AddMember(ctx context.Context, actor models.Principal, teamID, userID int) (*models.Team, error) {
	team, err := s.loadForCaptain(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := s.teamRepo.AddMember(ctx, nil, teamID, userID); err != nil {
		if errors.Is(err, repositories.ErrTeamMemberConflict) {
			return nil, fmt.Errorf("%w: user is already a team member", ErrValidationFailed)
		}
		return nil, err
	}
	team.MemberIDs = append(team.MemberIDs, userID)
	s.invalidate(ctx, teamID)
	return team, nil
}

func (s *teamService) RemoveMember(ctx context.Context, actor models.Principal, teamID, userID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	// Выйти можно самому; исключить другого может только капитан.
	if actor.UserID != userID && team.CaptainID != actor.UserID && !actor.IsStaff() {
		return nil, ErrCaptainActionForbidden
	}
	if userID == team.CaptainID {
		return nil, fmt.Errorf("%w: the captain must transfer captaincy before leaving", ErrValidationFailed)
	}
	if err := s.teamRepo.RemoveMember(ctx, nil, teamID, userID); err != nil {
		if errors.Is(err, repositories.ErrTeamMemberMissing) {
			return nil, fmt.Errorf("%w: user is not a team member", ErrValidationFailed)
		}
		return nil, err
	}

	remaining := make([]int, 0, len(team.MemberIDs))
	for _, id := range team.MemberIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	team.MemberIDs = remaining
	s.invalidate(ctx, teamID)
	return team, nil
}

func (s *teamService) TransferCaptaincy(ctx context.Context, actor models.Principal, teamID, newCaptainID int) (*models.Team, error) {
	team, err := s.loadForCaptain(ctx, actor, teamID)
	if err != nil {
		return nil, err
	}
	if !team.HasMember(newCaptainID) {
		return nil, fmt.Errorf("%w: the new captain must already be a team member", ErrValidationFailed)
	}
	team.CaptainID = newCaptainID
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, err
	}
	s.invalidate(ctx, teamID)
	return team, nil
}

func (s *teamService) Delete(ctx context.Context, actor models.Principal, teamID int) error {
	team, err := s.loadForCaptain(ctx, actor, teamID)
	if err != nil {
		return err
	}
	active, err := s.registrationRepo.HasActiveTeamRegistration(ctx, teamID)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("%w: the team is registered in an ongoing tournament", ErrInvalidState)
	}
	if err := s.teamRepo.Delete(ctx, nil, teamID); err != nil {
		return err
	}
	s.invalidate(ctx, teamID)
	s.logger.Info("team deleted", slog.Int("team_id", team.ID), slog.Int("deleted_by", actor.UserID))
	return nil
}
