package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/arenaone/arena/storage"
	"github.com/google/uuid"
)

type UpdateProfileInput struct {
	Username *string
	Email    *string
}

type UserService interface {
	GetByID(ctx context.Context, userID int) (*models.User, error)
	List(ctx context.Context, page, perPage int) ([]*models.User, int, error)
	UpdateProfile(ctx context.Context, actor models.Principal, userID int, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, actor models.Principal, userID int, file io.Reader, contentType string) (*models.User, error)
	GetRatings(ctx context.Context, userID int) ([]models.EloRating, error)
	// Delete удаляет аккаунт. Капитанство блокирует удаление, пока не
	// передано; команды из одного человека удаляются вместе с аккаунтом.
	Delete(ctx context.Context, actor models.Principal, userID int) error
}

type userService struct {
	tx               TxRunner
	userRepo         repositories.UserRepository
	teamRepo         repositories.TeamRepository
	registrationRepo repositories.RegistrationRepository
	ratingRepo       repositories.RatingRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewUserService(
	tx TxRunner,
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	registrationRepo repositories.RegistrationRepository,
	ratingRepo repositories.RatingRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		tx:               tx,
		userRepo:         userRepo,
		teamRepo:         teamRepo,
		registrationRepo: registrationRepo,
		ratingRepo:       ratingRepo,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *userService) GetByID(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	ratings, err := s.ratingRepo.ListUserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.EloRatings = ratings
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) List(ctx context.Context, page, perPage int) ([]*models.User, int, error) {
	limit, offset := paginate(page, perPage)
	users, total, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, total, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor models.Principal, userID int, input UpdateProfileInput) (*models.User, error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if input.Username != nil {
		if *input.Username == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", ErrValidationFailed)
		}
		user.Username = *input.Username
	}
	if input.Email != nil {
		user.Email = input.Email
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserUsernameConflict):
			return nil, ErrUserUsernameConflict
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, actor models.Principal, userID int, file io.Reader, contentType string) (*models.User, error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	ext, err := storage.ExtensionForContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	user.Avatar = result.Location
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetRatings(ctx context.Context, userID int) ([]models.EloRating, error) {
	return s.ratingRepo.ListUserRatings(ctx, userID)
}

func (s *userService) Delete(ctx context.Context, actor models.Principal, userID int) error {
	if actor.UserID != userID && !actor.IsAdmin() {
		return ErrForbiddenOperation
	}
	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	captained, err := s.teamRepo.ListCaptainedBy(ctx, nil, userID)
	if err != nil {
		return err
	}
	singletons := make([]*models.Team, 0, len(captained))
	for _, team := range captained {
		if len(team.MemberIDs) > 1 {
			return fmt.Errorf("%w: transfer captaincy of team %q first", ErrCaptaincyConflict, team.Name)
		}
		singletons = append(singletons, team)
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, team := range singletons {
			if err := s.teamRepo.Delete(ctx, exec, team.ID); err != nil {
				return err
			}
		}
		if err := s.teamRepo.RemoveUserFromAllTeams(ctx, exec, userID); err != nil {
			return err
		}
		if err := s.registrationRepo.DeleteByUser(ctx, exec, userID); err != nil {
			return err
		}
		return s.userRepo.Delete(ctx, exec, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted",
		slog.Int("user_id", userID),
		slog.Int("deleted_by", actor.UserID),
		slog.Int("singleton_teams_removed", len(singletons)))
	return nil
}
