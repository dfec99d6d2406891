package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxRefreshTokens  = 5
)

type SignUpInput struct {
	Username    string
	PhoneNumber string
	Email       *string
	Password    string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService interface {
	SignUp(ctx context.Context, input SignUpInput) (*models.User, error)
	Login(ctx context.Context, phoneNumber, password string) (*models.User, *TokenPair, error)
	// Refresh обменивает refresh-токен на новую пару с ротацией: старый
	// токен отзывается в том же обновлении, что и выдача нового.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

func NewAuthService(
	userRepo repositories.UserRepository,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

func (s *authService) SignUp(ctx context.Context, input SignUpInput) (*models.User, error) {
	if input.Username == "" || input.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: username and phone number are required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		PhoneNumber:  input.PhoneNumber,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Status:       models.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserUsernameConflict):
			return nil, ErrUserUsernameConflict
		case errors.Is(err, repositories.ErrUserPhoneConflict):
			return nil, ErrUserPhoneConflict
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		}
		return nil, err
	}

	user.PasswordHash = ""
	s.logger.Info("user signed up", slog.Int("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

func (s *authService) Login(ctx context.Context, phoneNumber, password string) (*models.User, *TokenPair, error) {
	user, err := s.userRepo.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to compare password hash: %w", err)
	}
	if user.Status == models.UserStatusBanned {
		return nil, nil, ErrForbiddenOperation
	}

	pair, err := s.issueTokenPair(ctx, user, "")
	if err != nil {
		return nil, nil, err
	}

	user.PasswordHash = ""
	return user, pair, nil
}

// issueTokenPair выдаёт новую пару и регистрирует refresh-токен у
// пользователя. replaced, если непустой, отзывается тем же обновлением.
func (s *authService) issueTokenPair(ctx context.Context, user *models.User, replaced string) (*TokenPair, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"status":  string(user.Status),
		"iat":     now.Unix(),
		"exp":     now.Add(s.accessTTL).Unix(),
	})
	accessToken, err := access.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(s.refreshTTL).Unix(),
	})
	refreshToken, err := refresh.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	stored, err := s.userRepo.GetRefreshTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	next := make([]string, 0, len(stored)+1)
	for _, t := range stored {
		if t != replaced {
			next = append(next, t)
		}
	}
	next = append(next, refreshToken)
	// Ограничиваем число параллельных сессий, вытесняя самые старые.
	if len(next) > maxRefreshTokens {
		next = next[len(next)-maxRefreshTokens:]
	}
	if err := s.userRepo.SetRefreshTokens(ctx, user.ID, next); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) parseRefreshToken(refreshToken string) (int, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrAuthenticationFailed
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrAuthenticationFailed
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrAuthenticationFailed
	}
	return int(userIDFloat), nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}

	stored, err := s.userRepo.GetRefreshTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	known := false
	for _, t := range stored {
		if t == refreshToken {
			known = true
			break
		}
	}
	if !known {
		// Токен валиден по подписи, но уже отозван. Возможно, украден:
		// сбрасываем все сессии пользователя.
		s.logger.Warn("revoked refresh token replay detected", slog.Int("user_id", userID))
		if err := s.userRepo.SetRefreshTokens(ctx, userID, nil); err != nil {
			s.logger.Error("failed to revoke user sessions", slog.Int("user_id", userID), slog.Any("error", err))
		}
		return nil, ErrAuthenticationFailed
	}

	return s.issueTokenPair(ctx, user, refreshToken)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	userID, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	stored, err := s.userRepo.GetRefreshTokens(ctx, userID)
	if err != nil {
		return err
	}
	next := make([]string, 0, len(stored))
	for _, t := range stored {
		if t != refreshToken {
			next = append(next, t)
		}
	}
	return s.userRepo.SetRefreshTokens(ctx, userID, next)
}
