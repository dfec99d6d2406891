package services

import (
	"context"
	"testing"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/arenaone/arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	userRepo *fakeUserRepo
	user     *models.User
	tokens   []string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	f := &authFixture{
		user: &models.User{
			ID:           1,
			Username:     "player_one",
			PhoneNumber:  "+15550001234",
			PasswordHash: string(hash),
			Role:         models.RoleUser,
			Status:       models.UserStatusActive,
		},
	}
	f.userRepo = &fakeUserRepo{
		create: func(ctx context.Context, user *models.User) error {
			user.ID = 2
			return nil
		},
		getByID: func(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.User, error) {
			if id != f.user.ID {
				return nil, repositories.ErrUserNotFound
			}
			return f.user, nil
		},
		getByPhoneNumber: func(ctx context.Context, phone string) (*models.User, error) {
			if phone != f.user.PhoneNumber {
				return nil, repositories.ErrUserNotFound
			}
			return f.user, nil
		},
		getRefreshTokens: func(ctx context.Context, userID int) ([]string, error) {
			return f.tokens, nil
		},
		setRefreshTokens: func(ctx context.Context, userID int, tokens []string) error {
			f.tokens = tokens
			return nil
		},
	}
	return f
}

func (f *authFixture) service() AuthService {
	return NewAuthService(f.userRepo, "test-secret", 15*time.Minute, 30*24*time.Hour, testLogger())
}

func TestSignUp(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.service().SignUp(context.Background(), SignUpInput{
		Username:    "newcomer",
		PhoneNumber: "+15550009999",
		Password:    "long enough secret",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must never leave the service")
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service().SignUp(context.Background(), SignUpInput{
		Username:    "newcomer",
		PhoneNumber: "+15550009999",
		Password:    "short",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestSignUpMapsConflicts(t *testing.T) {
	f := newAuthFixture(t)
	f.userRepo.create = func(ctx context.Context, user *models.User) error {
		return repositories.ErrUserPhoneConflict
	}

	_, err := f.service().SignUp(context.Background(), SignUpInput{
		Username:    "newcomer",
		PhoneNumber: "+15550001234",
		Password:    "long enough secret",
	})
	assert.ErrorIs(t, err, ErrUserPhoneConflict)
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newAuthFixture(t)

	user, pair, err := f.service().Login(context.Background(), "+15550001234", "correct horse")
	require.NoError(t, err)

	assert.Equal(t, 1, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Contains(t, f.tokens, pair.RefreshToken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.service().Login(context.Background(), "+15550001234", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownPhone(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.service().Login(context.Background(), "+15550000000", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsBannedUser(t *testing.T) {
	f := newAuthFixture(t)
	f.user.Status = models.UserStatusBanned

	_, _, err := f.service().Login(context.Background(), "+15550001234", "correct horse")
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()

	_, pair, err := svc.Login(context.Background(), "+15550001234", "correct horse")
	require.NoError(t, err)

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	assert.Contains(t, f.tokens, next.RefreshToken)
	assert.NotContains(t, f.tokens, pair.RefreshToken, "refresh must revoke the exchanged token")
}

func TestRefreshReplayRevokesAllSessions(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()

	_, pair, err := svc.Login(context.Background(), "+15550001234", "correct horse")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	// Повторное использование уже обменянного токена: все сессии сброшены.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Empty(t, f.tokens)
}

func TestRefreshRejectsForeignSignature(t *testing.T) {
	f := newAuthFixture(t)
	foreign := NewAuthService(f.userRepo, "other-secret", time.Minute, time.Hour, testLogger())

	_, pair, err := foreign.Login(context.Background(), "+15550001234", "correct horse")
	require.NoError(t, err)

	_, err = f.service().Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSessionCapEvictsOldest(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()

	var first string
	for i := 0; i < maxRefreshTokens+2; i++ {
		_, pair, err := svc.Login(context.Background(), "+15550001234", "correct horse")
		require.NoError(t, err)
		if i == 0 {
			first = pair.RefreshToken
		}
	}

	assert.Len(t, f.tokens, maxRefreshTokens)
	assert.NotContains(t, f.tokens, first)
}

func TestLogoutRemovesToken(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()

	_, pair, err := svc.Login(context.Background(), "+15550001234", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken))
	assert.NotContains(t, f.tokens, pair.RefreshToken)
}
