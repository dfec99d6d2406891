package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenaone/arena/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserUsernameConflict  = errors.New("username is already in use")
	ErrUserPhoneConflict     = errors.New("phone number is already in use")
	ErrUserEmailConflict     = errors.New("email address is already in use")
	ErrInsufficientBalance   = errors.New("wallet balance is insufficient")
	ErrWalletAmountNegative  = errors.New("wallet amount must be positive")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	List(ctx context.Context, limit, offset int) ([]*models.User, int, error)

	// DebitWallet subtracts amount only when the balance covers it; the
	// guard in the UPDATE makes the storage layer the final arbiter
	// under concurrent debits.
	DebitWallet(ctx context.Context, exec SQLExecutor, userID int, amount int64) error
	CreditWallet(ctx context.Context, exec SQLExecutor, userID int, amount int64) error

	GetRefreshTokens(ctx context.Context, userID int) ([]string, error)
	SetRefreshTokens(ctx context.Context, userID int, tokens []string) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, username, phone_number, email, password_hash, avatar, role, status, wallet_balance, created_at, updated_at`

func (r *postgresUserRepository) scanUser(row interface{ Scan(...interface{}) error }, u *models.User) error {
	return row.Scan(
		&u.ID, &u.Username, &u.PhoneNumber, &u.Email, &u.PasswordHash, &u.Avatar,
		&u.Role, &u.Status, &u.WalletBalance, &u.CreatedAt, &u.UpdatedAt,
	)
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, phone_number, email, password_hash, avatar, role, status, wallet_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.PhoneNumber, user.Email, user.PasswordHash,
		user.Avatar, user.Role, user.Status, user.WalletBalance,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_username_key":
				return ErrUserUsernameConflict
			case "users_phone_number_key":
				return ErrUserPhoneConflict
			case "users_email_key":
				return ErrUserEmailConflict
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.User, error) {
	u := &models.User{}
	err := r.scanUser(pickExecutor(exec, r.db).QueryRowContext(ctx, query, args...), u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	return r.findOne(ctx, exec, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *postgresUserRepository) GetByPhoneNumber(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, nil, `SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone)
}

func (r *postgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, nil, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, avatar = $3, role = $4, status = $5, updated_at = NOW()
		WHERE id = $6`
	result, err := r.db.ExecContext(ctx, query,
		user.Username, user.Email, user.Avatar, user.Role, user.Status, user.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_username_key":
				return ErrUserUsernameConflict
			case "users_email_key":
				return ErrUserEmailConflict
			}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u := &models.User{}
		if err := r.scanUser(rows, u); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, total, nil
}

func (r *postgresUserRepository) DebitWallet(ctx context.Context, exec SQLExecutor, userID int, amount int64) error {
	if amount <= 0 {
		return ErrWalletAmountNegative
	}
	result, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - $1, updated_at = NOW()
		 WHERE id = $2 AND wallet_balance >= $1`, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	return checkAffectedRows(result, ErrInsufficientBalance)
}

func (r *postgresUserRepository) CreditWallet(ctx context.Context, exec SQLExecutor, userID int, amount int64) error {
	if amount <= 0 {
		return ErrWalletAmountNegative
	}
	result, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = NOW() WHERE id = $2`,
		amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) GetRefreshTokens(ctx context.Context, userID int) ([]string, error) {
	var tokens []string
	err := r.db.QueryRowContext(ctx,
		`SELECT refresh_tokens FROM users WHERE id = $1`, userID).Scan(pq.Array(&tokens))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load refresh tokens: %w", err)
	}
	return tokens, nil
}

func (r *postgresUserRepository) SetRefreshTokens(ctx context.Context, userID int, tokens []string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_tokens = $1, updated_at = NOW() WHERE id = $2`,
		pq.Array(tokens), userID)
	if err != nil {
		return fmt.Errorf("failed to store refresh tokens: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}
