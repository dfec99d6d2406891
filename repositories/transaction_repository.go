package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenaone/arena/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tx *models.Transaction) error
	GetByID(ctx context.Context, id int) (*models.Transaction, error)
	FindByAuthority(ctx context.Context, authority string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TransactionStatus, refID *string) error
	ListByUser(ctx context.Context, userID, limit, offset int) ([]*models.Transaction, int, error)
}

type postgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) TransactionRepository {
	return &postgresTransactionRepository{db: db}
}

const transactionColumns = `id, user_id, amount, type, status, description, authority, ref_id,
	related_entity_kind, related_entity_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }, t *models.Transaction) error {
	return row.Scan(
		&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.Description,
		&t.Authority, &t.RefID, &t.RelatedEntityKind, &t.RelatedEntityID,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTransactionRepository) Create(ctx context.Context, exec SQLExecutor, tx *models.Transaction) error {
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, amount, type, status, description, authority, ref_id,
			related_entity_kind, related_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		tx.UserID, tx.Amount, tx.Type, tx.Status, tx.Description, tx.Authority, tx.RefID,
		tx.RelatedEntityKind, tx.RelatedEntityID,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *postgresTransactionRepository) GetByID(ctx context.Context, id int) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}
	return t, nil
}

func (r *postgresTransactionRepository) FindByAuthority(ctx context.Context, authority string) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE authority = $1`, authority), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find transaction by authority: %w", err)
	}
	return t, nil
}

func (r *postgresTransactionRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TransactionStatus, refID *string) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `
		UPDATE transactions SET status = $1, ref_id = COALESCE($2, ref_id), updated_at = NOW()
		WHERE id = $3`,
		status, refID, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return checkAffectedRows(result, ErrTransactionNotFound)
}

func (r *postgresTransactionRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]*models.Transaction, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*models.Transaction, 0)
	for rows.Next() {
		t := &models.Transaction{}
		if err := scanTransaction(rows, t); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, total, nil
}
