package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenaone/arena/models"
)

var ErrBracketNotFound = errors.New("bracket not found")

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByID(ctx context.Context, id int) (*models.Bracket, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Bracket, error)
	SetCompleted(ctx context.Context, exec SQLExecutor, id int, completed bool) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, `
		INSERT INTO brackets (tournament_id, name, is_completed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		bracket.TournamentID, bracket.Name, bracket.IsCompleted,
	).Scan(&bracket.ID, &bracket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bracket: %w", err)
	}
	return nil
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, id int) (*models.Bracket, error) {
	b := &models.Bracket{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tournament_id, name, is_completed, created_at
		FROM brackets WHERE id = $1`, id,
	).Scan(&b.ID, &b.TournamentID, &b.Name, &b.IsCompleted, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to find bracket: %w", err)
	}
	return b, nil
}

func (r *postgresBracketRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Bracket, error) {
	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, `
		SELECT id, tournament_id, name, is_completed, created_at
		FROM brackets WHERE tournament_id = $1 ORDER BY id`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list brackets: %w", err)
	}
	defer rows.Close()

	brackets := make([]*models.Bracket, 0)
	for rows.Next() {
		b := &models.Bracket{}
		if err := rows.Scan(&b.ID, &b.TournamentID, &b.Name, &b.IsCompleted, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bracket row: %w", err)
		}
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bracket rows: %w", err)
	}
	return brackets, nil
}

func (r *postgresBracketRepository) SetCompleted(ctx context.Context, exec SQLExecutor, id int, completed bool) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`UPDATE brackets SET is_completed = $1 WHERE id = $2`, completed, id)
	if err != nil {
		return fmt.Errorf("failed to update bracket: %w", err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM brackets WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete brackets by tournament: %w", err)
	}
	return nil
}
