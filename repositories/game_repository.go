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
	ErrGameNotFound     = errors.New("game not found")
	ErrGameNameConflict = errors.New("a game with this name already exists")
)

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	Update(ctx context.Context, game *models.Game) error
	List(ctx context.Context, onlyActive bool) ([]*models.Game, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

const gameColumns = `id, name, short_name, icon_url, banner_url, is_active, created_at`

func scanGame(row interface{ Scan(...interface{}) error }, g *models.Game) error {
	return row.Scan(&g.ID, &g.Name, &g.ShortName, &g.IconURL, &g.BannerURL, &g.IsActive, &g.CreatedAt)
}

func (r *postgresGameRepository) Create(ctx context.Context, game *models.Game) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO games (name, short_name, icon_url, banner_url, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		game.Name, game.ShortName, game.IconURL, game.BannerURL, game.IsActive,
	).Scan(&game.ID, &game.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrGameNameConflict
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	g := &models.Game{}
	err := scanGame(pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id), g)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}
	return g, nil
}

func (r *postgresGameRepository) Update(ctx context.Context, game *models.Game) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE games SET name = $1, short_name = $2, icon_url = $3, banner_url = $4, is_active = $5
		WHERE id = $6`,
		game.Name, game.ShortName, game.IconURL, game.BannerURL, game.IsActive, game.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrGameNameConflict
		}
		return fmt.Errorf("failed to update game: %w", err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) List(ctx context.Context, onlyActive bool) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		g := &models.Game{}
		if err := scanGame(rows, g); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}
	return games, nil
}
