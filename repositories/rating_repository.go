package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arenaone/arena/models"
)

// RatingRepository хранит Elo-рейтинги пользователей по играм.
// Отсутствующая запись означает рейтинг по умолчанию, а не ошибку.
type RatingRepository interface {
	GetUserRating(ctx context.Context, exec SQLExecutor, userID, gameID int) (int, error)
	UpsertUserRating(ctx context.Context, exec SQLExecutor, userID, gameID, rating int) error
	ListUserRatings(ctx context.Context, userID int) ([]models.EloRating, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) GetUserRating(ctx context.Context, exec SQLExecutor, userID, gameID int) (int, error) {
	var rating int
	err := pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT rating FROM user_elo_ratings WHERE user_id = $1 AND game_id = $2`,
		userID, gameID).Scan(&rating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultEloRating, nil
		}
		return 0, fmt.Errorf("failed to load user rating: %w", err)
	}
	return rating, nil
}

func (r *postgresRatingRepository) UpsertUserRating(ctx context.Context, exec SQLExecutor, userID, gameID, rating int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx, `
		INSERT INTO user_elo_ratings (user_id, game_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, game_id) DO UPDATE SET rating = EXCLUDED.rating`,
		userID, gameID, rating)
	if err != nil {
		return fmt.Errorf("failed to upsert user rating: %w", err)
	}
	return nil
}

func (r *postgresRatingRepository) ListUserRatings(ctx context.Context, userID int) ([]models.EloRating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, game_id, rating FROM user_elo_ratings WHERE user_id = $1 ORDER BY game_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.EloRating, 0)
	for rows.Next() {
		var er models.EloRating
		if err := rows.Scan(&er.UserID, &er.GameID, &er.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		ratings = append(ratings, er)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating rows: %w", err)
	}
	return ratings, nil
}
