package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arenaone/arena/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	ListByTournament(ctx context.Context, tournamentID int, limit, offset int) ([]*models.Match, int, error)
	ListByParticipant(ctx context.Context, ref models.ParticipantRef, limit, offset int) ([]*models.Match, int, error)
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, bracket_id, round, status, participants, scores, results,
	winner_kind, winner_id, reported_by, scheduled_time, lobby_code, lobby_password, lobby_published,
	created_at, updated_at`

func (r *postgresMatchRepository) scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	var winnerKind sql.NullString
	var winnerID sql.NullInt64

	err := row.Scan(
		&m.ID, &m.TournamentID, &m.BracketID, &m.Round, &m.Status,
		&m.Participants, &m.Scores, &m.Results,
		&winnerKind, &winnerID, &m.ReportedBy, &m.ScheduledTime,
		&m.Lobby.Code, &m.Lobby.Password, &m.Lobby.IsPublished,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if winnerKind.Valid && winnerID.Valid {
		m.Winner = &models.ParticipantRef{
			Kind: models.ParticipantKind(winnerKind.String),
			ID:   int(winnerID.Int64),
		}
	}
	return nil
}

func winnerColumns(m *models.Match) (interface{}, interface{}) {
	if m.Winner == nil {
		return nil, nil
	}
	return string(m.Winner.Kind), m.Winner.ID
}

// Create persists a new match. The completion invariant is enforced here
// so that a bye match created as completed must already carry its winner.
func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if err := match.Validate(); err != nil {
		return err
	}
	winnerKind, winnerID := winnerColumns(match)

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, `
		INSERT INTO matches
			(tournament_id, bracket_id, round, status, participants, scores, results,
			 winner_kind, winner_id, reported_by, scheduled_time, lobby_code, lobby_password, lobby_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		match.TournamentID, match.BracketID, match.Round, match.Status,
		match.Participants, match.Scores, match.Results,
		winnerKind, winnerID, match.ReportedBy, match.ScheduledTime,
		match.Lobby.Code, match.Lobby.Password, match.Lobby.IsPublished,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	m := &models.Match{}
	err := r.scanMatch(pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, id), m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to find match: %w", err)
	}
	return m, nil
}

// Update persists the whole mutable state of the match. Validate runs
// before the write: a completed match without an outcome never reaches
// the database.
func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if err := match.Validate(); err != nil {
		return err
	}
	winnerKind, winnerID := winnerColumns(match)

	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `
		UPDATE matches
		SET status = $1, participants = $2, scores = $3, results = $4,
		    winner_kind = $5, winner_id = $6, reported_by = $7, scheduled_time = $8,
		    lobby_code = $9, lobby_password = $10, lobby_published = $11, updated_at = NOW()
		WHERE id = $12`,
		match.Status, match.Participants, match.Scores, match.Results,
		winnerKind, winnerID, match.ReportedBy, match.ScheduledTime,
		match.Lobby.Code, match.Lobby.Password, match.Lobby.IsPublished, match.ID)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) list(ctx context.Context, countQuery, listQuery string, args []interface{}, limit, offset int) ([]*models.Match, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	listArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := r.scanMatch(rows, m); err != nil {
			return nil, 0, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, total, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, limit, offset int) ([]*models.Match, int, error) {
	return r.list(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1`,
		`SELECT `+matchColumns+` FROM matches WHERE tournament_id = $1
		 ORDER BY round, id LIMIT $2 OFFSET $3`,
		[]interface{}{tournamentID}, limit, offset)
}

func (r *postgresMatchRepository) ListByParticipant(ctx context.Context, ref models.ParticipantRef, limit, offset int) ([]*models.Match, int, error) {
	// Поиск по JSONB-вхождению: participants @> [{"kind":...,"id":...}]
	filter, err := json.Marshal(models.ParticipantList{ref})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build participant filter: %w", err)
	}
	return r.list(ctx,
		`SELECT COUNT(*) FROM matches WHERE participants @> $1::jsonb`,
		`SELECT `+matchColumns+` FROM matches WHERE participants @> $1::jsonb
		 ORDER BY scheduled_time NULLS LAST, id LIMIT $2 OFFSET $3`,
		[]interface{}{string(filter)}, limit, offset)
}

func (r *postgresMatchRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error) {
	rows, err := pickExecutor(exec, r.db).QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE bracket_id = $1 ORDER BY round, id`, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bracket matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := r.scanMatch(rows, m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches by tournament: %w", err)
	}
	return nil
}
