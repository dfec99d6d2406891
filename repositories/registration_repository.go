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
	ErrRegistrationNotFound = errors.New("registration not found")
	// Уникальные индексы (user, tournament) и (team, tournament) — последний
	// арбитр при конкурентных попытках регистрации.
	ErrRegistrationConflict = errors.New("user or team is already registered for this tournament")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	FindByID(ctx context.Context, id int) (*models.Registration, error)
	FindByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Registration, error)
	FindByTeamAndTournament(ctx context.Context, exec SQLExecutor, teamID, tournamentID int) (*models.Registration, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]*models.Registration, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
	DeleteByUser(ctx context.Context, exec SQLExecutor, userID int) error
	HasActiveTeamRegistration(ctx context.Context, teamID int) (bool, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `id, user_id, tournament_id, team_id, status, payment_status, rank, check_in_time, created_at`

func (r *postgresRegistrationRepository) scanRegistration(row interface{ Scan(...interface{}) error }, reg *models.Registration) error {
	return row.Scan(
		&reg.ID, &reg.UserID, &reg.TournamentID, &reg.TeamID, &reg.Status,
		&reg.PaymentStatus, &reg.Rank, &reg.CheckInTime, &reg.CreatedAt,
	)
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (user_id, tournament_id, team_id, status, payment_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		reg.UserID, reg.TournamentID, reg.TeamID, reg.Status, reg.PaymentStatus,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "registrations_user_id_tournament_id_key",
				"registrations_team_id_tournament_id_key":
				return ErrRegistrationConflict
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Registration, error) {
	reg := &models.Registration{}
	err := r.scanRegistration(pickExecutor(exec, r.db).QueryRowContext(ctx, query, args...), reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	return r.findOne(ctx, nil,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
}

func (r *postgresRegistrationRepository) FindByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
	return r.findOne(ctx, exec,
		`SELECT `+registrationColumns+` FROM registrations WHERE user_id = $1 AND tournament_id = $2`,
		userID, tournamentID)
}

func (r *postgresRegistrationRepository) FindByTeamAndTournament(ctx context.Context, exec SQLExecutor, teamID, tournamentID int) (*models.Registration, error) {
	return r.findOne(ctx, exec,
		`SELECT `+registrationColumns+` FROM registrations WHERE team_id = $1 AND tournament_id = $2`,
		teamID, tournamentID)
}

func (r *postgresRegistrationRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if len(statuses) > 0 {
		statusStrings := make([]string, 0, len(statuses))
		for _, s := range statuses {
			statusStrings = append(statusStrings, string(s))
		}
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		if err := r.scanRegistration(rows, reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`UPDATE registrations SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM registrations WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete registrations by tournament: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) DeleteByUser(ctx context.Context, exec SQLExecutor, userID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM registrations WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete registrations by user: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) HasActiveTeamRegistration(ctx context.Context, teamID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE team_id = $1 AND status IN ($2, $3)
		)`, teamID, models.RegistrationStatusRegistered, models.RegistrationStatusPlaying).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team registrations: %w", err)
	}
	return exists, nil
}
