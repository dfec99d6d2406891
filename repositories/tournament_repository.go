package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTournamentGameInvalid  = errors.New("tournament references an unknown game")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// LockRow берёт блокировку строки турнира (SELECT ... FOR UPDATE).
	// Вызывается только внутри транзакции, чтобы сериализовать
	// конкурирующие регистрации перед пересчётом вместимости.
	LockRow(ctx context.Context, exec SQLExecutor, id int) error
	Update(ctx context.Context, t *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	List(ctx context.Context, statuses []models.TournamentStatus, limit, offset int) ([]*models.Tournament, int, error)

	// Bulk idempotent lifecycle transitions driven by the scheduler.
	OpenDueRegistrations(ctx context.Context, now time.Time) (int, error)
	CloseDueRegistrations(ctx context.Context, now time.Time) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, game_id, organizer_id, structure, team_size, max_participants,
	entry_fee, rules, prize_structure, status, registration_start_date, registration_end_date,
	check_in_start_date, tournament_start_date, created_at, updated_at`

func (r *postgresTournamentRepository) scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.GameID, &t.OrganizerID, &t.Structure, &t.TeamSize, &t.MaxParticipants,
		&t.EntryFee, &t.Rules, &t.PrizeStructure, &t.Status, &t.RegistrationStartDate,
		&t.RegistrationEndDate, &t.CheckInStartDate, &t.TournamentStartDate, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(name, game_id, organizer_id, structure, team_size, max_participants, entry_fee,
			 rules, prize_structure, status, registration_start_date, registration_end_date,
			 check_in_start_date, tournament_start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.GameID, t.OrganizerID, t.Structure, t.TeamSize, t.MaxParticipants, t.EntryFee,
		t.Rules, t.PrizeStructure, t.Status, t.RegistrationStartDate, t.RegistrationEndDate,
		t.CheckInStartDate, t.TournamentStartDate,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrTournamentNameConflict
			case "23503":
				if pqErr.Constraint == "tournaments_game_id_fkey" {
					return ErrTournamentGameInvalid
				}
			}
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := r.scanTournament(pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to find tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) LockRow(ctx context.Context, exec SQLExecutor, id int) error {
	var lockedID int
	err := pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT id FROM tournaments WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to lock tournament row: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $1, game_id = $2, structure = $3, team_size = $4, max_participants = $5,
		    entry_fee = $6, rules = $7, prize_structure = $8, status = $9,
		    registration_start_date = $10, registration_end_date = $11,
		    check_in_start_date = $12, tournament_start_date = $13, updated_at = NOW()
		WHERE id = $14`
	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.GameID, t.Structure, t.TeamSize, t.MaxParticipants, t.EntryFee,
		t.Rules, t.PrizeStructure, t.Status, t.RegistrationStartDate, t.RegistrationEndDate,
		t.CheckInStartDate, t.TournamentStartDate, t.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTournamentNameConflict
		}
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`UPDATE tournaments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) List(ctx context.Context, statuses []models.TournamentStatus, limit, offset int) ([]*models.Tournament, int, error) {
	statusStrings := make([]string, 0, len(statuses))
	for _, s := range statuses {
		statusStrings = append(statusStrings, string(s))
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournaments WHERE status = ANY($1)`, pq.Array(statusStrings)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tournaments: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tournamentColumns+`
		FROM tournaments
		WHERE status = ANY($1)
		ORDER BY tournament_start_date DESC
		LIMIT $2 OFFSET $3`, pq.Array(statusStrings), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		if err := r.scanTournament(rows, t); err != nil {
			return nil, 0, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, total, nil
}

func (r *postgresTournamentRepository) OpenDueRegistrations(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tournaments
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND registration_start_date <= $3`,
		models.TournamentStatusRegistrationOpen, models.TournamentStatusDraft, now)
	if err != nil {
		return 0, fmt.Errorf("failed to open due registrations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}

func (r *postgresTournamentRepository) CloseDueRegistrations(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tournaments
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND registration_end_date <= $3`,
		models.TournamentStatusRegistrationClosed, models.TournamentStatusRegistrationOpen, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close due registrations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}
