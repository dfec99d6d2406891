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
	ErrDisputeNotFound = errors.New("dispute not found")
	// Уникальный индекс по match_id: на матч — не больше одного спора.
	ErrDisputeConflict = errors.New("a dispute already exists for this match")
)

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	FindByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.Dispute, error)
	Update(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error
	AddComment(ctx context.Context, comment *models.DisputeComment) error
	ListComments(ctx context.Context, disputeID int) ([]models.DisputeComment, error)
	ListByStatus(ctx context.Context, status models.DisputeStatus, limit, offset int) ([]*models.Dispute, int, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
	DeleteByReporter(ctx context.Context, exec SQLExecutor, reporterID int) error
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

const disputeColumns = `id, match_id, tournament_id, reporter_id, status, reason, evidence,
	assigned_to, resolution_decision, resolution_comment, created_at, updated_at`

func (r *postgresDisputeRepository) scanDispute(row interface{ Scan(...interface{}) error }, d *models.Dispute) error {
	var decision, comment sql.NullString
	err := row.Scan(
		&d.ID, &d.MatchID, &d.TournamentID, &d.ReporterID, &d.Status, &d.Reason,
		&d.Evidence, &d.AssignedTo, &decision, &comment, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if decision.Valid {
		d.Resolution = &models.Resolution{
			Decision:     models.DisputeDecision(decision.String),
			FinalComment: comment.String,
		}
	}
	return nil
}

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error {
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, `
		INSERT INTO disputes (match_id, tournament_id, reporter_id, status, reason, evidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		dispute.MatchID, dispute.TournamentID, dispute.ReporterID,
		dispute.Status, dispute.Reason, dispute.Evidence,
	).Scan(&dispute.ID, &dispute.CreatedAt, &dispute.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "disputes_match_id_key" {
				return ErrDisputeConflict
			}
		}
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *postgresDisputeRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Dispute, error) {
	d := &models.Dispute{}
	err := r.scanDispute(pickExecutor(exec, r.db).QueryRowContext(ctx, query, args...), d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to find dispute: %w", err)
	}
	return d, nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	return r.findOne(ctx, exec, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
}

func (r *postgresDisputeRepository) FindByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.Dispute, error) {
	return r.findOne(ctx, exec, `SELECT `+disputeColumns+` FROM disputes WHERE match_id = $1`, matchID)
}

func (r *postgresDisputeRepository) Update(ctx context.Context, exec SQLExecutor, dispute *models.Dispute) error {
	var decision, comment interface{}
	if dispute.Resolution != nil {
		decision = string(dispute.Resolution.Decision)
		comment = dispute.Resolution.FinalComment
	}
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `
		UPDATE disputes
		SET status = $1, evidence = $2, assigned_to = $3,
		    resolution_decision = $4, resolution_comment = $5, updated_at = NOW()
		WHERE id = $6`,
		dispute.Status, dispute.Evidence, dispute.AssignedTo, decision, comment, dispute.ID)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) AddComment(ctx context.Context, comment *models.DisputeComment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO dispute_comments (dispute_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		comment.DisputeID, comment.AuthorID, comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add dispute comment: %w", err)
	}
	return nil
}

func (r *postgresDisputeRepository) ListComments(ctx context.Context, disputeID int) ([]models.DisputeComment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dispute_id, author_id, content, created_at
		FROM dispute_comments WHERE dispute_id = $1 ORDER BY created_at`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispute comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.DisputeComment, 0)
	for rows.Next() {
		var c models.DisputeComment
		if err := rows.Scan(&c.ID, &c.DisputeID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispute comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispute comment rows: %w", err)
	}
	return comments, nil
}

func (r *postgresDisputeRepository) ListByStatus(ctx context.Context, status models.DisputeStatus, limit, offset int) ([]*models.Dispute, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM disputes WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count disputes: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE status = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list disputes: %w", err)
	}
	defer rows.Close()

	disputes := make([]*models.Dispute, 0)
	for rows.Next() {
		d := &models.Dispute{}
		if err := r.scanDispute(rows, d); err != nil {
			return nil, 0, fmt.Errorf("failed to scan dispute row: %w", err)
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating dispute rows: %w", err)
	}
	return disputes, total, nil
}

func (r *postgresDisputeRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM disputes WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete disputes by tournament: %w", err)
	}
	return nil
}

func (r *postgresDisputeRepository) DeleteByReporter(ctx context.Context, exec SQLExecutor, reporterID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM disputes WHERE reporter_id = $1`, reporterID)
	if err != nil {
		return fmt.Errorf("failed to delete disputes by reporter: %w", err)
	}
	return nil
}
