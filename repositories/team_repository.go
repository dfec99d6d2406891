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
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamNameConflict   = errors.New("team name is already taken for this game")
	ErrTeamTagConflict    = errors.New("team tag is already in use")
	ErrTeamMemberConflict = errors.New("user is already a member of this team")
	ErrTeamMemberMissing  = errors.New("user is not a member of this team")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	List(ctx context.Context, gameID *int, limit, offset int) ([]*models.Team, int, error)

	AddMember(ctx context.Context, exec SQLExecutor, teamID, userID int) error
	RemoveMember(ctx context.Context, exec SQLExecutor, teamID, userID int) error
	ListCaptainedBy(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Team, error)
	RemoveUserFromAllTeams(ctx context.Context, exec SQLExecutor, userID int) error

	// UpdateStats moves the denormalized rating/counters; called inside the
	// same transaction as the triggering match completion.
	UpdateStats(ctx context.Context, exec SQLExecutor, teamID int, stats models.TeamStats) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, name, tag, game_id, captain_id, avatar, wins, losses, tournaments_played, rank_points, created_at, updated_at`

func (r *postgresTeamRepository) scanTeam(row interface{ Scan(...interface{}) error }, t *models.Team) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Tag, &t.GameID, &t.CaptainID, &t.Avatar,
		&t.Stats.Wins, &t.Stats.Losses, &t.Stats.TournamentsPlayed, &t.Stats.RankPoints,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

func mapTeamConstraintError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "teams_name_game_id_key":
			return ErrTeamNameConflict
		case "teams_tag_key":
			return ErrTeamTagConflict
		case "team_members_pkey":
			return ErrTeamMemberConflict
		}
	}
	return nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	if err := team.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO teams (name, tag, game_id, captain_id, avatar)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	e := pickExecutor(exec, r.db)
	err := e.QueryRowContext(ctx, query,
		team.Name, team.Tag, team.GameID, team.CaptainID, team.Avatar,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		if mapped := mapTeamConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to create team: %w", err)
	}

	for _, memberID := range team.MemberIDs {
		if err := r.addMemberExec(ctx, e, team.ID, memberID); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	e := pickExecutor(exec, r.db)
	t := &models.Team{}
	err := r.scanTeam(e.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	rows, err := e.QueryContext(ctx,
		`SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY joined_at`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan team member row: %w", err)
		}
		t.MemberIDs = append(t.MemberIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team member rows: %w", err)
	}
	return t, nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, team *models.Team) error {
	if err := team.Validate(); err != nil {
		return err
	}
	query := `
		UPDATE teams
		SET name = $1, tag = $2, captain_id = $3, avatar = $4, updated_at = NOW()
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		team.Name, team.Tag, team.CaptainID, team.Avatar, team.ID)
	if err != nil {
		if mapped := mapTeamConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update team: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) List(ctx context.Context, gameID *int, limit, offset int) ([]*models.Team, int, error) {
	countQuery := `SELECT COUNT(*) FROM teams`
	listQuery := `SELECT ` + teamColumns + ` FROM teams`
	countArgs := []interface{}{}
	listArgs := []interface{}{}

	if gameID != nil {
		countQuery += ` WHERE game_id = $1`
		listQuery += ` WHERE game_id = $1`
		countArgs = append(countArgs, *gameID)
		listArgs = append(listArgs, *gameID)
	}
	listQuery += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(listArgs)+1, len(listArgs)+2)
	listArgs = append(listArgs, limit, offset)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count teams: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t := &models.Team{}
		if err := r.scanTeam(rows, t); err != nil {
			return nil, 0, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, total, nil
}

func (r *postgresTeamRepository) addMemberExec(ctx context.Context, e SQLExecutor, teamID, userID int) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`, teamID, userID)
	if err != nil {
		if mapped := mapTeamConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) AddMember(ctx context.Context, exec SQLExecutor, teamID, userID int) error {
	return r.addMemberExec(ctx, pickExecutor(exec, r.db), teamID, userID)
}

func (r *postgresTeamRepository) RemoveMember(ctx context.Context, exec SQLExecutor, teamID, userID int) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return checkAffectedRows(result, ErrTeamMemberMissing)
}

func (r *postgresTeamRepository) ListCaptainedBy(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Team, error) {
	e := pickExecutor(exec, r.db)
	rows, err := e.QueryContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE captain_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list captained teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t := &models.Team{}
		if err := r.scanTeam(rows, t); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}

	for _, t := range teams {
		memberRows, err := e.QueryContext(ctx,
			`SELECT user_id FROM team_members WHERE team_id = $1`, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load team members: %w", err)
		}
		for memberRows.Next() {
			var userID int
			if err := memberRows.Scan(&userID); err != nil {
				memberRows.Close()
				return nil, fmt.Errorf("failed to scan team member row: %w", err)
			}
			t.MemberIDs = append(t.MemberIDs, userID)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return nil, fmt.Errorf("error iterating team member rows: %w", err)
		}
		memberRows.Close()
	}
	return teams, nil
}

func (r *postgresTeamRepository) RemoveUserFromAllTeams(ctx context.Context, exec SQLExecutor, userID int) error {
	_, err := pickExecutor(exec, r.db).ExecContext(ctx,
		`DELETE FROM team_members WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user from teams: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) UpdateStats(ctx context.Context, exec SQLExecutor, teamID int, stats models.TeamStats) error {
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, `
		UPDATE teams
		SET wins = $1, losses = $2, tournaments_played = $3, rank_points = $4, updated_at = NOW()
		WHERE id = $5`,
		stats.Wins, stats.Losses, stats.TournamentsPlayed, stats.RankPoints, teamID)
	if err != nil {
		return fmt.Errorf("failed to update team stats: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
