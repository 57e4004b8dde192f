package leagues

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
)

type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

const leagueColumns = `
	id, name, status, initial_budget, min_bid, min_bid_rule, timer_duration_minutes,
	COALESCE(active_auction_roles, ''), slots_p, slots_d, slots_c, slots_a, created_at, updated_at`

func scanLeague(row interface{ Scan(...any) error }) (models.League, error) {
	var (
		l              models.League
		status, rule   string
		sp, sd, sc, sa int
	)
	err := row.Scan(&l.ID, &l.Name, &status, &l.InitialBudget, &l.MinBid, &rule,
		&l.TimerDurationMinutes, &l.ActiveAuctionRoles, &sp, &sd, &sc, &sa,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	l.Status = models.LeagueStatus(status)
	l.MinBidRule = models.MinBidRule(rule)
	l.Slots = map[models.Role]int{
		models.RoleGoalkeeper: sp,
		models.RoleDefender:   sd,
		models.RoleMidfielder: sc,
		models.RoleForward:    sa,
	}
	return l, nil
}

func (q *Queries) getLeague(ctx context.Context, query string, id uuid.UUID) (models.League, error) {
	l, err := scanLeague(q.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, apperr.NotFound("league not found")
		}
		return l, fmt.Errorf("failed to get league: %w", err)
	}
	return l, nil
}

// GetLeague reads a league.
func (q *Queries) GetLeague(ctx context.Context, id uuid.UUID) (models.League, error) {
	return q.getLeague(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id)
}

// LockLeague reads a league FOR UPDATE.
func (q *Queries) LockLeague(ctx context.Context, id uuid.UUID) (models.League, error) {
	return q.getLeague(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1 FOR UPDATE`, id)
}

// UpdatePhase writes the status and active roles of a league.
func (q *Queries) UpdatePhase(ctx context.Context, id uuid.UUID, status models.LeagueStatus, roles string, now time.Time) (models.League, error) {
	l, err := scanLeague(q.db.QueryRowContext(ctx, `
		UPDATE leagues
		SET status = $2, active_auction_roles = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+leagueColumns,
		id, string(status), roles, now,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, apperr.NotFound("league not found")
		}
		return l, fmt.Errorf("failed to update league phase: %w", err)
	}
	return l, nil
}

// ListParticipants returns every participant of a league in join order.
func (q *Queries) ListParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT league_id, user_id, current_budget, locked_credits,
		       players_p_acquired, players_d_acquired, players_c_acquired, players_a_acquired,
		       joined_at
		FROM league_participants
		WHERE league_id = $1
		ORDER BY joined_at, user_id`,
		leagueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		var (
			p              models.Participant
			ap, ad, ac, aa int
		)
		if err := rows.Scan(&p.LeagueID, &p.UserID, &p.Budget, &p.LockedCredits,
			&ap, &ad, &ac, &aa, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.AcquiredByRole = map[models.Role]int{
			models.RoleGoalkeeper: ap,
			models.RoleDefender:   ad,
			models.RoleMidfielder: ac,
			models.RoleForward:    aa,
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
