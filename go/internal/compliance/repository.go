package compliance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/ledger"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
)

// Queries holds the compliance statements.
type Queries struct {
	db     sqlutil.DBTX
	Ledger *ledger.Queries
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db, Ledger: ledger.New(db)}
}

// GetLeague reads the parts of a league compliance depends on.
func (q *Queries) GetLeague(ctx context.Context, id uuid.UUID) (models.League, error) {
	var (
		l              models.League
		status         string
		sp, sd, sc, sa int
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT id, status, COALESCE(active_auction_roles, ''), slots_p, slots_d, slots_c, slots_a
		FROM leagues WHERE id = $1`, id,
	).Scan(&l.ID, &status, &l.ActiveAuctionRoles, &sp, &sd, &sc, &sa)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, apperr.NotFound("league not found")
		}
		return l, fmt.Errorf("failed to get league: %w", err)
	}
	l.Status = models.LeagueStatus(status)
	l.Slots = map[models.Role]int{
		models.RoleGoalkeeper: sp,
		models.RoleDefender:   sd,
		models.RoleMidfielder: sc,
		models.RoleForward:    sa,
	}
	return l, nil
}

// CoveredSlots counts, per role, the players assigned to the user plus the
// open auctions they currently lead.
func (q *Queries) CoveredSlots(ctx context.Context, leagueID, userID uuid.UUID) (map[models.Role]int, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT role, COUNT(*) FROM (
		  SELECT p.role
		  FROM player_assignments pa
		  JOIN players p ON p.id = pa.player_id
		  WHERE pa.league_id = $1 AND pa.user_id = $2
		  UNION ALL
		  SELECT p.role
		  FROM auctions a
		  JOIN players p ON p.id = a.player_id
		  WHERE a.league_id = $1 AND a.current_highest_bidder_id = $2
		    AND a.status IN ('active', 'closing')
		) covered
		GROUP BY role`,
		leagueID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count covered slots: %w", err)
	}
	defer rows.Close()

	covered := make(map[models.Role]int, len(models.AllRoles))
	for rows.Next() {
		var (
			role  string
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan covered slots: %w", err)
		}
		covered[models.Role(role)] = count
	}
	return covered, rows.Err()
}

const statusColumns = `
	league_id, user_id, phase_identifier, compliance_timer_start_at,
	last_penalty_hour_ref, penalties_applied_this_cycle, created_at, updated_at`

func scanStatus(row interface{ Scan(...any) error }) (models.ComplianceStatus, error) {
	var (
		s            models.ComplianceStatus
		start, lastR sql.NullTime
	)
	err := row.Scan(&s.LeagueID, &s.UserID, &s.PhaseIdentifier, &start,
		&lastR, &s.PenaltiesAppliedCycle, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	s.TimerStartAt = sqlutil.FromSqlTime(start)
	s.LastPenaltyHourRef = sqlutil.FromSqlTime(lastR)
	return s, nil
}

// LockStatus creates the cycle record if missing and locks it.
func (q *Queries) LockStatus(ctx context.Context, leagueID, userID uuid.UUID, phase string, now time.Time) (models.ComplianceStatus, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO compliance_status (league_id, user_id, phase_identifier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (league_id, user_id, phase_identifier) DO NOTHING`,
		leagueID, userID, phase, now,
	)
	if err != nil {
		return models.ComplianceStatus{}, fmt.Errorf("failed to create compliance status: %w", err)
	}

	s, err := scanStatus(q.db.QueryRowContext(ctx, `
		SELECT `+statusColumns+`
		FROM compliance_status
		WHERE league_id = $1 AND user_id = $2 AND phase_identifier = $3
		FOR UPDATE`,
		leagueID, userID, phase,
	))
	if err != nil {
		return s, fmt.Errorf("failed to lock compliance status: %w", err)
	}
	return s, nil
}

// StartTimer opens a new non-compliance cycle.
func (q *Queries) StartTimer(ctx context.Context, leagueID, userID uuid.UUID, phase string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE compliance_status
		SET compliance_timer_start_at = $4, last_penalty_hour_ref = NULL,
		    penalties_applied_this_cycle = 0, updated_at = $4
		WHERE league_id = $1 AND user_id = $2 AND phase_identifier = $3`,
		leagueID, userID, phase, now,
	)
	if err != nil {
		return fmt.Errorf("failed to start compliance timer: %w", err)
	}
	return nil
}

// ClearTimer closes the cycle and resets its penalty progress.
func (q *Queries) ClearTimer(ctx context.Context, leagueID, userID uuid.UUID, phase string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE compliance_status
		SET compliance_timer_start_at = NULL, last_penalty_hour_ref = NULL,
		    penalties_applied_this_cycle = 0, updated_at = $4
		WHERE league_id = $1 AND user_id = $2 AND phase_identifier = $3`,
		leagueID, userID, phase, now,
	)
	if err != nil {
		return fmt.Errorf("failed to clear compliance timer: %w", err)
	}
	return nil
}

// RecordPenalties advances the cycle's penalty progress.
func (q *Queries) RecordPenalties(ctx context.Context, leagueID, userID uuid.UUID, phase string, count int, hourRef, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE compliance_status
		SET last_penalty_hour_ref = $4,
		    penalties_applied_this_cycle = penalties_applied_this_cycle + $5,
		    updated_at = $6
		WHERE league_id = $1 AND user_id = $2 AND phase_identifier = $3`,
		leagueID, userID, phase, hourRef, count, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record penalties: %w", err)
	}
	return nil
}

// DueUser is a participant whose grace period has run out.
type DueUser struct {
	LeagueID uuid.UUID
	UserID   uuid.UUID
}

// ListDue returns running compliance timers past their grace period in
// leagues that are still bidding, for the league's current phase only.
// Participants with no penalty left to charge are skipped.
func (q *Queries) ListDue(ctx context.Context, graceStartedBefore time.Time, cfg Config) ([]DueUser, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT cs.league_id, cs.user_id, cs.phase_identifier, l.status, COALESCE(l.active_auction_roles, ''),
		       cs.penalties_applied_this_cycle,
		       COALESCE((SELECT SUM(bt.amount) FROM budget_transactions bt
		                 WHERE bt.league_id = cs.league_id AND bt.user_id = cs.user_id
		                   AND bt.transaction_type = $2), 0)
		FROM compliance_status cs
		JOIN leagues l ON l.id = cs.league_id
		WHERE cs.compliance_timer_start_at IS NOT NULL
		  AND cs.compliance_timer_start_at <= $1
		  AND cs.penalties_applied_this_cycle < $3
		  AND l.status IN ('draft_active', 'repair_active')
		ORDER BY cs.compliance_timer_start_at`,
		graceStartedBefore, string(models.TransactionPenaltyRequirement), cfg.MaxPenaltiesPerCycle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due compliance timers: %w", err)
	}
	defer rows.Close()

	var out []DueUser
	for rows.Next() {
		var (
			d              DueUser
			phase, status  string
			roles          string
			applied, total int
		)
		if err := rows.Scan(&d.LeagueID, &d.UserID, &phase, &status, &roles, &applied, &total); err != nil {
			return nil, fmt.Errorf("failed to scan compliance timer: %w", err)
		}
		if phase != PhaseIdentifier(models.LeagueStatus(status), roles) {
			continue
		}
		if PenaltyCapped(applied, total, cfg) {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListPhase returns every record of one league phase.
func (q *Queries) ListPhase(ctx context.Context, leagueID uuid.UUID, phase string) ([]models.ComplianceStatus, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+statusColumns+`
		FROM compliance_status
		WHERE league_id = $1 AND phase_identifier = $2
		ORDER BY user_id`,
		leagueID, phase,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance status: %w", err)
	}
	defer rows.Close()

	var out []models.ComplianceStatus
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliance status: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
