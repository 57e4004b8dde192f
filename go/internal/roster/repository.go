package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/ledger"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
)

type Queries struct {
	db     sqlutil.DBTX
	Ledger *ledger.Queries
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db, Ledger: ledger.New(db)}
}

// roleOrder sorts rows P, D, C, A.
const roleOrder = `CASE p.role WHEN 'P' THEN 1 WHEN 'D' THEN 2 WHEN 'C' THEN 3 ELSE 4 END`

// LeagueSlots reads the per-role roster size of a league.
func (q *Queries) LeagueSlots(ctx context.Context, leagueID uuid.UUID) (map[models.Role]int, error) {
	var sp, sd, sc, sa int
	err := q.db.QueryRowContext(ctx, `
		SELECT slots_p, slots_d, slots_c, slots_a FROM leagues WHERE id = $1`, leagueID,
	).Scan(&sp, &sd, &sc, &sa)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("league not found")
		}
		return nil, fmt.Errorf("failed to get league slots: %w", err)
	}
	return map[models.Role]int{
		models.RoleGoalkeeper: sp,
		models.RoleDefender:   sd,
		models.RoleMidfielder: sc,
		models.RoleForward:    sa,
	}, nil
}

// IsParticipant reports whether the user has joined the league.
func (q *Queries) IsParticipant(ctx context.Context, leagueID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM league_participants WHERE league_id = $1 AND user_id = $2)`,
		leagueID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return ok, nil
}

// ListAssigned returns the players won by the user.
func (q *Queries) ListAssigned(ctx context.Context, leagueID, userID uuid.UUID) ([]RosterPlayer, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.team, p.role, pa.purchase_price, pa.assigned_at
		FROM player_assignments pa
		JOIN players p ON p.id = pa.player_id
		WHERE pa.league_id = $1 AND pa.user_id = $2
		ORDER BY `+roleOrder+`, p.name`,
		leagueID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned players: %w", err)
	}
	defer rows.Close()

	out := []RosterPlayer{}
	for rows.Next() {
		var (
			rp   RosterPlayer
			role string
			at   sql.NullTime
		)
		if err := rows.Scan(&rp.PlayerID, &rp.Name, &rp.Team, &role, &rp.Price, &at); err != nil {
			return nil, fmt.Errorf("failed to scan assigned player: %w", err)
		}
		rp.Role = models.Role(role)
		rp.AssignedAt = sqlutil.FromSqlTime(at)
		out = append(out, rp)
	}
	return out, rows.Err()
}

// ListWinning returns the open auctions the user currently leads.
func (q *Queries) ListWinning(ctx context.Context, leagueID, userID uuid.UUID) ([]RosterPlayer, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.team, p.role, a.current_highest_bid_amount, a.id
		FROM auctions a
		JOIN players p ON p.id = a.player_id
		WHERE a.league_id = $1 AND a.current_highest_bidder_id = $2
		  AND a.status IN ('active', 'closing')
		ORDER BY `+roleOrder+`, p.name`,
		leagueID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list winning auctions: %w", err)
	}
	defer rows.Close()

	out := []RosterPlayer{}
	for rows.Next() {
		var (
			rp        RosterPlayer
			role      string
			auctionID uuid.UUID
		)
		if err := rows.Scan(&rp.PlayerID, &rp.Name, &rp.Team, &role, &rp.Price, &auctionID); err != nil {
			return nil, fmt.Errorf("failed to scan winning auction: %w", err)
		}
		rp.Role = models.Role(role)
		rp.AuctionID = &auctionID
		out = append(out, rp)
	}
	return out, rows.Err()
}

// LeagueStatus reads the league status and holds a share lock on the row
// so the phase cannot move until the transaction ends.
func (q *Queries) LeagueStatus(ctx context.Context, leagueID uuid.UUID) (models.LeagueStatus, error) {
	var status string
	err := q.db.QueryRowContext(ctx, `SELECT status FROM leagues WHERE id = $1 FOR SHARE`, leagueID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("league not found")
		}
		return "", fmt.Errorf("failed to get league status: %w", err)
	}
	return models.LeagueStatus(status), nil
}

// ownedPlayer is an assignment with the player details a discard needs.
type ownedPlayer struct {
	OwnerID   uuid.UUID
	Name      string
	Role      models.Role
	Quotation int
}

// LockAssignment reads the assignment of a player in a league and locks it.
func (q *Queries) LockAssignment(ctx context.Context, leagueID, playerID uuid.UUID) (ownedPlayer, error) {
	var (
		op   ownedPlayer
		role string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT pa.user_id, p.name, p.role, p.quotation
		FROM player_assignments pa
		JOIN players p ON p.id = pa.player_id
		WHERE pa.league_id = $1 AND pa.player_id = $2
		FOR UPDATE OF pa`,
		leagueID, playerID,
	).Scan(&op.OwnerID, &op.Name, &role, &op.Quotation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return op, apperr.NotFound("player is not in any roster of this league")
		}
		return op, fmt.Errorf("failed to get assignment: %w", err)
	}
	op.Role = models.Role(role)
	return op, nil
}

// DeleteAssignment returns the player to the free pool and frees the
// owner's slot for its role.
func (q *Queries) DeleteAssignment(ctx context.Context, leagueID, playerID, userID uuid.UUID, role models.Role) error {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM player_assignments
		WHERE league_id = $1 AND player_id = $2 AND user_id = $3`,
		leagueID, playerID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.StateConflict("player is no longer in your roster")
	}

	_, err = q.db.ExecContext(ctx, `
		UPDATE league_participants SET
		  players_p_acquired = GREATEST(players_p_acquired - CASE WHEN $3 = 'P' THEN 1 ELSE 0 END, 0),
		  players_d_acquired = GREATEST(players_d_acquired - CASE WHEN $3 = 'D' THEN 1 ELSE 0 END, 0),
		  players_c_acquired = GREATEST(players_c_acquired - CASE WHEN $3 = 'C' THEN 1 ELSE 0 END, 0),
		  players_a_acquired = GREATEST(players_a_acquired - CASE WHEN $3 = 'A' THEN 1 ELSE 0 END, 0),
		  updated_at = now()
		WHERE league_id = $1 AND user_id = $2`,
		leagueID, userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to decrement acquired players: %w", err)
	}
	return nil
}
