package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/ledger"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
)

// openAuctionIndex is the partial unique index guarding one open auction per
// (league, player).
const openAuctionIndex = "auctions_one_open_per_player"

// Queries holds the auction statements. Bind it to a transaction with
// sqlutil.Run so row locks cover the whole bid.
type Queries struct {
	db     sqlutil.DBTX
	Ledger *ledger.Queries
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db, Ledger: ledger.New(db)}
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

// GetLeague reads the league configuration.
func (q *Queries) GetLeague(ctx context.Context, id uuid.UUID) (models.League, error) {
	l, err := scanLeague(q.db.QueryRowContext(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, apperr.NotFound("league not found")
		}
		return l, fmt.Errorf("failed to get league: %w", err)
	}
	return l, nil
}

// GetPlayer reads one player.
func (q *Queries) GetPlayer(ctx context.Context, id uuid.UUID) (models.Player, error) {
	var (
		p    models.Player
		role string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, team, role, quotation FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Team, &role, &p.Quotation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, apperr.NotFound("player not found")
		}
		return p, fmt.Errorf("failed to get player: %w", err)
	}
	p.Role = models.Role(role)
	return p, nil
}

// LockParticipant reads a participant row FOR UPDATE.
func (q *Queries) LockParticipant(ctx context.Context, leagueID, userID uuid.UUID) (models.Participant, error) {
	var (
		p              models.Participant
		ap, ad, ac, aa int
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT league_id, user_id, current_budget, locked_credits,
		       players_p_acquired, players_d_acquired, players_c_acquired, players_a_acquired,
		       joined_at
		FROM league_participants
		WHERE league_id = $1 AND user_id = $2
		FOR UPDATE`,
		leagueID, userID,
	).Scan(&p.LeagueID, &p.UserID, &p.Budget, &p.LockedCredits, &ap, &ad, &ac, &aa, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, apperr.NotFound("you are not a participant of this league")
		}
		return p, fmt.Errorf("failed to lock participant: %w", err)
	}
	p.AcquiredByRole = map[models.Role]int{
		models.RoleGoalkeeper: ap,
		models.RoleDefender:   ad,
		models.RoleMidfielder: ac,
		models.RoleForward:    aa,
	}
	return p, nil
}

const auctionColumns = `
	id, league_id, player_id, start_time, scheduled_end_time,
	current_highest_bid_amount, current_highest_bidder_id, status, created_at, updated_at`

func scanAuction(row interface{ Scan(...any) error }) (models.Auction, error) {
	var (
		a      models.Auction
		bidder uuid.NullUUID
		status string
	)
	err := row.Scan(&a.ID, &a.LeagueID, &a.PlayerID, &a.StartTime, &a.ScheduledEndTime,
		&a.HighestBid, &bidder, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.HighestBidderID = sqlutil.FromNullUUID(bidder)
	a.Status = models.AuctionStatus(status)
	return a, nil
}

// LockOpenAuction reads the open auction on a player FOR UPDATE. It returns
// nil when the player has no open auction.
func (q *Queries) LockOpenAuction(ctx context.Context, leagueID, playerID uuid.UUID) (*models.Auction, error) {
	a, err := scanAuction(q.db.QueryRowContext(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE league_id = $1 AND player_id = $2 AND status IN ('active', 'closing')
		FOR UPDATE`,
		leagueID, playerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock open auction: %w", err)
	}
	return &a, nil
}

// LockAuction reads an auction by id FOR UPDATE.
func (q *Queries) LockAuction(ctx context.Context, id uuid.UUID) (models.Auction, error) {
	a, err := scanAuction(q.db.QueryRowContext(ctx, `
		SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, apperr.NotFound("auction not found")
		}
		return a, fmt.Errorf("failed to lock auction: %w", err)
	}
	return a, nil
}

// GetOpenAuction reads the open auction on a player without locking.
func (q *Queries) GetOpenAuction(ctx context.Context, leagueID, playerID uuid.UUID) (*models.Auction, error) {
	a, err := scanAuction(q.db.QueryRowContext(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE league_id = $1 AND player_id = $2 AND status IN ('active', 'closing')
		ORDER BY updated_at DESC
		LIMIT 1`,
		leagueID, playerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open auction: %w", err)
	}
	return &a, nil
}

// LatestActiveAuction returns the most recently touched active auction in a
// league, nil when none is open.
func (q *Queries) LatestActiveAuction(ctx context.Context, leagueID uuid.UUID) (*models.Auction, error) {
	a, err := scanAuction(q.db.QueryRowContext(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE league_id = $1 AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1`,
		leagueID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest auction: %w", err)
	}
	return &a, nil
}

// IsPlayerAssigned reports whether the player already belongs to a roster.
func (q *Queries) IsPlayerAssigned(ctx context.Context, leagueID, playerID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM player_assignments WHERE league_id = $1 AND player_id = $2)`,
		leagueID, playerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check player assignment: %w", err)
	}
	return exists, nil
}

// ActiveCooldown returns the unexpired cooldown on a player, if any.
func (q *Queries) ActiveCooldown(ctx context.Context, leagueID, userID, playerID uuid.UUID, now time.Time) (*models.Cooldown, error) {
	cd := models.Cooldown{LeagueID: leagueID, UserID: userID, PlayerID: playerID}
	err := q.db.QueryRowContext(ctx, `
		SELECT expires_at FROM player_cooldowns
		WHERE league_id = $1 AND user_id = $2 AND player_id = $3 AND expires_at > $4`,
		leagueID, userID, playerID, now,
	).Scan(&cd.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cooldown: %w", err)
	}
	return &cd, nil
}

// HasPendingTimer reports whether the user owes a response on the auction.
func (q *Queries) HasPendingTimer(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM response_timers
		  WHERE auction_id = $1 AND user_id = $2 AND status = 'pending'
		)`,
		auctionID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check response timer: %w", err)
	}
	return exists, nil
}

// CountWinning counts the open auctions the user leads in a league, skipping
// exclude, in total and for one role.
func (q *Queries) CountWinning(ctx context.Context, leagueID, userID uuid.UUID, role models.Role, exclude uuid.NullUUID) (total int, forRole int, err error) {
	err = q.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE p.role = $3)
		FROM auctions a
		JOIN players p ON p.id = a.player_id
		WHERE a.league_id = $1 AND a.current_highest_bidder_id = $2
		  AND a.status IN ('active', 'closing')
		  AND ($4::uuid IS NULL OR a.id <> $4)`,
		leagueID, userID, string(role), exclude,
	).Scan(&total, &forRole)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count winning auctions: %w", err)
	}
	return total, forRole, nil
}

// ActiveAutoBids lists the standing proxies on an auction, oldest first.
func (q *Queries) ActiveAutoBids(ctx context.Context, auctionID uuid.UUID) ([]models.AutoBid, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, auction_id, user_id, max_amount, is_active, created_at, updated_at
		FROM auto_bids
		WHERE auction_id = $1 AND is_active
		ORDER BY created_at ASC`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-bids: %w", err)
	}
	defer rows.Close()

	var out []models.AutoBid
	for rows.Next() {
		var ab models.AutoBid
		if err := rows.Scan(&ab.ID, &ab.AuctionID, &ab.UserID, &ab.MaxAmount, &ab.IsActive, &ab.CreatedAt, &ab.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan auto-bid: %w", err)
		}
		out = append(out, ab)
	}
	return out, rows.Err()
}

// GetAutoBid returns the user's proxy row on an auction, active or not.
func (q *Queries) GetAutoBid(ctx context.Context, auctionID, userID uuid.UUID) (*models.AutoBid, error) {
	var ab models.AutoBid
	err := q.db.QueryRowContext(ctx, `
		SELECT id, auction_id, user_id, max_amount, is_active, created_at, updated_at
		FROM auto_bids
		WHERE auction_id = $1 AND user_id = $2`,
		auctionID, userID,
	).Scan(&ab.ID, &ab.AuctionID, &ab.UserID, &ab.MaxAmount, &ab.IsActive, &ab.CreatedAt, &ab.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auto-bid: %w", err)
	}
	return &ab, nil
}

// InsertAuctionParams opens an auction.
type InsertAuctionParams struct {
	LeagueID         uuid.UUID
	PlayerID         uuid.UUID
	BidderID         uuid.UUID
	Amount           int
	StartTime        time.Time
	ScheduledEndTime time.Time
}

// InsertAuction opens an auction. A concurrent open auction on the same
// player surfaces as StateConflict.
func (q *Queries) InsertAuction(ctx context.Context, p InsertAuctionParams) (models.Auction, error) {
	a, err := scanAuction(q.db.QueryRowContext(ctx, `
		INSERT INTO auctions (
		  id, league_id, player_id, start_time, scheduled_end_time,
		  current_highest_bid_amount, current_highest_bidder_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $4, $4)
		RETURNING `+auctionColumns,
		uuid.New(), p.LeagueID, p.PlayerID, p.StartTime, p.ScheduledEndTime, p.Amount, p.BidderID,
	))
	if err != nil {
		if sqlutil.IsUniqueViolation(err, openAuctionIndex) {
			return a, apperr.StateConflict("an auction is already open for this player")
		}
		return a, fmt.Errorf("failed to insert auction: %w", err)
	}
	return a, nil
}

// UpdateAuctionLead records a new highest bid and restarts the bidding window.
func (q *Queries) UpdateAuctionLead(ctx context.Context, id uuid.UUID, amount int, bidderID uuid.UUID, endTime, now time.Time) (models.Auction, error) {
	a, err := scanAuction(q.db.QueryRowContext(ctx, `
		UPDATE auctions
		SET current_highest_bid_amount = $2, current_highest_bidder_id = $3,
		    scheduled_end_time = $4, updated_at = $5
		WHERE id = $1 AND status = 'active'
		RETURNING `+auctionColumns,
		id, amount, bidderID, endTime, now,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, apperr.StateConflict("the auction is no longer open")
		}
		return a, fmt.Errorf("failed to update auction: %w", err)
	}
	return a, nil
}

// UpsertAutoBid sets the user's proxy maximum. A re-activated row keeps its
// original creation time.
func (q *Queries) UpsertAutoBid(ctx context.Context, auctionID, userID uuid.UUID, maxAmount int, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO auto_bids (id, auction_id, user_id, max_amount, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (auction_id, user_id) DO UPDATE
		SET max_amount = EXCLUDED.max_amount, is_active = TRUE, updated_at = EXCLUDED.updated_at`,
		uuid.New(), auctionID, userID, maxAmount, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert auto-bid: %w", err)
	}
	return nil
}

// DeactivateAutoBids switches off the listed users' proxies on an auction.
func (q *Queries) DeactivateAutoBids(ctx context.Context, auctionID uuid.UUID, userIDs []uuid.UUID, now time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE auto_bids SET is_active = FALSE, updated_at = $3
		WHERE auction_id = $1 AND user_id = ANY($2::uuid[]) AND is_active`,
		auctionID, pq.Array(ids), now,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate auto-bids: %w", err)
	}
	return nil
}

// DeactivateAllAutoBids switches off every proxy on an auction and returns
// their owners.
func (q *Queries) DeactivateAllAutoBids(ctx context.Context, auctionID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, `
		UPDATE auto_bids SET is_active = FALSE, updated_at = $2
		WHERE auction_id = $1 AND is_active
		RETURNING user_id`,
		auctionID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate auto-bids: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auto-bid owner: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// InsertBid appends a bid to the history.
func (q *Queries) InsertBid(ctx context.Context, auctionID, userID uuid.UUID, amount int, bidType models.BidType, at time.Time) (models.Bid, error) {
	b := models.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		UserID:    userID,
		Amount:    amount,
		Type:      bidType,
		BidTime:   at,
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO bids (id, auction_id, user_id, amount, bid_type, bid_time)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.AuctionID, b.UserID, b.Amount, string(b.Type), b.BidTime,
	)
	if err != nil {
		return b, fmt.Errorf("failed to insert bid: %w", err)
	}
	return b, nil
}

// ListBids returns the bid history of an auction, newest first.
func (q *Queries) ListBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]models.Bid, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, auction_id, user_id, amount, bid_type, bid_time
		FROM bids
		WHERE auction_id = $1
		ORDER BY bid_time DESC
		LIMIT $2`,
		auctionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var out []models.Bid
	for rows.Next() {
		var (
			b       models.Bid
			bidType string
		)
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.UserID, &b.Amount, &bidType, &b.BidTime); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		b.Type = models.BidType(bidType)
		out = append(out, b)
	}
	return out, rows.Err()
}

// BidderIDs lists everyone who bid on an auction.
func (q *Queries) BidderIDs(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM bids WHERE auction_id = $1`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bidders: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bidder: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListExpiredAuctionIDs returns open auctions whose bidding window closed.
func (q *Queries) ListExpiredAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id FROM auctions
		WHERE status IN ('active', 'closing') AND scheduled_end_time <= $1
		ORDER BY scheduled_end_time ASC
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// NextAuctionDeadline returns the earliest scheduled end among open auctions.
func (q *Queries) NextAuctionDeadline(ctx context.Context) (*time.Time, error) {
	var next sql.NullTime
	err := q.db.QueryRowContext(ctx, `
		SELECT MIN(scheduled_end_time) FROM auctions WHERE status IN ('active', 'closing')`,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next auction deadline: %w", err)
	}
	return sqlutil.FromSqlTime(next), nil
}

// CloseAuction moves an open auction to a terminal status. It reports false
// when the auction was already terminal.
func (q *Queries) CloseAuction(ctx context.Context, id uuid.UUID, status models.AuctionStatus, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE auctions SET status = $2, updated_at = $3
		WHERE id = $1 AND status IN ('active', 'closing')`,
		id, string(status), now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to close auction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to close auction: %w", err)
	}
	return n > 0, nil
}

// CancelPendingTimers closes the response obligations of a closed auction.
func (q *Queries) CancelPendingTimers(ctx context.Context, auctionID uuid.UUID, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE response_timers SET status = 'cancelled', processed_at = $2
		WHERE auction_id = $1 AND status = 'pending'`,
		auctionID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel response timers: %w", err)
	}
	return nil
}

// InsertAssignment records the winner of a player.
func (q *Queries) InsertAssignment(ctx context.Context, a models.Assignment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO player_assignments (league_id, player_id, user_id, purchase_price, assigned_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.LeagueID, a.PlayerID, a.UserID, a.PurchasePrice, a.AssignedAt,
	)
	if err != nil {
		if sqlutil.IsUniqueViolation(err, "") {
			return apperr.StateConflict("player already assigned")
		}
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// acquiredColumn maps a role onto its participant counter column.
var acquiredColumn = map[models.Role]string{
	models.RoleGoalkeeper: "players_p_acquired",
	models.RoleDefender:   "players_d_acquired",
	models.RoleMidfielder: "players_c_acquired",
	models.RoleForward:    "players_a_acquired",
}

// IncrementAcquired bumps the winner's counter for role.
func (q *Queries) IncrementAcquired(ctx context.Context, leagueID, userID uuid.UUID, role models.Role) error {
	col, ok := acquiredColumn[role]
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE league_participants SET `+col+` = `+col+` + 1, updated_at = now()
		WHERE league_id = $1 AND user_id = $2`,
		leagueID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment acquired players: %w", err)
	}
	return nil
}

// ListInvolvedAuctions returns the league's active auctions the user has bid
// on, with their pending response deadline and any active cooldown.
func (q *Queries) ListInvolvedAuctions(ctx context.Context, leagueID, userID uuid.UUID, now time.Time) ([]involvedAuction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, p.id, p.name, p.team, p.role, p.quotation,
		       a.current_highest_bid_amount, a.current_highest_bidder_id,
		       rt.response_deadline, pc.expires_at
		FROM auctions a
		JOIN players p ON p.id = a.player_id
		LEFT JOIN response_timers rt
		  ON rt.auction_id = a.id AND rt.user_id = $2 AND rt.status = 'pending'
		LEFT JOIN player_cooldowns pc
		  ON pc.league_id = a.league_id AND pc.user_id = $2 AND pc.player_id = a.player_id
		 AND pc.expires_at > $3
		WHERE a.league_id = $1 AND a.status = 'active'
		  AND EXISTS (SELECT 1 FROM bids b WHERE b.auction_id = a.id AND b.user_id = $2)
		ORDER BY a.scheduled_end_time ASC`,
		leagueID, userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list involved auctions: %w", err)
	}
	defer rows.Close()

	var out []involvedAuction
	for rows.Next() {
		var (
			row      involvedAuction
			role     string
			bidder   uuid.NullUUID
			deadline sql.NullTime
			cooldown sql.NullTime
		)
		if err := rows.Scan(&row.AuctionID, &row.Player.ID, &row.Player.Name, &row.Player.Team,
			&role, &row.Player.Quotation, &row.HighestBid, &bidder, &deadline, &cooldown); err != nil {
			return nil, fmt.Errorf("failed to scan involved auction: %w", err)
		}
		row.Player.Role = models.Role(role)
		row.HighestBidderID = sqlutil.FromNullUUID(bidder)
		row.ResponseDeadline = sqlutil.FromSqlTime(deadline)
		row.CooldownEndsAt = sqlutil.FromSqlTime(cooldown)
		out = append(out, row)
	}
	return out, rows.Err()
}
