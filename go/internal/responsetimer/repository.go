package responsetimer

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

// Queries holds the response timer statements.
type Queries struct {
	db     sqlutil.DBTX
	Ledger *ledger.Queries
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db, Ledger: ledger.New(db)}
}

const timerColumns = `
	t.id, t.auction_id, t.user_id, t.status, t.response_deadline,
	t.activated_at, t.created_at, t.processed_at`

func scanTimer(row interface{ Scan(...any) error }, extra ...any) (models.ResponseTimer, error) {
	var (
		t                              models.ResponseTimer
		status                         string
		deadline, activated, processed sql.NullTime
	)
	dest := append([]any{&t.ID, &t.AuctionID, &t.UserID, &status, &deadline,
		&activated, &t.CreatedAt, &processed}, extra...)
	if err := row.Scan(dest...); err != nil {
		return t, err
	}
	t.Status = models.TimerStatus(status)
	t.Deadline = sqlutil.FromSqlTime(deadline)
	t.ActivatedAt = sqlutil.FromSqlTime(activated)
	t.ProcessedAt = sqlutil.FromSqlTime(processed)
	return t, nil
}

// UpsertPending puts the (auction, user) timer back to a fresh pending
// state, reusing the row when one exists.
func (q *Queries) UpsertPending(ctx context.Context, auctionID, userID uuid.UUID, now time.Time) (models.ResponseTimer, error) {
	t, err := scanTimer(q.db.QueryRowContext(ctx, `
		INSERT INTO response_timers AS t (id, auction_id, user_id, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
		ON CONFLICT (auction_id, user_id) DO UPDATE
		SET status = 'pending',
		    created_at = EXCLUDED.created_at,
		    response_deadline = NULL,
		    activated_at = NULL,
		    processed_at = NULL
		RETURNING `+timerColumns,
		uuid.New(), auctionID, userID, now,
	))
	if err != nil {
		return t, fmt.Errorf("failed to upsert response timer: %w", err)
	}
	return t, nil
}

// Activate starts the countdown on a pending timer that has none yet.
func (q *Queries) Activate(ctx context.Context, id uuid.UUID, at, deadline time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE response_timers
		SET response_deadline = $2, activated_at = $3
		WHERE id = $1 AND status = 'pending' AND response_deadline IS NULL`,
		id, deadline, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to activate response timer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to activate response timer: %w", err)
	}
	return n > 0, nil
}

// activatedTimer is a timer whose countdown just started, with the auction
// it belongs to.
type activatedTimer struct {
	Timer    models.ResponseTimer
	LeagueID uuid.UUID
	PlayerID uuid.UUID
}

// ActivatePendingForUser starts every dormant pending timer of a user on an
// open auction.
func (q *Queries) ActivatePendingForUser(ctx context.Context, userID uuid.UUID, at, deadline time.Time) ([]activatedTimer, error) {
	rows, err := q.db.QueryContext(ctx, `
		UPDATE response_timers AS t
		SET response_deadline = $2, activated_at = $3
		FROM auctions a
		WHERE a.id = t.auction_id
		  AND t.user_id = $1
		  AND t.status = 'pending'
		  AND t.response_deadline IS NULL
		  AND a.status = 'active'
		RETURNING `+timerColumns+`, a.league_id, a.player_id`,
		userID, deadline, at,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to activate response timers: %w", err)
	}
	defer rows.Close()

	var out []activatedTimer
	for rows.Next() {
		var row activatedTimer
		if row.Timer, err = scanTimer(rows, &row.LeagueID, &row.PlayerID); err != nil {
			return nil, fmt.Errorf("failed to scan response timer: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Cancel closes the user's pending timer on an auction, if any.
func (q *Queries) Cancel(ctx context.Context, auctionID, userID uuid.UUID, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE response_timers
		SET status = 'cancelled', processed_at = $3
		WHERE auction_id = $1 AND user_id = $2 AND status = 'pending'`,
		auctionID, userID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel response timer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to cancel response timer: %w", err)
	}
	return n > 0, nil
}

// auctionTarget is the open auction a timer is resolved against.
type auctionTarget struct {
	AuctionID       uuid.UUID
	LeagueID        uuid.UUID
	PlayerID        uuid.UUID
	PlayerName      string
	HighestBid      int
	HighestBidderID *uuid.UUID
	TimerDuration   time.Duration
}

// LockOpenAuction locks the open auction on a player with the details the
// timer transitions need. Returns nil when there is none.
func (q *Queries) LockOpenAuction(ctx context.Context, leagueID, playerID uuid.UUID) (*auctionTarget, error) {
	return q.lockAuction(ctx, `a.league_id = $1 AND a.player_id = $2 AND a.status = 'active'`, leagueID, playerID)
}

// LockAuctionByID locks an auction if it is still active.
func (q *Queries) LockAuctionByID(ctx context.Context, auctionID uuid.UUID) (*auctionTarget, error) {
	return q.lockAuction(ctx, `a.id = $1 AND a.status = 'active'`, auctionID)
}

func (q *Queries) lockAuction(ctx context.Context, where string, args ...any) (*auctionTarget, error) {
	var (
		t       auctionTarget
		bidder  uuid.NullUUID
		minutes int
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT a.id, a.league_id, a.player_id, p.name, a.current_highest_bid_amount,
		       a.current_highest_bidder_id, l.timer_duration_minutes
		FROM auctions a
		JOIN players p ON p.id = a.player_id
		JOIN leagues l ON l.id = a.league_id
		WHERE `+where+`
		FOR UPDATE OF a`,
		args...,
	).Scan(&t.AuctionID, &t.LeagueID, &t.PlayerID, &t.PlayerName, &t.HighestBid, &bidder, &minutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock auction: %w", err)
	}
	t.HighestBidderID = sqlutil.FromNullUUID(bidder)
	t.TimerDuration = time.Duration(minutes) * time.Minute
	return &t, nil
}

// LockPending locks the user's pending timer on an auction. Returns nil when
// there is none.
func (q *Queries) LockPending(ctx context.Context, auctionID, userID uuid.UUID) (*models.ResponseTimer, error) {
	t, err := scanTimer(q.db.QueryRowContext(ctx, `
		SELECT `+timerColumns+`
		FROM response_timers t
		WHERE t.auction_id = $1 AND t.user_id = $2 AND t.status = 'pending'
		FOR UPDATE`,
		auctionID, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock response timer: %w", err)
	}
	return &t, nil
}

// GetTimer reads a timer without locking it.
func (q *Queries) GetTimer(ctx context.Context, id uuid.UUID) (models.ResponseTimer, error) {
	t, err := scanTimer(q.db.QueryRowContext(ctx, `
		SELECT `+timerColumns+` FROM response_timers t WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, apperr.NotFound("response timer not found")
		}
		return t, fmt.Errorf("failed to get response timer: %w", err)
	}
	return t, nil
}

// Close moves a pending timer to a final status.
func (q *Queries) Close(ctx context.Context, id uuid.UUID, status models.TimerStatus, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE response_timers
		SET status = $2, processed_at = $3
		WHERE id = $1 AND status = 'pending'`,
		id, string(status), now,
	)
	if err != nil {
		return fmt.Errorf("failed to close response timer: %w", err)
	}
	return nil
}

// ResetAuctionEnd moves the auction's scheduled end.
func (q *Queries) ResetAuctionEnd(ctx context.Context, auctionID uuid.UUID, end, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE auctions SET scheduled_end_time = $2, updated_at = $3
		WHERE id = $1 AND status = 'active'`,
		auctionID, end, now,
	)
	if err != nil {
		return fmt.Errorf("failed to reset auction end: %w", err)
	}
	return nil
}

// UpsertCooldown blocks the user from the player until expiresAt, replacing
// any previous cooldown.
func (q *Queries) UpsertCooldown(ctx context.Context, cd models.Cooldown, reason string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO player_cooldowns (league_id, user_id, player_id, expires_at, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (league_id, user_id, player_id) DO UPDATE
		SET expires_at = EXCLUDED.expires_at, reason = EXCLUDED.reason, created_at = EXCLUDED.created_at`,
		cd.LeagueID, cd.UserID, cd.PlayerID, cd.ExpiresAt, reason, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cooldown: %w", err)
	}
	return nil
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

// ListExpired returns pending timers on active auctions whose deadline has
// passed, oldest deadline first.
func (q *Queries) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return q.listExpired(ctx, `
		SELECT t.id
		FROM response_timers t
		JOIN auctions a ON a.id = t.auction_id
		WHERE t.status = 'pending' AND t.response_deadline <= $1 AND a.status = 'active'
		ORDER BY t.response_deadline
		LIMIT $2`,
		now, limit,
	)
}

// ListExpiredForUser is ListExpired restricted to one user.
func (q *Queries) ListExpiredForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	return q.listExpired(ctx, `
		SELECT t.id
		FROM response_timers t
		JOIN auctions a ON a.id = t.auction_id
		WHERE t.user_id = $1 AND t.status = 'pending' AND t.response_deadline <= $2 AND a.status = 'active'
		ORDER BY t.response_deadline`,
		userID, now,
	)
}

func (q *Queries) listExpired(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired response timers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan response timer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NextDeadline returns the earliest running deadline, or nil.
func (q *Queries) NextDeadline(ctx context.Context) (*time.Time, error) {
	var next sql.NullTime
	err := q.db.QueryRowContext(ctx, `
		SELECT MIN(response_deadline) FROM response_timers
		WHERE status = 'pending' AND response_deadline IS NOT NULL`,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to read next response deadline: %w", err)
	}
	return sqlutil.FromSqlTime(next), nil
}

// ListActiveForUser returns the user's running timers on open auctions.
func (q *Queries) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]models.ResponseTimer, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+timerColumns+`
		FROM response_timers t
		JOIN auctions a ON a.id = t.auction_id
		WHERE t.user_id = $1 AND t.status = 'pending' AND a.status = 'active'
		ORDER BY t.response_deadline NULLS LAST`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list response timers: %w", err)
	}
	defer rows.Close()

	var out []models.ResponseTimer
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan response timer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// auctionRef identifies where an auction lives.
type auctionRef struct {
	LeagueID uuid.UUID
	PlayerID uuid.UUID
	Active   bool
}

// GetAuctionRef reads an auction's league and player.
func (q *Queries) GetAuctionRef(ctx context.Context, auctionID uuid.UUID) (auctionRef, error) {
	var (
		ref    auctionRef
		status string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT league_id, player_id, status FROM auctions WHERE id = $1`, auctionID,
	).Scan(&ref.LeagueID, &ref.PlayerID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ref, apperr.NotFound("auction not found")
		}
		return ref, fmt.Errorf("failed to get auction: %w", err)
	}
	ref.Active = models.AuctionStatus(status) == models.AuctionStatusActive
	return ref, nil
}
