package responsetimer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/ledger"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// Config holds the response timer durations.
type Config struct {
	ResponseWindow  time.Duration
	AbandonCooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		ResponseWindow:  time.Hour,
		AbandonCooldown: 48 * time.Hour,
	}
}

// Presence reports whether a participant currently has an open session
type Presence interface {
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

// App runs the outbid-participant response timers
type App struct {
	db       *sql.DB
	clock    clockwork.Clock
	cfg      Config
	presence Presence
	notifier notify.Dispatcher
}

// NewApp creates a new response timer App
func NewApp(db *sql.DB, clock clockwork.Clock, cfg Config, presence Presence, notifier notify.Dispatcher) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		db:       db,
		clock:    clock,
		cfg:      cfg,
		presence: presence,
		notifier: notifier,
	}
}

// Create gives an outbid user a pending timer on the auction, reusing any
// previous timer for the same pair. The countdown starts right away when the
// user is online, otherwise at their next login.
func (a *App) Create(ctx context.Context, auctionID, userID uuid.UUID) error {
	now := a.clock.Now()
	q := New(a.db)

	ref, err := q.GetAuctionRef(ctx, auctionID)
	if err != nil {
		return err
	}
	timer, err := q.UpsertPending(ctx, auctionID, userID, now)
	if err != nil {
		return err
	}

	online, err := a.presence.IsOnline(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("presence lookup failed, timer left dormant")
		return nil
	}
	if !online {
		log.Debug().
			Str("auction_id", auctionID.String()).
			Str("user_id", userID.String()).
			Msg("response timer pending until login")
		return nil
	}

	deadline := a.cfg.Deadline(now)
	activated, err := q.Activate(ctx, timer.ID, now, deadline)
	if err != nil {
		return err
	}
	if activated {
		a.emitStarted(ctx, auctionID, ref.PlayerID, userID, deadline, now)
	}
	return nil
}

// CancelForUser closes the user's pending timer on the auction. A no-op when
// there is none.
func (a *App) CancelForUser(ctx context.Context, auctionID, userID uuid.UUID) error {
	cancelled, err := New(a.db).Cancel(ctx, auctionID, userID, a.clock.Now())
	if err != nil {
		return err
	}
	if cancelled {
		log.Debug().
			Str("auction_id", auctionID.String()).
			Str("user_id", userID.String()).
			Msg("response timer cancelled")
	}
	return nil
}

// ActivateForUser starts every dormant timer of the user, counting from at.
func (a *App) ActivateForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int, error) {
	activated, err := New(a.db).ActivatePendingForUser(ctx, userID, at, a.cfg.Deadline(at))
	if err != nil {
		return 0, err
	}
	for _, t := range activated {
		a.emitStarted(ctx, t.Timer.AuctionID, t.PlayerID, userID, *t.Timer.Deadline, a.clock.Now())
	}
	if len(activated) > 0 {
		log.Info().
			Str("user_id", userID.String()).
			Int("count", len(activated)).
			Msg("response timers activated")
	}
	return len(activated), nil
}

func (a *App) emitStarted(ctx context.Context, auctionID, playerID, userID uuid.UUID, deadline, now time.Time) {
	a.notifier.Emit(ctx, notify.Event{
		Room: notify.UserRoom(userID),
		Type: notify.EventResponseTimerStarted,
		Payload: notify.ResponseTimerStartedPayload{
			AuctionID:     auctionID,
			PlayerID:      playerID,
			UserID:        userID,
			Deadline:      deadline,
			TimeRemaining: int(remaining(deadline, now) / time.Second),
		},
	})
}

// Abandon lets an outbid user give up on an auction before their window
// runs out. It restarts the auction clock and blocks the user from the
// player for the cooldown.
func (a *App) Abandon(ctx context.Context, leagueID, playerID, userID uuid.UUID) error {
	now := a.clock.Now()

	var (
		target  auctionTarget
		outcome foldOutcome
	)
	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		t, err := q.LockOpenAuction(ctx, leagueID, playerID)
		if err != nil {
			return err
		}
		if t == nil {
			return apperr.NotFound("no active auction for this player")
		}
		target = *t

		timer, err := q.LockPending(ctx, target.AuctionID, userID)
		if err != nil {
			return err
		}
		if timer == nil {
			return apperr.StateConflict("no pending response timer for this auction")
		}

		outcome, err = a.fold(ctx, q, target, *timer, planFold(target, userID, models.TimerStatusAbandoned, now, a.cfg))
		return err
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("player_id", playerID.String()).
			Str("user_id", userID.String()).
			Msg("abandon rejected")
		return err
	}

	log.Info().
		Str("auction_id", target.AuctionID.String()).
		Str("user_id", userID.String()).
		Time("cooldown_ends_at", outcome.Plan.Cooldown.ExpiresAt).
		Msg("auction abandoned")

	a.emitAuctionUpdate(ctx, target, userID, outcome)
	return nil
}

// ListExpired returns up to limit timers whose deadline has passed.
func (a *App) ListExpired(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return New(a.db).ListExpired(ctx, a.clock.Now(), limit)
}

// NextDeadline returns the earliest running response deadline, or nil.
func (a *App) NextDeadline(ctx context.Context) (*time.Time, error) {
	return New(a.db).NextDeadline(ctx)
}

// Expire applies the missed-deadline consequences to one timer: it is
// closed, the user's credits are released and the player goes on cooldown.
// Returns false when the timer is no longer due.
func (a *App) Expire(ctx context.Context, timerID uuid.UUID) (bool, error) {
	now := a.clock.Now()

	peek, err := New(a.db).GetTimer(ctx, timerID)
	if err != nil {
		return false, err
	}
	if !isDue(peek, now) {
		return false, nil
	}

	var (
		target  auctionTarget
		outcome foldOutcome
		expired bool
	)
	err = sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		t, err := q.LockAuctionByID(ctx, peek.AuctionID)
		if err != nil || t == nil {
			return err
		}
		timer, err := q.LockPending(ctx, peek.AuctionID, peek.UserID)
		if err != nil {
			return err
		}
		if timer == nil || timer.ID != timerID || !isDue(*timer, now) {
			return nil
		}
		target = *t

		outcome, err = a.fold(ctx, q, target, *timer, planFold(target, timer.UserID, models.TimerStatusExpired, now, a.cfg))
		if err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil || !expired {
		return false, err
	}

	log.Info().
		Str("timer_id", timerID.String()).
		Str("auction_id", target.AuctionID.String()).
		Str("user_id", peek.UserID.String()).
		Msg("response timer expired")

	payload := notify.TimerExpiredPayload{
		LeagueID:        target.LeagueID,
		AuctionID:       target.AuctionID,
		PlayerID:        target.PlayerID,
		PlayerName:      target.PlayerName,
		UserID:          peek.UserID,
		CooldownSeconds: int(a.cfg.AbandonCooldown / time.Second),
		CooldownEndsAt:  outcome.Plan.Cooldown.ExpiresAt,
	}
	a.notifier.Emit(ctx, notify.Event{Room: notify.UserRoom(peek.UserID), Type: notify.EventTimerExpired, Payload: payload})
	a.notifier.Emit(ctx, notify.Event{Room: notify.LeagueRoom(target.LeagueID), Type: notify.EventTimerExpired, Payload: payload})
	a.emitAuctionUpdate(ctx, target, peek.UserID, outcome)
	return true, nil
}

// emitAuctionUpdate pushes the restarted auction clock and the released
// credits to the league.
func (a *App) emitAuctionUpdate(ctx context.Context, target auctionTarget, userID uuid.UUID, outcome foldOutcome) {
	a.notifier.Emit(ctx, notify.Event{
		Room: notify.LeagueRoom(target.LeagueID),
		Type: notify.EventAuctionUpdate,
		Payload: notify.AuctionUpdatePayload{
			LeagueID:         target.LeagueID,
			PlayerID:         target.PlayerID,
			AuctionID:        target.AuctionID,
			NewPrice:         target.HighestBid,
			HighestBidderID:  target.HighestBidderID,
			ScheduledEndTime: outcome.Plan.AuctionEnd,
			Action:           string(outcome.Plan.Status),
			ActingUserID:     &userID,
			BudgetUpdates:    outcome.Updates,
		},
	})
}

// ExpireForUser expires every overdue timer of one user. Individual
// failures are logged and skipped.
func (a *App) ExpireForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, err := New(a.db).ListExpiredForUser(ctx, userID, a.clock.Now())
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		expired, err := a.Expire(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("timer_id", id.String()).Msg("failed to expire response timer")
			continue
		}
		if expired {
			count++
		}
	}
	return count, nil
}

// ActiveCooldown returns the user's unexpired cooldown on a player, or nil.
func (a *App) ActiveCooldown(ctx context.Context, leagueID, userID, playerID uuid.UUID) (*models.Cooldown, error) {
	return New(a.db).ActiveCooldown(ctx, leagueID, userID, playerID, a.clock.Now())
}

// ActiveTimers lists the user's pending timers on open auctions.
func (a *App) ActiveTimers(ctx context.Context, userID uuid.UUID) ([]models.ResponseTimer, error) {
	return New(a.db).ListActiveForUser(ctx, userID)
}

type foldOutcome struct {
	Plan    foldPlan
	Updates []models.BudgetUpdate
}

// fold writes a planned abandon or expiry inside the caller's transaction.
func (a *App) fold(ctx context.Context, q *Queries, target auctionTarget, timer models.ResponseTimer, plan foldPlan) (foldOutcome, error) {
	out := foldOutcome{Plan: plan}

	if err := q.Close(ctx, timer.ID, plan.Status, plan.At); err != nil {
		return out, err
	}
	if err := q.ResetAuctionEnd(ctx, target.AuctionID, plan.AuctionEnd, plan.At); err != nil {
		return out, err
	}
	updates, err := q.Ledger.RecomputeMany(ctx, target.LeagueID, []uuid.UUID{timer.UserID})
	if err != nil {
		return out, err
	}
	out.Updates = updates

	if err := q.UpsertCooldown(ctx, plan.Cooldown, string(plan.Status), plan.At); err != nil {
		return out, err
	}

	balance := 0
	if len(updates) > 0 {
		balance = updates[0].Budget
	}
	err = q.Ledger.InsertTransaction(ctx, ledger.TransactionParams{
		LeagueID:      target.LeagueID,
		UserID:        timer.UserID,
		Type:          plan.TxType,
		Amount:        0,
		Description:   plan.Description,
		RelatedPlayer: &target.PlayerID,
		BalanceAfter:  balance,
		Metadata:      map[string]any{"auction_id": target.AuctionID.String(), "timer_id": timer.ID.String()},
		At:            plan.At,
	})
	if err != nil {
		return out, fmt.Errorf("failed to record %s: %w", plan.Status, err)
	}
	return out, nil
}
