package compliance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/ledger"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

const penaltyReason = "roster composition requirements not met"

// SessionHistory reports whether a user ever logged in
type SessionHistory interface {
	HasEverLoggedIn(ctx context.Context, userID uuid.UUID) (bool, error)
}

// App tracks roster compliance and applies penalties
type App struct {
	db       *sql.DB
	clock    clockwork.Clock
	cfg      Config
	sessions SessionHistory
	notifier notify.Dispatcher
}

// NewApp creates a new compliance App
func NewApp(db *sql.DB, clock clockwork.Clock, cfg Config, sessions SessionHistory, notifier notify.Dispatcher) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		db:       db,
		clock:    clock,
		cfg:      cfg,
		sessions: sessions,
		notifier: notifier,
	}
}

// Result describes one compliance evaluation.
type Result struct {
	IsCompliant          bool           `json:"is_compliant"`
	StatusChanged        bool           `json:"status_changed"`
	AppliedPenaltyAmount int            `json:"applied_penalty_amount"`
	TotalPenaltyAmount   int            `json:"total_penalty_amount"`
	GracePeriodEnd       *time.Time     `json:"grace_period_end,omitempty"`
	TimeRemaining        *time.Duration `json:"time_remaining,omitempty"`
	Message              string         `json:"message"`
}

// evaluation is the read side shared by Check and Process.
type evaluation struct {
	league    models.League
	phase     string
	record    models.ComplianceStatus
	compliant bool
	// exempt is set when the league is not bidding or the user never
	// logged in.
	exempt bool
}

func (a *App) evaluate(ctx context.Context, q *Queries, leagueID, userID uuid.UUID, now time.Time) (evaluation, error) {
	var ev evaluation

	seen, err := a.sessions.HasEverLoggedIn(ctx, userID)
	if err != nil {
		return ev, err
	}
	if !seen {
		ev.exempt, ev.compliant = true, true
		return ev, nil
	}

	if ev.league, err = q.GetLeague(ctx, leagueID); err != nil {
		return ev, err
	}
	if !ev.league.IsBiddingPhase() {
		ev.exempt, ev.compliant = true, true
		return ev, nil
	}

	ev.phase = PhaseIdentifier(ev.league.Status, ev.league.ActiveAuctionRoles)
	covered, err := q.CoveredSlots(ctx, leagueID, userID)
	if err != nil {
		return ev, err
	}
	ev.compliant = IsCompliant(ev.league, covered)
	if ev.record, err = q.LockStatus(ctx, leagueID, userID, ev.phase, now); err != nil {
		return ev, err
	}
	return ev, nil
}

// applyTransition moves the compliance clock and reports whether it moved.
func (a *App) applyTransition(ctx context.Context, q *Queries, ev *evaluation, leagueID, userID uuid.UUID, now time.Time) (bool, error) {
	switch NextTransition(ev.record, ev.compliant) {
	case TransitionStarted:
		if err := q.StartTimer(ctx, leagueID, userID, ev.phase, now); err != nil {
			return false, err
		}
		ev.record.TimerStartAt = &now
		ev.record.LastPenaltyHourRef = nil
		ev.record.PenaltiesAppliedCycle = 0
		return true, nil
	case TransitionCleared:
		if err := q.ClearTimer(ctx, leagueID, userID, ev.phase, now); err != nil {
			return false, err
		}
		ev.record.TimerStartAt = nil
		ev.record.LastPenaltyHourRef = nil
		ev.record.PenaltiesAppliedCycle = 0
		return true, nil
	}
	return false, nil
}

// Check recomputes the participant's coverage and only moves the compliance
// clock. Penalties are left to Process.
func (a *App) Check(ctx context.Context, leagueID, userID uuid.UUID) error {
	now := a.clock.Now()

	var (
		changed   bool
		compliant bool
	)
	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		ev, err := a.evaluate(ctx, q, leagueID, userID, now)
		if err != nil || ev.exempt {
			return err
		}
		compliant = ev.compliant
		changed, err = a.applyTransition(ctx, q, &ev, leagueID, userID, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to check compliance: %w", err)
	}
	if !changed {
		return nil
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("user_id", userID.String()).
		Bool("is_compliant", compliant).
		Msg("compliance status changed")
	a.emitStatus(ctx, leagueID, userID, compliant, 0, now)
	return nil
}

// Process evaluates the participant and charges the penalties owed since
// the grace period ended.
func (a *App) Process(ctx context.Context, leagueID, userID uuid.UUID) (Result, error) {
	now := a.clock.Now()
	var res Result

	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		ev, err := a.evaluate(ctx, q, leagueID, userID, now)
		if err != nil {
			return err
		}
		if ev.exempt {
			res = Result{IsCompliant: true, Message: "not subject to penalties"}
			return nil
		}
		res.IsCompliant = ev.compliant
		if res.StatusChanged, err = a.applyTransition(ctx, q, &ev, leagueID, userID, now); err != nil {
			return err
		}

		total, err := q.Ledger.TotalByType(ctx, leagueID, userID, models.TransactionPenaltyRequirement)
		if err != nil {
			return err
		}
		res.TotalPenaltyAmount = total

		if ev.compliant {
			res.Message = "compliant"
			return nil
		}

		plan := PlanPenalties(ev.record, now, total, a.cfg)
		graceEnd := plan.GraceEnd
		remaining := max(0, graceEnd.Sub(now))
		res.GracePeriodEnd = &graceEnd
		res.TimeRemaining = &remaining

		switch {
		case plan.InGrace:
			res.Message = "non-compliant, within grace period"
			return nil
		case plan.CapReached:
			res.Message = fmt.Sprintf("penalty limit of %d credits reached", a.cfg.MaxTotalPenaltyCredits)
			return nil
		case plan.Count == 0:
			res.Message = "non-compliant, no penalty due yet"
			return nil
		}

		if err := a.charge(ctx, q, leagueID, userID, plan, now); err != nil {
			return err
		}
		if err := q.RecordPenalties(ctx, leagueID, userID, ev.phase, plan.Count, *plan.NextHourRef, now); err != nil {
			return err
		}
		res.AppliedPenaltyAmount = plan.Amount
		res.TotalPenaltyAmount += plan.Amount
		res.Message = fmt.Sprintf("applied %d credits in penalties", plan.Amount)
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("failed to process compliance: %w", err)
	}

	if res.AppliedPenaltyAmount > 0 {
		log.Warn().
			Str("league_id", leagueID.String()).
			Str("user_id", userID.String()).
			Int("amount", res.AppliedPenaltyAmount).
			Int("total", res.TotalPenaltyAmount).
			Msg("compliance penalty applied")
		a.notifier.Emit(ctx, notify.Event{
			Room: notify.UserRoom(userID),
			Type: notify.EventPenaltyApplied,
			Payload: notify.PenaltyAppliedPayload{
				LeagueID: leagueID,
				UserID:   userID,
				Amount:   res.AppliedPenaltyAmount,
				Reason:   penaltyReason,
			},
		})
	}
	if res.AppliedPenaltyAmount > 0 || res.StatusChanged {
		a.emitStatus(ctx, leagueID, userID, res.IsCompliant, res.AppliedPenaltyAmount, now)
	}
	return res, nil
}

// charge debits each penalty separately so every one gets its own audit row.
func (a *App) charge(ctx context.Context, q *Queries, leagueID, userID uuid.UUID, plan PenaltyPlan, now time.Time) error {
	for i := 0; i < plan.Count; i++ {
		balance, err := q.Ledger.Debit(ctx, leagueID, userID, a.cfg.PenaltyAmount)
		if err != nil {
			return err
		}
		err = q.Ledger.InsertTransaction(ctx, ledger.TransactionParams{
			LeagueID: leagueID,
			UserID:   userID,
			Type:     models.TransactionPenaltyRequirement,
			Amount:   a.cfg.PenaltyAmount,
			Description: fmt.Sprintf("roster requirement penalty (hour %d/%d)",
				plan.FirstIndex+i, a.cfg.MaxPenaltiesPerCycle),
			BalanceAfter: balance,
			At:           now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *App) emitStatus(ctx context.Context, leagueID, userID uuid.UUID, compliant bool, penalty int, now time.Time) {
	a.notifier.Emit(ctx, notify.Event{
		Room: notify.LeagueRoom(leagueID),
		Type: notify.EventComplianceStatusChanged,
		Payload: notify.ComplianceStatusChangedPayload{
			LeagueID:             leagueID,
			UserID:               userID,
			IsCompliant:          compliant,
			AppliedPenaltyAmount: penalty,
			Timestamp:            now,
		},
	})
}

// ListDue returns the participants whose compliance grace period is over.
func (a *App) ListDue(ctx context.Context) ([]DueUser, error) {
	return New(a.db).ListDue(ctx, a.clock.Now().Add(-a.cfg.GracePeriod), a.cfg)
}

// UserStatus is one participant's standing in the league's current phase.
type UserStatus struct {
	UserID         uuid.UUID  `json:"user_id"`
	IsCompliant    bool       `json:"is_compliant"`
	TimerStartAt   *time.Time `json:"compliance_timer_start_at,omitempty"`
	GracePeriodEnd *time.Time `json:"grace_period_end,omitempty"`
	PenaltiesCycle int        `json:"penalties_applied_this_cycle"`
}

// LeagueStatus lists the current-phase compliance records of a league.
func (a *App) LeagueStatus(ctx context.Context, leagueID uuid.UUID) ([]UserStatus, error) {
	q := New(a.db)
	league, err := q.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	records, err := q.ListPhase(ctx, leagueID, PhaseIdentifier(league.Status, league.ActiveAuctionRoles))
	if err != nil {
		return nil, err
	}

	out := make([]UserStatus, 0, len(records))
	for _, rec := range records {
		out = append(out, statusView(rec, a.cfg))
	}
	return out, nil
}

func statusView(rec models.ComplianceStatus, cfg Config) UserStatus {
	s := UserStatus{
		UserID:         rec.UserID,
		IsCompliant:    rec.TimerStartAt == nil,
		TimerStartAt:   rec.TimerStartAt,
		PenaltiesCycle: rec.PenaltiesAppliedCycle,
	}
	if rec.TimerStartAt != nil {
		end := rec.TimerStartAt.Add(cfg.GracePeriod)
		s.GracePeriodEnd = &end
	}
	return s
}
