package roster

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/ledger"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// ComplianceChecker re-evaluates a participant whose roster shrank
type ComplianceChecker interface {
	Check(ctx context.Context, leagueID, userID uuid.UUID) error
}

// App reads manager rosters and handles repair-phase discards
type App struct {
	db         *sql.DB
	clock      clockwork.Clock
	compliance ComplianceChecker
	notifier   notify.Dispatcher
}

// NewApp creates a new roster App
func NewApp(db *sql.DB, clock clockwork.Clock, compliance ComplianceChecker, notifier notify.Dispatcher) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		db:         db,
		clock:      clock,
		compliance: compliance,
		notifier:   notifier,
	}
}

// GetManagerRoster returns the user's assigned players and the auctions they
// currently lead.
func (a *App) GetManagerRoster(ctx context.Context, leagueID, userID uuid.UUID) (ManagerRoster, error) {
	q := New(a.db)
	slots, err := q.LeagueSlots(ctx, leagueID)
	if err != nil {
		return ManagerRoster{}, err
	}
	ok, err := q.IsParticipant(ctx, leagueID, userID)
	if err != nil {
		return ManagerRoster{}, err
	}
	if !ok {
		return ManagerRoster{}, apperr.NotFound("user is not a participant of this league")
	}

	assigned, err := q.ListAssigned(ctx, leagueID, userID)
	if err != nil {
		return ManagerRoster{}, err
	}
	winning, err := q.ListWinning(ctx, leagueID, userID)
	if err != nil {
		return ManagerRoster{}, err
	}

	spent := 0
	for _, p := range assigned {
		spent += p.Price
	}
	return ManagerRoster{
		LeagueID:       leagueID,
		UserID:         userID,
		Assigned:       assigned,
		Winning:        winning,
		TotalSpent:     spent,
		SlotsRemaining: slotsRemaining(slots, assigned, winning),
	}, nil
}

// DiscardPlayer releases one of the user's players while the league is in
// repair. The player returns to the free pool and the user is credited its
// current quotation.
func (a *App) DiscardPlayer(ctx context.Context, leagueID, userID, playerID uuid.UUID) (DiscardResult, error) {
	now := a.clock.Now()

	var res DiscardResult
	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		status, err := q.LeagueStatus(ctx, leagueID)
		if err != nil {
			return err
		}
		owned, err := q.LockAssignment(ctx, leagueID, playerID)
		if err != nil {
			return err
		}
		refund, err := discardRefund(status, owned, userID)
		if err != nil {
			return err
		}
		if err := q.DeleteAssignment(ctx, leagueID, playerID, userID, owned.Role); err != nil {
			return err
		}
		balance, err := q.Ledger.Credit(ctx, leagueID, userID, refund)
		if err != nil {
			return err
		}
		err = q.Ledger.InsertTransaction(ctx, ledger.TransactionParams{
			LeagueID:      leagueID,
			UserID:        userID,
			Type:          models.TransactionDiscardCredit,
			Amount:        refund,
			Description:   fmt.Sprintf("refund for discarding %s", owned.Name),
			RelatedPlayer: &playerID,
			BalanceAfter:  balance,
			At:            now,
		})
		if err != nil {
			return err
		}
		res = DiscardResult{
			PlayerID:     playerID,
			PlayerName:   owned.Name,
			RefundAmount: refund,
			NewBudget:    balance,
		}
		return nil
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("player_id", playerID.String()).
			Str("user_id", userID.String()).
			Msg("discard rejected")
		return DiscardResult{}, err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("player", res.PlayerName).
		Str("user_id", userID.String()).
		Int("refund", res.RefundAmount).
		Int("new_budget", res.NewBudget).
		Msg("player discarded")

	if err := a.compliance.Check(ctx, leagueID, userID); err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Str("user_id", userID.String()).Msg("failed to check compliance after discard")
	}
	a.notifier.Emit(ctx, notify.Event{
		Room: notify.LeagueRoom(leagueID),
		Type: notify.EventPlayerDiscarded,
		Payload: notify.PlayerDiscardedPayload{
			LeagueID:     leagueID,
			PlayerID:     playerID,
			PlayerName:   res.PlayerName,
			UserID:       userID,
			RefundAmount: res.RefundAmount,
			Timestamp:    now,
		},
	})
	return res, nil
}
