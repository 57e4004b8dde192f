package leagues

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// ComplianceChecker re-evaluates a participant after the league phase moves
type ComplianceChecker interface {
	Check(ctx context.Context, leagueID, userID uuid.UUID) error
}

// App handles league administration
type App struct {
	db         *sql.DB
	clock      clockwork.Clock
	compliance ComplianceChecker
	notifier   notify.Dispatcher
}

// NewApp creates a new leagues App
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

// GetLeague returns a league with its participants
func (a *App) GetLeague(ctx context.Context, id uuid.UUID) (LeagueDetails, error) {
	q := New(a.db)
	league, err := q.GetLeague(ctx, id)
	if err != nil {
		return LeagueDetails{}, err
	}
	participants, err := q.ListParticipants(ctx, id)
	if err != nil {
		return LeagueDetails{}, err
	}
	return LeagueDetails{League: league, Participants: participants}, nil
}

// UpdateLeagueStatus moves the league to a new status
func (a *App) UpdateLeagueStatus(ctx context.Context, id uuid.UUID, status models.LeagueStatus) (models.League, error) {
	if err := validateStatus(status); err != nil {
		return models.League{}, err
	}
	return a.updatePhase(ctx, id, func(l models.League) (models.LeagueStatus, string, error) {
		if l.Status == status {
			return "", "", apperr.StateConflict("league is already %s", status)
		}
		return status, l.ActiveAuctionRoles, nil
	})
}

// SetActiveAuctionRoles changes which roles are open for bidding
func (a *App) SetActiveAuctionRoles(ctx context.Context, id uuid.UUID, raw string) (models.League, error) {
	roles, err := normalizeRoles(raw)
	if err != nil {
		return models.League{}, err
	}
	return a.updatePhase(ctx, id, func(l models.League) (models.LeagueStatus, string, error) {
		current, _ := normalizeRoles(l.ActiveAuctionRoles)
		if current == roles {
			return "", "", apperr.StateConflict("active auction roles are already %s", roles)
		}
		return l.Status, roles, nil
	})
}

// updatePhase applies a status or roles change under a row lock. A bidding
// league gets every participant re-checked so the new phase starts its
// compliance clocks.
func (a *App) updatePhase(ctx context.Context, id uuid.UUID, next func(models.League) (models.LeagueStatus, string, error)) (models.League, error) {
	now := a.clock.Now()

	var (
		updated      models.League
		participants []models.Participant
	)
	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		current, err := q.LockLeague(ctx, id)
		if err != nil {
			return err
		}
		status, roles, err := next(current)
		if err != nil {
			return err
		}
		if updated, err = q.UpdatePhase(ctx, id, status, roles, now); err != nil {
			return err
		}
		participants, err = q.ListParticipants(ctx, id)
		return err
	})
	if err != nil {
		return models.League{}, fmt.Errorf("failed to update league: %w", err)
	}

	log.Info().
		Str("league_id", id.String()).
		Str("status", string(updated.Status)).
		Str("active_auction_roles", updated.ActiveAuctionRoles).
		Msg("league phase updated")

	a.notifier.Emit(ctx, notify.Event{
		Room: notify.LeagueRoom(id),
		Type: notify.EventLeagueStatusChanged,
		Payload: notify.LeagueStatusChangedPayload{
			LeagueID:           id,
			NewStatus:          updated.Status,
			ActiveAuctionRoles: updated.ActiveAuctionRoles,
			Timestamp:          now,
		},
	})

	if updated.IsBiddingPhase() {
		for _, p := range participants {
			if err := a.compliance.Check(ctx, id, p.UserID); err != nil {
				log.Error().
					Err(err).
					Str("league_id", id.String()).
					Str("user_id", p.UserID.String()).
					Msg("failed to check compliance after phase change")
			}
		}
	}
	return updated, nil
}
