package auction

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

const bidHistoryLimit = 50

// TimerApp defines what the auction flow needs from the response timers
type TimerApp interface {
	CancelForUser(ctx context.Context, auctionID, userID uuid.UUID) error
	Create(ctx context.Context, auctionID, userID uuid.UUID) error
}

// ComplianceChecker re-evaluates a participant's roster coverage
type ComplianceChecker interface {
	Check(ctx context.Context, leagueID, userID uuid.UUID) error
}

// SessionRecorder marks a participant as online
type SessionRecorder interface {
	RecordLogin(ctx context.Context, userID uuid.UUID) error
}

// App handles bidding, auction creation and expiry resolution
type App struct {
	db         *sql.DB
	clock      clockwork.Clock
	timers     TimerApp
	compliance ComplianceChecker
	sessions   SessionRecorder
	notifier   notify.Dispatcher
}

// NewApp creates a new auction App
func NewApp(db *sql.DB, clock clockwork.Clock, timers TimerApp, compliance ComplianceChecker, sessions SessionRecorder, notifier notify.Dispatcher) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		db:         db,
		clock:      clock,
		timers:     timers,
		compliance: compliance,
		sessions:   sessions,
		notifier:   notifier,
	}
}

// loadContext reads the bidder's view of an auction. The open auction row is
// locked before the participant row so every writer takes locks in the same
// order.
func (a *App) loadContext(ctx context.Context, q *Queries, leagueID, playerID, userID uuid.UUID, now time.Time) (BidContext, error) {
	bc := BidContext{Now: now}

	var err error
	if bc.League, err = q.GetLeague(ctx, leagueID); err != nil {
		return bc, err
	}
	if bc.Player, err = q.GetPlayer(ctx, playerID); err != nil {
		return bc, err
	}
	if bc.Auction, err = q.LockOpenAuction(ctx, leagueID, playerID); err != nil {
		return bc, err
	}
	if bc.Participant, err = q.LockParticipant(ctx, leagueID, userID); err != nil {
		return bc, err
	}
	if bc.PlayerAssigned, err = q.IsPlayerAssigned(ctx, leagueID, playerID); err != nil {
		return bc, err
	}
	if bc.Cooldown, err = q.ActiveCooldown(ctx, leagueID, userID, playerID, now); err != nil {
		return bc, err
	}

	exclude := uuid.NullUUID{}
	if bc.Auction != nil {
		exclude = uuid.NullUUID{UUID: bc.Auction.ID, Valid: true}
	}
	bc.WinningElsewhere, bc.WinningElsewhereForRole, err = q.CountWinning(ctx, leagueID, userID, bc.Player.Role, exclude)
	if err != nil {
		return bc, err
	}

	if bc.Auction == nil {
		return bc, nil
	}
	if bc.HasPendingTimer, err = q.HasPendingTimer(ctx, bc.Auction.ID, userID); err != nil {
		return bc, err
	}
	if bc.ActiveProxies, err = q.ActiveAutoBids(ctx, bc.Auction.ID); err != nil {
		return bc, err
	}
	if bc.OwnProxy, err = q.GetAutoBid(ctx, bc.Auction.ID, userID); err != nil {
		return bc, err
	}
	return bc, nil
}

// StartAuction opens an auction on a player with the participant's first bid.
func (a *App) StartAuction(ctx context.Context, req StartAuctionRequest) (*BidResult, error) {
	now := a.clock.Now()

	var result BidResult
	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		bc, err := a.loadContext(ctx, q, req.LeagueID, req.PlayerID, req.UserID, now)
		if err != nil {
			return err
		}
		plan, err := PlanStart(bc, req)
		if err != nil {
			return err
		}

		auc, err := q.InsertAuction(ctx, InsertAuctionParams{
			LeagueID:         req.LeagueID,
			PlayerID:         req.PlayerID,
			BidderID:         req.UserID,
			Amount:           plan.Amount,
			StartTime:        now,
			ScheduledEndTime: plan.EndTime,
		})
		if err != nil {
			return err
		}
		if plan.ProxyMax != nil && *plan.ProxyMax > plan.Amount {
			if err := q.UpsertAutoBid(ctx, auc.ID, req.UserID, *plan.ProxyMax, now); err != nil {
				return err
			}
		}
		if _, err := q.InsertBid(ctx, auc.ID, req.UserID, plan.Amount, models.BidTypeManual, now); err != nil {
			return err
		}
		updates, err := q.Ledger.RecomputeMany(ctx, req.LeagueID, []uuid.UUID{req.UserID})
		if err != nil {
			return err
		}

		result = BidResult{
			Auction:       auc,
			Player:        bc.Player,
			Created:       true,
			FinalAmount:   plan.Amount,
			FinalBidderID: req.UserID,
			BidType:       models.BidTypeManual,
			BudgetUpdates: updates,
		}
		return nil
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("league_id", req.LeagueID.String()).
			Str("player_id", req.PlayerID.String()).
			Str("user_id", req.UserID.String()).
			Msg("start auction rejected")
		return nil, err
	}

	log.Info().
		Str("auction_id", result.Auction.ID.String()).
		Str("player", result.Player.Name).
		Str("user_id", req.UserID.String()).
		Int("amount", result.FinalAmount).
		Msg("auction started")

	a.checkCompliance(ctx, req.LeagueID, req.UserID)
	a.notifier.Emit(ctx, notify.Event{
		Room: notify.LeagueRoom(req.LeagueID),
		Type: notify.EventAuctionCreated,
		Payload: notify.AuctionCreatedPayload{
			LeagueID:         req.LeagueID,
			PlayerID:         req.PlayerID,
			AuctionID:        result.Auction.ID,
			PlayerName:       result.Player.Name,
			PlayerRole:       string(result.Player.Role),
			NewPrice:         result.FinalAmount,
			HighestBidderID:  req.UserID,
			ScheduledEndTime: result.Auction.ScheduledEndTime,
		},
	})
	return &result, nil
}

// PlaceBid bids on the open auction for a player. Validation, the proxy
// battle and every resulting write commit together or not at all.
func (a *App) PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error) {
	if req.Type == "" {
		req.Type = models.BidTypeManual
	}
	now := a.clock.Now()

	var result BidResult
	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		bc, err := a.loadContext(ctx, q, req.LeagueID, req.PlayerID, req.UserID, now)
		if err != nil {
			return err
		}
		plan, err := PlanSettledBid(bc, req, func(winner uuid.UUID) (BidContext, error) {
			wc := bc
			var err error
			if wc.Participant, err = q.LockParticipant(ctx, req.LeagueID, winner); err != nil {
				return BidContext{}, err
			}
			wc.WinningElsewhere, wc.WinningElsewhereForRole, err = q.CountWinning(
				ctx, req.LeagueID, winner, bc.Player.Role, uuid.NullUUID{UUID: bc.Auction.ID, Valid: true})
			return wc, err
		})
		if err != nil {
			return err
		}
		winner := plan.Outcome.WinnerID

		if plan.ProxyMax != nil {
			if err := q.UpsertAutoBid(ctx, bc.Auction.ID, req.UserID, *plan.ProxyMax, now); err != nil {
				return err
			}
		}
		if err := q.DeactivateAutoBids(ctx, bc.Auction.ID, plan.Deactivate, now); err != nil {
			return err
		}

		auc, err := q.UpdateAuctionLead(ctx, bc.Auction.ID, plan.Outcome.FinalAmount, winner, plan.EndTime, now)
		if err != nil {
			return err
		}
		if _, err := q.InsertBid(ctx, auc.ID, winner, plan.Outcome.FinalAmount, plan.BidType, now); err != nil {
			return err
		}

		affected := []uuid.UUID{winner, req.UserID}
		if bc.Auction.HighestBidderID != nil {
			affected = append(affected, *bc.Auction.HighestBidderID)
		}
		affected = append(affected, plan.Deactivate...)
		updates, err := q.Ledger.RecomputeMany(ctx, req.LeagueID, affected)
		if err != nil {
			return err
		}

		result = BidResult{
			Auction:          auc,
			Player:           bc.Player,
			PreviousBidderID: bc.Auction.HighestBidderID,
			FinalAmount:      plan.Outcome.FinalAmount,
			FinalBidderID:    winner,
			AutoBidActivated: winner != req.UserID || plan.Outcome.ByProxy,
			BidType:          plan.BidType,
			BudgetUpdates:    updates,
		}
		return nil
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("league_id", req.LeagueID.String()).
			Str("player_id", req.PlayerID.String()).
			Str("user_id", req.UserID.String()).
			Int("amount", req.Amount).
			Msg("bid rejected")
		return nil, err
	}

	log.Info().
		Str("auction_id", result.Auction.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("winner_id", result.FinalBidderID.String()).
		Int("amount", result.FinalAmount).
		Bool("auto_bid_activated", result.AutoBidActivated).
		Msg("bid placed")

	a.afterBid(ctx, req, result)
	return &result, nil
}

// afterBid runs the best-effort consequences of a committed bid. Failures
// are logged and never undo the bid.
func (a *App) afterBid(ctx context.Context, req PlaceBidRequest, r BidResult) {
	checked := map[uuid.UUID]bool{}
	for _, u := range []*uuid.UUID{r.PreviousBidderID, &r.FinalBidderID} {
		if u == nil || checked[*u] {
			continue
		}
		checked[*u] = true
		a.checkCompliance(ctx, req.LeagueID, *u)
	}

	if err := a.timers.CancelForUser(ctx, r.Auction.ID, req.UserID); err != nil {
		log.Error().Err(err).Str("auction_id", r.Auction.ID.String()).Msg("failed to cancel response timer")
	}
	surpassed := r.Surpassed(req.UserID)
	for _, u := range surpassed {
		if err := a.timers.Create(ctx, r.Auction.ID, u); err != nil {
			log.Error().Err(err).Str("auction_id", r.Auction.ID.String()).Str("user_id", u.String()).Msg("failed to create response timer")
		}
	}

	winner := r.FinalBidderID
	a.notifier.Emit(ctx, notify.Event{
		Room: notify.LeagueRoom(req.LeagueID),
		Type: notify.EventAuctionUpdate,
		Payload: notify.AuctionUpdatePayload{
			LeagueID:         req.LeagueID,
			PlayerID:         req.PlayerID,
			AuctionID:        r.Auction.ID,
			NewPrice:         r.FinalAmount,
			HighestBidderID:  &winner,
			ScheduledEndTime: r.Auction.ScheduledEndTime,
			Action:           "bid",
			ActingUserID:     &req.UserID,
			AutoBidActivated: r.AutoBidActivated,
			BudgetUpdates:    r.BudgetUpdates,
		},
	})
	for _, u := range surpassed {
		a.notifier.Emit(ctx, notify.Event{
			Room: notify.UserRoom(u),
			Type: notify.EventBidSurpassed,
			Payload: notify.BidSurpassedPayload{
				LeagueID:   req.LeagueID,
				PlayerID:   req.PlayerID,
				AuctionID:  r.Auction.ID,
				PlayerName: r.Player.Name,
				UserID:     u,
				NewPrice:   r.FinalAmount,
				ByAutoBid:  r.AutoBidActivated,
			},
		})
	}
	if r.AutoBidActivated {
		a.notifier.Emit(ctx, notify.Event{
			Room: notify.UserRoom(winner),
			Type: notify.EventAutoBidActivated,
			Payload: notify.AutoBidActivatedPayload{
				LeagueID:   req.LeagueID,
				PlayerID:   req.PlayerID,
				AuctionID:  r.Auction.ID,
				PlayerName: r.Player.Name,
				UserID:     winner,
				Price:      r.FinalAmount,
			},
		})
	}
}

func (a *App) checkCompliance(ctx context.Context, leagueID, userID uuid.UUID) {
	if err := a.compliance.Check(ctx, leagueID, userID); err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("user_id", userID.String()).
			Msg("compliance check failed")
	}
}

// GetAuctionStatus returns the open auction on a player with its history.
func (a *App) GetAuctionStatus(ctx context.Context, leagueID, playerID uuid.UUID) (*StatusView, error) {
	q := New(a.db)
	auc, err := q.GetOpenAuction(ctx, leagueID, playerID)
	if err != nil {
		return nil, err
	}
	if auc == nil {
		return nil, apperr.NotFound("no open auction for this player")
	}
	player, err := q.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	bids, err := q.ListBids(ctx, auc.ID, bidHistoryLimit)
	if err != nil {
		return nil, err
	}
	proxies, err := q.ActiveAutoBids(ctx, auc.ID)
	if err != nil {
		return nil, err
	}

	remaining := auc.ScheduledEndTime.Sub(a.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return &StatusView{
		Auction:        *auc,
		Player:         player,
		Bids:           bids,
		ActiveAutoBids: len(proxies),
		TimeRemaining:  remaining,
		MinValidBid:    auc.HighestBid + 1,
	}, nil
}

// GetParticipantAuctionStates lists the open auctions a participant has bid
// on. Calling it counts as a login, so pending response timers start.
func (a *App) GetParticipantAuctionStates(ctx context.Context, userID, leagueID uuid.UUID) ([]ParticipantAuctionState, error) {
	if err := a.sessions.RecordLogin(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to record login")
	}

	now := a.clock.Now()
	rows, err := New(a.db).ListInvolvedAuctions(ctx, leagueID, userID, now)
	if err != nil {
		return nil, err
	}
	states := make([]ParticipantAuctionState, 0, len(rows))
	for _, row := range rows {
		states = append(states, deriveState(userID, row, now))
	}
	return states, nil
}

// CurrentAuction returns the league's most recently active auction, or nil.
func (a *App) CurrentAuction(ctx context.Context, leagueID uuid.UUID) (*models.Auction, error) {
	return New(a.db).LatestActiveAuction(ctx, leagueID)
}

// ListExpiredAuctions returns up to limit open auctions past their end time.
func (a *App) ListExpiredAuctions(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return New(a.db).ListExpiredAuctionIDs(ctx, a.clock.Now(), limit)
}

// NextAuctionDeadline returns the earliest end time among open auctions.
func (a *App) NextAuctionDeadline(ctx context.Context) (*time.Time, error) {
	return New(a.db).NextAuctionDeadline(ctx)
}

// ResolveExpiredAuction closes an auction whose window has passed. With a
// leader it is sold and the player assigned, otherwise it ends not sold.
// Auctions already terminal or not yet due are skipped.
func (a *App) ResolveExpiredAuction(ctx context.Context, auctionID uuid.UUID) (SweepResult, error) {
	now := a.clock.Now()
	res := SweepResult{AuctionID: auctionID}

	var (
		player   models.Player
		leagueID uuid.UUID
		bidders  []uuid.UUID
	)
	err := sqlutil.Run(ctx, a.db, New, func(q *Queries) error {
		auc, err := q.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if auc.Status.IsTerminal() || auc.ScheduledEndTime.After(now) {
			res.Skipped = true
			return nil
		}
		leagueID = auc.LeagueID
		if player, err = q.GetPlayer(ctx, auc.PlayerID); err != nil {
			return err
		}

		status := models.AuctionStatusSold
		if auc.HighestBidderID == nil || auc.HighestBid <= 0 {
			status = models.AuctionStatusNotSold
		}
		closed, err := q.CloseAuction(ctx, auc.ID, status, now)
		if err != nil {
			return err
		}
		if !closed {
			res.Skipped = true
			return nil
		}
		if err := q.CancelPendingTimers(ctx, auc.ID, now); err != nil {
			return err
		}
		proxyOwners, err := q.DeactivateAllAutoBids(ctx, auc.ID, now)
		if err != nil {
			return err
		}
		res.Status = status

		if status == models.AuctionStatusNotSold {
			_, err := q.Ledger.RecomputeMany(ctx, auc.LeagueID, proxyOwners)
			return err
		}

		winner := *auc.HighestBidderID
		balance, err := q.Ledger.Debit(ctx, auc.LeagueID, winner, auc.HighestBid)
		if err != nil {
			return err
		}
		if err := q.InsertAssignment(ctx, models.Assignment{
			LeagueID:      auc.LeagueID,
			PlayerID:      auc.PlayerID,
			UserID:        winner,
			PurchasePrice: auc.HighestBid,
			AssignedAt:    now,
		}); err != nil {
			return err
		}
		if err := q.IncrementAcquired(ctx, auc.LeagueID, winner, player.Role); err != nil {
			return err
		}
		if _, err := q.Ledger.RecomputeMany(ctx, auc.LeagueID, append(proxyOwners, winner)); err != nil {
			return err
		}
		err = q.Ledger.InsertTransaction(ctx, ledger.TransactionParams{
			LeagueID:      auc.LeagueID,
			UserID:        winner,
			Type:          models.TransactionWinAuctionDebit,
			Amount:        auc.HighestBid,
			Description:   fmt.Sprintf("won auction for %s", player.Name),
			RelatedPlayer: &auc.PlayerID,
			BalanceAfter:  balance,
			Metadata:      map[string]any{"auction_id": auc.ID.String()},
			At:            now,
		})
		if err != nil {
			return err
		}
		if bidders, err = q.BidderIDs(ctx, auc.ID); err != nil {
			return err
		}

		res.WinnerID = &winner
		res.Price = auc.HighestBid
		return nil
	})
	if err != nil {
		return res, err
	}
	if res.Skipped {
		return res, nil
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("player", player.Name).
		Str("status", string(res.Status)).
		Int("price", res.Price).
		Msg("auction resolved")

	if res.WinnerID != nil {
		a.checkCompliance(ctx, leagueID, *res.WinnerID)
	}
	for _, u := range bidders {
		if res.WinnerID != nil && u == *res.WinnerID {
			continue
		}
		a.checkCompliance(ctx, leagueID, u)
	}

	a.notifier.Emit(ctx, notify.Event{
		Room: notify.LeagueRoom(leagueID),
		Type: notify.EventAuctionClosed,
		Payload: notify.AuctionClosedPayload{
			LeagueID:   leagueID,
			PlayerID:   player.ID,
			AuctionID:  auctionID,
			PlayerName: player.Name,
			Status:     res.Status,
			WinnerID:   res.WinnerID,
			FinalPrice: res.Price,
		},
	})
	return res, nil
}
