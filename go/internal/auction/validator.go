package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/reservation"
)

// BidContext is everything the validator needs about one bidder, read under
// row locks in the transaction that will apply the bid.
type BidContext struct {
	Now         time.Time
	League      models.League
	Player      models.Player
	Participant models.Participant
	// Auction is the open auction on the player, nil when there is none.
	Auction         *models.Auction
	PlayerAssigned  bool
	Cooldown        *models.Cooldown
	HasPendingTimer bool
	// Counts of other open auctions the participant currently leads.
	WinningElsewhere        int
	WinningElsewhereForRole int
	// ActiveProxies are the standing proxies on Auction.
	ActiveProxies []models.AutoBid
	// OwnProxy is the participant's proxy row on Auction, active or not.
	OwnProxy *models.AutoBid
}

// StartPlan is a validated StartAuction.
type StartPlan struct {
	Amount      int
	ProxyMax    *int
	EndTime     time.Time
	Reservation reservation.Result
}

// BidPlan is a validated and resolved PlaceBid.
type BidPlan struct {
	Amount      int
	ProxyMax    *int
	Outcome     Outcome
	BidType     models.BidType
	EndTime     time.Time
	Reservation reservation.Result
	// Proxies is the standing proxy set the battle ran against.
	Proxies []Proxy
	// Deactivate lists proxy owners that can no longer compete.
	Deactivate []uuid.UUID
}

// MinBid is the opening floor for an auction on player.
func MinBid(league models.League, player models.Player) int {
	floor := league.MinBid
	if league.MinBidRule == models.MinBidRulePlayerQuotation && player.Quotation > 0 {
		floor = player.Quotation
	}
	if floor < 1 {
		floor = 1
	}
	return floor
}

// PlanStart validates opening a new auction.
func PlanStart(c BidContext, req StartAuctionRequest) (StartPlan, error) {
	if err := validateAmounts(req.Amount, req.ProxyMax); err != nil {
		return StartPlan{}, err
	}
	if c.Auction != nil {
		if !c.Auction.ScheduledEndTime.After(c.Now) {
			return StartPlan{}, apperr.StateConflict("the auction for this player has expired and is being closed")
		}
		return StartPlan{}, apperr.StateConflict("an auction is already open for this player").
			With("current_bid", c.Auction.HighestBid).
			With("min_valid_bid", c.Auction.HighestBid+1)
	}
	if err := checkEligibility(c); err != nil {
		return StartPlan{}, err
	}

	minBid := MinBid(c.League, c.Player)
	if req.Amount < minBid {
		return StartPlan{}, apperr.Validation("the opening bid must be at least %d credits", minBid).
			With("min_valid_bid", minBid)
	}

	res, err := reservation.Check(c.reservationInput(true), effectiveAmount(req.Amount, req.ProxyMax))
	if err != nil {
		return StartPlan{}, err
	}

	return StartPlan{
		Amount:      req.Amount,
		ProxyMax:    req.ProxyMax,
		EndTime:     c.Now.Add(c.League.TimerDuration()),
		Reservation: res,
	}, nil
}

// PlanBid validates a bid on the open auction and resolves it against the
// standing proxies.
func PlanBid(c BidContext, req PlaceBidRequest) (BidPlan, error) {
	if !req.Type.Valid() {
		return BidPlan{}, apperr.Validation("unknown bid type %q", req.Type)
	}
	if err := validateAmounts(req.Amount, req.ProxyMax); err != nil {
		return BidPlan{}, err
	}
	if c.Auction == nil || c.Auction.Status.IsTerminal() {
		return BidPlan{}, apperr.NotFound("no open auction for this player")
	}
	if !c.Auction.ScheduledEndTime.After(c.Now) {
		return BidPlan{}, apperr.StateConflict("the auction for this player has expired and is being closed")
	}
	if err := checkEligibility(c); err != nil {
		return BidPlan{}, err
	}

	if req.Amount <= c.Auction.HighestBid {
		return BidPlan{}, apperr.Validation(
			"your bid must be higher than the current bid of %d credits", c.Auction.HighestBid,
		).With("current_bid", c.Auction.HighestBid).With("min_valid_bid", c.Auction.HighestBid+1)
	}
	if c.Auction.IsHighestBidder(req.UserID) && !c.HasPendingTimer {
		return BidPlan{}, apperr.StateConflict("you are already the highest bidder").
			With("current_bid", c.Auction.HighestBid)
	}

	commit := effectiveAmount(req.Amount, req.ProxyMax)
	if req.ProxyMax == nil {
		// a standing proxy stays in force and keeps its max locked
		if own := c.activeOwnProxy(); own != nil && own.MaxAmount > commit {
			commit = own.MaxAmount
		}
	}
	res, err := reservation.Check(c.reservationInput(false), commit)
	if err != nil {
		return BidPlan{}, err
	}

	proxies := c.proxiesWith(req.UserID, req.ProxyMax)
	outcome := ResolveBattle(req.Amount, req.UserID, proxies)

	bidType := req.Type
	if outcome.ByProxy {
		bidType = models.BidTypeAuto
	}

	var deactivate []uuid.UUID
	for _, p := range Outbid(proxies, outcome.FinalAmount) {
		deactivate = append(deactivate, p.UserID)
	}

	return BidPlan{
		Amount:      req.Amount,
		ProxyMax:    req.ProxyMax,
		Outcome:     outcome,
		BidType:     bidType,
		EndTime:     c.Now.Add(c.League.TimerDuration()),
		Reservation: res,
		Proxies:     proxies,
		Deactivate:  deactivate,
	}, nil
}

// WinnerContext loads the bid context of a battle winner other than the
// bidder.
type WinnerContext func(winner uuid.UUID) (BidContext, error)

// PlanSettledBid plans req like PlanBid, then drops every standing proxy
// whose owner cannot afford the price it would win at and resolves the
// battle again without it. Dropped proxies are deactivated with the plan.
func PlanSettledBid(c BidContext, req PlaceBidRequest, load WinnerContext) (BidPlan, error) {
	plan, err := PlanBid(c, req)
	if err != nil {
		return BidPlan{}, err
	}
	var dropped []uuid.UUID
	for plan.Outcome.WinnerID != req.UserID {
		winner := plan.Outcome.WinnerID
		wc, err := load(winner)
		if err != nil {
			return BidPlan{}, err
		}
		if CheckWinner(wc, plan.Outcome.FinalAmount) == nil {
			break
		}
		rest := c.withoutProxy(winner)
		if len(rest.ActiveProxies) == len(c.ActiveProxies) {
			return BidPlan{}, apperr.StateConflict("the leading auto-bid exceeds its owner's available budget")
		}
		c = rest
		dropped = append(dropped, winner)
		if plan, err = PlanBid(c, req); err != nil {
			return BidPlan{}, err
		}
	}
	plan.Deactivate = append(plan.Deactivate, dropped...)
	return plan, nil
}

// CheckWinner re-runs the reservation for the battle winner, whose context
// is c, at the price they will hold the auction for.
func CheckWinner(c BidContext, amount int) error {
	_, err := reservation.Check(c.reservationInput(false), amount)
	return err
}

func validateAmounts(amount int, proxyMax *int) error {
	if amount <= 0 {
		return apperr.Validation("bid amount must be a positive number of credits")
	}
	if proxyMax != nil && *proxyMax < amount {
		return apperr.Validation("the auto-bid maximum (%d) cannot be lower than the bid (%d)", *proxyMax, amount).
			With("min_valid_bid", amount)
	}
	return nil
}

// effectiveAmount is what the bidder commits: the proxy max when one
// accompanies the bid, else the bid itself.
func effectiveAmount(amount int, proxyMax *int) int {
	if proxyMax != nil && *proxyMax > amount {
		return *proxyMax
	}
	return amount
}

func checkEligibility(c BidContext) error {
	if !c.League.IsBiddingPhase() {
		return apperr.StateConflict("the league is not accepting bids (status %s)", c.League.Status).
			With("league_status", string(c.League.Status))
	}
	if !c.League.IsRoleActive(c.Player.Role) {
		return apperr.StateConflict("auctions for role %s are not open", c.Player.Role).
			With("active_roles", c.League.ActiveAuctionRoles)
	}
	if c.PlayerAssigned {
		return apperr.StateConflict("%s has already been assigned", c.Player.Name)
	}
	if c.Cooldown != nil && c.Cooldown.ExpiresAt.After(c.Now) {
		remaining := c.Cooldown.ExpiresAt.Sub(c.Now).Round(time.Minute)
		return apperr.CooldownActive("you abandoned %s and can bid again in %s", c.Player.Name, remaining).
			With("cooldown_remaining_seconds", int(c.Cooldown.ExpiresAt.Sub(c.Now).Seconds())).
			With("cooldown_ends_at", c.Cooldown.ExpiresAt)
	}
	return nil
}

func (c BidContext) activeOwnProxy() *models.AutoBid {
	for i := range c.ActiveProxies {
		if c.ActiveProxies[i].UserID == c.Participant.UserID {
			return &c.ActiveProxies[i]
		}
	}
	return nil
}

// ownCommitment is what the participant already has locked on this auction.
// It is excluded before checking, so a raise is not counted twice.
func (c BidContext) ownCommitment() int {
	if c.Auction == nil {
		return 0
	}
	if own := c.activeOwnProxy(); own != nil {
		return own.MaxAmount
	}
	if c.Auction.IsHighestBidder(c.Participant.UserID) {
		return c.Auction.HighestBid
	}
	return 0
}

func (c BidContext) reservationInput(isNew bool) reservation.Input {
	locked := c.Participant.LockedCredits - c.ownCommitment()
	if locked < 0 {
		locked = 0
	}
	return reservation.Input{
		SlotsByRole:             c.League.Slots,
		Budget:                  c.Participant.Budget,
		LockedCredits:           locked,
		AcquiredByRole:          c.Participant.AcquiredByRole,
		WinningElsewhere:        c.WinningElsewhere,
		WinningElsewhereForRole: c.WinningElsewhereForRole,
		Role:                    c.Player.Role,
		IsNewAuction:            isNew,
	}
}

func (c BidContext) withoutProxy(userID uuid.UUID) BidContext {
	kept := make([]models.AutoBid, 0, len(c.ActiveProxies))
	for _, ab := range c.ActiveProxies {
		if ab.UserID != userID {
			kept = append(kept, ab)
		}
	}
	c.ActiveProxies = kept
	return c
}

// proxiesWith returns the standing proxies with the bidder's new maximum
// applied. A re-activated proxy keeps its original creation time.
func (c BidContext) proxiesWith(userID uuid.UUID, proxyMax *int) []Proxy {
	out := make([]Proxy, 0, len(c.ActiveProxies)+1)
	for _, ab := range c.ActiveProxies {
		if ab.UserID == userID && proxyMax != nil {
			continue
		}
		out = append(out, Proxy{UserID: ab.UserID, MaxAmount: ab.MaxAmount, CreatedAt: ab.CreatedAt})
	}
	if proxyMax != nil {
		createdAt := c.Now
		if c.OwnProxy != nil {
			createdAt = c.OwnProxy.CreatedAt
		}
		out = append(out, Proxy{UserID: userID, MaxAmount: *proxyMax, CreatedAt: createdAt})
	}
	return out
}
