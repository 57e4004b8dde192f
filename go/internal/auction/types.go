package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// StartAuctionRequest opens an auction on a player with a first bid.
type StartAuctionRequest struct {
	LeagueID uuid.UUID
	PlayerID uuid.UUID
	UserID   uuid.UUID
	Amount   int
	ProxyMax *int
}

// PlaceBidRequest bids on the open auction for a player.
type PlaceBidRequest struct {
	LeagueID uuid.UUID
	PlayerID uuid.UUID
	UserID   uuid.UUID
	Amount   int
	Type     models.BidType
	ProxyMax *int
}

// BidResult describes a committed bid.
type BidResult struct {
	Auction          models.Auction
	Player           models.Player
	Created          bool
	PreviousBidderID *uuid.UUID
	FinalAmount      int
	FinalBidderID    uuid.UUID
	AutoBidActivated bool
	BidType          models.BidType
	BudgetUpdates    []models.BudgetUpdate
}

// Surpassed lists the users who lost the lead because of this bid.
func (r BidResult) Surpassed(bidder uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	if r.PreviousBidderID != nil && *r.PreviousBidderID != r.FinalBidderID {
		out = append(out, *r.PreviousBidderID)
	}
	if bidder != r.FinalBidderID && (r.PreviousBidderID == nil || *r.PreviousBidderID != bidder) {
		out = append(out, bidder)
	}
	return out
}

// StatusView is the public view of an auction. Proxy maxima are never
// exposed, only how many proxies are still standing.
type StatusView struct {
	Auction        models.Auction `json:"auction"`
	Player         models.Player  `json:"player"`
	Bids           []models.Bid   `json:"bids"`
	ActiveAutoBids int            `json:"active_auto_bids"`
	TimeRemaining  time.Duration  `json:"time_remaining"`
	MinValidBid    int            `json:"min_valid_bid"`
}

// ParticipantState is how an auction looks from one participant's seat.
type ParticipantState string

const (
	StateWinning    ParticipantState = "winning"
	StateCanRespond ParticipantState = "can_respond"
	StateAbandoned  ParticipantState = "abandoned"
)

// ParticipantAuctionState is one open auction the participant has bid on.
type ParticipantAuctionState struct {
	AuctionID        uuid.UUID        `json:"auction_id"`
	PlayerID         uuid.UUID        `json:"player_id"`
	PlayerName       string           `json:"player_name"`
	PlayerTeam       string           `json:"player_team"`
	PlayerRole       models.Role      `json:"player_role"`
	CurrentBid       int              `json:"current_bid"`
	State            ParticipantState `json:"user_state"`
	IsHighestBidder  bool             `json:"is_highest_bidder"`
	ResponseDeadline *time.Time       `json:"response_deadline,omitempty"`
	TimeRemaining    *time.Duration   `json:"time_remaining,omitempty"`
	CooldownEndsAt   *time.Time       `json:"cooldown_ends_at,omitempty"`
}

// involvedAuction is the raw row behind a ParticipantAuctionState.
type involvedAuction struct {
	AuctionID        uuid.UUID
	Player           models.Player
	HighestBid       int
	HighestBidderID  *uuid.UUID
	ResponseDeadline *time.Time
	CooldownEndsAt   *time.Time
}

// deriveState classifies an involved auction at now. An active cooldown wins
// over everything, then the lead, otherwise the participant may respond.
func deriveState(userID uuid.UUID, row involvedAuction, now time.Time) ParticipantAuctionState {
	isHighest := row.HighestBidderID != nil && *row.HighestBidderID == userID
	state := StateCanRespond
	switch {
	case row.CooldownEndsAt != nil && row.CooldownEndsAt.After(now):
		state = StateAbandoned
	case isHighest:
		state = StateWinning
	}

	out := ParticipantAuctionState{
		AuctionID:        row.AuctionID,
		PlayerID:         row.Player.ID,
		PlayerName:       row.Player.Name,
		PlayerTeam:       row.Player.Team,
		PlayerRole:       row.Player.Role,
		CurrentBid:       row.HighestBid,
		State:            state,
		IsHighestBidder:  isHighest,
		ResponseDeadline: row.ResponseDeadline,
		CooldownEndsAt:   row.CooldownEndsAt,
	}
	if row.ResponseDeadline != nil {
		remaining := row.ResponseDeadline.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		out.TimeRemaining = &remaining
	}
	return out
}

// SweepResult reports what happened to one expired auction.
type SweepResult struct {
	AuctionID uuid.UUID
	Status    models.AuctionStatus
	WinnerID  *uuid.UUID
	Price     int
	// Skipped is set when the auction was already terminal or not yet due.
	Skipped bool
}
