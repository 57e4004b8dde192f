package models

import (
	"time"

	"github.com/google/uuid"
)

type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusClosing   AuctionStatus = "closing"
	AuctionStatusSold      AuctionStatus = "sold"
	AuctionStatusNotSold   AuctionStatus = "not_sold"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// IsTerminal reports whether the auction can no longer receive bids.
func (s AuctionStatus) IsTerminal() bool {
	return s != AuctionStatusActive && s != AuctionStatusClosing
}

type BidType string

const (
	BidTypeManual BidType = "manual"
	BidTypeAuto   BidType = "auto"
	BidTypeQuick  BidType = "quick"
)

func (t BidType) Valid() bool {
	switch t {
	case BidTypeManual, BidTypeAuto, BidTypeQuick:
		return true
	}
	return false
}

// Auction is a live or resolved auction on one player in one league
type Auction struct {
	ID               uuid.UUID     `json:"id"`
	LeagueID         uuid.UUID     `json:"league_id"`
	PlayerID         uuid.UUID     `json:"player_id"`
	StartTime        time.Time     `json:"start_time"`
	ScheduledEndTime time.Time     `json:"scheduled_end_time"`
	HighestBid       int           `json:"current_highest_bid_amount"`
	HighestBidderID  *uuid.UUID    `json:"current_highest_bidder_id,omitempty"`
	Status           AuctionStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// IsHighestBidder reports whether userID currently leads the auction.
func (a Auction) IsHighestBidder(userID uuid.UUID) bool {
	return a.HighestBidderID != nil && *a.HighestBidderID == userID
}

// Bid is an immutable history entry
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    int       `json:"amount"`
	Type      BidType   `json:"bid_type"`
	BidTime   time.Time `json:"bid_time"`
}

// AutoBid is a standing proxy maximum. CreatedAt breaks ties, earlier wins.
type AutoBid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`
	MaxAmount int       `json:"max_amount"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
