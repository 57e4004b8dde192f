package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// EventType names a notification consumed by live clients
type EventType string

const (
	EventAuctionCreated          EventType = "auction-created"
	EventAuctionUpdate           EventType = "auction-update"
	EventAuctionClosed           EventType = "auction-closed"
	EventBidSurpassed            EventType = "bid-surpassed"
	EventAutoBidActivated        EventType = "auto-bid-activated"
	EventResponseTimerStarted    EventType = "response-timer-started"
	EventTimerExpired            EventType = "timer-expired"
	EventComplianceStatusChanged EventType = "compliance-status-changed"
	EventPenaltyApplied          EventType = "penalty-applied"
	EventLeagueStatusChanged     EventType = "league-status-changed"
	EventPlayerDiscarded         EventType = "player-discarded"
)

// Event is one fire-and-forget notification addressed to a room.
type Event struct {
	Room    string
	Type    EventType
	Payload any
}

// LeagueRoom addresses every participant watching a league.
func LeagueRoom(leagueID uuid.UUID) string {
	return "league-" + leagueID.String()
}

// UserRoom addresses a single participant.
func UserRoom(userID uuid.UUID) string {
	return "user-" + userID.String()
}

// Event payloads

type AuctionCreatedPayload struct {
	LeagueID         uuid.UUID `json:"league_id"`
	PlayerID         uuid.UUID `json:"player_id"`
	AuctionID        uuid.UUID `json:"auction_id"`
	PlayerName       string    `json:"player_name"`
	PlayerRole       string    `json:"player_role"`
	NewPrice         int       `json:"new_price"`
	HighestBidderID  uuid.UUID `json:"highest_bidder_id"`
	ScheduledEndTime time.Time `json:"scheduled_end_time"`
}

type AuctionUpdatePayload struct {
	LeagueID         uuid.UUID             `json:"league_id"`
	PlayerID         uuid.UUID             `json:"player_id"`
	AuctionID        uuid.UUID             `json:"auction_id"`
	NewPrice         int                   `json:"new_price"`
	HighestBidderID  *uuid.UUID            `json:"highest_bidder_id,omitempty"`
	ScheduledEndTime time.Time             `json:"scheduled_end_time"`
	Action           string                `json:"action,omitempty"`
	ActingUserID     *uuid.UUID            `json:"acting_user_id,omitempty"`
	AutoBidActivated bool                  `json:"auto_bid_activated"`
	BudgetUpdates    []models.BudgetUpdate `json:"budget_updates,omitempty"`
}

type AuctionClosedPayload struct {
	LeagueID   uuid.UUID            `json:"league_id"`
	PlayerID   uuid.UUID            `json:"player_id"`
	AuctionID  uuid.UUID            `json:"auction_id"`
	PlayerName string               `json:"player_name"`
	Status     models.AuctionStatus `json:"status"`
	WinnerID   *uuid.UUID           `json:"winner_id,omitempty"`
	FinalPrice int                  `json:"final_price"`
}

type BidSurpassedPayload struct {
	LeagueID   uuid.UUID `json:"league_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	PlayerName string    `json:"player_name"`
	UserID     uuid.UUID `json:"user_id"`
	NewPrice   int       `json:"new_price"`
	ByAutoBid  bool      `json:"by_auto_bid"`
}

type AutoBidActivatedPayload struct {
	LeagueID   uuid.UUID `json:"league_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	PlayerName string    `json:"player_name"`
	UserID     uuid.UUID `json:"user_id"`
	Price      int       `json:"price"`
}

type ResponseTimerStartedPayload struct {
	AuctionID     uuid.UUID `json:"auction_id"`
	PlayerID      uuid.UUID `json:"player_id"`
	UserID        uuid.UUID `json:"user_id"`
	Deadline      time.Time `json:"response_deadline"`
	TimeRemaining int       `json:"time_remaining"`
}

type TimerExpiredPayload struct {
	LeagueID        uuid.UUID `json:"league_id"`
	AuctionID       uuid.UUID `json:"auction_id"`
	PlayerID        uuid.UUID `json:"player_id"`
	PlayerName      string    `json:"player_name"`
	UserID          uuid.UUID `json:"user_id"`
	CooldownSeconds int       `json:"cooldown_seconds"`
	CooldownEndsAt  time.Time `json:"cooldown_ends_at"`
}

type ComplianceStatusChangedPayload struct {
	LeagueID             uuid.UUID `json:"league_id"`
	UserID               uuid.UUID `json:"user_id"`
	IsCompliant          bool      `json:"is_compliant"`
	AppliedPenaltyAmount int       `json:"applied_penalty_amount,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

type PenaltyAppliedPayload struct {
	LeagueID uuid.UUID `json:"league_id"`
	UserID   uuid.UUID `json:"user_id"`
	Amount   int       `json:"amount"`
	Reason   string    `json:"reason"`
}

type LeagueStatusChangedPayload struct {
	LeagueID           uuid.UUID           `json:"league_id"`
	NewStatus          models.LeagueStatus `json:"new_status"`
	ActiveAuctionRoles string              `json:"active_auction_roles"`
	Timestamp          time.Time           `json:"timestamp"`
}

type PlayerDiscardedPayload struct {
	LeagueID     uuid.UUID `json:"league_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	UserID       uuid.UUID `json:"user_id"`
	RefundAmount int       `json:"refund_amount"`
	Timestamp    time.Time `json:"timestamp"`
}
