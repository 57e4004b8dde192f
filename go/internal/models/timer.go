package models

import (
	"time"

	"github.com/google/uuid"
)

type TimerStatus string

const (
	TimerStatusPending   TimerStatus = "pending"
	TimerStatusCancelled TimerStatus = "cancelled"
	TimerStatusAbandoned TimerStatus = "abandoned"
	TimerStatusExpired   TimerStatus = "expired"
)

// ResponseTimer tracks an outbid participant's window to react. Deadline is
// nil until the participant is online.
type ResponseTimer struct {
	ID          uuid.UUID   `json:"id"`
	AuctionID   uuid.UUID   `json:"auction_id"`
	UserID      uuid.UUID   `json:"user_id"`
	Status      TimerStatus `json:"status"`
	Deadline    *time.Time  `json:"response_deadline,omitempty"`
	ActivatedAt *time.Time  `json:"activated_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`
}

// Cooldown blocks a participant from bidding on a player until ExpiresAt.
type Cooldown struct {
	LeagueID  uuid.UUID `json:"league_id"`
	UserID    uuid.UUID `json:"user_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ComplianceStatus is one roster-compliance cycle for a participant in a
// league phase.
type ComplianceStatus struct {
	LeagueID              uuid.UUID  `json:"league_id"`
	UserID                uuid.UUID  `json:"user_id"`
	PhaseIdentifier       string     `json:"phase_identifier"`
	TimerStartAt          *time.Time `json:"compliance_timer_start_at,omitempty"`
	LastPenaltyHourRef    *time.Time `json:"last_penalty_applied_for_hour_ending_at,omitempty"`
	PenaltiesAppliedCycle int        `json:"penalties_applied_this_cycle"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
