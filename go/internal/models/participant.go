package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Participant is a user's seat in a league.
type Participant struct {
	LeagueID       uuid.UUID    `json:"league_id"`
	UserID         uuid.UUID    `json:"user_id"`
	Budget         int          `json:"budget"`
	LockedCredits  int          `json:"locked_credits"`
	AcquiredByRole map[Role]int `json:"acquired_by_role"`
	JoinedAt       time.Time    `json:"joined_at"`
}

// TotalAcquired counts players already assigned to the participant.
func (p Participant) TotalAcquired() int {
	total := 0
	for _, role := range AllRoles {
		total += p.AcquiredByRole[role]
	}
	return total
}

// BudgetUpdate is the post-change ledger view pushed to clients.
type BudgetUpdate struct {
	UserID        uuid.UUID `json:"user_id"`
	Budget        int       `json:"budget"`
	LockedCredits int       `json:"locked_credits"`
}

// Assignment is the terminal record of a won auction.
type Assignment struct {
	LeagueID      uuid.UUID `json:"league_id"`
	PlayerID      uuid.UUID `json:"player_id"`
	UserID        uuid.UUID `json:"user_id"`
	PurchasePrice int       `json:"purchase_price"`
	AssignedAt    time.Time `json:"assigned_at"`
}

// TransactionType classifies budget ledger rows
type TransactionType string

const (
	TransactionWinAuctionDebit    TransactionType = "win_auction_debit"
	TransactionPenaltyRequirement TransactionType = "penalty_requirement"
	TransactionAuctionAbandoned   TransactionType = "auction_abandoned"
	TransactionTimerExpired       TransactionType = "timer_expired"
	TransactionDiscardCredit      TransactionType = "discard_player_credit"
)

// BudgetTransaction is an append-only audit row for budget movements.
type BudgetTransaction struct {
	ID            uuid.UUID       `json:"id"`
	LeagueID      uuid.UUID       `json:"league_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Type          TransactionType `json:"type"`
	Amount        int             `json:"amount"`
	Description   string          `json:"description"`
	RelatedPlayer *uuid.UUID      `json:"related_player_id,omitempty"`
	BalanceAfter  int             `json:"balance_after"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
