package roster

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// RosterPlayer is a player a manager owns or is currently leading.
type RosterPlayer struct {
	PlayerID uuid.UUID   `json:"player_id"`
	Name     string      `json:"name"`
	Team     string      `json:"team"`
	Role     models.Role `json:"role"`
	// Price is the purchase price for assigned players and the current bid
	// for auctions being led.
	Price      int        `json:"price"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	AuctionID  *uuid.UUID `json:"auction_id,omitempty"`
}

// ManagerRoster is one participant's squad in a league.
type ManagerRoster struct {
	LeagueID       uuid.UUID           `json:"league_id"`
	UserID         uuid.UUID           `json:"user_id"`
	Assigned       []RosterPlayer      `json:"assigned"`
	Winning        []RosterPlayer      `json:"winning"`
	TotalSpent     int                 `json:"total_spent"`
	SlotsRemaining map[models.Role]int `json:"slots_remaining"`
}

// slotsRemaining counts open roster slots per role. Auctions being led
// occupy a slot the same way assignments do.
func slotsRemaining(slots map[models.Role]int, assigned, winning []RosterPlayer) map[models.Role]int {
	out := make(map[models.Role]int, len(models.AllRoles))
	for _, role := range models.AllRoles {
		out[role] = slots[role]
	}
	for _, list := range [][]RosterPlayer{assigned, winning} {
		for _, p := range list {
			out[p.Role] = max(0, out[p.Role]-1)
		}
	}
	return out
}

// DiscardResult is the outcome of releasing a player during repair.
type DiscardResult struct {
	PlayerID     uuid.UUID `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	RefundAmount int       `json:"refund_amount"`
	NewBudget    int       `json:"new_budget"`
}

// discardRefund validates a discard and returns the credit owed. Players are
// refunded at their current quotation, not at the price paid.
func discardRefund(status models.LeagueStatus, op ownedPlayer, userID uuid.UUID) (int, error) {
	if status != models.LeagueStatusRepairActive {
		return 0, apperr.StateConflict("players can only be discarded while the league is in repair")
	}
	if op.OwnerID != userID {
		return 0, apperr.NotFound("player is not in your roster")
	}
	return max(0, op.Quotation), nil
}
