package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type LeagueStatus string

const (
	LeagueStatusParticipantsJoining LeagueStatus = "participants_joining"
	LeagueStatusDraftActive         LeagueStatus = "draft_active"
	LeagueStatusRepairActive        LeagueStatus = "repair_active"
	LeagueStatusMarketClosed        LeagueStatus = "market_closed"
	LeagueStatusSeasonActive        LeagueStatus = "season_active"
	LeagueStatusCompleted           LeagueStatus = "completed"
)

// MinBidRule selects how the floor for a new auction is computed
type MinBidRule string

const (
	MinBidRuleFixed           MinBidRule = "fixed"
	MinBidRulePlayerQuotation MinBidRule = "player_quotation"
)

// League is the auction configuration read by the engine. Administrative
// mutation of leagues happens elsewhere.
type League struct {
	ID                   uuid.UUID    `json:"id"`
	Name                 string       `json:"name"`
	Status               LeagueStatus `json:"status"`
	InitialBudget        int          `json:"initial_budget"`
	MinBid               int          `json:"min_bid"`
	MinBidRule           MinBidRule   `json:"min_bid_rule"`
	TimerDurationMinutes int          `json:"timer_duration_minutes"`
	ActiveAuctionRoles   string       `json:"active_auction_roles"`
	Slots                map[Role]int `json:"slots"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// IsBiddingPhase reports whether auctions may be started or bid on.
func (l League) IsBiddingPhase() bool {
	return l.Status == LeagueStatusDraftActive || l.Status == LeagueStatusRepairActive
}

// ActiveRoles parses ActiveAuctionRoles. An empty value or "NONE" yields no
// roles, "ALL" yields every role.
func (l League) ActiveRoles() []Role {
	return ParseActiveRoles(l.ActiveAuctionRoles)
}

// IsRoleActive reports whether bidding is open for the given role.
func (l League) IsRoleActive(role Role) bool {
	for _, r := range l.ActiveRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// TotalSlots is the roster size across all roles.
func (l League) TotalSlots() int {
	total := 0
	for _, role := range AllRoles {
		total += l.Slots[role]
	}
	return total
}

// TimerDuration is the bidding window granted after every accepted bid.
func (l League) TimerDuration() time.Duration {
	return time.Duration(l.TimerDurationMinutes) * time.Minute
}

// ParseActiveRoles turns a roles setting ("ALL", "NONE", "P,D") into roles.
func ParseActiveRoles(raw string) []Role {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	switch trimmed {
	case "", "NONE":
		return nil
	case "ALL":
		return append([]Role(nil), AllRoles...)
	}

	var roles []Role
	for _, part := range strings.Split(trimmed, ",") {
		role := Role(strings.TrimSpace(part))
		if role.Valid() {
			roles = append(roles, role)
		}
	}
	return roles
}
