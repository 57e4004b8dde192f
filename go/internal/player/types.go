package player

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// AuctionState is a player's standing within one league
type AuctionState string

const (
	StateNoAuction     AuctionState = "no_auction"
	StateActiveAuction AuctionState = "active_auction"
	StateAssigned      AuctionState = "assigned"
)

const (
	defaultPage  = 1
	defaultLimit = 25
	maxLimit     = 1000
)

var sortColumns = map[string]string{
	"name":      "p.name",
	"role":      "p.role",
	"team":      "p.team",
	"quotation": "p.quotation",
}

// SearchParams filters the player catalog of a league.
type SearchParams struct {
	LeagueID uuid.UUID
	Name     string
	Team     string
	Role     models.Role
	SortBy   string
	Desc     bool
	Page     int
	Limit    int
}

// normalize fills defaults and rejects unknown filters.
func (p SearchParams) normalize() (SearchParams, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Team = strings.TrimSpace(p.Team)
	p.Role = models.Role(strings.ToUpper(string(p.Role)))
	if p.Role != "" && !p.Role.Valid() {
		return p, apperr.Validation("invalid role %q", p.Role)
	}
	if p.SortBy == "" {
		p.SortBy = "name"
	}
	if _, ok := sortColumns[p.SortBy]; !ok {
		return p, apperr.Validation("cannot sort by %q", p.SortBy)
	}
	if p.Page < 1 {
		p.Page = defaultPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = defaultLimit
	case p.Limit > maxLimit:
		p.Limit = maxLimit
	}
	return p, nil
}

func (p SearchParams) offset() int {
	return (p.Page - 1) * p.Limit
}

// Listing is a player with its auction state in the league.
type Listing struct {
	models.Player
	State            AuctionState `json:"auction_status"`
	AuctionID        *uuid.UUID   `json:"auction_id,omitempty"`
	CurrentBid       *int         `json:"current_bid,omitempty"`
	ScheduledEndTime *time.Time   `json:"scheduled_end_time,omitempty"`
	AssignedTo       *uuid.UUID   `json:"assigned_to,omitempty"`
}

// SearchResult is one page of the catalog.
type SearchResult struct {
	Players    []Listing `json:"players"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}
