package auction

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Proxy is an active standing maximum taking part in a battle.
type Proxy struct {
	UserID    uuid.UUID
	MaxAmount int
	CreatedAt time.Time
}

// Outcome is the result of resolving a manual bid against standing proxies.
type Outcome struct {
	FinalAmount int
	WinnerID    uuid.UUID
	// ByProxy is false when the manual bid itself stands.
	ByProxy bool
	// TieBreak is set when two proxies shared the top maximum.
	TieBreak bool
}

// ResolveBattle settles a manual bid against the active proxies on an
// auction, eBay style. Only proxies with a max strictly above the manual
// amount compete. The best proxy (highest max, earliest created on ties)
// wins at one credit over the runner-up, capped at its own max. When the two
// best proxies share the same max the earlier one wins and pays that max.
func ResolveBattle(manualAmount int, manualBidder uuid.UUID, proxies []Proxy) Outcome {
	competitors := make([]Proxy, 0, len(proxies))
	for _, p := range proxies {
		if p.MaxAmount > manualAmount {
			competitors = append(competitors, p)
		}
	}

	if len(competitors) == 0 {
		return Outcome{FinalAmount: manualAmount, WinnerID: manualBidder}
	}

	sort.SliceStable(competitors, func(i, j int) bool {
		if competitors[i].MaxAmount != competitors[j].MaxAmount {
			return competitors[i].MaxAmount > competitors[j].MaxAmount
		}
		return competitors[i].CreatedAt.Before(competitors[j].CreatedAt)
	})

	winner := competitors[0]
	if len(competitors) == 1 {
		return Outcome{
			FinalAmount: min(manualAmount+1, winner.MaxAmount),
			WinnerID:    winner.UserID,
			ByProxy:     true,
		}
	}

	second := competitors[1]
	if second.MaxAmount == winner.MaxAmount {
		return Outcome{
			FinalAmount: winner.MaxAmount,
			WinnerID:    winner.UserID,
			ByProxy:     true,
			TieBreak:    true,
		}
	}

	return Outcome{
		FinalAmount: min(second.MaxAmount+1, winner.MaxAmount),
		WinnerID:    winner.UserID,
		ByProxy:     true,
	}
}

// Outbid lists proxies that can no longer compete at finalAmount.
func Outbid(proxies []Proxy, finalAmount int) []Proxy {
	var out []Proxy
	for _, p := range proxies {
		if p.MaxAmount < finalAmount {
			out = append(out, p)
		}
	}
	return out
}
