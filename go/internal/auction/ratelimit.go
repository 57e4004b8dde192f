package auction

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// BidLimit caps how many bids of one type a user may place in a window.
type BidLimit struct {
	Limit  int
	Window time.Duration
}

// DefaultBidLimits are the per-type caps applied at the edge.
func DefaultBidLimits() map[models.BidType]BidLimit {
	return map[models.BidType]BidLimit{
		models.BidTypeManual: {Limit: 10, Window: time.Minute},
		models.BidTypeAuto:   {Limit: 5, Window: 5 * time.Minute},
		models.BidTypeQuick:  {Limit: 15, Window: time.Minute},
	}
}

type bidWindow struct {
	count   int
	resetAt time.Time
}

// BidLimiter counts bids per user and bid type in fixed windows. Only the
// most recently used windows are kept, so an evicted user starts afresh.
type BidLimiter struct {
	limits  map[models.BidType]BidLimit
	clock   clockwork.Clock
	mu      sync.Mutex
	windows *lru.Cache
}

// NewBidLimiter builds a limiter keeping at most size windows.
func NewBidLimiter(limits map[models.BidType]BidLimit, size int, clock clockwork.Clock) (*BidLimiter, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BidLimiter{
		limits:  limits,
		clock:   clock,
		windows: cache,
	}, nil
}

// Allow records a bid of bidType by userID. When the cap is already reached
// it returns false and how long until the window resets. Unknown types are
// counted as manual bids.
func (l *BidLimiter) Allow(userID uuid.UUID, bidType models.BidType) (bool, time.Duration) {
	limit, ok := l.limits[bidType]
	if !ok {
		bidType = models.BidTypeManual
		if limit, ok = l.limits[bidType]; !ok {
			return true, 0
		}
	}
	key := userID.String() + ":" + string(bidType)
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.windows.Get(key); ok {
		w := v.(*bidWindow)
		if now.Before(w.resetAt) {
			if w.count >= limit.Limit {
				return false, w.resetAt.Sub(now)
			}
			w.count++
			return true, 0
		}
	}
	l.windows.Add(key, &bidWindow{count: 1, resetAt: now.Add(limit.Window)})
	return true, 0
}
