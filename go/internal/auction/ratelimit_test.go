package auction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestBidLimiter(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	limiter, err := NewBidLimiter(DefaultBidLimits(), 128, clock)
	assert.NoError(t, err)
	user := uuid.New()

	t.Run("auto bids allow five per five minutes", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			ok, _ := limiter.Allow(user, models.BidTypeAuto)
			check.True(t, ok)
		}
		clock.Advance(time.Minute)
		ok, wait := limiter.Allow(user, models.BidTypeAuto)
		check.False(t, ok)
		check.Equal(t, 4*time.Minute, wait)
	})

	t.Run("window resets", func(t *testing.T) {
		clock.Advance(4 * time.Minute)
		ok, _ := limiter.Allow(user, models.BidTypeAuto)
		check.True(t, ok)
	})

	t.Run("unknown types count as manual", func(t *testing.T) {
		other := uuid.New()
		for i := 0; i < 10; i++ {
			ok, _ := limiter.Allow(other, "sniper")
			check.True(t, ok)
		}
		ok, _ := limiter.Allow(other, models.BidTypeManual)
		check.False(t, ok)
	})
}

func TestBidLimiter_Eviction(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	limiter, err := NewBidLimiter(map[models.BidType]BidLimit{
		models.BidTypeManual: {Limit: 1, Window: time.Hour},
	}, 1, clock)
	assert.NoError(t, err)

	first, second := uuid.New(), uuid.New()
	ok, _ := limiter.Allow(first, models.BidTypeManual)
	check.True(t, ok)
	ok, _ = limiter.Allow(first, models.BidTypeManual)
	check.False(t, ok)

	// the second user's window evicts the first
	ok, _ = limiter.Allow(second, models.BidTypeManual)
	check.True(t, ok)
	ok, _ = limiter.Allow(first, models.BidTypeManual)
	check.True(t, ok)
}
