package responsetimer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/peterldowns/testy/check"
)

var t0 = time.Date(2025, 8, 20, 18, 0, 0, 0, time.UTC)

func testTarget() auctionTarget {
	bidder := uuid.New()
	return auctionTarget{
		AuctionID:       uuid.New(),
		LeagueID:        uuid.New(),
		PlayerID:        uuid.New(),
		PlayerName:      "Barella",
		HighestBid:      42,
		HighestBidderID: &bidder,
		TimerDuration:   24 * time.Hour,
	}
}

func TestConfig_Deadline(t *testing.T) {
	cfg := DefaultConfig()
	check.Equal(t, t0.Add(time.Hour), cfg.Deadline(t0))
	check.Equal(t, 48*time.Hour, cfg.AbandonCooldown)
}

func TestPlanFold_Abandon(t *testing.T) {
	target := testTarget()
	user := uuid.New()

	plan := planFold(target, user, models.TimerStatusAbandoned, t0, DefaultConfig())

	check.Equal(t, models.TimerStatusAbandoned, plan.Status)
	check.Equal(t, models.TransactionAuctionAbandoned, plan.TxType)
	check.Equal(t, t0.Add(48*time.Hour), plan.Cooldown.ExpiresAt)
	check.Equal(t, user, plan.Cooldown.UserID)
	check.Equal(t, target.PlayerID, plan.Cooldown.PlayerID)
	check.Equal(t, target.LeagueID, plan.Cooldown.LeagueID)
	check.Equal(t, t0.Add(24*time.Hour), plan.AuctionEnd)
	check.Equal(t, "abandoned auction for Barella, 48h cooldown", plan.Description)
}

func TestPlanFold_Expire(t *testing.T) {
	target := testTarget()
	cfg := Config{ResponseWindow: time.Hour, AbandonCooldown: 12 * time.Hour}

	plan := planFold(target, uuid.New(), models.TimerStatusExpired, t0, cfg)

	check.Equal(t, models.TransactionTimerExpired, plan.TxType)
	check.Equal(t, t0.Add(12*time.Hour), plan.Cooldown.ExpiresAt)
	check.Equal(t, t0.Add(24*time.Hour), plan.AuctionEnd)
	check.Equal(t, "response time expired for Barella, 12h cooldown", plan.Description)
}

func TestIsDue(t *testing.T) {
	past := t0.Add(-time.Second)
	future := t0.Add(time.Minute)

	tests := []struct {
		name  string
		timer models.ResponseTimer
		want  bool
	}{
		{"dormant", models.ResponseTimer{Status: models.TimerStatusPending}, false},
		{"running", models.ResponseTimer{Status: models.TimerStatusPending, Deadline: &future}, false},
		{"overdue", models.ResponseTimer{Status: models.TimerStatusPending, Deadline: &past}, true},
		{"exactly at deadline", models.ResponseTimer{Status: models.TimerStatusPending, Deadline: &t0}, true},
		{"already cancelled", models.ResponseTimer{Status: models.TimerStatusCancelled, Deadline: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.want, isDue(tt.timer, t0))
		})
	}
}

func TestRemaining(t *testing.T) {
	check.Equal(t, 30*time.Minute, remaining(t0.Add(30*time.Minute), t0))
	check.Equal(t, time.Duration(0), remaining(t0, t0.Add(time.Minute)))
}

func TestPlanFold_ExpireMatchesAbandon(t *testing.T) {
	target := testTarget()
	user := uuid.New()
	cfg := Config{ResponseWindow: time.Hour, AbandonCooldown: 48 * time.Hour}

	abandoned := planFold(target, user, models.TimerStatusAbandoned, t0, cfg)
	expired := planFold(target, user, models.TimerStatusExpired, t0, cfg)

	check.Equal(t, abandoned.AuctionEnd, expired.AuctionEnd)
	check.Equal(t, abandoned.Cooldown, expired.Cooldown)
	check.Equal(t, abandoned.At, expired.At)
}
