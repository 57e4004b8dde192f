package responsetimer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// Deadline is when a timer activated at t runs out.
func (c Config) Deadline(t time.Time) time.Time {
	return t.Add(c.ResponseWindow)
}

// foldPlan is what happens when a user gives up on an auction, either by
// abandoning it or by letting their timer run out.
type foldPlan struct {
	Status      models.TimerStatus
	At          time.Time
	Cooldown    models.Cooldown
	TxType      models.TransactionType
	Description string
	// AuctionEnd restarts the auction clock. Abandon and expiry both reset it.
	AuctionEnd time.Time
}

func planFold(target auctionTarget, userID uuid.UUID, status models.TimerStatus, now time.Time, cfg Config) foldPlan {
	plan := foldPlan{
		Status:     status,
		At:         now,
		AuctionEnd: now.Add(target.TimerDuration),
		Cooldown: models.Cooldown{
			LeagueID:  target.LeagueID,
			UserID:    userID,
			PlayerID:  target.PlayerID,
			ExpiresAt: now.Add(cfg.AbandonCooldown),
		},
	}

	hours := int(cfg.AbandonCooldown / time.Hour)
	switch status {
	case models.TimerStatusAbandoned:
		plan.TxType = models.TransactionAuctionAbandoned
		plan.Description = fmt.Sprintf("abandoned auction for %s, %dh cooldown", target.PlayerName, hours)
	default:
		plan.TxType = models.TransactionTimerExpired
		plan.Description = fmt.Sprintf("response time expired for %s, %dh cooldown", target.PlayerName, hours)
	}
	return plan
}

// isDue reports whether a timer has a running countdown that has ended.
func isDue(t models.ResponseTimer, now time.Time) bool {
	return t.Status == models.TimerStatusPending && t.Deadline != nil && !t.Deadline.After(now)
}

func remaining(deadline, now time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
