package reservation

import (
	"testing"

	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/peterldowns/testy/check"
)

func slots(p, d, c, a int) map[models.Role]int {
	return map[models.Role]int{
		models.RoleGoalkeeper: p,
		models.RoleDefender:   d,
		models.RoleMidfielder: c,
		models.RoleForward:    a,
	}
}

func TestCompute_ReservesOneCreditPerEmptySlot(t *testing.T) {
	// 4 total slots, new auction fills one, 3 remain empty after the bid.
	in := Input{
		SlotsByRole:    slots(1, 1, 1, 1),
		Budget:         100,
		LockedCredits:  0,
		AcquiredByRole: slots(0, 0, 0, 0),
		Role:           models.RoleForward,
		IsNewAuction:   true,
	}

	res := Compute(in)
	check.Equal(t, 4, res.TotalMaxSlots)
	check.Equal(t, 3, res.SlotsRemainingAfterBid)
	check.Equal(t, 3, res.CreditsToReserve)
	check.Equal(t, 97, res.AvailableBudget)
	check.Equal(t, 97, res.MaxAcceptableBid())

	check.NoError(t, res.CheckBudget(97))
	err := res.CheckBudget(98)
	check.True(t, apperr.Is(err, apperr.KindBudgetInsufficient))

	appErr, ok := apperr.As(err)
	check.True(t, ok)
	check.Equal(t, 97, appErr.Details["available_budget"])
}

func TestCompute_ExistingAuctionDoesNotConsumeExtraSlot(t *testing.T) {
	in := Input{
		SlotsByRole:      slots(1, 1, 1, 1),
		Budget:           100,
		LockedCredits:    20,
		AcquiredByRole:   slots(1, 0, 0, 0),
		WinningElsewhere: 1,
		Role:             models.RoleDefender,
	}

	res := Compute(in)
	check.Equal(t, 2, res.SlotsOccupied)
	check.Equal(t, 2, res.SlotsRemainingAfterBid)
	check.Equal(t, 2, res.CreditsToReserve)
	check.Equal(t, 78, res.AvailableBudget)
}

func TestCompute_ReserveNeverNegative(t *testing.T) {
	in := Input{
		SlotsByRole:      slots(1, 0, 0, 0),
		Budget:           10,
		AcquiredByRole:   slots(1, 0, 0, 0),
		WinningElsewhere: 1,
		Role:             models.RoleGoalkeeper,
		IsNewAuction:     true,
	}

	res := Compute(in)
	check.Equal(t, -2, res.SlotsRemainingAfterBid)
	check.Equal(t, 0, res.CreditsToReserve)
	check.Equal(t, 10, res.AvailableBudget)
}

func TestCheckRoleSlots(t *testing.T) {
	tests := []struct {
		name      string
		acquired  int
		winning   int
		capacity  int
		wantError bool
	}{
		{name: "empty role", acquired: 0, winning: 0, capacity: 3},
		{name: "last free slot", acquired: 1, winning: 1, capacity: 3},
		{name: "all slots assigned", acquired: 3, winning: 0, capacity: 3, wantError: true},
		{name: "remaining slots being won", acquired: 1, winning: 2, capacity: 3, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				SlotsByRole:             map[models.Role]int{models.RoleDefender: tt.capacity},
				Budget:                  500,
				AcquiredByRole:          map[models.Role]int{models.RoleDefender: tt.acquired},
				WinningElsewhere:        tt.winning,
				WinningElsewhereForRole: tt.winning,
				Role:                    models.RoleDefender,
				IsNewAuction:            true,
			}
			_, err := Check(in, 1)
			if tt.wantError {
				check.True(t, apperr.Is(err, apperr.KindSlotsFull))
			} else {
				check.NoError(t, err)
			}
		})
	}
}

func TestCheck_RoleCheckRunsBeforeBudget(t *testing.T) {
	in := Input{
		SlotsByRole:    map[models.Role]int{models.RoleGoalkeeper: 1},
		Budget:         0,
		AcquiredByRole: map[models.Role]int{models.RoleGoalkeeper: 1},
		Role:           models.RoleGoalkeeper,
		IsNewAuction:   true,
	}
	_, err := Check(in, 50)
	check.Equal(t, apperr.KindSlotsFull, apperr.KindOf(err))
}
