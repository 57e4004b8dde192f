package reservation

import (
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// Input is the state the calculator needs for one bidder. All values must be
// read inside the transaction that will perform the write.
type Input struct {
	SlotsByRole    map[models.Role]int
	Budget         int
	LockedCredits  int
	AcquiredByRole map[models.Role]int

	// Auctions the bidder currently leads, excluding the target auction.
	WinningElsewhere        int
	WinningElsewhereForRole int

	Role         models.Role
	IsNewAuction bool
}

// Result is the reservation breakdown for a prospective bid.
type Result struct {
	TotalMaxSlots          int
	SlotsOccupied          int
	SlotsRemainingAfterBid int
	CreditsToReserve       int
	AvailableBudget        int
	RoleCapacity           int
	RoleOccupied           int
}

// MaxAcceptableBid is the largest amount CheckBudget accepts.
func (r Result) MaxAcceptableBid() int {
	if r.AvailableBudget < 0 {
		return 0
	}
	return r.AvailableBudget
}

// Compute derives the reservation for in. Every slot still empty after this
// bid keeps one credit reserved so it can be filled with a minimum bid.
func Compute(in Input) Result {
	total := 0
	acquired := 0
	for _, role := range models.AllRoles {
		total += in.SlotsByRole[role]
		acquired += in.AcquiredByRole[role]
	}

	occupied := acquired + in.WinningElsewhere
	remaining := total - occupied
	if in.IsNewAuction {
		remaining--
	}
	reserve := remaining
	if reserve < 0 {
		reserve = 0
	}

	roleOccupied := in.AcquiredByRole[in.Role] + in.WinningElsewhereForRole

	return Result{
		TotalMaxSlots:          total,
		SlotsOccupied:          occupied,
		SlotsRemainingAfterBid: remaining,
		CreditsToReserve:       reserve,
		AvailableBudget:        in.Budget - in.LockedCredits - reserve,
		RoleCapacity:           in.SlotsByRole[in.Role],
		RoleOccupied:           roleOccupied,
	}
}

// CheckBudget fails with BudgetInsufficient when amount exceeds the budget
// left after locked credits and slot reservations.
func (r Result) CheckBudget(amount int) error {
	if r.AvailableBudget < amount {
		return apperr.BudgetInsufficient(
			"insufficient budget: available %d credits (%d reserved for %d empty slots), required %d",
			r.MaxAcceptableBid(), r.CreditsToReserve, r.CreditsToReserve, amount,
		).With("available_budget", r.MaxAcceptableBid()).
			With("reserved_credits", r.CreditsToReserve).
			With("required", amount)
	}
	return nil
}

// CheckRoleSlots fails with SlotsFull when winning the target auction would
// exceed the role's roster capacity.
func (r Result) CheckRoleSlots(role models.Role) error {
	if r.RoleOccupied+1 > r.RoleCapacity {
		return apperr.SlotsFull(
			"no free %s slots: %d of %d already assigned or being won",
			role, r.RoleOccupied, r.RoleCapacity,
		).With("role", string(role)).With("capacity", r.RoleCapacity)
	}
	return nil
}

// Check runs the role capacity check, then the budget check.
func Check(in Input, amount int) (Result, error) {
	res := Compute(in)
	if err := res.CheckRoleSlots(in.Role); err != nil {
		return res, err
	}
	if err := res.CheckBudget(amount); err != nil {
		return res, err
	}
	return res, nil
}
