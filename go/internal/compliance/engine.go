package compliance

import (
	"sort"
	"strings"
	"time"

	"github.com/mcdev12/fantabid/go/internal/models"
)

// Config holds the penalty rules.
type Config struct {
	PenaltyAmount          int
	MaxPenaltiesPerCycle   int
	MaxTotalPenaltyCredits int
	GracePeriod            time.Duration
	PenaltyInterval        time.Duration
}

func DefaultConfig() Config {
	return Config{
		PenaltyAmount:          5,
		MaxPenaltiesPerCycle:   5,
		MaxTotalPenaltyCredits: 25,
		GracePeriod:            time.Hour,
		PenaltyInterval:        time.Hour,
	}
}

// PhaseIdentifier keys a compliance cycle. A change of league status or of
// the active roles starts a new cycle.
func PhaseIdentifier(status models.LeagueStatus, activeRoles string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(activeRoles))
	if trimmed == "" || trimmed == "ALL" {
		return string(status) + "_ALL_ROLES"
	}
	parts := strings.Split(trimmed, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	sort.Strings(parts)
	return string(status) + "_" + strings.Join(parts, ",")
}

// RequiredSlots is the minimum coverage per active role: every slot but one.
func RequiredSlots(league models.League) map[models.Role]int {
	required := make(map[models.Role]int, len(models.AllRoles))
	for _, role := range league.ActiveRoles() {
		required[role] = max(0, league.Slots[role]-1)
	}
	return required
}

// IsCompliant reports whether covered meets the requirement on every active
// role. A league with no active roles is always compliant.
func IsCompliant(league models.League, covered map[models.Role]int) bool {
	required := RequiredSlots(league)
	for role, need := range required {
		if covered[role] < need {
			return false
		}
	}
	return true
}

// Transition is a change of the compliance clock.
type Transition int

const (
	TransitionNone Transition = iota
	// TransitionStarted means the participant fell out of compliance.
	TransitionStarted
	// TransitionCleared means the participant is compliant again.
	TransitionCleared
)

// NextTransition decides how the compliance clock moves given the current
// record and the freshly computed compliance.
func NextTransition(rec models.ComplianceStatus, compliant bool) Transition {
	running := rec.TimerStartAt != nil
	switch {
	case compliant && running:
		return TransitionCleared
	case !compliant && !running:
		return TransitionStarted
	}
	return TransitionNone
}

// PenaltyCapped reports whether no further penalty can be charged, either
// because the cycle cap is used up or because the lifetime cap leaves no
// room for a whole penalty.
func PenaltyCapped(appliedThisCycle, totalPenalties int, cfg Config) bool {
	return appliedThisCycle >= cfg.MaxPenaltiesPerCycle ||
		cfg.MaxTotalPenaltyCredits-totalPenalties < cfg.PenaltyAmount
}

// PenaltyPlan is the outcome of one penalty evaluation.
type PenaltyPlan struct {
	GraceEnd    time.Time
	InGrace     bool
	CapReached  bool
	Count       int
	Amount      int
	NextHourRef *time.Time
	// FirstIndex is the 1-based cycle position of the first new penalty.
	FirstIndex int
}

// PlanPenalties computes the penalties owed by a non-compliant participant.
// Every started interval after the grace period costs one penalty, missed
// intervals are caught up, and both the per-cycle and the lifetime caps
// bound the result. rec.TimerStartAt must be set.
func PlanPenalties(rec models.ComplianceStatus, now time.Time, totalPenalties int, cfg Config) PenaltyPlan {
	plan := PenaltyPlan{
		GraceEnd:   rec.TimerStartAt.Add(cfg.GracePeriod),
		FirstIndex: rec.PenaltiesAppliedCycle + 1,
	}
	if now.Before(plan.GraceEnd) {
		plan.InGrace = true
		return plan
	}
	if totalPenalties >= cfg.MaxTotalPenaltyCredits {
		plan.CapReached = true
		return plan
	}

	ref := plan.GraceEnd
	if rec.LastPenaltyHourRef != nil {
		ref = *rec.LastPenaltyHourRef
	}
	due := 0
	if !now.Before(ref) {
		due = int(now.Sub(ref)/cfg.PenaltyInterval) + 1
	}

	n := min(
		due,
		cfg.MaxPenaltiesPerCycle-rec.PenaltiesAppliedCycle,
		(cfg.MaxTotalPenaltyCredits-totalPenalties)/cfg.PenaltyAmount,
	)
	if n <= 0 {
		return plan
	}
	next := ref.Add(time.Duration(n) * cfg.PenaltyInterval)
	plan.Count = n
	plan.Amount = n * cfg.PenaltyAmount
	plan.NextHourRef = &next
	return plan
}
