package leagues

import (
	"strings"

	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
)

// LeagueDetails is the administrative view of a league
type LeagueDetails struct {
	League       models.League        `json:"league"`
	Participants []models.Participant `json:"participants"`
}

var knownStatuses = map[models.LeagueStatus]bool{
	models.LeagueStatusParticipantsJoining: true,
	models.LeagueStatusDraftActive:         true,
	models.LeagueStatusRepairActive:        true,
	models.LeagueStatusMarketClosed:        true,
	models.LeagueStatusSeasonActive:        true,
	models.LeagueStatusCompleted:           true,
}

func validateStatus(status models.LeagueStatus) error {
	if !knownStatuses[status] {
		return apperr.Validation("unknown league status %q", status)
	}
	return nil
}

// normalizeRoles canonicalizes an active roles setting. Roles are deduplicated
// and ordered P, D, C, A so equal settings compare equal.
func normalizeRoles(raw string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	switch trimmed {
	case "", "NONE":
		return "NONE", nil
	case "ALL":
		return "ALL", nil
	}

	seen := make(map[models.Role]bool)
	for _, part := range strings.Split(trimmed, ",") {
		role := models.Role(strings.TrimSpace(part))
		if !role.Valid() {
			return "", apperr.Validation("invalid role %q in active auction roles", part)
		}
		seen[role] = true
	}
	if len(seen) == len(models.AllRoles) {
		return "ALL", nil
	}

	parts := make([]string, 0, len(seen))
	for _, role := range models.AllRoles {
		if seen[role] {
			parts = append(parts, string(role))
		}
	}
	return strings.Join(parts, ","), nil
}
