package models

import (
	"github.com/google/uuid"
)

// Role is the roster category of a player
type Role string

const (
	RoleGoalkeeper Role = "P"
	RoleDefender   Role = "D"
	RoleMidfielder Role = "C"
	RoleForward    Role = "A"
)

// AllRoles lists roles in roster order.
var AllRoles = []Role{RoleGoalkeeper, RoleDefender, RoleMidfielder, RoleForward}

func (r Role) Valid() bool {
	switch r {
	case RoleGoalkeeper, RoleDefender, RoleMidfielder, RoleForward:
		return true
	}
	return false
}

// Player is an auctionable item
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Team      string    `json:"team"`
	Role      Role      `json:"role"`
	Quotation int       `json:"quotation"`
}
