package models

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestParseActiveRoles(t *testing.T) {
	tests := []struct {
		raw  string
		want []Role
	}{
		{"", nil},
		{"NONE", nil},
		{"all", AllRoles},
		{"P,D", []Role{RoleGoalkeeper, RoleDefender}},
		{" c , a ,X", []Role{RoleMidfielder, RoleForward}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			check.Equal(t, tt.want, ParseActiveRoles(tt.raw))
		})
	}
}

func TestLeague(t *testing.T) {
	l := League{
		Status:               LeagueStatusRepairActive,
		ActiveAuctionRoles:   "D",
		TimerDurationMinutes: 90,
		Slots:                map[Role]int{RoleGoalkeeper: 3, RoleDefender: 8, RoleMidfielder: 8, RoleForward: 6},
	}
	check.True(t, l.IsBiddingPhase())
	check.True(t, l.IsRoleActive(RoleDefender))
	check.False(t, l.IsRoleActive(RoleForward))
	check.Equal(t, 25, l.TotalSlots())
	check.Equal(t, 90*time.Minute, l.TimerDuration())

	l.Status = LeagueStatusMarketClosed
	check.False(t, l.IsBiddingPhase())
}
