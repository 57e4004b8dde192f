package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestParticipantIDs(t *testing.T) {
	ids, err := participantIDs("", 3)
	assert.NoError(t, err)
	check.Equal(t, 3, len(ids))

	a, b := uuid.New(), uuid.New()
	ids, err = participantIDs(a.String()+", "+b.String(), 0)
	assert.NoError(t, err)
	check.Equal(t, []uuid.UUID{a, b}, ids)

	_, err = participantIDs("nope", 0)
	check.Error(t, err)
}

func TestSeedPlayersCoverEveryRole(t *testing.T) {
	// the demo league needs 3/8/8/6 slots, the pool only has to make every role biddable
	byRole := map[string]int{}
	for _, p := range players {
		byRole[p.Role]++
	}
	for _, role := range []string{"P", "D", "C", "A"} {
		check.True(t, byRole[role] > 0)
	}
}
