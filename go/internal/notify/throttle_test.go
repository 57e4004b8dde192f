package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestThrottle_DropsDuplicatesWithinWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &Recorder{}
	th, err := NewThrottle(rec, 500*time.Millisecond, 128, clock)
	assert.NoError(t, err)

	leagueID := uuid.New()
	ev := Event{
		Room:    LeagueRoom(leagueID),
		Type:    EventAuctionUpdate,
		Payload: AuctionUpdatePayload{LeagueID: leagueID, NewPrice: 12},
	}

	ctx := context.Background()
	th.Emit(ctx, ev)
	th.Emit(ctx, ev)
	check.Equal(t, 1, len(rec.Events()))

	clock.Advance(600 * time.Millisecond)
	th.Emit(ctx, ev)
	check.Equal(t, 2, len(rec.Events()))
}

func TestThrottle_DistinctPayloadsPass(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &Recorder{}
	th, err := NewThrottle(rec, time.Second, 128, clock)
	assert.NoError(t, err)

	leagueID := uuid.New()
	ctx := context.Background()
	th.Emit(ctx, Event{Room: LeagueRoom(leagueID), Type: EventAuctionUpdate, Payload: AuctionUpdatePayload{NewPrice: 12}})
	th.Emit(ctx, Event{Room: LeagueRoom(leagueID), Type: EventAuctionUpdate, Payload: AuctionUpdatePayload{NewPrice: 13}})
	th.Emit(ctx, Event{Room: UserRoom(leagueID), Type: EventAuctionUpdate, Payload: AuctionUpdatePayload{NewPrice: 13}})

	check.Equal(t, 3, len(rec.Events()))
	check.Equal(t, 3, len(rec.OfType(EventAuctionUpdate)))
}

func TestRooms(t *testing.T) {
	id := uuid.MustParse("0b6f3b9e-7a1c-4a43-9d53-5c2f8f1c2a10")
	check.Equal(t, "league-0b6f3b9e-7a1c-4a43-9d53-5c2f8f1c2a10", LeagueRoom(id))
	check.Equal(t, "user-0b6f3b9e-7a1c-4a43-9d53-5c2f8f1c2a10", UserRoom(id))
}
