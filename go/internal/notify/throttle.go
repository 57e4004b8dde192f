package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Throttle drops an event identical (room, type and payload) to one emitted
// within the window. Different payloads for the same room always pass.
type Throttle struct {
	next   Dispatcher
	window time.Duration
	clock  clockwork.Clock
	recent *lru.Cache
}

// NewThrottle wraps next. size bounds how many recent event keys are kept.
func NewThrottle(next Dispatcher, window time.Duration, size int, clock clockwork.Clock) (*Throttle, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle{
		next:   next,
		window: window,
		clock:  clock,
		recent: cache,
	}, nil
}

func (t *Throttle) Emit(ctx context.Context, ev Event) {
	key, err := eventKey(ev)
	if err != nil {
		log.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("could not key event, emitting unthrottled")
		t.next.Emit(ctx, ev)
		return
	}

	now := t.clock.Now()
	if last, ok := t.recent.Get(key); ok {
		if now.Sub(last.(time.Time)) < t.window {
			log.Warn().
				Str("room", ev.Room).
				Str("event_type", string(ev.Type)).
				Msg("duplicate notification throttled")
			return
		}
	}
	t.recent.Add(key, now)
	t.next.Emit(ctx, ev)
}

func eventKey(ev Event) (string, error) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return ev.Room + "|" + string(ev.Type) + "|" + hex.EncodeToString(sum[:]), nil
}
