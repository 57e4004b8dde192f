package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
)

// Dispatcher emits notifications. Emit never fails the caller: delivery
// problems are logged and dropped.
type Dispatcher interface {
	Emit(ctx context.Context, ev Event)
}

// OutboxDispatcher persists events to notification_outbox. The outbox relay
// picks them up through LISTEN/NOTIFY and publishes them to NATS.
type OutboxDispatcher struct {
	db *sql.DB
}

func NewOutboxDispatcher(db *sql.DB) *OutboxDispatcher {
	return &OutboxDispatcher{db: db}
}

func (d *OutboxDispatcher) Emit(ctx context.Context, ev Event) {
	if err := d.insert(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("room", ev.Room).
			Str("event_type", string(ev.Type)).
			Msg("failed to dispatch notification")
	}
}

func (d *OutboxDispatcher) insert(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", ev.Type, err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, room, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), ev.Room, string(ev.Type),
		pqtype.NullRawMessage{RawMessage: payload, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox notification: %w", err)
	}

	log.Debug().
		Str("room", ev.Room).
		Str("event_type", string(ev.Type)).
		Msg("notification queued")
	return nil
}

// LogDispatcher only logs events. Used when no database outbox is wired.
type LogDispatcher struct{}

func (LogDispatcher) Emit(_ context.Context, ev Event) {
	log.Info().
		Str("room", ev.Room).
		Str("event_type", string(ev.Type)).
		Interface("payload", ev.Payload).
		Msg("notification")
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType filters recorded events by type.
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
