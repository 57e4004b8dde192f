package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one notification_outbox row.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Room      string          `json:"room"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// Envelope is the message body published to the bus and relayed to
// websocket clients.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Room      string          `json:"room"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an outbox event for publishing.
func NewEnvelope(ev Event, at time.Time) Envelope {
	return Envelope{
		EventID:   ev.ID.String(),
		EventType: ev.EventType,
		Room:      ev.Room,
		Timestamp: at.UTC(),
		Payload:   ev.Payload,
	}
}

// Subject is the bus subject for an event: <prefix>.<room>.<event type>.
func Subject(prefix, room, eventType string) string {
	return prefix + "." + room + "." + eventType
}

// Publisher pushes outbox events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
