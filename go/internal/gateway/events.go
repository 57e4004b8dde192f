package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/outbox"
)

// ClientEvent is the frame pushed to websocket clients
type ClientEvent struct {
	ID        string           `json:"id"`        // Event UUID
	Room      string           `json:"room"`      // league-<id> or user-<id>
	Type      notify.EventType `json:"type"`      // Event type
	Timestamp time.Time        `json:"timestamp"` // Event creation time
	Data      json.RawMessage  `json:"data"`      // Event-specific payload
}

var knownEvents = map[notify.EventType]bool{
	notify.EventAuctionCreated:          true,
	notify.EventAuctionUpdate:           true,
	notify.EventAuctionClosed:           true,
	notify.EventBidSurpassed:            true,
	notify.EventAutoBidActivated:        true,
	notify.EventResponseTimerStarted:    true,
	notify.EventTimerExpired:            true,
	notify.EventComplianceStatusChanged: true,
	notify.EventPenaltyApplied:          true,
	notify.EventLeagueStatusChanged:     true,
	notify.EventPlayerDiscarded:         true,
}

// toClientEvent converts a bus envelope into a client frame.
func toClientEvent(env outbox.Envelope) (*ClientEvent, error) {
	eventType := notify.EventType(env.EventType)
	if !knownEvents[eventType] {
		return nil, fmt.Errorf("unknown event type: %s", env.EventType)
	}
	if env.Room == "" {
		return nil, fmt.Errorf("event %s has no room", env.EventID)
	}
	return &ClientEvent{
		ID:        env.EventID,
		Room:      env.Room,
		Type:      eventType,
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}, nil
}
