package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

var t0 = time.Date(2025, 8, 20, 18, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]Event
	order  []uuid.UUID
	sent   map[uuid.UUID]time.Time
}

func newFakeStore(events ...Event) *fakeStore {
	s := &fakeStore{events: map[uuid.UUID]Event{}, sent: map[uuid.UUID]time.Time{}}
	for _, ev := range events {
		s.events[ev.ID] = ev
		s.order = append(s.order, ev.ID)
	}
	return s
}

func (s *fakeStore) FetchUnsentByID(_ context.Context, id uuid.UUID) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if _, done := s.sent[id]; !ok || done {
		return Event{}, apperr.NotFound("outbox event not found or already sent")
	}
	return ev, nil
}

func (s *fakeStore) FetchUnsent(_ context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, id := range s.order {
		if _, done := s.sent[id]; done {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, s.events[id])
	}
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = at
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	failures  map[uuid.UUID]int
	published []Event
	attempts  int
}

func (p *fakePublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failures[ev.ID] > 0 {
		p.failures[ev.ID]--
		return errors.New("nats: no responders available for request")
	}
	p.published = append(p.published, ev)
	return nil
}

func newEvent(room, eventType string) Event {
	return Event{
		ID:        uuid.New(),
		Room:      room,
		EventType: eventType,
		Payload:   json.RawMessage(`{"new_price":12}`),
		CreatedAt: t0,
	}
}

func newTestListener(store Store, pub Publisher) *Listener {
	cfg := DefaultListenerConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 2
	cfg.BatchSize = 10
	return &Listener{
		store:     store,
		publisher: pub,
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
	}
}

func TestHandleNotification_PublishesAndMarksSent(t *testing.T) {
	ev := newEvent("league-1", "auction-update")
	store := newFakeStore(ev)
	pub := &fakePublisher{failures: map[uuid.UUID]int{ev.ID: 1}}
	l := newTestListener(store, pub)

	assert.NoError(t, l.handleNotification(context.Background(), ev.ID.String()))
	check.Equal(t, 2, pub.attempts)
	check.Equal(t, 1, len(pub.published))
	_, sent := store.sent[ev.ID]
	check.True(t, sent)

	// a second notification for the same row is a no-op
	assert.NoError(t, l.handleNotification(context.Background(), ev.ID.String()))
	check.Equal(t, 1, len(pub.published))
}

func TestHandleNotification_BadPayload(t *testing.T) {
	l := newTestListener(newFakeStore(), &fakePublisher{})
	check.Error(t, l.handleNotification(context.Background(), "not-a-uuid"))
}

func TestHandleNotification_GivesUpAfterRetries(t *testing.T) {
	ev := newEvent("user-1", "penalty-applied")
	store := newFakeStore(ev)
	pub := &fakePublisher{failures: map[uuid.UUID]int{ev.ID: 10}}
	l := newTestListener(store, pub)

	check.Error(t, l.handleNotification(context.Background(), ev.ID.String()))
	check.Equal(t, 3, pub.attempts)
	check.Equal(t, 0, len(store.sent))
}

func TestProcessUnsent_LeavesFailuresForNextPoll(t *testing.T) {
	ok1 := newEvent("league-1", "auction-created")
	bad := newEvent("league-1", "auction-update")
	ok2 := newEvent("user-2", "bid-surpassed")
	store := newFakeStore(ok1, bad, ok2)
	pub := &fakePublisher{failures: map[uuid.UUID]int{bad.ID: 3}}
	l := newTestListener(store, pub)

	sent, err := l.processUnsent(context.Background())
	assert.NoError(t, err)
	check.Equal(t, 2, sent)

	// the publisher recovers, the next poll picks the leftover up
	sent, err = l.processUnsent(context.Background())
	assert.NoError(t, err)
	check.Equal(t, 1, sent)
	check.Equal(t, 3, len(store.sent))
}
