package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/outbox"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

var t0 = time.Date(2025, 8, 20, 18, 0, 0, 0, time.UTC)

func testConnection(cm *ConnectionManager, leagueID uuid.UUID, userID string) *Connection {
	conn := &Connection{
		ID:       uuid.NewString(),
		UserID:   userID,
		LeagueID: leagueID,
		Send:     make(chan []byte, 8),
		Manager:  cm,
		rooms:    roomsFor(leagueID, userID),
	}
	cm.registerConnection(conn)
	return conn
}

func received(c *Connection) []ClientEvent {
	var out []ClientEvent
	for {
		select {
		case data := <-c.Send:
			var ev ClientEvent
			if err := json.Unmarshal(data, &ev); err == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func TestRoomsFor(t *testing.T) {
	league, user := uuid.New(), uuid.New()
	check.Equal(t, []string{notify.LeagueRoom(league), notify.UserRoom(user)}, roomsFor(league, user.String()))
	check.Equal(t, []string{notify.LeagueRoom(league)}, roomsFor(league, "anonymous"))
}

func TestConnectionManager_RoutesByRoom(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	leagueA, leagueB := uuid.New(), uuid.New()
	alice, bob := uuid.New(), uuid.New()

	aliceA := testConnection(cm, leagueA, alice.String())
	bobA := testConnection(cm, leagueA, bob.String())
	aliceB := testConnection(cm, leagueB, alice.String())
	watcher := testConnection(cm, leagueA, "anonymous")

	cm.handleBroadcast(BroadcastMessage{
		Room:  notify.LeagueRoom(leagueA),
		Event: &ClientEvent{ID: "1", Type: notify.EventAuctionUpdate},
	})
	cm.handleBroadcast(BroadcastMessage{
		Room:  notify.UserRoom(alice),
		Event: &ClientEvent{ID: "2", Type: notify.EventBidSurpassed},
	})

	check.Equal(t, 2, len(received(aliceA)))
	check.Equal(t, 1, len(received(bobA)))
	got := received(aliceB)
	assert.Equal(t, 1, len(got))
	check.Equal(t, notify.EventBidSurpassed, got[0].Type)
	check.Equal(t, 1, len(received(watcher)))
}

func TestConnectionManager_Unregister(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	league, user := uuid.New(), uuid.New()
	conn := testConnection(cm, league, user.String())

	stats := cm.Stats()
	check.Equal(t, 1, stats.TotalConnections)
	check.Equal(t, 1, stats.ActiveLeagues)
	check.Equal(t, 1, stats.Rooms[notify.UserRoom(user)])

	cm.unregisterConnection(conn)
	cm.unregisterConnection(conn)
	stats = cm.Stats()
	check.Equal(t, 0, stats.TotalConnections)
	check.Equal(t, 0, len(stats.Rooms))

	_, open := <-conn.Send
	check.False(t, open)
}

type recordingBroadcaster struct {
	rooms  []string
	events []*ClientEvent
}

func (r *recordingBroadcaster) Broadcast(room string, ev *ClientEvent) {
	r.rooms = append(r.rooms, room)
	r.events = append(r.events, ev)
}

func TestEventConsumer_Route(t *testing.T) {
	b := &recordingBroadcaster{}
	ec := &EventConsumer{broadcaster: b}
	user := uuid.New()

	data, err := json.Marshal(outbox.Envelope{
		EventID:   uuid.NewString(),
		EventType: string(notify.EventPenaltyApplied),
		Room:      notify.UserRoom(user),
		Timestamp: t0,
		Payload:   json.RawMessage(`{"amount":5}`),
	})
	assert.NoError(t, err)
	assert.NoError(t, ec.route(data))
	assert.Equal(t, 1, len(b.events))
	check.Equal(t, notify.UserRoom(user), b.rooms[0])
	check.Equal(t, notify.EventPenaltyApplied, b.events[0].Type)
	check.Equal(t, `{"amount":5}`, string(b.events[0].Data))

	check.Error(t, ec.route([]byte("{")))

	unknown, _ := json.Marshal(outbox.Envelope{EventType: "PickMade", Room: "league-x"})
	check.Error(t, ec.route(unknown))

	roomless, _ := json.Marshal(outbox.Envelope{EventType: string(notify.EventAuctionUpdate)})
	check.Error(t, ec.route(roomless))
	check.Equal(t, 1, len(b.events))
}

func TestWebSocketHandler_DeliversLeagueEvents(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	res, err := http.Get(srv.URL + "/ws/league?league_id=nope")
	assert.NoError(t, err)
	res.Body.Close()
	check.Equal(t, http.StatusBadRequest, res.StatusCode)

	league, user := uuid.New(), uuid.New()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/league?league_id=" + league.String() + "&user_id=" + user.String()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for cm.Stats().TotalConnections == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, cm.Stats().TotalConnections)

	cm.Broadcast(notify.UserRoom(user), &ClientEvent{
		ID:        "e1",
		Room:      notify.UserRoom(user),
		Type:      notify.EventResponseTimerStarted,
		Timestamp: t0,
		Data:      json.RawMessage(`{"time_remaining":3600}`),
	})

	assert.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev ClientEvent
	assert.NoError(t, ws.ReadJSON(&ev))
	check.Equal(t, "e1", ev.ID)
	check.Equal(t, notify.EventResponseTimerStarted, ev.Type)
}
