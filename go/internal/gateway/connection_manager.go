package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans events out to websocket connections grouped by
// room. Every connection joins its league room and, when the user is known,
// its user room.
type ConnectionManager struct {
	rooms map[string]map[*Connection]bool
	conns map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	UserID   string
	LeagueID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	rooms []string

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is an event addressed to one room
type BroadcastMessage struct {
	Room  string
	Event *ClientEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]bool),
		conns: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until ctx is cancelled
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// roomsFor lists the rooms a connection belongs to.
func roomsFor(leagueID uuid.UUID, userID string) []string {
	rooms := []string{notify.LeagueRoom(leagueID)}
	if id, err := uuid.Parse(userID); err == nil {
		rooms = append(rooms, notify.UserRoom(id))
	}
	return rooms
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, leagueID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		LeagueID:    leagueID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		rooms:       roomsFor(leagueID, userID),
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("league_id", leagueID.String()).
		Msg("websocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.conns[conn] = true
	for _, room := range conn.rooms {
		if cm.rooms[room] == nil {
			cm.rooms[room] = make(map[*Connection]bool)
		}
		cm.rooms[room][conn] = true
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Strs("rooms", conn.rooms).
		Int("total_connections", len(cm.conns)).
		Msg("connection registered")
}

// unregisterConnection removes a connection and closes its send channel.
// Safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.conns[conn] {
		return
	}
	delete(cm.conns, conn)
	for _, room := range conn.rooms {
		members := cm.rooms[room]
		delete(members, conn)
		if len(members) == 0 {
			delete(cm.rooms, room)
		}
	}
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("league_id", conn.LeagueID.String()).
		Msg("connection unregistered")
}

// Broadcast queues an event for every connection in room
func (cm *ConnectionManager) Broadcast(room string, event *ClientEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Room: room, Event: event}:
	default:
		log.Warn().Str("room", room).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	members := cm.rooms[message.Room]
	targets := make([]*Connection, 0, len(members))
	for conn := range members {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("room", message.Room).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// ConnectionStats summarizes the live connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveLeagues    int            `json:"active_leagues"`
	Rooms            map[string]int `json:"rooms"`
}

func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		TotalConnections: len(cm.conns),
		Rooms:            make(map[string]int, len(cm.rooms)),
	}
	leagues := make(map[uuid.UUID]bool)
	for conn := range cm.conns {
		leagues[conn.LeagueID] = true
	}
	stats.ActiveLeagues = len(leagues)
	for room, members := range cm.rooms {
		stats.Rooms[room] = len(members)
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump keeps the read deadline alive and detects closed clients. Client
// frames carry no commands and are only logged.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			return
		}

		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Int("size", len(message)).
			Msg("received client message")
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
