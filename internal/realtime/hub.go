package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/studybuddy/studybuddy-api/internal/logger"
	"github.com/studybuddy/studybuddy-api/internal/metrics"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 32
)

// EventMessageCreated is pushed when a message is stored in a session
const EventMessageCreated = "message.created"

// Event is the envelope written to every subscriber
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans session events out to the WebSocket clients subscribed to that session
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub. allowedOrigins follows the CORS configuration; "*" accepts any origin.
func NewHub(allowedOrigins []string, log *zap.Logger) *Hub {
	h := &Hub{
		rooms:  make(map[uuid.UUID]map[*client]struct{}),
		logger: log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Serve upgrades the request and streams events of sessionID until the client disconnects.
// It blocks for the lifetime of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &client{
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
		userID:    userID,
		send:      make(chan []byte, sendBuffer),
		logger:    logger.ForSession(h.logger, sessionID, userID),
	}
	h.register(c)

	go c.writePump()
	c.readPump()
	return nil
}

// Publish sends an event to every client subscribed to sessionID.
// Clients that cannot keep up are disconnected.
func (h *Hub) Publish(sessionID uuid.UUID, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode realtime event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[sessionID] {
		select {
		case c.send <- payload:
		default:
			c.logger.Warn("dropping slow realtime client")
			h.removeLocked(c)
		}
	}
}

// Disconnect closes every connection userID holds on sessionID
func (h *Hub) Disconnect(sessionID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[sessionID] {
		if c.userID == userID {
			c.logger.Debug("realtime client revoked")
			h.removeLocked(c)
		}
	}
}

// Subscribers returns the number of open connections for a session
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for c := range room {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.sessionID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.sessionID] = room
	}
	room[c] = struct{}{}
	metrics.ConnectionOpened()

	c.logger.Debug("realtime client connected", zap.Int("subscribers", len(room)))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	room, ok := h.rooms[c.sessionID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}

	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.sessionID)
	}
	close(c.send)
	metrics.ConnectionClosed()
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID uuid.UUID
	userID    uuid.UUID
	send      chan []byte
	logger    *zap.Logger
}

// readPump discards inbound frames; messages are posted over HTTP.
// It exists to process control frames and notice disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("realtime client read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
