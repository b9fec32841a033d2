package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/gesture"
)

const (
	// clientBuffer is the number of events queued per client before the
	// client starts missing events.
	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI
	},
}

// EventMessage is the JSON form of an engine event sent to WebSocket clients.
type EventMessage struct {
	Kind      string    `json:"kind"`
	Gesture   string    `json:"gesture,omitempty"`
	BodyID    uint64    `json:"body_id,omitempty"`
	Source    string    `json:"source,omitempty"`
	Seq       uint64    `json:"seq,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// NewEventMessage converts an engine event.
func NewEventMessage(ev gesture.Event) EventMessage {
	msg := EventMessage{
		Kind:   ev.Kind.String(),
		BodyID: ev.BodyID,
		Source: ev.Source,
	}
	if ev.Kind == gesture.EventRecognized {
		msg.Gesture = ev.Recognition.Gesture
		msg.Seq = ev.Recognition.Seq
		msg.Timestamp = ev.Recognition.Timestamp
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventsHandler streams engine events to WebSocket clients. Publish never
// blocks; a client that falls behind misses events.
type EventsHandler struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		logger:  logger.With("component", "events"),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the client
// goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("events client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)

	// Reads only detect the close; clients have nothing to say.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	h.logger.Debug("events client disconnected", "remote", r.RemoteAddr)
}

func (h *EventsHandler) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *EventsHandler) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish sends an engine event to every client. It is suitable as an engine
// listener.
func (h *EventsHandler) Publish(ev gesture.Event) {
	data, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		h.logger.Error("failed to encode event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("events client is slow, dropping event")
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *EventsHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
