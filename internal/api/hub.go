package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/app/progression"
	"github.com/blank-marketing/blank/internal/domain"
	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// MsgSnapshot is the type of the first message every live client receives.
const MsgSnapshot = "snapshot"

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

// LiveMessage is one frame on the live feed. Type is MsgSnapshot or the
// type of the store event that caused it.
type LiveMessage struct {
	Type  string           `json:"type"`
	Event *domain.Event    `json:"event,omitempty"`
	View  progression.View `json:"view"`
}

// ViewSource provides the read model attached to every message.
type ViewSource interface {
	View() progression.View
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// Hub fans store events out to WebSocket clients. It implements
// domain.EventSink.
type Hub struct {
	source ViewSource
	log    *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	origins []string
	closed  bool
}

// NewHub creates a hub serving views from source.
func NewHub(source ViewSource, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		source:  source,
		log:     log.Named("hub"),
		clients: make(map[*client]struct{}),
	}
}

// SetAllowedOrigins sets the browser origins that may connect besides the
// server's own. "*" allows any.
func (h *Hub) SetAllowedOrigins(origins []string) {
	h.mu.Lock()
	h.origins = slices.Clone(origins)
	h.mu.Unlock()
}

// AddClient registers conn and queues a snapshot for it.
// Sends and closes on a client's channel happen only under h.mu, so a
// client is never written to after it has been removed.
func (h *Hub) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.send)
		return c
	}
	data, err := json.Marshal(LiveMessage{Type: MsgSnapshot, View: h.source.View()})
	if err != nil {
		h.log.Error("marshal snapshot", zap.Error(err))
	} else {
		c.send <- data // fresh buffer, never full
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.LiveClients.Set(float64(n))
	return c
}

// RemoveClient unregisters c and closes its connection.
func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.LiveClients.Set(float64(n))
}

// Publish broadcasts ev with a fresh view. Clients whose buffer is full
// are disconnected.
func (h *Hub) Publish(ev domain.Event) {
	if h.ClientCount() == 0 {
		return
	}
	data, err := json.Marshal(LiveMessage{Type: string(ev.Type), Event: &ev, View: h.source.View()})
	if err != nil {
		h.log.Error("marshal event", zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("live client too slow, disconnecting")
		h.RemoveClient(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	metrics.LiveClients.Set(0)
}

// HandleWS upgrades the request and streams events until the client leaves.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}

	h.log.Debug("live client connected", zap.String("remote", r.RemoteAddr))
	c := h.AddClient(conn)

	go func() {
		defer h.RemoveClient(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if slices.Contains(h.origins, "*") || slices.Contains(h.origins, origin) {
		return true
	}
	return sameOrigin(origin, r.Host)
}
