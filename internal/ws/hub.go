// Package ws fans events out to live WebSocket subscribers. Delivery is
// best-effort per subscriber: a client that cannot keep up or whose write
// fails is evicted without affecting the others.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"velocity/monitor-service/internal/model"
)

// Connection keepalive parameters.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must be less than pongWait
	maxMessageSize = 512
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin in every deployment.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub tracks the live subscriber set for one endpoint.
type Hub struct {
	name string
	log  *zap.SugaredLogger

	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates an empty hub. name only labels log lines.
func NewHub(name string, log *zap.SugaredLogger) *Hub {
	return &Hub{
		name:    name,
		log:     log.Named("ws." + name),
		clients: make(map[string]*client),
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast pushes the envelope to every live subscriber. A client whose
// send buffer is full is evicted on the spot rather than blocking the
// pipeline behind it.
func (h *Hub) Broadcast(ev model.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorw("marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Evict by closing the connection, never the send channel:
			// readPump may be replying to a keepalive on that channel right
			// now, and only its drop is allowed to close it.
			h.log.Warnw("subscriber too slow, evicting", "client", id)
			delete(h.clients, id)
			c.conn.Close()
		}
	}
}

// ServeWS upgrades the request and registers the connection as a subscriber.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Infow("subscriber connected", "client", c.id, "total", n)

	go c.writePump()
	go c.readPump()
}

// drop unregisters the client. It runs once, from readPump's defer, after
// the keepalive loop has stopped sending, so it is the sole closer of the
// send channel. A client already evicted by Broadcast is just closed out.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	removed := false
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		removed = true
	}
	n := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	if removed {
		h.log.Infow("subscriber disconnected", "client", c.id, "total", n)
	}
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump keeps the connection alive and answers the frontend's "ping"
// keepalive text with "pong". Any read error drops the client.
func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if string(msg) == "ping" {
			select {
			case c.send <- []byte("pong"):
			default:
			}
		}
	}
}

// writePump serializes all writes to the connection: broadcast payloads from
// the send channel plus periodic protocol pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
