// Package gateway exposes the settlement event feed over WebSocket. The hub
// subscribes to the journal and fans every committed event out to all
// connected clients; it never feeds back into the engines.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"aura_go/internal/event"
	"aura_go/internal/infra"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	// sendBuffer bounds the per-client queue; a client that falls this far
	// behind is evicted rather than allowed to stall the fanout.
	sendBuffer = 64
)

// Envelope is the wire frame for one journaled event.
type Envelope struct {
	Type    string      `json:"type"`
	Seq     uint64      `json:"seq"`
	Ts      int64       `json:"ts"`
	Payload event.Event `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is the WebSocket fanout. Register it as a journal sink and mount it on
// an HTTP mux.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	maxClients int
	limiter    *infra.RateLimiter
	upgrader   websocket.Upgrader
}

// NewHub creates a hub admitting at most maxClients concurrent subscribers,
// with connection attempts throttled by limiter.
func NewHub(maxClients int, limiter *infra.RateLimiter) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		maxClients: maxClients,
		limiter:    limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish fans one journaled event out to every connected client. Slow
// clients are evicted instead of blocking the caller; Publish runs on the
// journal's append path.
func (h *Hub) Publish(ev event.Event) {
	frame, err := json.Marshal(Envelope{
		Type:    ev.GetType().String(),
		Seq:     ev.GetSeq(),
		Ts:      ev.GetTs(),
		Payload: ev,
	})
	if err != nil {
		slog.Error("Feed frame marshal failed", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			delete(h.clients, c)
			close(c.send)
			slog.Warn("Evicted slow feed client")
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.TryAcquire() {
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	h.mu.Lock()
	if len(h.clients) >= h.maxClients {
		h.mu.Unlock()
		http.Error(w, "subscriber limit reached", http.StatusServiceUnavailable)
		return
	}
	h.mu.Unlock()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Feed upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("Feed client connected", slog.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)
	h.readPump(c)
}

// readPump drains inbound frames so pings/pongs and close frames are
// processed. The feed is one-way; client payloads are discarded.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// drop unregisters a client and closes its queue once.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	c.conn.Close()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
