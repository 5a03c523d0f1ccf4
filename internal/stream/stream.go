// Package stream publishes composition evaluations to websocket clients.
//
// A Hub fans each published evaluation out to every connected client over a
// per-client buffered channel. Feedback is only useful live: when a client
// falls behind, the oldest queued message is dropped to make room for the
// newest, so a slow reader sees fresh results with gaps rather than a
// growing backlog of stale ones.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/framewise/composure/internal/pipeline"
)

// sendBuffer is the per-client queue depth before drop-oldest kicks in.
const sendBuffer = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local tooling: the hub serves preview UIs on the same host.
	CheckOrigin: func(*http.Request) bool { return true },
}

// client is one connected websocket consumer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and broadcasts evaluations to them.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Routes returns the HTTP routes served by the hub.
func (h *Hub) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/results", h.handleResults).Methods(http.MethodGet)
	return r
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes an evaluation's composition result and queues it to
// every connected client. Returns the number of clients that received it.
func (h *Hub) Broadcast(eval pipeline.Evaluation) int {
	payload, err := json.Marshal(eval.Result)
	if err != nil {
		log.Printf("stream: marshal evaluation %d: %v", eval.Seq, err)
		return 0
	}
	return h.broadcastRaw(payload)
}

func (h *Hub) broadcastRaw(payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, c := range h.clients {
		if c.enqueue(payload) {
			delivered++
		}
	}
	return delivered
}

// enqueue offers a payload to the client's send queue, evicting the oldest
// queued payload when full.
func (c *client) enqueue(payload []byte) bool {
	for {
		select {
		case c.send <- payload:
			return true
		default:
		}
		select {
		case <-c.send: // evict oldest
		default:
		}
	}
}

// Close disconnects all clients and rejects new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

// handleResults upgrades the connection and streams evaluations until the
// client disconnects.
func (h *Hub) handleResults(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	h.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stream: upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.Printf("stream: client %s connected", c.id)

	go h.writeLoop(c)
	h.readLoop(c)
}

// writeLoop drains the client's send queue onto the websocket.
func (h *Hub) writeLoop(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.Close()
}

// readLoop discards inbound frames; the stream is one-way. It exists to
// observe the close handshake and pings.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

// drop removes a client and releases its connection. Safe to call from both
// loops; only the first call acts.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, present := h.clients[c.id]
	if present {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	if present {
		c.conn.Close()
		log.Printf("stream: client %s disconnected", c.id)
	}
}
