// Package ws pushes schema change events to WebSocket clients.
package ws

import (
	"context"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
)

// SnapshotFunc returns the current catalog as JSON, sent to clients on
// connect and on request.
type SnapshotFunc func(ctx context.Context) ([]byte, error)

// Hub manages WebSocket connections and broadcasts messages to all clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger
	mu         sync.RWMutex
	snapshot   SnapshotFunc
	devMode    bool
}

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	send chan []byte
	conn *websocket.Conn
}

// Option configures a Hub.
type Option func(*Hub)

// WithSnapshot sets the catalog snapshot provider.
func WithSnapshot(fn SnapshotFunc) Option {
	return func(h *Hub) { h.snapshot = fn }
}

// WithDevMode accepts connections from any origin.
func WithDevMode(dev bool) Option {
	return func(h *Hub) { h.devMode = dev }
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop. It returns when ctx is done, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.drop(client)
			h.logger.Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Broadcast queues a message for all connected clients. The message is
// dropped when the queue is full.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message")
	}
}

// Publish broadcasts an event with a JSON payload.
func (h *Hub) Publish(typ MessageType, payload any) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		h.logger.Error("failed to create websocket message", "type", typ, "error", err)
		return
	}
	h.Broadcast(msg)
}

// deliver queues message for one client. It reports false when the client
// is no longer registered or its queue is full. Holding the lock keeps the
// hub loop from closing client.send during the send.
func (h *Hub) deliver(client *Client, message []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
