package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"binwatch-backend/internal/events"
)

// SnapshotFunc returns the full dashboard state sent to new clients. It is
// called from the hub goroutine and must not block on the hub.
type SnapshotFunc func() interface{}

// Hub maintains active WebSocket connections and broadcasts engine events
// to every dashboard.
type Hub struct {
	// Registered clients (client ID -> Client)
	clients map[string]*Client

	// Outbound messages for every client
	broadcast chan []byte

	// Replies addressed to a single client
	direct chan *Message

	register   chan *Client
	unregister chan *Client

	snapshot SnapshotFunc

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// Message is a payload addressed to one client.
type Message struct {
	Client *Client
	Data   []byte
}

// OutgoingMessage wraps non-event payloads sent to clients.
type OutgoingMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 256),
		direct:     make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshot:   snapshot,
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			slog.Info("[WEBSOCKET] Hub stopped")
			return

		case client := <-h.register:
			// The snapshot is taken after the client joins and queued ahead
			// of any later broadcast, so no event committed after it is lost.
			initial, err := json.Marshal(h.snapshotMessage())
			if err != nil {
				slog.Error("[WEBSOCKET] Failed to marshal snapshot", "client_id", client.ID, "error", err)
				close(client.send)
				continue
			}
			h.mu.Lock()
			h.clients[client.ID] = client
			h.deliverLocked(client, initial)
			count := len(h.clients)
			h.mu.Unlock()
			slog.Info("[WEBSOCKET] Client connected",
				"client_id", client.ID,
				"remote_addr", client.RemoteAddr,
				"clients", count,
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				slog.Info("[WEBSOCKET] Client disconnected",
					"client_id", client.ID,
					"clients", len(h.clients),
				)
			}
			h.mu.Unlock()

		case msg := <-h.direct:
			h.mu.Lock()
			if _, ok := h.clients[msg.Client.ID]; ok {
				h.deliverLocked(msg.Client, msg.Data)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.Lock()
			for _, client := range h.clients {
				h.deliverLocked(client, data)
			}
			h.mu.Unlock()
		}
	}
}

// deliverLocked queues data for a client, disconnecting it when its buffer
// is full.
func (h *Hub) deliverLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client.ID)
		slog.Warn("[WEBSOCKET] Client buffer full, disconnecting", "client_id", client.ID)
	}
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast marshals data and queues it for every connected client.
func (h *Hub) Broadcast(ctx context.Context, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}

	select {
	case <-h.done:
		return fmt.Errorf("hub stopped")
	default:
	}

	select {
	case h.broadcast <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return fmt.Errorf("hub stopped")
	}
}

func (h *Hub) Name() string { return "websocket-hub" }

// Send forwards an engine event to every dashboard.
func (h *Hub) Send(ctx context.Context, e events.Event) error {
	return h.Broadcast(ctx, e)
}

func (h *Hub) reply(client *Client, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("[WEBSOCKET] Failed to marshal reply", "client_id", client.ID, "error", err)
		return
	}
	select {
	case h.direct <- &Message{Client: client, Data: payload}:
	case <-h.done:
	}
}

func (h *Hub) snapshotMessage() OutgoingMessage {
	var data interface{}
	if h.snapshot != nil {
		data = h.snapshot()
	}
	return OutgoingMessage{Type: "snapshot", Data: data}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
