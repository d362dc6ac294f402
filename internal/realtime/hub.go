package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Client is one realtime connection. Messages are delivered through the
// buffered Send channel; the connection's write pump drains it.
type Client struct {
	ID    string
	Actor domain.Actor
	Send  chan []byte
}

// Hub maintains the set of connected clients and the per-ticket rooms.
// It is the only shared mutable structure in the realtime layer; all access
// goes through the mutex. Delivery is best-effort: a client whose send
// buffer is full is dropped and must re-fetch after reconnecting.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	logger     *zap.Logger
	sendBuffer int
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		logger:     logger,
		sendBuffer: sendBuffer,
	}
}

// NewClient allocates a client for an authenticated connection.
func (h *Hub) NewClient(actor domain.Actor) *Client {
	return &Client{
		ID:    uuid.NewString(),
		Actor: actor,
		Send:  make(chan []byte, h.sendBuffer),
	}
}

// Register adds a connection to the global set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a connection from the global set and from every room
// it joined, and closes its send channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// Subscribe adds the client to a ticket's room.
func (h *Hub) Subscribe(c *Client, ticketID string) {
	if ticketID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	room, ok := h.rooms[ticketID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[ticketID] = room
	}
	room[c] = struct{}{}
}

// Unsubscribe removes the client from a ticket's room.
func (h *Hub) Unsubscribe(c *Client, ticketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoom(c, ticketID)
}

// Publish delivers a message to every client subscribed to the ticket.
func (h *Hub) Publish(ticketID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[ticketID] {
		h.deliver(c, message)
	}
}

// PublishGlobal delivers a message to every connected client.
func (h *Hub) PublishGlobal(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.deliver(c, message)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of subscribers in a ticket's room.
func (h *Hub) RoomSize(ticketID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ticketID])
}

// deliver sends without blocking; a full buffer means the client is too
// slow to keep up, so it is dropped. Caller holds the write lock.
func (h *Hub) deliver(c *Client, message []byte) {
	select {
	case c.Send <- message:
	default:
		if h.logger != nil {
			h.logger.Warn("dropping slow realtime client", zap.String("client_id", c.ID))
		}
		h.drop(c)
	}
}

// drop removes the client everywhere. Caller holds the write lock.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for ticketID, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, ticketID)
		}
	}
	close(c.Send)
}

// leaveRoom removes the client from one room. Caller holds the write lock.
func (h *Hub) leaveRoom(c *Client, ticketID string) {
	room, ok := h.rooms[ticketID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, ticketID)
	}
}
