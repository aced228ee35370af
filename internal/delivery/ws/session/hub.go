package ws_session

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nar3s/flickpick/internal/model"
)

// Client is one live connection. RoomCode is set once the connection
// creates or joins a room and is only touched from the connection's own
// read loop.
type Client struct {
	ID       string
	RoomCode model.RoomCode

	conn *websocket.Conn
	send chan Event
}

// Hub keeps track of which connections sit in which room and fans
// events out to them.
type Hub struct {
	mu sync.RWMutex

	// Per-room client sets, plus a connection-ID index for events that
	// target one specific member (proposal routing, rejection notices).
	rooms  map[model.RoomCode]map[*Client]bool
	byConn map[string]*Client

	logger *slog.Logger
}

type HubOption func(*Hub)

func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:  make(map[model.RoomCode]map[*Client]bool),
		byConn: make(map[string]*Client),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Join(code model.RoomCode, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[code]; !ok {
		h.rooms[code] = make(map[*Client]bool)
	}
	h.rooms[code][client] = true
	h.byConn[client.ID] = client

	h.logger.Info("client registered", "room", code, "conn", client.ID)
}

func (h *Hub) Leave(code model.RoomCode, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.byConn, client.ID)
	if room, ok := h.rooms[code]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, code)
		}
	}

	h.logger.Info("client unregistered", "room", code, "conn", client.ID)
}

// BroadcastToRoom sends the event to every client in the room except the
// one given (pass nil to reach everyone). A client too slow to drain its
// send buffer just misses the event.
func (h *Hub) BroadcastToRoom(code model.RoomCode, event Event, except *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[code] {
		if client == except {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.logger.Warn("dropping event for slow client", "room", code, "conn", client.ID)
		}
	}
}

// SendToConn delivers an event to a single connection, if still around.
func (h *Hub) SendToConn(connID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.byConn[connID]
	if !ok {
		return
	}
	select {
	case client.send <- event:
	default:
		h.logger.Warn("dropping event for slow client", "conn", connID)
	}
}
