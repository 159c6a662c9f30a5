package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/richardl62/richards-old-games-server/game/player"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 << 10

	// Outbound frames buffered per client before it counts as slow.
	sendBufferSize = 256
)

// Message is an outbound frame: an event, or the acknowledgement of an
// inbound frame that carried an ack id.
type Message struct {
	Event string `json:"event"`
	Ack   *int64 `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Hub maintains the broadcast rooms. It implements engine.Broadcaster.
type Hub struct {
	mu sync.Mutex

	// Clients by room name
	rooms map[string]map[*Client]bool

	// Every connected client
	clients map[*Client]bool

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub. An empty allowedOrigins accepts every origin.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger: logger,
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Emit queues event for every client in room except the one given. The
// payload is serialized once, before any client sees it. Clients whose
// buffer is full are closed rather than waited for.
func (h *Hub) Emit(room, event string, payload any, except player.Connection) int {
	data, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("Failed to marshal event", "event", event, "room", room, "error", err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for client := range h.rooms[room] {
		if except != nil && player.Connection(client) == except {
			continue
		}
		if client.enqueue(data) {
			n++
		}
	}
	return n
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) newClient(conn *websocket.Conn) *Client {
	c := &Client{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		done:  make(chan struct{}),
		rooms: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Client registered", "conn_id", c.id, "clients", total)
	return c
}

func (h *Hub) joinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
}

func (h *Hub) leaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, room)
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// unregister removes the client from the hub and every room it is in.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	delete(h.clients, c)
	remaining := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Client unregistered", "conn_id", c.id, "clients", remaining)
}
