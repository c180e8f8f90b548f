package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage is the envelope for every frame sent to a client.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	hostRoom    = "host-room"
	playersRoom = "players-room"

	// sendBuffer bounds the per-client outbox. A client that cannot drain it
	// gets dropped rather than being allowed to stall everyone else.
	sendBuffer = 64
)

// Client is one websocket connection. Writes go through the send channel and
// a single writer goroutine, so broadcasts never block on the network.
type Client struct {
	ID   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func (c *Client) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Str("conn", c.ID).Err(err).Msg("ws: write failed")
			c.conn.Close()
			return
		}
	}
	c.conn.Close()
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) enqueue(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		// Outbox full: the client is too slow to keep up with the game.
		log.Warn().Str("conn", c.ID).Msg("ws: send buffer full, dropping client")
		c.closed = true
		close(c.send)
	}
}

// Hub tracks live connections and their room membership and fans events out
// to the host room, the players room, or a single connection. It implements
// game.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms: map[string]map[string]*Client{
			hostRoom:    make(map[string]*Client),
			playersRoom: make(map[string]*Client),
		},
	}
}

// Register wraps a websocket connection in a Client with a fresh connection
// id and starts its writer.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	client := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go client.writePump()

	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("conn", client.ID).Int("total", total).Msg("ws: client connected")
	return client
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		for _, room := range h.rooms {
			delete(room, connID)
		}
	}
	h.mu.Unlock()

	if ok {
		client.close()
		log.Debug().Str("conn", connID).Msg("ws: client disconnected")
	}
}

func (h *Hub) JoinHostRoom(connID string) {
	h.joinRoom(hostRoom, connID)
}

func (h *Hub) JoinPlayersRoom(connID string) {
	h.joinRoom(playersRoom, connID)
}

func (h *Hub) joinRoom(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	for _, r := range h.rooms {
		delete(r, connID)
	}
	h.rooms[room][connID] = client
}

func (h *Hub) ToHost(event string, data any) {
	h.toRoom(hostRoom, event, data)
}

func (h *Hub) ToPlayers(event string, data any) {
	h.toRoom(playersRoom, event, data)
}

func (h *Hub) toRoom(room, event string, data any) {
	msg, err := marshal(event, data)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.rooms[room] {
		client.enqueue(msg)
	}
}

func (h *Hub) ToConn(connID string, event string, data any) {
	msg, err := marshal(event, data)
	if err != nil {
		return
	}

	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		client.enqueue(msg)
	}
}

func marshal(event string, data any) ([]byte, error) {
	msg, err := json.Marshal(WSMessage{Type: event, Data: data})
	if err != nil {
		log.Error().Str("event", event).Err(err).Msg("ws: marshal error")
		return nil, err
	}
	return msg, nil
}
