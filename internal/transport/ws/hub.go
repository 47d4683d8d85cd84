package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections and the room channels they subscribe to
type Hub struct {
	conns map[string]*Connection
	rooms map[string]map[string]*Connection // roomCode -> connID -> conn

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	join       chan roomJoin
	closeRoom  chan string
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once

	logger *zap.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	ID       string
	RoomCode string
	Send     chan []byte
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	RoomCode string
	ConnID   string // set for a single recipient
	Data     []byte
}

type roomJoin struct {
	connID string
	code   string
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		conns:      make(map[string]*Connection),
		rooms:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		join:       make(chan roomJoin),
		closeRoom:  make(chan string),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger.Named("hub"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, conn := range h.conns {
				close(conn.Send)
				delete(h.conns, id)
			}
			h.rooms = make(map[string]map[string]*Connection)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn.ID] = conn
			h.mu.Unlock()
			h.logger.Debug("connection opened", zap.String("conn", conn.ID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.conns[conn.ID]; ok && existing == conn {
				h.leave(conn)
				delete(h.conns, conn.ID)
				close(conn.Send)
				h.logger.Debug("connection closed", zap.String("conn", conn.ID))
			}
			h.mu.Unlock()

		case j := <-h.join:
			h.mu.Lock()
			if conn, ok := h.conns[j.connID]; ok {
				h.leave(conn)
				conn.RoomCode = j.code
				if h.rooms[j.code] == nil {
					h.rooms[j.code] = make(map[string]*Connection)
				}
				h.rooms[j.code][conn.ID] = conn
			}
			h.mu.Unlock()

		case code := <-h.closeRoom:
			h.mu.Lock()
			for _, conn := range h.rooms[code] {
				conn.RoomCode = ""
			}
			delete(h.rooms, code)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if msg.ConnID != "" {
				if conn, ok := h.conns[msg.ConnID]; ok {
					h.deliver(conn, msg.Data)
				}
			} else {
				for _, conn := range h.rooms[msg.RoomCode] {
					h.deliver(conn, msg.Data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// leave drops conn from its current room channel. h.mu must be held.
func (h *Hub) leave(conn *Connection) {
	if conn.RoomCode == "" {
		return
	}
	if members, ok := h.rooms[conn.RoomCode]; ok {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(h.rooms, conn.RoomCode)
		}
	}
	conn.RoomCode = ""
}

func (h *Hub) deliver(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		// Drop message if buffer full
		h.logger.Warn("send buffer full, dropping message", zap.String("conn", conn.ID))
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Close stops the hub and closes every connection's send channel.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// RoomSize reports how many connections are subscribed to a room channel.
func (h *Hub) RoomSize(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// EmitToConnection sends an event to one connection (implements service.Broadcaster)
func (h *Hub) EmitToConnection(connID, event string, payload interface{}) {
	h.send(&BroadcastMessage{ConnID: connID}, event, payload)
}

// EmitToRoom sends an event to every connection in a room (implements service.Broadcaster)
func (h *Hub) EmitToRoom(code, event string, payload interface{}) {
	h.send(&BroadcastMessage{RoomCode: code}, event, payload)
}

// JoinRoomChannel moves a connection into a room channel (implements service.Broadcaster)
func (h *Hub) JoinRoomChannel(connID, code string) {
	select {
	case h.join <- roomJoin{connID: connID, code: code}:
	case <-h.done:
	}
}

// CloseRoomChannel drops every subscription to a deleted room (implements service.Broadcaster)
func (h *Hub) CloseRoomChannel(code string) {
	select {
	case h.closeRoom <- code:
	case <-h.done:
	}
}

func (h *Hub) send(msg *BroadcastMessage, event string, payload interface{}) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	msg.Data = data
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func encode(event string, payload interface{}) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: event, Payload: raw})
}
