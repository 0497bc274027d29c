package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"swiftresponse/pkg/logger"
)

const (
	roomUserPrefix = "user_"
)

// Message is the envelope for everything sent over the socket in either
// direction.
type Message struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func NewMessage(msgType string, data interface{}) (Message, error) {
	msg := Message{Type: msgType, Timestamp: getCurrentTimestamp()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return msg, err
		}
		msg.Data = raw
	}
	return msg, nil
}

// Decode unmarshals the message payload into v.
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return ErrEmptyPayload
	}
	return json.Unmarshal(m.Data, v)
}

type MessageHandler func(client *Client, msg Message)

type Hub struct {
	clients map[*Client]bool
	users   map[string]map[*Client]bool
	rooms   map[string]map[*Client]bool
	mutex   sync.RWMutex
	logger  *logger.Logger

	onConnect    func(*Client)
	onDisconnect func(*Client)
	onMessage    MessageHandler
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		users:   make(map[string]map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
		logger:  log.WithField("component", "websocket_hub"),
	}
}

// OnConnect, OnDisconnect and OnMessage must be set before the first
// client registers.
func (h *Hub) OnConnect(fn func(*Client))    { h.onConnect = fn }
func (h *Hub) OnDisconnect(fn func(*Client)) { h.onDisconnect = fn }
func (h *Hub) OnMessage(fn MessageHandler)   { h.onMessage = fn }

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds the client and runs the connect hook before returning, so
// the hook can join rooms and queue initial messages ahead of the welcome.
func (h *Hub) Register(client *Client) {
	h.registerClient(client)
	if h.onConnect != nil {
		h.onConnect(client)
	}
	client.SendData("welcome", map[string]string{"message": "Connected successfully"})
}

func (h *Hub) Unregister(client *Client) {
	if h.unregisterClient(client) && h.onDisconnect != nil {
		h.onDisconnect(client)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[*Client]bool)
	}
	h.users[client.UserID][client] = true
	h.joinRoom(client, roomUserPrefix+client.UserID)

	h.logger.WithFields(map[string]interface{}{
		"user_id":   client.UserID,
		"user_type": client.UserType,
	}).Info("Client registered")

}

func (h *Hub) unregisterClient(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	if conns := h.users[client.UserID]; conns != nil {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.users, client.UserID)
		}
	}
	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	client.close()

	h.logger.WithField("user_id", client.UserID).Info("Client unregistered")
	return true
}

func (h *Hub) closeAll() {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		h.Unregister(client)
	}
}

func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.joinRoom(client, roomID)
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SendToRoom returns the number of clients the message was queued for.
func (h *Hub) SendToRoom(roomID string, message Message) int {
	message.RoomID = roomID
	return h.sendTo(h.members(h.rooms, roomID), message)
}

func (h *Hub) SendToUser(userID string, message Message) int {
	message.UserID = userID
	return h.sendTo(h.members(h.users, userID), message)
}

func (h *Hub) members(index map[string]map[*Client]bool, key string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	set := index[key]
	out := make([]*Client, 0, len(set))
	for client := range set {
		out = append(out, client)
	}
	return out
}

func (h *Hub) sendTo(clients []*Client, message Message) int {
	if message.Timestamp == 0 {
		message.Timestamp = getCurrentTimestamp()
	}
	sent := 0
	for _, client := range clients {
		if err := client.Send(message); err != nil {
			if err == ErrSlowClient {
				h.logger.WithField("user_id", client.UserID).Warn("Dropping slow websocket client")
				go h.Unregister(client)
			}
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) IsOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) dispatch(client *Client, msg Message) {
	if h.onMessage != nil {
		h.onMessage(client, msg)
	}
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
