// Package events fans publication progress out to the owner's websocket connections.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"bosko/logger"

	"github.com/gorilla/websocket"
)

// Type is the kind of a progress event.
type Type string

const (
	TypeStageStarted   Type = "stage_started"
	TypeStageSkipped   Type = "stage_skipped"
	TypeStageCompleted Type = "stage_completed"
	TypeStageFailed    Type = "stage_failed"
	TypePong           Type = "pong"
)

// Event is one progress message. Timestamp is unix milliseconds.
type Event struct {
	Type      Type   `json:"type"`
	TrackID   string `json:"trackId,omitempty"`
	AssetID   string `json:"assetId,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher accepts events for a user.
type Publisher interface {
	Publish(userID int64, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(int64, Event) {}

// Client is one websocket connection of a user.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID int64
}

// NewClient creates a Client with a buffered send queue.
func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 64), UserID: userID}
}

type message struct {
	userID int64
	data   []byte
}

// Hub tracks live connections per user. All map mutations happen on the Run goroutine.
type Hub struct {
	users map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan message

	mu   sync.RWMutex
	done chan struct{}
	once sync.Once
}

// NewHub creates a Hub. Call Run before publishing.
func NewHub() *Hub {
	return &Hub{
		users:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.users[client.UserID] == nil {
				h.users[client.UserID] = make(map[*Client]bool)
			}
			h.users[client.UserID][client] = true
			h.mu.Unlock()
			logger.Debug("events client registered", logger.Int64("user_id", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop shuts the hub down and closes every client queue.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// removeClient must be called with mu held.
func (h *Hub) removeClient(client *Client) {
	clients, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.users, client.UserID)
	}
	logger.Debug("events client unregistered", logger.Int64("user_id", client.UserID))
}

func (h *Hub) deliver(msg message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.users[msg.userID] {
		select {
		case client.Send <- msg.data:
		default:
			// Slow consumer.
			h.removeClient(client)
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.users {
		for client := range clients {
			close(client.Send)
		}
	}
	h.users = make(map[int64]map[*Client]bool)
}

// Register adds a client. It is a no-op after Stop.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client. It is a no-op after Stop.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues ev for every connection of userID. It never blocks; events are dropped when the queue is full.
func (h *Hub) Publish(userID int64, ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Warn("failed to encode event", logger.ErrorField(err))
		return
	}
	select {
	case h.broadcast <- message{userID: userID, data: data}:
	default:
		logger.Warn("events queue full, dropping event",
			logger.Int64("user_id", userID),
			logger.String("track_id", ev.TrackID))
	}
}

// ClientCount returns the number of live connections of userID.
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
