package websocket

import (
	"context"
	"encoding/json"
	"time"

	"task-manager/internal/models"
	"task-manager/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single write to a client.
	writeWait = 10 * time.Second
	// sendBuffer is how many events a client may fall behind before it is dropped.
	sendBuffer = 16
)

// Conn is the part of *websocket.Conn the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client adalah satu koneksi WebSocket milik seorang user.
// Setiap client punya goroutine penulis sendiri.
type Client struct {
	Owner uuid.UUID
	Conn  Conn

	send     chan []byte
	finished chan struct{}
}

type message struct {
	owner uuid.UUID
	data  []byte
}

// TaskEvent is the payload pushed to a task owner's connections.
type TaskEvent struct {
	Type string      `json:"type"`
	Task models.Task `json:"task"`
}

// Hub routes task events to the connections of the task's owner only.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run menjalankan loop hub sampai ctx selesai, lalu menutup semua koneksi.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = map[uuid.UUID]map[*Client]bool{}
			return
		case client := <-h.register:
			if h.clients[client.Owner] == nil {
				h.clients[client.Owner] = make(map[*Client]bool)
			}
			h.clients[client.Owner][client] = true
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			for client := range h.clients[msg.owner] {
				select {
				case client.send <- msg.data:
				default:
					logger.SystemLogger.Warn("Slow websocket client dropped", zap.String("owner", client.Owner.String()))
					h.remove(client)
				}
			}
		}
	}
}

// remove closes client.send; the client's writer then closes the conn.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.Owner]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.Owner)
	}
	close(client.send)
}

func (h *Hub) writePump(client *Client) {
	defer close(client.finished)
	defer client.Conn.Close()
	for data := range client.send {
		_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(client)
			return
		}
	}
}

// Register returns false when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	client.send = make(chan []byte, sendBuffer)
	select {
	case h.register <- client:
		client.finished = make(chan struct{})
		go h.writePump(client)
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client and waits for its writer to close the conn.
func (h *Hub) Unregister(client *Client) {
	h.drop(client)
	if client.finished != nil {
		<-client.finished
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyTask queues an event for owner. Events are dropped when the queue is full.
func (h *Hub) NotifyTask(owner uuid.UUID, event string, task models.Task) {
	data, err := json.Marshal(TaskEvent{Type: event, Task: task})
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{owner: owner, data: data}:
	default:
		logger.SystemLogger.Warn("Task event dropped", zap.String("event", event), zap.String("owner", owner.String()))
	}
}
