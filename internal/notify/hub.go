// Package notify delivers notification events to every live websocket
// connection of a user.
//
// Delivery is best effort and at most once per connection. Durable history
// lives in the notifications table; the hub only shortens the latency.
package notify

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/metrics"
	"github.com/tripwise-dev/tripwise/internal/models"
)

// Conn is the part of a duplex connection the hub depends on.
type Conn interface {
	IsOpen() bool
	Send(payload []byte) error
	Close() error
}

const MessageTypeNotification = "notification"

// Message is the envelope written to clients.
type Message struct {
	Type string              `json:"type"`
	Data models.Notification `json:"data"`
}

// Hub maps a user ID to the set of that user's live connections. A user
// entry exists only while its set is non-empty.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[Conn]struct{})}
}

func (h *Hub) Register(userID uint, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, exists := h.clients[userID]
	if !exists {
		set = make(map[Conn]struct{})
		h.clients[userID] = set
	}

	if _, dup := set[conn]; !dup {
		set[conn] = struct{}{}
		metrics.ConnectionOpened()
	}
}

func (h *Hub) Unregister(userID uint, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, exists := h.clients[userID]
	if !exists {
		return
	}

	if _, ok := set[conn]; ok {
		delete(set, conn)
		metrics.ConnectionClosed()
	}

	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// Push sends n to every open connection of userID and returns how many
// sends succeeded. A connection whose send fails is dropped and closed.
func (h *Hub) Push(userID uint, n models.Notification) int {
	conns := h.snapshot(userID)
	if len(conns) == 0 {
		return 0
	}

	payload, err := json.Marshal(Message{Type: MessageTypeNotification, Data: n})
	if err != nil {
		logger.WithError(err).Error("Failed to encode notification")
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if !conn.IsOpen() {
			metrics.RecordPush(metrics.PushSkipped)
			continue
		}

		if err := conn.Send(payload); err != nil {
			logger.WithFields(logrus.Fields{
				"user_id":         userID,
				"notification_id": n.ID,
			}).WithError(err).Debug("Push to connection failed")
			metrics.RecordPush(metrics.PushFailed)

			h.Unregister(userID, conn)
			if err := conn.Close(); err != nil {
				logger.WithError(err).Debug("Failed to close connection after push error")
			}
			continue
		}

		metrics.RecordPush(metrics.PushDelivered)
		delivered++
	}

	return delivered
}

// Connections returns how many connections userID currently has.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userID])
}

// Users returns how many users have at least one connection.
func (h *Hub) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// snapshot copies the user's set so sends never run under the lock.
func (h *Hub) snapshot(userID uint) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[userID]
	conns := make([]Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}

	return conns
}
