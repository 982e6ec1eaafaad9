package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"cliniq/models"
	"cliniq/utils"
)

// Publisher is the interface the booking engine pushes events through.
type Publisher interface {
	Publish(ctx context.Context, event models.SyncEvent) error
}

// client is one connected role-joined websocket peer.
type client struct {
	ID     string
	Role   models.Role
	UserID string
	Send   chan []byte
}

// Hub fans server-side mutations out to every connected client whose role
// (and, for your-* events, identity) matches. Delivery is at-most-once: a
// client whose buffer is full misses the event and is expected to refetch.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoleCount returns the number of clients joined under a role.
func (h *Hub) RoleCount(role models.Role) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.Role == role {
			n++
		}
	}
	return n
}

// Publish implements Publisher by broadcasting to matching clients.
func (h *Hub) Publish(_ context.Context, event models.SyncEvent) error {
	h.Broadcast(event)
	return nil
}

// Broadcast sends the event to every client it is scoped to. An empty Role
// reaches all roles; a TargetID narrows delivery to that user.
func (h *Hub) Broadcast(event models.SyncEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		utils.GetLogger().Error("sync: failed to marshal event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if event.Role != "" && c.Role != event.Role {
			continue
		}
		if event.TargetID != "" && c.UserID != event.TargetID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}
