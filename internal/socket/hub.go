// server/internal/socket/hub.go
package socket

import (
	"sync"

	"greencycle-api-server/internal/models"
)

// UpdateFunc receives the full updated pickup record, not a diff.
// Consumers must tolerate receiving the same state twice.
type UpdateFunc func(p *models.Pickup)

// Hub fans pickup updates out to live viewers. Subscriptions are keyed by
// pickupID and a viewer may hold several at once. Publish runs callbacks
// synchronously under the hub lock, so updates for one pickupID are
// delivered in exactly the order they are published; the lifecycle engine
// publishes in commit order.
type Hub struct {
	mu     sync.Mutex
	nextID int64
	subs   map[string]map[int64]UpdateFunc
}

// NewHub tạo một Hub mới.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[int64]UpdateFunc),
	}
}

// Subscribe registers a viewer for one pickupID and returns the release
// function. The release function must be called on view teardown; it is
// safe to call more than once.
func (h *Hub) Subscribe(pickupID string, fn UpdateFunc) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[pickupID] == nil {
		h.subs[pickupID] = make(map[int64]UpdateFunc)
	}
	h.subs[pickupID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[pickupID], id)
			if len(h.subs[pickupID]) == 0 {
				delete(h.subs, pickupID)
			}
		})
	}
}

// Publish delivers the updated pickup to every subscriber of pickupID.
// A pickup with no viewers is not an error.
func (h *Hub) Publish(pickupID string, p *models.Pickup) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, fn := range h.subs[pickupID] {
		fn(p)
	}
}

// Subscribers returns the number of live subscriptions for a pickupID.
func (h *Hub) Subscribers(pickupID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[pickupID])
}
