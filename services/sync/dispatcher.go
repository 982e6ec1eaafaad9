package sync

import (
	"sync"

	"cliniq/models"
)

// EventHandler consumes one sync event. Handlers must be idempotent with
// respect to duplicate logical updates; the transport gives no delivery
// guarantees beyond per-kind arrival order on one connection.
type EventHandler func(event models.SyncEvent)

// Subscription is the handle returned by Subscribe. Unregistering is
// explicit through Unsubscribe; nothing is cleaned up automatically, which
// keeps callbacks from leaking across reconnects.
type Subscription struct {
	kind models.EventKind
	id   int
}

// Dispatcher routes events to local listeners keyed by the closed EventKind
// enum. Multiple listeners may register for the same kind; all are invoked
// on each event.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[models.EventKind]map[int]EventHandler
	next int
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[models.EventKind]map[int]EventHandler)}
}

// Subscribe registers a handler for an event kind and returns its handle.
func (d *Dispatcher) Subscribe(kind models.EventKind, fn EventHandler) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	if d.subs[kind] == nil {
		d.subs[kind] = make(map[int]EventHandler)
	}
	d.subs[kind][d.next] = fn
	return Subscription{kind: kind, id: d.next}
}

// Unsubscribe removes a previously registered handler.
func (d *Dispatcher) Unsubscribe(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if handlers, ok := d.subs[sub.kind]; ok {
		delete(handlers, sub.id)
		if len(handlers) == 0 {
			delete(d.subs, sub.kind)
		}
	}
}

// ListenerCount returns the number of handlers registered for a kind.
func (d *Dispatcher) ListenerCount(kind models.EventKind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[kind])
}

// Dispatch invokes every handler registered for the event's kind. Unknown
// kinds are dropped.
func (d *Dispatcher) Dispatch(event models.SyncEvent) {
	d.mu.RLock()
	handlers := make([]EventHandler, 0, len(d.subs[event.Kind]))
	for _, fn := range d.subs[event.Kind] {
		handlers = append(handlers, fn)
	}
	d.mu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
}
