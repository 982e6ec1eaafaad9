package sync

import (
	"testing"

	"cliniq/models"
)

func TestDispatcherRoutesByKind(t *testing.T) {
	d := NewDispatcher()
	var scheduleHits, queueHits int
	d.Subscribe(models.EventScheduleChanged, func(models.SyncEvent) { scheduleHits++ })
	d.Subscribe(models.EventQueueUpdated, func(models.SyncEvent) { queueHits++ })

	d.Dispatch(models.SyncEvent{Kind: models.EventScheduleChanged})
	d.Dispatch(models.SyncEvent{Kind: models.EventScheduleChanged})
	d.Dispatch(models.SyncEvent{Kind: models.EventQueueUpdated})

	if scheduleHits != 2 || queueHits != 1 {
		t.Fatalf("expected 2/1 hits, got %d/%d", scheduleHits, queueHits)
	}
}

func TestDispatcherMultipleListenersPerKind(t *testing.T) {
	d := NewDispatcher()
	var a, b int
	d.Subscribe(models.EventAvailabilityChanged, func(models.SyncEvent) { a++ })
	d.Subscribe(models.EventAvailabilityChanged, func(models.SyncEvent) { b++ })

	d.Dispatch(models.SyncEvent{Kind: models.EventAvailabilityChanged})

	if a != 1 || b != 1 {
		t.Fatalf("every listener must fire, got %d/%d", a, b)
	}
}

func TestDispatcherUnsubscribeStopsDelivery(t *testing.T) {
	d := NewDispatcher()
	var kept, removed int
	d.Subscribe(models.EventLeaveApproved, func(models.SyncEvent) { kept++ })
	sub := d.Subscribe(models.EventLeaveApproved, func(models.SyncEvent) { removed++ })

	d.Unsubscribe(sub)
	d.Dispatch(models.SyncEvent{Kind: models.EventLeaveApproved})

	if kept != 1 || removed != 0 {
		t.Fatalf("unsubscribed handler fired: kept=%d removed=%d", kept, removed)
	}
	if d.ListenerCount(models.EventLeaveApproved) != 1 {
		t.Fatalf("expected 1 remaining listener, got %d", d.ListenerCount(models.EventLeaveApproved))
	}
}

func TestDispatcherUnknownKindDropped(t *testing.T) {
	d := NewDispatcher()
	var hits int
	d.Subscribe(models.EventSystemAlert, func(models.SyncEvent) { hits++ })

	d.Dispatch(models.SyncEvent{Kind: models.EventKind("made-up-kind")})

	if hits != 0 {
		t.Fatalf("unknown kinds must be dropped, got %d hits", hits)
	}
}

func TestDispatcherUnsubscribeIsIdempotent(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(models.EventQueueUpdated, func(models.SyncEvent) {})
	d.Unsubscribe(sub)
	d.Unsubscribe(sub)

	if d.ListenerCount(models.EventQueueUpdated) != 0 {
		t.Fatal("expected no listeners")
	}
}
