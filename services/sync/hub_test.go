package sync

import (
	"encoding/json"
	"testing"

	"cliniq/models"
)

func addClient(h *Hub, role models.Role, userID string, buffer int) *client {
	c := &client{ID: userID + "-conn", Role: role, UserID: userID, Send: make(chan []byte, buffer)}
	h.register(c)
	return c
}

func receive(t *testing.T, c *client) models.SyncEvent {
	t.Helper()
	select {
	case raw := <-c.Send:
		var event models.SyncEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			t.Fatalf("malformed event: %v", err)
		}
		return event
	default:
		t.Fatal("expected an event, channel empty")
	}
	return models.SyncEvent{}
}

func assertEmpty(t *testing.T, c *client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("expected no delivery, got %s", raw)
	default:
	}
}

func TestHubBroadcastAllRoles(t *testing.T) {
	h := NewHub()
	patient := addClient(h, models.RolePatient, "p1", 4)
	doctor := addClient(h, models.RoleDoctor, "doc1", 4)

	h.Broadcast(models.SyncEvent{Kind: models.EventAvailabilityChanged})

	if got := receive(t, patient); got.Kind != models.EventAvailabilityChanged {
		t.Fatalf("patient got %s", got.Kind)
	}
	if got := receive(t, doctor); got.Kind != models.EventAvailabilityChanged {
		t.Fatalf("doctor got %s", got.Kind)
	}
}

func TestHubBroadcastRoleScoped(t *testing.T) {
	h := NewHub()
	patient := addClient(h, models.RolePatient, "p1", 4)
	doctor := addClient(h, models.RoleDoctor, "doc1", 4)

	h.Broadcast(models.SyncEvent{Kind: models.EventQueueUpdated, Role: models.RoleDoctor})

	receive(t, doctor)
	assertEmpty(t, patient)
}

func TestHubBroadcastTargeted(t *testing.T) {
	h := NewHub()
	target := addClient(h, models.RolePatient, "p1", 4)
	other := addClient(h, models.RolePatient, "p2", 4)

	h.Broadcast(models.SyncEvent{
		Kind:     models.EventYourAppointmentChanged,
		Role:     models.RolePatient,
		TargetID: "p1",
	})

	got := receive(t, target)
	if got.TargetID != "p1" {
		t.Fatalf("unexpected target: %+v", got)
	}
	assertEmpty(t, other)
}

func TestHubBroadcastStampsTimestamp(t *testing.T) {
	h := NewHub()
	c := addClient(h, models.RoleAdmin, "a1", 1)

	h.Broadcast(models.SyncEvent{Kind: models.EventSystemAlert, Role: models.RoleAdmin})

	if got := receive(t, c); got.Timestamp.IsZero() {
		t.Fatal("broadcast must stamp the event timestamp")
	}
}

func TestHubFullBufferDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	slow := addClient(h, models.RolePatient, "p1", 1)

	// Two broadcasts into a one-slot buffer: the second is dropped, the call
	// returns. At-most-once, never blocking the publisher.
	h.Broadcast(models.SyncEvent{Kind: models.EventAvailabilityChanged})
	h.Broadcast(models.SyncEvent{Kind: models.EventScheduleChanged})

	first := receive(t, slow)
	if first.Kind != models.EventAvailabilityChanged {
		t.Fatalf("expected the first event, got %s", first.Kind)
	}
	assertEmpty(t, slow)
}

func TestHubRegisterUnregisterCounts(t *testing.T) {
	h := NewHub()
	c1 := addClient(h, models.RolePatient, "p1", 1)
	addClient(h, models.RoleDoctor, "doc1", 1)

	if h.ClientCount() != 2 || h.RoleCount(models.RolePatient) != 1 {
		t.Fatalf("unexpected counts: total=%d patient=%d", h.ClientCount(), h.RoleCount(models.RolePatient))
	}

	h.unregister(c1)
	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", h.ClientCount())
	}
	// Double unregister is a no-op.
	h.unregister(c1)
	if h.ClientCount() != 1 {
		t.Fatal("double unregister must not change state")
	}
}
