package booking

import (
	"context"
	"errors"
	"testing"
)

func TestCheckConflictFound(t *testing.T) {
	appts := newFakeAppointments()
	appts.hasActive = true
	guard := &ConflictGuard{Appointments: appts}

	result, err := guard.CheckConflict(context.Background(), "p1", "d1", "2026-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Conflict || result.Message == "" {
		t.Fatalf("expected conflict with message, got %+v", result)
	}
}

func TestCheckConflictClear(t *testing.T) {
	guard := &ConflictGuard{Appointments: newFakeAppointments()}

	result, err := guard.CheckConflict(context.Background(), "p1", "d1", "2026-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Conflict {
		t.Fatalf("expected no conflict, got %+v", result)
	}
}

func TestCheckConflictFailClosed(t *testing.T) {
	appts := newFakeAppointments()
	appts.hasActiveErr = errors.New("connection refused")
	guard := &ConflictGuard{Appointments: appts}

	_, err := guard.CheckConflict(context.Background(), "p1", "d1", "2026-09-01")
	if !IsKind(err, KindServer) {
		t.Fatalf("expected server-kind error, got %v", err)
	}
}

func TestCheckConflictTimeoutClassified(t *testing.T) {
	appts := newFakeAppointments()
	appts.hasActiveErr = context.DeadlineExceeded
	guard := &ConflictGuard{Appointments: appts}

	_, err := guard.CheckConflict(context.Background(), "p1", "d1", "2026-09-01")
	if !IsKind(err, KindTimeout) {
		t.Fatalf("expected timeout-kind error, got %v", err)
	}
}
