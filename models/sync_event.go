package models

import (
	"encoding/json"
	"time"
)

// Role identifies which client role a sync connection or event targets.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// EventKind is the closed set of server-pushed sync event kinds.
type EventKind string

const (
	EventScheduleChanged          EventKind = "schedule-changed"
	EventAvailabilityChanged      EventKind = "availability-changed"
	EventDepartmentStatusChanged  EventKind = "department-status-changed"
	EventLeaveApproved            EventKind = "leave-approved"
	EventAppointmentStatusChanged EventKind = "appointment-status-changed"
	EventQueueUpdated             EventKind = "queue-updated"
	EventSystemAlert              EventKind = "system-alert"

	// Role-filtered variants scoped to a single recipient via TargetID.
	EventYourAppointmentChanged EventKind = "your-appointment-changed"
	EventYourQueuePosition      EventKind = "your-queue-position"
)

// KnownEventKinds lists every kind the transport will deliver. Anything else
// is dropped by the dispatcher.
var KnownEventKinds = []EventKind{
	EventScheduleChanged,
	EventAvailabilityChanged,
	EventDepartmentStatusChanged,
	EventLeaveApproved,
	EventAppointmentStatusChanged,
	EventQueueUpdated,
	EventSystemAlert,
	EventYourAppointmentChanged,
	EventYourQueuePosition,
}

// SyncEvent is a tagged, role-scoped message pushed over the real-time
// channel. Delivery is at-most-once and unordered across kinds; consumers are
// expected to refetch on receipt rather than patch incrementally.
type SyncEvent struct {
	Kind      EventKind       `json:"kind"`
	Role      Role            `json:"role,omitempty"`     // empty = all roles
	TargetID  string          `json:"targetId,omitempty"` // set for your-* kinds
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
