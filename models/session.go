package models

import "time"

// DateAvailability summarises open capacity for one calendar date within the
// booking window. Dates with zero available sessions are never returned.
type DateAvailability struct {
	Date              string `json:"date"` // YYYY-MM-DD
	AvailableSessions int    `json:"availableSessions"`
	AvailableSlots    int    `json:"availableSlots"`
}

// Session is a half-day capacity window (morning/afternoon) for a department
// on a date. Derived and read-only; recomputed on every fetch.
type Session struct {
	ID          string               `json:"sessionId"`
	Label       string               `json:"label"` // e.g. "Morning", "Afternoon"
	StartTime   string               `json:"startTime"` // HH:MM
	EndTime     string               `json:"endTime,omitempty"`
	DoctorCount int                  `json:"doctorCount"`
	Doctors     []DoctorAvailability `json:"doctors,omitempty"`
}

// DoctorAvailability is the per-doctor queue snapshot for a date/session.
// Treated as stale after ~30 seconds; callers must re-fetch before any
// commit-adjacent decision.
type DoctorAvailability struct {
	DoctorID          string    `json:"doctorId"`
	DoctorName        string    `json:"doctorName"`
	PatientsAhead     int       `json:"patientsAhead"`
	AvgWaitMinutes    int       `json:"avgWaitMinutes"`
	HasAvailableSlots bool      `json:"hasAvailableSlots"`
	FetchedAt         time.Time `json:"fetchedAt,omitempty"`
}
