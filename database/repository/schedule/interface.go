package scheduleRepo

import (
	"context"

	"cliniq/models"
)

// ScheduleRepository answers capacity questions for department schedules.
// Everything here is read-only from the booking engine's point of view;
// results are snapshots and must be re-fetched before commit-adjacent
// decisions.
type ScheduleRepository interface {
	GetDepartment(ctx context.Context, departmentID string) (*models.Department, error)
	// ListSessions returns the half-day sessions for a department on a date,
	// each with its current doctor queue metrics embedded.
	ListSessions(ctx context.Context, departmentID, date string) ([]models.Session, error)
	// ListAvailableDoctors returns per-doctor availability for the session
	// starting at startTime.
	ListAvailableDoctors(ctx context.Context, departmentID, date, startTime string) ([]models.DoctorAvailability, error)
	// SlotsRemaining returns how many bookable slots the doctor still has in
	// the session. Zero means the capacity re-check at commit must fail.
	SlotsRemaining(ctx context.Context, doctorID, date, sessionID string) (int, error)
	GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error)
}
