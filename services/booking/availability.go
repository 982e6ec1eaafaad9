package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	scheduleRepo "cliniq/database/repository/schedule"
	"cliniq/models"
	"cliniq/utils"
)

// The booking window is a fixed rolling 7 days from today.
const bookingWindowDays = 7

// fetchTimeout bounds every availability query. On expiry the result is
// treated as unavailable, never as success.
const fetchTimeout = 5 * time.Second

// AvailabilityResolver answers read-only capacity queries. Results are
// snapshots valid only for the call that produced them; callers re-invoke
// immediately before any transition that depends on capacity.
type AvailabilityResolver struct {
	Schedule scheduleRepo.ScheduleRepository
}

// ListAvailableDates computes which dates in the rolling window still have
// open capacity for the department. Dates with zero available sessions are
// excluded outright, and a failed fetch for one date is fail-closed: the date
// is skipped, the batch continues.
func (ar *AvailabilityResolver) ListAvailableDates(ctx context.Context, departmentID string) ([]models.DateAvailability, error) {
	logger := utils.GetLogger()
	now := time.Now()

	var dates []models.DateAvailability
	for offset := 0; offset < bookingWindowDays; offset++ {
		dateStr := now.AddDate(0, 0, offset).Format("2006-01-02")

		sessions, err := ar.listSessionsBounded(ctx, departmentID, dateStr)
		if err != nil {
			logger.Warn("availability: date fetch failed, treating as unavailable",
				zap.String("departmentID", departmentID), zap.String("date", dateStr), zap.Error(err))
			continue
		}

		availableSessions := 0
		availableSlots := 0
		for _, sess := range sessions {
			sessionSlots := 0
			for _, doc := range sess.Doctors {
				if doc.HasAvailableSlots {
					sessionSlots++
				}
			}
			if sessionSlots > 0 {
				availableSessions++
				availableSlots += sessionSlots
			}
		}
		if availableSessions == 0 {
			continue
		}

		dates = append(dates, models.DateAvailability{
			Date:              dateStr,
			AvailableSessions: availableSessions,
			AvailableSlots:    availableSlots,
		})
	}
	return dates, nil
}

// ListSessions returns the department's sessions for a date, recomputed on
// every call.
func (ar *AvailabilityResolver) ListSessions(ctx context.Context, departmentID, date string) ([]models.Session, error) {
	sessions, err := ar.listSessionsBounded(ctx, departmentID, date)
	if err != nil {
		return nil, classifyFetchError("failed to list sessions", err)
	}
	return sessions, nil
}

// ListAvailableDoctors returns per-doctor queue metrics for the session
// starting at startTime.
func (ar *AvailabilityResolver) ListAvailableDoctors(ctx context.Context, departmentID, date, startTime string) ([]models.DoctorAvailability, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	doctors, err := ar.Schedule.ListAvailableDoctors(ctx, departmentID, date, startTime)
	if err != nil {
		return nil, classifyFetchError("failed to list doctors", err)
	}
	return doctors, nil
}

func (ar *AvailabilityResolver) listSessionsBounded(ctx context.Context, departmentID, date string) ([]models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	return ar.Schedule.ListSessions(ctx, departmentID, date)
}

func classifyFetchError(msg string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return wrapError(KindTimeout, msg, err)
	}
	return wrapError(KindServer, msg, err)
}
