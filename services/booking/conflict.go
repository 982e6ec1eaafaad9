package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentRepo "cliniq/database/repository/appointment"
)

// ConflictResult is the answer to a duplicate-booking check.
type ConflictResult struct {
	Conflict bool   `json:"conflict"`
	Message  string `json:"message,omitempty"`
}

// ConflictGuard prevents a subject from holding two simultaneous bookings
// with the same doctor on the same date. Checks run after doctor selection
// and before the wizard advances to payment; any failure is fail-closed.
type ConflictGuard struct {
	Appointments appointmentRepo.AppointmentRepository
	Timeout      time.Duration
}

func (cg *ConflictGuard) timeout() time.Duration {
	if cg.Timeout > 0 {
		return cg.Timeout
	}
	return fetchTimeout
}

// CheckConflict reports whether the subject already has a booked appointment
// with the doctor on the date. Transport failures come back as classified
// errors (timeout vs server) so the caller can word the message, and never
// let the booking proceed.
func (cg *ConflictGuard) CheckConflict(ctx context.Context, subjectID, doctorID, date string) (ConflictResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cg.timeout())
	defer cancel()

	exists, err := cg.Appointments.HasActiveBooking(ctx, subjectID, doctorID, date)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ConflictResult{}, wrapError(KindTimeout, "conflict check timed out", err)
		}
		return ConflictResult{}, wrapError(KindServer, "conflict check failed", err)
	}

	if exists {
		return ConflictResult{
			Conflict: true,
			Message:  fmt.Sprintf("an appointment with this doctor on %s already exists", date),
		}, nil
	}
	return ConflictResult{}, nil
}
