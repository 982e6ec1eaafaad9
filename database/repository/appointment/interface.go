package appointmentRepo

import (
	"context"
	"errors"

	"cliniq/models"
)

// ErrDuplicatePaymentRef is returned when an appointment already exists for a
// payment reference. Callers treat it as an idempotent success signal.
var ErrDuplicatePaymentRef = errors.New("appointment already exists for payment reference")

// AppointmentRepository defines persistence for appointment records.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	GetByPaymentRef(ctx context.Context, reference string) (*models.Appointment, error)
	// HasActiveBooking reports whether the subject already holds a booked
	// appointment with the doctor on the date.
	HasActiveBooking(ctx context.Context, patientID, doctorID, date string) (bool, error)
	// CountAhead returns how many booked appointments precede a new booking in
	// the doctor's queue for a date/session.
	CountAhead(ctx context.Context, doctorID, date, sessionID string) (int, error)
	// NextTokenNumber returns the next sequential token for a doctor/date/session.
	NextTokenNumber(ctx context.Context, doctorID, date, sessionID string) (int, error)
	Cancel(ctx context.Context, id string) error
}
