package models

import "time"

// Appointment statuses.
const (
	AppointmentBooked    = "booked"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Appointment is a confirmed OPD appointment record. It is created only after
// the payment gateway reports success; PaymentRef carries the idempotency key
// that ties the record to its payment.
type Appointment struct {
	ID           string          `bson:"id" json:"id"`
	PatientID    string          `bson:"patient_id" json:"patientId"`
	PatientName  string          `bson:"patient_name" json:"patientName"`
	Dependent    bool            `bson:"dependent,omitempty" json:"dependent,omitempty"`
	DepartmentID string          `bson:"department_id" json:"departmentId"`
	DoctorID     string          `bson:"doctor_id" json:"doctorId"`
	Date         string          `bson:"date" json:"date"` // YYYY-MM-DD
	SessionID    string          `bson:"session_id" json:"sessionId"`
	StartTime    string          `bson:"start_time" json:"startTime"` // HH:MM
	Kind         AppointmentKind `bson:"kind" json:"kind"`
	Symptoms     string          `bson:"symptoms,omitempty" json:"symptoms,omitempty"`
	Status       string          `bson:"status" json:"status"`

	TokenNumber     int          `bson:"token_number" json:"tokenNumber"`
	WaitEstimateMin int          `bson:"wait_estimate_min" json:"waitEstimateMin"`
	Meeting         *MeetingInfo `bson:"meeting,omitempty" json:"meeting,omitempty"`

	PaymentRef string    `bson:"payment_ref" json:"paymentRef"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}
