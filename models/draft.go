package models

import "time"

// Step identifies a stage in the booking wizard. Steps are strictly ordered;
// forward transitions move to the next step only, backward transitions are
// allowed from any step before Paying.
type Step int

const (
	StepSelectSubject Step = iota
	StepSelectAppointmentType
	StepSelectDepartment
	StepSelectDate
	StepSelectSession
	StepSelectDoctor
	StepConfirm
	StepPaying
	StepCompleted
)

var stepNames = map[Step]string{
	StepSelectSubject:         "select_subject",
	StepSelectAppointmentType: "select_appointment_type",
	StepSelectDepartment:      "select_department",
	StepSelectDate:            "select_date",
	StepSelectSession:         "select_session",
	StepSelectDoctor:          "select_doctor",
	StepConfirm:               "confirm",
	StepPaying:                "paying",
	StepCompleted:             "completed",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// AppointmentKind distinguishes in-person visits from video consultations.
type AppointmentKind string

const (
	KindInPerson AppointmentKind = "in_person"
	KindVideo    AppointmentKind = "video"
)

// PaymentState tracks the draft's payment lifecycle.
type PaymentState string

const (
	PaymentUnset   PaymentState = ""
	PaymentPending PaymentState = "pending"
	PaymentPaid    PaymentState = "paid"
)

// Subject is the person the appointment is for: the patient themselves or a
// named dependent booked under the patient's account.
type Subject struct {
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
	Dependent bool   `json:"dependent,omitempty"`
}

// MeetingInfo carries video consultation credentials. Populated only after a
// successful payment commit for video appointments.
type MeetingInfo struct {
	RoomID   string `json:"roomId"`
	Passcode string `json:"passcode"`
	JoinURL  string `json:"joinUrl,omitempty"`
}

// BookingDraft is the working state of an in-progress booking wizard. It is
// persisted through a DraftStore between steps so a session survives a reload,
// and cleared on completion or abandonment.
type BookingDraft struct {
	DraftID      string          `json:"draftId"`
	Subject      Subject         `json:"subject"`
	Kind         AppointmentKind `json:"kind,omitempty"`
	DepartmentID string          `json:"departmentId,omitempty"`
	DoctorID     string          `json:"doctorId,omitempty"`
	Date         string          `json:"date,omitempty"` // YYYY-MM-DD
	SessionID    string          `json:"sessionId,omitempty"`
	SessionStart string          `json:"sessionStart,omitempty"` // HH:MM
	Symptoms     string          `json:"symptoms,omitempty"`

	PaymentState PaymentState `json:"paymentState,omitempty"`
	PaymentRef   string       `json:"paymentRef,omitempty"`

	// Populated only after a successful commit.
	TokenNumber     int          `json:"tokenNumber,omitempty"`
	WaitEstimateMin int          `json:"waitEstimateMin,omitempty"`
	Meeting         *MeetingInfo `json:"meeting,omitempty"`

	// RescheduleOf holds the prior appointment ID when the wizard was entered
	// through the reschedule path.
	RescheduleOf string `json:"rescheduleOf,omitempty"`

	Step      Step      `json:"step"`
	UpdatedAt time.Time `json:"updatedAt"`
}
