package models

import "time"

// Payment record statuses.
const (
	PaymentOrderCreated   = "created"
	PaymentOrderSettled   = "settled"
	PaymentOrderReconcile = "needs_reconciliation"
)

// PaymentOrder is the gateway order handle returned when a payment session is
// initiated. ClientSecret is what the paying client hands to the gateway SDK.
type PaymentOrder struct {
	Reference    string  `json:"reference"`
	GatewayID    string  `json:"gatewayId"`
	ClientSecret string  `json:"clientSecret,omitempty"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// PaymentRecord is the persisted side of a payment order. Reference doubles as
// the idempotency key for appointment creation: repeated success callbacks for
// the same reference settle at most once.
type PaymentRecord struct {
	Reference     string    `bson:"reference" json:"reference"`
	DraftID       string    `bson:"draft_id" json:"draftId"`
	PatientID     string    `bson:"patient_id" json:"patientId"`
	AppointmentID string    `bson:"appointment_id,omitempty" json:"appointmentId,omitempty"`
	Amount        float64   `bson:"amount" json:"amount"`
	Currency      string    `bson:"currency" json:"currency"`
	Method        string    `bson:"method,omitempty" json:"method,omitempty"`
	GatewayRef    string    `bson:"gateway_ref,omitempty" json:"gatewayRef,omitempty"`
	Status        string    `bson:"status" json:"status"`
	FailureNote   string    `bson:"failure_note,omitempty" json:"failureNote,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updatedAt"`
}
