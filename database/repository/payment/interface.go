package paymentRepo

import (
	"context"

	"cliniq/models"
)

// PaymentRepository persists payment order records.
type PaymentRepository interface {
	CreateOrder(ctx context.Context, rec *models.PaymentRecord) error
	GetByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	// MarkSettled transitions a record from created to settled, tagging it with
	// the appointment it paid for. Returns false when the record was already
	// settled (duplicate callback).
	MarkSettled(ctx context.Context, reference, appointmentID, gatewayRef string) (bool, error)
	// FlagForReconciliation marks a settled-but-uncommitted payment for manual
	// follow-up. Money may have moved without an appointment record.
	FlagForReconciliation(ctx context.Context, reference, note string) error
}
