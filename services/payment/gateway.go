package payment

import (
	"context"

	"cliniq/models"
)

// OrderRequest initiates a payment session with the external gateway. The
// Reference is the caller-supplied idempotency receipt; re-submitting the
// same reference must not create a second gateway order.
type OrderRequest struct {
	Reference   string
	PatientID   string
	Amount      float64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Gateway abstracts the external payment provider. Gateway protocol
// internals are out of scope; the coordinator only needs an order handle and
// the success callback carrying its reference.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*models.PaymentOrder, error)
}
