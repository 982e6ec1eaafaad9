package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"

	"cliniq/models"
	"cliniq/utils"
)

// StripeGateway implements Gateway over Stripe PaymentIntents.
type StripeGateway struct{}

// NewStripeGateway returns the production gateway. stripe.Key must already be
// set from config.
func NewStripeGateway() *StripeGateway {
	return &StripeGateway{}
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*models.PaymentOrder, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid payment amount %.2f", req.Amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.AddMetadata("reference", req.Reference)
	params.AddMetadata("patientId", req.PatientID)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	// Stripe dedupes on the idempotency key, so a retried order creation for
	// the same reference returns the original intent.
	params.IdempotencyKey = stripe.String(req.Reference)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	utils.GetLogger().Info("payment order created",
		zap.String("reference", req.Reference), zap.String("intent", pi.ID))

	return &models.PaymentOrder{
		Reference:    req.Reference,
		GatewayID:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       req.Amount,
		Currency:     req.Currency,
	}, nil
}
