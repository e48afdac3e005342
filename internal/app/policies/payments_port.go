package policies

import (
	"context"

	"skirent/internal/domain/shared/money"
)

// CheckoutSession is the gateway-hosted payment page for one booking.
type CheckoutSession struct {
	ID              string
	PaymentIntentID string
	URL             string
	Status          string
}

// PaymentIntent is the gateway's view of a single payment attempt.
type PaymentIntent struct {
	ID     string
	Status string
}

// GatewayRefund mirrors the refund object the gateway returns.
type GatewayRefund struct {
	ID     string
	Status string
}

// PaymentsPort is the outbound contract to the external payment processor.
// Webhook delivery runs the other way and is handled at the HTTP layer.
type PaymentsPort interface {
	CreateCheckoutSession(ctx context.Context, bookingID, reference string, amount money.Money) (CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, intentID string) (PaymentIntent, error)
	CreateRefund(ctx context.Context, intentID string, amount money.Money) (GatewayRefund, error)
}
