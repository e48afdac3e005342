package refund

import (
	"context"
	"errors"
	"time"

	"skirent/internal/domain/booking"
	"skirent/internal/domain/shared/money"
)

var (
	ErrRefundNotFound      = errors.New("refund: not found")
	ErrPendingRefundExists = errors.New("refund: a pending refund already exists for this booking")
	ErrUnknownStatus       = errors.New("refund: unknown gateway refund status")
)

type RefundID string

// Status mirrors the payment gateway's refund-object status vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusSucceeded, StatusFailed, StatusCanceled:
		return Status(s), nil
	}
	return "", ErrUnknownStatus
}

// RequestedBy records which side asked for the refund.
type RequestedBy string

const (
	RequestedByCustomer RequestedBy = "customer"
	RequestedByAdmin    RequestedBy = "admin"
)

// Refund mirrors one gateway refund object for a booking.
type Refund struct {
	ID              RefundID
	BookingID       booking.BookingID
	GatewayIntentID string
	GatewayRefundID string
	Amount          money.Money
	Percentage      int
	Status          Status
	RequestedBy     RequestedBy
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

type Repository interface {
	ByID(ctx context.Context, id RefundID) (*Refund, error)
	ByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*Refund, error)
	ByBooking(ctx context.Context, bookingID booking.BookingID) ([]*Refund, error)
	// HasPending reports whether the booking already has a refund in
	// pending state; at most one may exist at a time.
	HasPending(ctx context.Context, bookingID booking.BookingID) (bool, error)
	Save(ctx context.Context, r *Refund) error
}

type NewRefundParams struct {
	ID              RefundID
	BookingID       booking.BookingID
	GatewayIntentID string
	GatewayRefundID string
	Amount          money.Money
	Percentage      int
	Status          Status
	RequestedBy     RequestedBy
	CreatedAt       time.Time
}

func New(params NewRefundParams) *Refund {
	now := params.CreatedAt.UTC()
	return &Refund{
		ID:              params.ID,
		BookingID:       params.BookingID,
		GatewayIntentID: params.GatewayIntentID,
		GatewayRefundID: params.GatewayRefundID,
		Amount:          params.Amount,
		Percentage:      params.Percentage,
		Status:          params.Status,
		RequestedBy:     params.RequestedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ApplyStatus folds a gateway-reported status change in; false means the
// status is unchanged and the update is a re-delivery.
func (r *Refund) ApplyStatus(status Status, now time.Time) bool {
	if r.Status == status {
		return false
	}
	r.Status = status
	r.UpdatedAt = now.UTC()
	return true
}
