package booking

import (
	"context"
	"errors"
	"time"

	"skirent/internal/domain/shared/events"
	"skirent/internal/domain/shared/money"
)

var (
	ErrBookingNotFound  = errors.New("booking: not found")
	ErrConcurrentUpdate = errors.New("booking: concurrent update")
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrNotCart          = errors.New("booking: booking is no longer a cart")
	ErrEmptyCart        = errors.New("booking: cart has no line items")
)

type BookingID string

type Status string

const (
	StatusCart            Status = "cart"
	StatusInPayment       Status = "inPayment"
	StatusConfirmed       Status = "confirmed"
	StatusCancelled       Status = "cancelled"
	StatusCompleted       Status = "completed"
	StatusPendingRefund   Status = "pendingRefund"
	StatusSucceededRefund Status = "succeededRefund"
)

// GatewayStatus is the payment-intent status vocabulary of the payment
// processor, as delivered by webhooks and session queries.
type GatewayStatus string

const (
	GatewaySucceeded  GatewayStatus = "succeeded"
	GatewayProcessing GatewayStatus = "processing"
	GatewayCanceled   GatewayStatus = "canceled"
)

// Booking is the reservation container owned by one user. While Cart is true
// it is the user's single draft cart; checkout moves it through inPayment
// and the payment gateway decides the rest.
type Booking struct {
	ID               BookingID
	UserID           string
	Cart             bool
	Status           Status
	PriceTotal       money.Money
	GatewaySessionID string
	GatewayIntentID  string
	Reference        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByGatewayIntentID(ctx context.Context, intentID string) (*Booking, error)
	// ActiveCartByUser returns the user's single cart booking, or
	// ErrBookingNotFound when the user has none.
	ActiveCartByUser(ctx context.Context, userID string) (*Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*Booking, error)
	// ListInPaymentBefore returns bookings stuck in inPayment whose last
	// update precedes the cutoff; used by the expiry sweep.
	ListInPaymentBefore(ctx context.Context, cutoff time.Time) ([]*Booking, error)
	Save(ctx context.Context, b *Booking) error
}

// NewCart starts an empty draft booking for a user.
func NewCart(id BookingID, userID, reference string, now time.Time) *Booking {
	t := now.UTC()
	b := &Booking{
		ID:         id,
		UserID:     userID,
		Cart:       true,
		Status:     StatusCart,
		PriceTotal: money.EUR(0),
		Reference:  reference,
		CreatedAt:  t,
		UpdatedAt:  t,
	}
	b.Record(CartOpened{BookingID: b.ID, UserID: userID, At: t})
	return b
}

// BeginPayment attaches the gateway checkout session and moves the cart into
// payment. The booking stays a cart until the gateway confirms: an abandoned
// payment leaves the draft intact.
func (b *Booking) BeginPayment(sessionID string, total money.Money, now time.Time) error {
	if !b.Cart {
		return ErrNotCart
	}
	if b.Status != StatusCart && b.Status != StatusInPayment {
		return ErrInvalidState
	}
	if total.IsZero() {
		return ErrEmptyCart
	}
	b.GatewaySessionID = sessionID
	b.Status = StatusInPayment
	b.UpdatedAt = now.UTC()
	b.Record(PaymentStarted{BookingID: b.ID, SessionID: sessionID, Total: total, At: b.UpdatedAt})
	return nil
}

// ApplyGatewayStatus folds a payment-intent status into the booking. Both the
// webhook path and the synchronous reconciliation path call it, so it owns
// all no-op detection: confirmedEdge is true only for the transition into
// confirmed, never for a re-delivery.
func (b *Booking) ApplyGatewayStatus(status GatewayStatus, intentID string, now time.Time) (changed, confirmedEdge bool) {
	t := now.UTC()
	switch status {
	case GatewaySucceeded:
		if b.Status == StatusConfirmed && !b.Cart {
			// Re-delivered event or a lost race with the other
			// reconciliation path.
			return false, false
		}
		b.Cart = false
		b.Status = StatusConfirmed
		if intentID != "" {
			b.GatewayIntentID = intentID
		}
		b.UpdatedAt = t
		b.Record(BookingConfirmed{BookingID: b.ID, UserID: b.UserID, Total: b.PriceTotal, At: t})
		return true, true
	case GatewayCanceled:
		if b.Status == StatusCancelled {
			return false, false
		}
		b.Status = StatusCancelled
		b.UpdatedAt = t
		b.Record(BookingCancelled{BookingID: b.ID, Reason: "payment canceled", At: t})
		return true, false
	default:
		// processing and every requires_* state keep the booking parked
		// in payment.
		if b.Status != StatusCart {
			return false, false
		}
		b.Status = StatusInPayment
		b.UpdatedAt = t
		return true, false
	}
}

// Cancel is used by the expiry sweep for bookings abandoned in payment.
func (b *Booking) Cancel(reason string, now time.Time) error {
	switch b.Status {
	case StatusCart, StatusInPayment:
	default:
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// MarkRefundPending mirrors a gateway refund in pending state.
func (b *Booking) MarkRefundPending(now time.Time) error {
	if b.Status != StatusConfirmed && b.Status != StatusCompleted {
		return ErrInvalidState
	}
	b.Status = StatusPendingRefund
	b.UpdatedAt = now.UTC()
	return nil
}

// MarkRefundSucceeded mirrors a gateway refund that settled.
func (b *Booking) MarkRefundSucceeded(now time.Time) error {
	switch b.Status {
	case StatusConfirmed, StatusCompleted, StatusPendingRefund:
	default:
		return ErrInvalidState
	}
	b.Status = StatusSucceededRefund
	b.UpdatedAt = now.UTC()
	return nil
}

// ResolveAfterRefundFailure re-derives the natural lifecycle state once a
// refund attempt fell through: the rental either still lies ahead
// (confirmed) or is already over (completed).
func (b *Booking) ResolveAfterRefundFailure(latestEnd, now time.Time) {
	if latestEnd.After(now) {
		b.Status = StatusConfirmed
	} else {
		b.Status = StatusCompleted
	}
	b.UpdatedAt = now.UTC()
}

// SetTotal persists the recomputed sum of the line item prices.
func (b *Booking) SetTotal(total money.Money, now time.Time) {
	b.PriceTotal = total
	b.UpdatedAt = now.UTC()
}

// Active reports whether the booking blocks units for the given requester:
// cancelled bookings never do, foreign carts are drafts and do not either,
// but the requester's own cart does.
func (b *Booking) Active(requestingUserID string) bool {
	if b.Status == StatusCancelled {
		return false
	}
	return !b.Cart || b.UserID == requestingUserID
}
