package checkout

import (
	"context"
	"errors"
	"time"

	"skirent/internal/app/commands"
	"skirent/internal/app/outbox"
	"skirent/internal/app/policies"
	"skirent/internal/app/uow"
	domainbooking "skirent/internal/domain/booking"
)

const beginCheckoutKey = "checkout.begin"

type BeginCheckoutCommand struct {
	UserID string
}

func (c BeginCheckoutCommand) Key() string { return beginCheckoutKey }

type BeginCheckoutResult struct {
	BookingID  string `json:"booking_id"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
	Total      int64  `json:"total_cents"`
}

var ErrUnitOfWorkRequired = errors.New("checkout: unit of work required")

// BeginCheckoutHandler opens a gateway checkout session for the user's cart
// and parks the booking in payment. The cart flag stays set so an abandoned
// session leaves the draft editable.
type BeginCheckoutHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Outbox     outbox.Outbox
}

func (h *BeginCheckoutHandler) Handle(ctx context.Context, cmd BeginCheckoutCommand) (*BeginCheckoutResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	cart, err := unit.Bookings().ActiveCartByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	details, err := unit.Details().ByBooking(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, domainbooking.ErrEmptyCart
	}

	now := time.Now().UTC()
	total := domainbooking.TotalOf(details)
	cart.SetTotal(total, now)

	session, err := h.Payments.CreateCheckoutSession(ctx, string(cart.ID), cart.Reference, total)
	if err != nil {
		return nil, err
	}
	if err := cart.BeginPayment(session.ID, total, now); err != nil {
		return nil, err
	}
	if session.PaymentIntentID != "" {
		cart.GatewayIntentID = session.PaymentIntentID
	}
	if err := unit.Bookings().Save(ctx, cart); err != nil {
		return nil, err
	}

	pending := cart.PendingEvents()
	cart.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, nil, pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &BeginCheckoutResult{
		BookingID:  string(cart.ID),
		SessionID:  session.ID,
		SessionURL: session.URL,
		Total:      total.Amount,
	}, nil
}

var _ commands.Handler[BeginCheckoutCommand, *BeginCheckoutResult] = (*BeginCheckoutHandler)(nil)
