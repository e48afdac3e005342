package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skirent/internal/app/outbox"
	"skirent/internal/app/policies"
	"skirent/internal/app/uow"
	domainbooking "skirent/internal/domain/booking"
	domainuser "skirent/internal/domain/user"
)

var ErrUnitOfWorkRequired = errors.New("payments: unit of work required")

// Reconciler folds gateway payment outcomes into bookings. Two paths feed
// it, webhooks and the synchronous post-redirect check, and both may report
// the same outcome; the booking aggregate decides which delivery is the
// first one, so confirmation side effects run exactly once.
type Reconciler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Logger     *slog.Logger
}

// HandlePaymentSucceeded processes a payment_intent.succeeded webhook. An
// intent that maps to no booking is logged and acknowledged: failing the
// webhook would only make the gateway retry an event we cannot use.
func (r *Reconciler) HandlePaymentSucceeded(ctx context.Context, intentID string) error {
	return r.inUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByGatewayIntentID(ctx, intentID)
		if err != nil {
			if errors.Is(err, domainbooking.ErrBookingNotFound) {
				r.log().Warn("payment intent matches no booking", "intent_id", intentID)
				return nil
			}
			return err
		}
		return r.apply(ctx, unit, b, domainbooking.GatewaySucceeded, intentID)
	})
}

// HandlePaymentStatus processes the remaining payment_intent.* webhooks.
func (r *Reconciler) HandlePaymentStatus(ctx context.Context, intentID string, status string) error {
	return r.inUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByGatewayIntentID(ctx, intentID)
		if err != nil {
			if errors.Is(err, domainbooking.ErrBookingNotFound) {
				r.log().Warn("payment intent matches no booking", "intent_id", intentID, "status", status)
				return nil
			}
			return err
		}
		return r.apply(ctx, unit, b, domainbooking.GatewayStatus(status), intentID)
	})
}

// CheckAndConfirm is the synchronous reconciliation path, called when the
// customer lands back from the gateway. If the webhook already confirmed
// the booking it returns immediately; otherwise it asks the gateway for the
// session outcome and folds that in.
func (r *Reconciler) CheckAndConfirm(ctx context.Context, bookingID domainbooking.BookingID, requestingUserID string) (*domainbooking.Booking, error) {
	var result *domainbooking.Booking
	err := r.inUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != requestingUserID {
			return domainbooking.ErrBookingNotFound
		}
		result = b
		if b.Status == domainbooking.StatusConfirmed {
			return nil
		}
		if b.GatewaySessionID == "" {
			return nil
		}
		session, err := r.Payments.GetCheckoutSession(ctx, b.GatewaySessionID)
		if err != nil {
			return err
		}
		intentID := session.PaymentIntentID
		status := domainbooking.GatewayStatus(session.Status)
		if intentID != "" && session.Status == "" {
			intent, err := r.Payments.GetPaymentIntent(ctx, intentID)
			if err != nil {
				return err
			}
			status = domainbooking.GatewayStatus(intent.Status)
		}
		return r.apply(ctx, unit, b, status, intentID)
	})
	return result, err
}

// apply funnels one gateway status through the booking aggregate and runs
// the confirmation side effects on the first transition into confirmed.
func (r *Reconciler) apply(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, status domainbooking.GatewayStatus, intentID string) error {
	changed, confirmedEdge := b.ApplyGatewayStatus(status, intentID, time.Now().UTC())
	if !changed {
		return nil
	}
	if confirmedEdge {
		if err := r.cascadeDetails(ctx, unit, b); err != nil {
			return err
		}
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, r.Outbox, nil, pending); err != nil {
		return err
	}
	if confirmedEdge {
		r.notifyConfirmed(ctx, unit, b)
	}
	return nil
}

// cascadeDetails moves every idle line item into the pickup queue.
func (r *Reconciler) cascadeDetails(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	details, err := unit.Details().ByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, d := range details {
		if d.MarkToPickup(now) {
			if err := unit.Details().Save(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// notifyConfirmed emails the customer and every admin. Delivery failures
// are logged and swallowed: the booking is confirmed regardless.
func (r *Reconciler) notifyConfirmed(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) {
	if r.Notifier == nil {
		return
	}
	subject := fmt.Sprintf("Booking %s confirmed", b.Reference)
	customer, err := unit.Users().ByID(ctx, domainuser.ID(b.UserID))
	if err != nil {
		r.log().Error("confirmation mail skipped, customer lookup failed", "booking_id", b.ID, "error", err)
	} else if err := r.Notifier.Send(ctx, customer.Email, subject, confirmationBody(b)); err != nil {
		r.log().Error("confirmation mail to customer failed", "booking_id", b.ID, "error", err)
	}
	admins, err := unit.Users().ListAdmins(ctx)
	if err != nil {
		r.log().Error("admin notification skipped, admin lookup failed", "booking_id", b.ID, "error", err)
		return
	}
	for _, admin := range admins {
		if err := r.Notifier.Send(ctx, admin.Email, subject, adminConfirmationBody(b)); err != nil {
			r.log().Error("confirmation mail to admin failed", "booking_id", b.ID, "admin", admin.Email, "error", err)
		}
	}
}

func confirmationBody(b *domainbooking.Booking) string {
	return fmt.Sprintf(
		"<p>Your booking <strong>%s</strong> is confirmed.</p><p>Total: %s</p>",
		b.Reference, b.PriceTotal.String(),
	)
}

func adminConfirmationBody(b *domainbooking.Booking) string {
	return fmt.Sprintf(
		"<p>Booking <strong>%s</strong> was paid and confirmed.</p><p>Total: %s</p>",
		b.Reference, b.PriceTotal.String(),
	)
}

func (r *Reconciler) inUnit(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if r.UoWFactory == nil {
		return ErrUnitOfWorkRequired
	}
	unit, err := r.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	ctx = uow.ContextWithUnitOfWork(ctx, unit)
	if err := fn(ctx, unit); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}

func (r *Reconciler) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
