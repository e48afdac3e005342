package refunds

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"skirent/internal/app/policies"
	"skirent/internal/app/uow"
	domainbooking "skirent/internal/domain/booking"
	domainrefund "skirent/internal/domain/refund"
)

var (
	ErrUnitOfWorkRequired = errors.New("refunds: unit of work required")
	ErrNotRefundable      = errors.New("refunds: booking is not in a refundable state")
	ErrNoPaymentIntent    = errors.New("refunds: booking has no settled payment to refund")
	ErrNotOwner           = errors.New("refunds: booking belongs to another user")
)

// Service drives the refund lifecycle: policy decision, gateway call, and
// the mirrored state on the booking.
type Service struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Logger     *slog.Logger
}

type RequestParams struct {
	BookingID        domainbooking.BookingID
	RequestingUserID string
	AsAdmin          bool
}

type RequestResult struct {
	RefundID   string `json:"refund_id"`
	Percentage int    `json:"percentage"`
	Amount     int64  `json:"amount_cents"`
	Status     string `json:"status"`
}

// Request opens a refund for a confirmed booking. The notice policy decides
// the percentage, the gateway gets the actual money movement, and the
// booking enters pendingRefund until the gateway reports back.
func (s *Service) Request(ctx context.Context, params RequestParams) (*RequestResult, error) {
	var result *RequestResult
	err := s.inUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, params.BookingID)
		if err != nil {
			return err
		}
		if !params.AsAdmin && b.UserID != params.RequestingUserID {
			return ErrNotOwner
		}
		switch b.Status {
		case domainbooking.StatusConfirmed:
		case domainbooking.StatusPendingRefund:
			// Name the real reason instead of a generic rejection.
			return domainrefund.ErrPendingRefundExists
		default:
			return ErrNotRefundable
		}
		if b.GatewayIntentID == "" {
			return ErrNoPaymentIntent
		}
		pending, err := unit.Refunds().HasPending(ctx, b.ID)
		if err != nil {
			return err
		}
		if pending {
			return domainrefund.ErrPendingRefundExists
		}

		details, err := unit.Details().ByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		earliest, ok := domainbooking.EarliestStart(details)
		if !ok {
			return ErrNotRefundable
		}
		settings, err := unit.Settings().Get(ctx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		percentage, err := domainrefund.Percentage(now, earliest, settings.RefundCutoffHours())
		if err != nil {
			return err
		}
		amount := b.PriceTotal.Percent(percentage)

		gw, err := s.Payments.CreateRefund(ctx, b.GatewayIntentID, amount)
		if err != nil {
			return err
		}
		status, err := domainrefund.ParseStatus(gw.Status)
		if err != nil {
			// The gateway invented a status we do not know; park the
			// refund as pending and let the webhook sort it out.
			s.log().Warn("unknown gateway refund status on create", "booking_id", b.ID, "status", gw.Status)
			status = domainrefund.StatusPending
		}

		requestedBy := domainrefund.RequestedByCustomer
		if params.AsAdmin {
			requestedBy = domainrefund.RequestedByAdmin
		}
		ref := domainrefund.New(domainrefund.NewRefundParams{
			ID:              domainrefund.RefundID(uuid.NewString()),
			BookingID:       b.ID,
			GatewayIntentID: b.GatewayIntentID,
			GatewayRefundID: gw.ID,
			Amount:          amount,
			Percentage:      percentage,
			Status:          status,
			RequestedBy:     requestedBy,
			CreatedAt:       now,
		})
		if err := unit.Refunds().Save(ctx, ref); err != nil {
			return err
		}

		switch status {
		case domainrefund.StatusFailed, domainrefund.StatusCanceled:
			// Declined outright at creation: the refund record keeps
			// the outcome, the booking stays as it was.
		default:
			if err := b.MarkRefundPending(now); err != nil {
				return err
			}
			if status == domainrefund.StatusSucceeded {
				if err := b.MarkRefundSucceeded(now); err != nil {
					return err
				}
			}
			if err := unit.Bookings().Save(ctx, b); err != nil {
				return err
			}
		}

		result = &RequestResult{
			RefundID:   string(ref.ID),
			Percentage: percentage,
			Amount:     amount.Amount,
			Status:     string(status),
		}
		return nil
	})
	return result, err
}

// OnStatusChanged processes refund.updated webhooks. A refund object we
// never created is logged and acknowledged, and a re-delivered status is a
// no-op; otherwise the booking mirrors the outcome.
func (s *Service) OnStatusChanged(ctx context.Context, gatewayRefundID, rawStatus string) error {
	return s.inUnit(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		ref, err := unit.Refunds().ByGatewayRefundID(ctx, gatewayRefundID)
		if err != nil {
			if errors.Is(err, domainrefund.ErrRefundNotFound) {
				s.log().Warn("gateway refund matches no local refund", "gateway_refund_id", gatewayRefundID)
				return nil
			}
			return err
		}
		status, err := domainrefund.ParseStatus(rawStatus)
		if err != nil {
			s.log().Warn("unknown gateway refund status", "gateway_refund_id", gatewayRefundID, "status", rawStatus)
			return nil
		}

		now := time.Now().UTC()
		if !ref.ApplyStatus(status, now) {
			return nil
		}
		if err := unit.Refunds().Save(ctx, ref); err != nil {
			return err
		}

		b, err := unit.Bookings().ByID(ctx, ref.BookingID)
		if err != nil {
			return err
		}
		switch status {
		case domainrefund.StatusSucceeded:
			if err := b.MarkRefundSucceeded(now); err != nil {
				return err
			}
		case domainrefund.StatusPending:
			// A gateway retry can resurrect a failed refund.
			if err := b.MarkRefundPending(now); err != nil {
				return err
			}
		case domainrefund.StatusFailed, domainrefund.StatusCanceled:
			details, err := unit.Details().ByBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			latest, ok := domainbooking.LatestEnd(details)
			if !ok {
				latest = now
			}
			b.ResolveAfterRefundFailure(latest, now)
		default:
			return nil
		}
		return unit.Bookings().Save(ctx, b)
	})
}

func (s *Service) inUnit(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if s.UoWFactory == nil {
		return ErrUnitOfWorkRequired
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
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

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
