package refunds_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/app/handlers/refunds"
	"skirent/internal/app/policies"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainrefund "skirent/internal/domain/refund"
	"skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
	"skirent/internal/infra/storage/memory"
)

type refundGateway struct {
	createStatus string
	createErr    error
	calls        int
	lastAmount   money.Money
}

func (g *refundGateway) CreateCheckoutSession(ctx context.Context, bookingID, reference string, amount money.Money) (policies.CheckoutSession, error) {
	return policies.CheckoutSession{}, nil
}

func (g *refundGateway) GetCheckoutSession(ctx context.Context, sessionID string) (policies.CheckoutSession, error) {
	return policies.CheckoutSession{}, nil
}

func (g *refundGateway) GetPaymentIntent(ctx context.Context, intentID string) (policies.PaymentIntent, error) {
	return policies.PaymentIntent{}, nil
}

func (g *refundGateway) CreateRefund(ctx context.Context, intentID string, amount money.Money) (policies.GatewayRefund, error) {
	g.calls++
	g.lastAmount = amount
	if g.createErr != nil {
		return policies.GatewayRefund{}, g.createErr
	}
	status := g.createStatus
	if status == "" {
		status = "pending"
	}
	return policies.GatewayRefund{ID: "re_1", Status: status}, nil
}

type refundFixture struct {
	stores  *memory.Stores
	gateway *refundGateway
	service *refunds.Service
}

func newRefundFixture(t *testing.T) refundFixture {
	t.Helper()
	stores := memory.NewStores()
	gateway := &refundGateway{}
	return refundFixture{
		stores:  stores,
		gateway: gateway,
		service: &refunds.Service{
			UoWFactory: memory.Factory{Stores: stores},
			Payments:   gateway,
		},
	}
}

// seedConfirmed stores a confirmed, paid booking of 100 EUR whose single
// rental starts startIn from now.
func (f refundFixture) seedConfirmed(t *testing.T, startIn time.Duration) *domainbooking.Booking {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	b := domainbooking.NewCart("b1", "u1", "R-0001", now)
	b.SetTotal(money.EUR(10000), now)
	require.NoError(t, b.BeginPayment("cs_1", b.PriceTotal, now))
	b.ApplyGatewayStatus(domainbooking.GatewaySucceeded, "pi_1", now)
	b.ClearEvents()
	require.NoError(t, f.stores.Bookings.Save(ctx, b))

	start := now.Add(startIn)
	r, err := daterange.New(start, start.Add(72*time.Hour))
	require.NoError(t, err)
	d, err := domainbooking.NewDetail(domainbooking.NewDetailParams{
		ID:        "d1",
		BookingID: b.ID,
		UnitID:    domaincatalog.UnitID("unit1"),
		VariantID: domaincatalog.VariantID("v1"),
		Range:     r,
		Delivery:  domainbooking.DeliveryCourier,
		Price:     money.EUR(10000),
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, f.stores.Details.Claim(ctx, d, "u1"))
	return b
}

func TestRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("full refund with enough notice", func(t *testing.T) {
		f := newRefundFixture(t)
		f.seedConfirmed(t, 30*24*time.Hour)

		res, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1",
		})
		require.NoError(t, err)
		assert.Equal(t, 100, res.Percentage)
		assert.Equal(t, int64(10000), res.Amount)
		assert.Equal(t, string(domainrefund.StatusPending), res.Status)
		assert.Equal(t, money.EUR(10000), f.gateway.lastAmount)

		b, err := f.stores.Bookings.ByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusPendingRefund, b.Status)
	})

	t.Run("short notice halves the amount", func(t *testing.T) {
		f := newRefundFixture(t)
		f.seedConfirmed(t, 48*time.Hour)
		// Raise the cutoff so two days of notice is not enough.
		require.NoError(t, f.stores.Settings.Save(ctx, domaincatalog.ShopSettings{RefundHours: 500}))

		res, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1",
		})
		require.NoError(t, err)
		assert.Equal(t, 50, res.Percentage)
		assert.Equal(t, int64(5000), res.Amount)
	})

	t.Run("started rental is rejected", func(t *testing.T) {
		f := newRefundFixture(t)
		f.seedConfirmed(t, -time.Hour)

		_, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1",
		})
		assert.ErrorIs(t, err, domainrefund.ErrWindowClosed)
		assert.Zero(t, f.gateway.calls, "the gateway is never called")
	})

	t.Run("only the owner may request", func(t *testing.T) {
		f := newRefundFixture(t)
		f.seedConfirmed(t, 30*24*time.Hour)

		_, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "mallory",
		})
		assert.ErrorIs(t, err, refunds.ErrNotOwner)

		// Admins may act on any booking.
		_, err = f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "staff", AsAdmin: true,
		})
		assert.NoError(t, err)
	})

	t.Run("unconfirmed booking is not refundable", func(t *testing.T) {
		f := newRefundFixture(t)
		now := time.Now().UTC()
		b := domainbooking.NewCart("b2", "u1", "R-0002", now)
		b.ClearEvents()
		require.NoError(t, f.stores.Bookings.Save(ctx, b))

		_, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b2", RequestingUserID: "u1",
		})
		assert.ErrorIs(t, err, refunds.ErrNotRefundable)
	})

	t.Run("pending refund blocks a second request", func(t *testing.T) {
		f := newRefundFixture(t)
		f.seedConfirmed(t, 30*24*time.Hour)

		_, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1",
		})
		require.NoError(t, err)

		_, err = f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1", AsAdmin: true,
		})
		assert.ErrorIs(t, err, domainrefund.ErrPendingRefundExists)
	})

	t.Run("refund declined at creation leaves the booking confirmed", func(t *testing.T) {
		for _, declined := range []string{"failed", "canceled"} {
			t.Run(declined, func(t *testing.T) {
				f := newRefundFixture(t)
				f.seedConfirmed(t, 30*24*time.Hour)
				f.gateway.createStatus = declined

				res, err := f.service.Request(ctx, refunds.RequestParams{
					BookingID: "b1", RequestingUserID: "u1",
				})
				require.NoError(t, err)
				assert.Equal(t, declined, res.Status)

				// The refund record keeps the outcome, the booking
				// stays untouched.
				ref, err := f.stores.Refunds.ByGatewayRefundID(ctx, "re_1")
				require.NoError(t, err)
				assert.Equal(t, domainrefund.Status(declined), ref.Status)

				b, err := f.stores.Bookings.ByID(ctx, "b1")
				require.NoError(t, err)
				assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
			})
		}
	})

	t.Run("immediately settled refund completes the booking", func(t *testing.T) {
		f := newRefundFixture(t)
		f.seedConfirmed(t, 30*24*time.Hour)
		f.gateway.createStatus = "succeeded"

		res, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1",
		})
		require.NoError(t, err)
		assert.Equal(t, string(domainrefund.StatusSucceeded), res.Status)

		b, err := f.stores.Bookings.ByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusSucceededRefund, b.Status)
	})
}

func TestOnStatusChanged(t *testing.T) {
	ctx := context.Background()

	open := func(t *testing.T) refundFixture {
		t.Helper()
		f := newRefundFixture(t)
		f.seedConfirmed(t, 30*24*time.Hour)
		_, err := f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1",
		})
		require.NoError(t, err)
		return f
	}

	t.Run("succeeded settles booking and refund", func(t *testing.T) {
		f := open(t)
		require.NoError(t, f.service.OnStatusChanged(ctx, "re_1", "succeeded"))

		ref, err := f.stores.Refunds.ByGatewayRefundID(ctx, "re_1")
		require.NoError(t, err)
		assert.Equal(t, domainrefund.StatusSucceeded, ref.Status)

		b, err := f.stores.Bookings.ByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusSucceededRefund, b.Status)

		t.Run("re-delivery is a no-op", func(t *testing.T) {
			require.NoError(t, f.service.OnStatusChanged(ctx, "re_1", "succeeded"))
		})
	})

	t.Run("failed refund restores the lifecycle state", func(t *testing.T) {
		f := open(t)
		require.NoError(t, f.service.OnStatusChanged(ctx, "re_1", "failed"))

		// The rental still lies ahead, so the booking is confirmed again.
		b, err := f.stores.Bookings.ByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusConfirmed, b.Status)

		// A fresh refund request is possible afterwards.
		_, err = f.service.Request(ctx, refunds.RequestParams{
			BookingID: "b1", RequestingUserID: "u1",
		})
		assert.NoError(t, err)
	})

	t.Run("gateway retry moves the booking back to pendingRefund", func(t *testing.T) {
		f := open(t)
		require.NoError(t, f.service.OnStatusChanged(ctx, "re_1", "failed"))
		require.NoError(t, f.service.OnStatusChanged(ctx, "re_1", "pending"))

		ref, err := f.stores.Refunds.ByGatewayRefundID(ctx, "re_1")
		require.NoError(t, err)
		assert.Equal(t, domainrefund.StatusPending, ref.Status)

		b, err := f.stores.Bookings.ByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusPendingRefund, b.Status)
	})

	t.Run("unknown refund object is acknowledged", func(t *testing.T) {
		f := newRefundFixture(t)
		assert.NoError(t, f.service.OnStatusChanged(ctx, "re_unknown", "succeeded"))
	})

	t.Run("unknown status is acknowledged", func(t *testing.T) {
		f := open(t)
		assert.NoError(t, f.service.OnStatusChanged(ctx, "re_1", "somethingelse"))

		b, err := f.stores.Bookings.ByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusPendingRefund, b.Status)
	})
}
