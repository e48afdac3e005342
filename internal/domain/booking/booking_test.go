package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/booking"
	"skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
)

var now = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func cartInPayment(t *testing.T) *booking.Booking {
	t.Helper()
	b := booking.NewCart("b1", "u1", "R-0001", now)
	b.SetTotal(money.EUR(9000), now)
	require.NoError(t, b.BeginPayment("cs_1", b.PriceTotal, now))
	return b
}

func TestBeginPayment(t *testing.T) {
	t.Run("rejects empty cart", func(t *testing.T) {
		b := booking.NewCart("b1", "u1", "R-0001", now)
		err := b.BeginPayment("cs_1", money.EUR(0), now)
		assert.ErrorIs(t, err, booking.ErrEmptyCart)
	})

	t.Run("is repeatable while still in payment", func(t *testing.T) {
		b := cartInPayment(t)
		require.NoError(t, b.BeginPayment("cs_2", b.PriceTotal, now))
		assert.Equal(t, "cs_2", b.GatewaySessionID)
		assert.Equal(t, booking.StatusInPayment, b.Status)
	})

	t.Run("rejects checked-out bookings", func(t *testing.T) {
		b := cartInPayment(t)
		b.ApplyGatewayStatus(booking.GatewaySucceeded, "pi_1", now)
		err := b.BeginPayment("cs_2", b.PriceTotal, now)
		assert.ErrorIs(t, err, booking.ErrNotCart)
	})
}

func TestApplyGatewayStatus(t *testing.T) {
	t.Run("succeeded confirms exactly once", func(t *testing.T) {
		b := cartInPayment(t)

		changed, edge := b.ApplyGatewayStatus(booking.GatewaySucceeded, "pi_1", now)
		assert.True(t, changed)
		assert.True(t, edge)
		assert.Equal(t, booking.StatusConfirmed, b.Status)
		assert.False(t, b.Cart)
		assert.Equal(t, "pi_1", b.GatewayIntentID)

		// Webhook re-delivery must not fire the confirmation edge again.
		changed, edge = b.ApplyGatewayStatus(booking.GatewaySucceeded, "pi_1", now.Add(time.Minute))
		assert.False(t, changed)
		assert.False(t, edge)
	})

	t.Run("succeeded keeps an existing intent id on empty input", func(t *testing.T) {
		b := cartInPayment(t)
		b.GatewayIntentID = "pi_1"
		b.ApplyGatewayStatus(booking.GatewaySucceeded, "", now)
		assert.Equal(t, "pi_1", b.GatewayIntentID)
	})

	t.Run("canceled cancels once", func(t *testing.T) {
		b := cartInPayment(t)

		changed, edge := b.ApplyGatewayStatus(booking.GatewayCanceled, "pi_1", now)
		assert.True(t, changed)
		assert.False(t, edge)
		assert.Equal(t, booking.StatusCancelled, b.Status)

		changed, _ = b.ApplyGatewayStatus(booking.GatewayCanceled, "pi_1", now)
		assert.False(t, changed)
	})

	t.Run("processing parks a cart in payment", func(t *testing.T) {
		b := booking.NewCart("b1", "u1", "R-0001", now)
		changed, edge := b.ApplyGatewayStatus(booking.GatewayProcessing, "pi_1", now)
		assert.True(t, changed)
		assert.False(t, edge)
		assert.Equal(t, booking.StatusInPayment, b.Status)
		assert.True(t, b.Cart)

		// Already in payment: nothing to do.
		changed, _ = b.ApplyGatewayStatus(booking.GatewayProcessing, "pi_1", now)
		assert.False(t, changed)
	})
}

func TestCancel(t *testing.T) {
	b := cartInPayment(t)
	require.NoError(t, b.Cancel("payment expired", now))
	assert.Equal(t, booking.StatusCancelled, b.Status)

	assert.ErrorIs(t, b.Cancel("again", now), booking.ErrInvalidState)
}

func TestRefundTransitions(t *testing.T) {
	confirmed := func(t *testing.T) *booking.Booking {
		b := cartInPayment(t)
		b.ApplyGatewayStatus(booking.GatewaySucceeded, "pi_1", now)
		return b
	}

	t.Run("pending then succeeded", func(t *testing.T) {
		b := confirmed(t)
		require.NoError(t, b.MarkRefundPending(now))
		assert.Equal(t, booking.StatusPendingRefund, b.Status)
		require.NoError(t, b.MarkRefundSucceeded(now))
		assert.Equal(t, booking.StatusSucceededRefund, b.Status)
	})

	t.Run("pending requires a confirmed booking", func(t *testing.T) {
		b := cartInPayment(t)
		assert.ErrorIs(t, b.MarkRefundPending(now), booking.ErrInvalidState)
	})

	t.Run("failure re-derives the lifecycle state", func(t *testing.T) {
		b := confirmed(t)
		require.NoError(t, b.MarkRefundPending(now))
		b.ResolveAfterRefundFailure(now.Add(48*time.Hour), now)
		assert.Equal(t, booking.StatusConfirmed, b.Status)

		require.NoError(t, b.MarkRefundPending(now))
		b.ResolveAfterRefundFailure(now.Add(-time.Hour), now)
		assert.Equal(t, booking.StatusCompleted, b.Status)
	})
}

func TestActive(t *testing.T) {
	b := booking.NewCart("b1", "u1", "R-0001", now)

	assert.True(t, b.Active("u1"), "own cart blocks the user's units")
	assert.False(t, b.Active("u2"), "foreign carts are drafts")

	b.SetTotal(money.EUR(9000), now)
	require.NoError(t, b.BeginPayment("cs_1", b.PriceTotal, now))
	b.ApplyGatewayStatus(booking.GatewaySucceeded, "pi_1", now)
	assert.True(t, b.Active("u2"), "checked-out bookings block everyone")

	abandoned := booking.NewCart("b2", "u1", "R-0002", now)
	abandoned.SetTotal(money.EUR(9000), now)
	require.NoError(t, abandoned.BeginPayment("cs_2", abandoned.PriceTotal, now))
	require.NoError(t, abandoned.Cancel("expired", now))
	assert.False(t, abandoned.Active("u1"), "cancelled bookings never block")
}

func TestValidateDelivery(t *testing.T) {
	multi, err := daterange.New(now, now.Add(72*time.Hour))
	require.NoError(t, err)
	single, err := daterange.New(now, now.Add(4*time.Hour))
	require.NoError(t, err)

	t.Run("multi-day pickup needs both windows", func(t *testing.T) {
		err := booking.ValidateDelivery(booking.DeliveryPickup, multi, "09:00-10:00", "")
		assert.ErrorIs(t, err, booking.ErrTimeWindowsRequired)
		assert.NoError(t, booking.ValidateDelivery(booking.DeliveryPickup, multi, "09:00-10:00", "17:00-18:00"))
	})

	t.Run("same-day pickup skips windows", func(t *testing.T) {
		assert.NoError(t, booking.ValidateDelivery(booking.DeliveryPickup, single, "", ""))
	})

	t.Run("courier never needs windows", func(t *testing.T) {
		assert.NoError(t, booking.ValidateDelivery(booking.DeliveryCourier, multi, "", ""))
	})

	t.Run("method is mandatory", func(t *testing.T) {
		err := booking.ValidateDelivery("", multi, "", "")
		assert.ErrorIs(t, err, booking.ErrDeliveryMethodNeeded)
	})
}

func TestDetailAggregations(t *testing.T) {
	r1, err := daterange.New(now, now.Add(48*time.Hour))
	require.NoError(t, err)
	r2, err := daterange.New(now.Add(-24*time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)

	details := []*booking.Detail{
		{Range: r1, Price: money.EUR(4000)},
		{Range: r2, Price: money.EUR(2500)},
	}

	assert.Equal(t, money.EUR(6500), booking.TotalOf(details))

	start, ok := booking.EarliestStart(details)
	require.True(t, ok)
	assert.Equal(t, r2.Start, start)

	end, ok := booking.LatestEnd(details)
	require.True(t, ok)
	assert.Equal(t, r1.End, end)

	_, ok = booking.EarliestStart(nil)
	assert.False(t, ok)
}

func TestMarkToPickup(t *testing.T) {
	d := &booking.Detail{Fulfillment: booking.FulfillmentIdle}
	assert.True(t, d.MarkToPickup(now))
	assert.Equal(t, booking.FulfillmentToPickup, d.Fulfillment)
	assert.False(t, d.MarkToPickup(now), "cascade is applied once")
}
