package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/app/handlers/cart"
	"skirent/internal/app/handlers/checkout"
	"skirent/internal/app/handlers/payments"
	"skirent/internal/app/handlers/refunds"
	"skirent/internal/app/policies"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainpricing "skirent/internal/domain/pricing"
	domainrefund "skirent/internal/domain/refund"
	"skirent/internal/domain/shared/money"
	domainuser "skirent/internal/domain/user"
	"skirent/internal/infra/storage/memory"
)

// scenarioGateway is a stateful stand-in for the payment processor covering
// checkout sessions, intents and refunds.
type scenarioGateway struct {
	refundStatus string
}

func (g *scenarioGateway) CreateCheckoutSession(ctx context.Context, bookingID, reference string, amount money.Money) (policies.CheckoutSession, error) {
	return policies.CheckoutSession{
		ID:              "cs_1",
		PaymentIntentID: "pi_1",
		URL:             "https://pay.example.com/cs_1",
	}, nil
}

func (g *scenarioGateway) GetCheckoutSession(ctx context.Context, sessionID string) (policies.CheckoutSession, error) {
	return policies.CheckoutSession{ID: sessionID, PaymentIntentID: "pi_1"}, nil
}

func (g *scenarioGateway) GetPaymentIntent(ctx context.Context, intentID string) (policies.PaymentIntent, error) {
	return policies.PaymentIntent{ID: intentID, Status: "succeeded"}, nil
}

func (g *scenarioGateway) CreateRefund(ctx context.Context, intentID string, amount money.Money) (policies.GatewayRefund, error) {
	status := g.refundStatus
	if status == "" {
		status = "pending"
	}
	return policies.GatewayRefund{ID: "re_1", Status: status}, nil
}

type env struct {
	stores     *memory.Stores
	addToCart  *cart.AddToCartHandler
	checkout   *checkout.BeginCheckoutHandler
	reconciler *payments.Reconciler
	refunds    *refunds.Service
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()
	factory := memory.Factory{Stores: stores}
	gateway := &scenarioGateway{}
	calc := &domainpricing.Calculator{Periods: stores.Periods, Prices: stores.Prices}

	now := time.Now().UTC()
	product, err := domaincatalog.NewProduct(domaincatalog.NewProductParams{
		ID: "p1", Name: "Freeride Snowboard", CanBeDelivered: true, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Products.Save(ctx, product))
	require.NoError(t, stores.Variants.Save(ctx, &domaincatalog.Variant{
		ID: "v1", ProductID: "p1", Active: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, stores.Units.Save(ctx, domaincatalog.NewUnit("unit1", "v1", "SN-1", now)))

	week := 7
	period, err := domaincatalog.NewPricePeriod(domaincatalog.NewPeriodParams{
		ID: "week", Code: "week", Name: "Weekly", MinDays: 1, MaxDays: &week, Days: 7, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Periods.Save(ctx, period))
	require.NoError(t, stores.Prices.Save(ctx, &domaincatalog.PriceEntry{
		VariantID: "v1", PeriodID: "week", Price: money.EUR(12000), UpdatedAt: now,
	}))

	customer, err := domainuser.NewUser(domainuser.CreateParams{
		ID: "alice", Email: "alice@example.com", Name: "Alice", PasswordHash: "x", CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Users.Save(ctx, customer))

	return env{
		stores: stores,
		addToCart: &cart.AddToCartHandler{
			UoWFactory: factory, Calculator: calc, Outbox: memory.NewOutbox(),
		},
		checkout: &checkout.BeginCheckoutHandler{
			UoWFactory: factory, Payments: gateway, Outbox: memory.NewOutbox(),
		},
		reconciler: &payments.Reconciler{
			UoWFactory: factory, Payments: gateway, Outbox: memory.NewOutbox(),
		},
		refunds: &refunds.Service{UoWFactory: factory, Payments: gateway},
	}
}

func TestBeginCheckoutEmptyCart(t *testing.T) {
	e := newEnv(t)
	_, err := e.checkout.Handle(context.Background(), checkout.BeginCheckoutCommand{UserID: "alice"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound, "no cart exists yet")
}

// TestRentalLifecycle walks the whole flow: add to cart, open the checkout
// session, settle via webhook, then refund with full notice.
func TestRentalLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	start := time.Now().UTC().Add(30 * 24 * time.Hour)

	added, err := e.addToCart.Handle(ctx, cart.AddToCartCommand{
		CommandID:      "cmd1",
		UserID:         "alice",
		ProductID:      "p1",
		VariantID:      "v1",
		Start:          start,
		End:            start.Add(5 * 24 * time.Hour),
		DeliveryMethod: string(domainbooking.DeliveryCourier),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12000), added.Total)

	res, err := e.checkout.Handle(ctx, checkout.BeginCheckoutCommand{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, added.BookingID, res.BookingID)
	assert.Equal(t, "https://pay.example.com/cs_1", res.SessionURL)

	bookingID := domainbooking.BookingID(res.BookingID)
	b, err := e.stores.Bookings.ByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusInPayment, b.Status)
	assert.True(t, b.Cart, "an abandoned session must leave the draft editable")
	assert.Equal(t, "pi_1", b.GatewayIntentID)

	require.NoError(t, e.reconciler.HandlePaymentSucceeded(ctx, "pi_1"))

	b, err = e.stores.Bookings.ByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
	assert.False(t, b.Cart)

	details, err := e.stores.Details.ByBooking(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, domainbooking.FulfillmentToPickup, details[0].Fulfillment)

	refundRes, err := e.refunds.Request(ctx, refunds.RequestParams{
		BookingID: bookingID, RequestingUserID: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, refundRes.Percentage)
	assert.Equal(t, int64(12000), refundRes.Amount)

	require.NoError(t, e.refunds.OnStatusChanged(ctx, "re_1", "succeeded"))

	b, err = e.stores.Bookings.ByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusSucceededRefund, b.Status)

	ref, err := e.stores.Refunds.ByGatewayRefundID(ctx, "re_1")
	require.NoError(t, err)
	assert.Equal(t, domainrefund.StatusSucceeded, ref.Status)
}
