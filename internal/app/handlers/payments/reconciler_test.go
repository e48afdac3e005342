package payments_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/app/handlers/payments"
	"skirent/internal/app/policies"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
	domainuser "skirent/internal/domain/user"
	"skirent/internal/infra/storage/memory"
)

var now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

type fakeGateway struct {
	sessions map[string]policies.CheckoutSession
	intents  map[string]policies.PaymentIntent
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, bookingID, reference string, amount money.Money) (policies.CheckoutSession, error) {
	return policies.CheckoutSession{ID: "cs_new"}, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (policies.CheckoutSession, error) {
	return g.sessions[sessionID], nil
}

func (g *fakeGateway) GetPaymentIntent(ctx context.Context, intentID string) (policies.PaymentIntent, error) {
	return g.intents[intentID], nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, intentID string, amount money.Money) (policies.GatewayRefund, error) {
	return policies.GatewayRefund{ID: "re_1", Status: "pending"}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string // recipient addresses in send order
}

func (n *recordingNotifier) Send(ctx context.Context, to, subject, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type reconcilerFixture struct {
	stores     *memory.Stores
	gateway    *fakeGateway
	notifier   *recordingNotifier
	reconciler *payments.Reconciler
}

func newReconcilerFixture(t *testing.T) reconcilerFixture {
	t.Helper()
	stores := memory.NewStores()
	gateway := &fakeGateway{
		sessions: make(map[string]policies.CheckoutSession),
		intents:  make(map[string]policies.PaymentIntent),
	}
	notifier := &recordingNotifier{}
	f := reconcilerFixture{
		stores:   stores,
		gateway:  gateway,
		notifier: notifier,
		reconciler: &payments.Reconciler{
			UoWFactory: memory.Factory{Stores: stores},
			Payments:   gateway,
			Notifier:   notifier,
			Outbox:     memory.NewOutbox(),
		},
	}

	ctx := context.Background()
	customer, err := domainuser.NewUser(domainuser.CreateParams{
		ID: "u1", Email: "alice@example.com", Name: "Alice",
		PasswordHash: "x", CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Users.Save(ctx, customer))
	admin, err := domainuser.NewUser(domainuser.CreateParams{
		ID: "a1", Email: "admin@example.com", Name: "Admin",
		PasswordHash: "x", Roles: []domainuser.Role{domainuser.RoleAdmin}, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Users.Save(ctx, admin))
	return f
}

// seedInPayment stores a booking with one idle line item, parked in payment
// with a gateway session and intent attached.
func (f reconcilerFixture) seedInPayment(t *testing.T) *domainbooking.Booking {
	t.Helper()
	ctx := context.Background()

	b := domainbooking.NewCart("b1", "u1", "R-0001", now)
	b.SetTotal(money.EUR(9000), now)
	require.NoError(t, b.BeginPayment("cs_1", b.PriceTotal, now))
	b.GatewayIntentID = "pi_1"
	b.ClearEvents()
	require.NoError(t, f.stores.Bookings.Save(ctx, b))

	r, err := daterange.New(now.Add(7*24*time.Hour), now.Add(10*24*time.Hour))
	require.NoError(t, err)
	d, err := domainbooking.NewDetail(domainbooking.NewDetailParams{
		ID:        "d1",
		BookingID: b.ID,
		UnitID:    domaincatalog.UnitID("unit1"),
		VariantID: domaincatalog.VariantID("v1"),
		Range:     r,
		Delivery:  domainbooking.DeliveryCourier,
		Price:     money.EUR(9000),
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, f.stores.Details.Claim(ctx, d, "u1"))
	return b
}

func TestHandlePaymentSucceeded(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t)
	f.seedInPayment(t)

	require.NoError(t, f.reconciler.HandlePaymentSucceeded(ctx, "pi_1"))

	b, err := f.stores.Bookings.ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
	assert.False(t, b.Cart)

	details, err := f.stores.Details.ByBooking(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, domainbooking.FulfillmentToPickup, details[0].Fulfillment)

	// customer + admin
	assert.Equal(t, 2, f.notifier.count())

	t.Run("re-delivery is a no-op", func(t *testing.T) {
		require.NoError(t, f.reconciler.HandlePaymentSucceeded(ctx, "pi_1"))
		assert.Equal(t, 2, f.notifier.count(), "no second confirmation mail")
	})
}

func TestHandlePaymentSucceededUnknownIntent(t *testing.T) {
	f := newReconcilerFixture(t)
	// Acknowledged, not failed: retrying cannot help.
	assert.NoError(t, f.reconciler.HandlePaymentSucceeded(context.Background(), "pi_unknown"))
}

func TestHandlePaymentStatusCanceled(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(t)
	f.seedInPayment(t)

	require.NoError(t, f.reconciler.HandlePaymentStatus(ctx, "pi_1", "canceled"))

	b, err := f.stores.Bookings.ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, b.Status)
	assert.Zero(t, f.notifier.count())
}

func TestCheckAndConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("queries the gateway when the webhook has not landed", func(t *testing.T) {
		f := newReconcilerFixture(t)
		f.seedInPayment(t)
		f.gateway.sessions["cs_1"] = policies.CheckoutSession{
			ID: "cs_1", PaymentIntentID: "pi_1", Status: "succeeded",
		}

		b, err := f.reconciler.CheckAndConfirm(ctx, "b1", "u1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
		assert.Equal(t, 2, f.notifier.count())
	})

	t.Run("falls back to the intent when the session has no status", func(t *testing.T) {
		f := newReconcilerFixture(t)
		f.seedInPayment(t)
		f.gateway.sessions["cs_1"] = policies.CheckoutSession{ID: "cs_1", PaymentIntentID: "pi_1"}
		f.gateway.intents["pi_1"] = policies.PaymentIntent{ID: "pi_1", Status: "succeeded"}

		b, err := f.reconciler.CheckAndConfirm(ctx, "b1", "u1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
	})

	t.Run("skips the gateway once the webhook confirmed", func(t *testing.T) {
		f := newReconcilerFixture(t)
		f.seedInPayment(t)
		require.NoError(t, f.reconciler.HandlePaymentSucceeded(ctx, "pi_1"))
		require.Equal(t, 2, f.notifier.count())

		// No session result is registered: reaching the gateway would
		// return an empty status and leave the booking parked.
		b, err := f.reconciler.CheckAndConfirm(ctx, "b1", "u1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
		assert.Equal(t, 2, f.notifier.count(), "confirmation side effects ran once")
	})

	t.Run("hides foreign bookings", func(t *testing.T) {
		f := newReconcilerFixture(t)
		f.seedInPayment(t)
		_, err := f.reconciler.CheckAndConfirm(ctx, "b1", "mallory")
		assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
	})
}
