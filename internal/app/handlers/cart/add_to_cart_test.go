package cart_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/app/handlers/cart"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainpricing "skirent/internal/domain/pricing"
	"skirent/internal/domain/shared/money"
	"skirent/internal/infra/storage/memory"
)

var now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

type cartFixture struct {
	stores  *memory.Stores
	handler *cart.AddToCartHandler
}

// newCartFixture seeds one active product with one variant, a configurable
// number of units, and a day tier (1-3 days) priced at a flat 15 EUR.
func newCartFixture(t *testing.T, units int) cartFixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()

	product, err := domaincatalog.NewProduct(domaincatalog.NewProductParams{
		ID: "p1", Name: "Alpine Ski Set", CanBePickedUp: true, CanBeDelivered: true, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Products.Save(ctx, product))

	variant := &domaincatalog.Variant{ID: "v1", ProductID: "p1", Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, stores.Variants.Save(ctx, variant))

	for i := 0; i < units; i++ {
		id := domaincatalog.UnitID(fmt.Sprintf("unit%d", i+1))
		require.NoError(t, stores.Units.Save(ctx, domaincatalog.NewUnit(id, "v1", "SN-"+string(id), now)))
	}

	three := 3
	period, err := domaincatalog.NewPricePeriod(domaincatalog.NewPeriodParams{
		ID: "day", Code: "day", Name: "Daily", Position: 1, MinDays: 1, MaxDays: &three, Days: 1, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Periods.Save(ctx, period))
	require.NoError(t, stores.Prices.Save(ctx, &domaincatalog.PriceEntry{
		VariantID: "v1", PeriodID: "day", Price: money.EUR(1500), UpdatedAt: now,
	}))

	return cartFixture{
		stores: stores,
		handler: &cart.AddToCartHandler{
			UoWFactory: memory.Factory{Stores: stores},
			Calculator: &domainpricing.Calculator{Periods: stores.Periods, Prices: stores.Prices},
			Outbox:     memory.NewOutbox(),
		},
	}
}

func addCommand(id, userID string, start time.Time, days int) cart.AddToCartCommand {
	return cart.AddToCartCommand{
		CommandID:      id,
		UserID:         userID,
		ProductID:      "p1",
		VariantID:      "v1",
		Start:          start,
		End:            start.Add(time.Duration(days) * 24 * time.Hour),
		DeliveryMethod: string(domainbooking.DeliveryCourier),
	}
}

func TestAddToCart(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the cart and prices the slot", func(t *testing.T) {
		f := newCartFixture(t, 1)
		start := now.Add(7 * 24 * time.Hour)

		res, err := f.handler.Handle(ctx, addCommand("cmd1", "alice", start, 2))
		require.NoError(t, err)
		assert.Equal(t, "unit1", res.UnitID)
		assert.Equal(t, int64(1500), res.Price, "the daily tier covers rentals up to three days at its flat price")
		assert.Equal(t, res.Price, res.Total)

		b, err := f.stores.Bookings.ActiveCartByUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, money.EUR(1500), b.PriceTotal)
		assert.Equal(t, domainbooking.StatusCart, b.Status)
	})

	t.Run("second line item reuses the cart", func(t *testing.T) {
		f := newCartFixture(t, 2)
		start := now.Add(7 * 24 * time.Hour)

		first, err := f.handler.Handle(ctx, addCommand("cmd1", "alice", start, 2))
		require.NoError(t, err)
		second, err := f.handler.Handle(ctx, addCommand("cmd2", "alice", start, 2))
		require.NoError(t, err)

		assert.Equal(t, first.BookingID, second.BookingID)
		assert.NotEqual(t, first.UnitID, second.UnitID)
		assert.Equal(t, int64(3000), second.Total)
	})

	t.Run("last unit goes to one user", func(t *testing.T) {
		f := newCartFixture(t, 1)
		start := now.Add(7 * 24 * time.Hour)

		_, err := f.handler.Handle(ctx, addCommand("cmd1", "alice", start, 2))
		require.NoError(t, err)

		// Alice's cart blocks the unit even before checkout.
		_, err = f.handler.Handle(ctx, addCommand("cmd2", "bob", start, 2))
		assert.ErrorIs(t, err, domainbooking.ErrNoUnitsAvailable)

		// A disjoint range is still bookable.
		_, err = f.handler.Handle(ctx, addCommand("cmd3", "bob", start.Add(30*24*time.Hour), 2))
		assert.NoError(t, err)
	})

	t.Run("inactive product is rejected", func(t *testing.T) {
		f := newCartFixture(t, 1)
		p, err := f.stores.Products.ByID(ctx, "p1")
		require.NoError(t, err)
		p.Active = false
		require.NoError(t, f.stores.Products.Save(ctx, p))

		_, err = f.handler.Handle(ctx, addCommand("cmd1", "alice", now.Add(24*time.Hour), 2))
		assert.ErrorIs(t, err, cart.ErrProductInactive)
	})

	t.Run("multi-day pickup needs time windows", func(t *testing.T) {
		f := newCartFixture(t, 1)
		cmd := addCommand("cmd1", "alice", now.Add(24*time.Hour), 2)
		cmd.DeliveryMethod = string(domainbooking.DeliveryPickup)

		_, err := f.handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, domainbooking.ErrTimeWindowsRequired)

		cmd.PickupWindow = "09:00-10:00"
		cmd.ReturnWindow = "17:00-18:00"
		_, err = f.handler.Handle(ctx, cmd)
		assert.NoError(t, err)
	})
}
