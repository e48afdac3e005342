package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/availability"
	"skirent/internal/domain/booking"
	"skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
	"skirent/internal/infra/storage/memory"
)

var now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

type engineFixture struct {
	engine   availability.Engine
	units    *memory.UnitRepository
	bookings *memory.BookingRepository
	details  *memory.DetailRepository
}

func newEngineFixture() engineFixture {
	units := memory.NewUnitRepository()
	bookings := memory.NewBookingRepository()
	details := memory.NewDetailRepository(bookings)
	return engineFixture{
		engine:   availability.Engine{Units: units, Details: details},
		units:    units,
		bookings: bookings,
		details:  details,
	}
}

func (f engineFixture) addUnit(t *testing.T, id string, variant string) {
	t.Helper()
	u := catalog.NewUnit(catalog.UnitID(id), catalog.VariantID(variant), "SN-"+id, now)
	require.NoError(t, f.units.Save(context.Background(), u))
}

// book reserves a unit for [start, start+days) under a fresh booking that is
// left in the given cart/status shape.
func (f engineFixture) book(t *testing.T, unit, variant, userID string, r daterange.RentalRange, confirmed bool) {
	t.Helper()
	ctx := context.Background()
	b := booking.NewCart(booking.BookingID("bk-"+unit), userID, "R-"+unit, now)
	b.SetTotal(money.EUR(5000), now)
	if confirmed {
		require.NoError(t, b.BeginPayment("cs-"+unit, b.PriceTotal, now))
		b.ApplyGatewayStatus(booking.GatewaySucceeded, "pi-"+unit, now)
	}
	require.NoError(t, f.bookings.Save(ctx, b))

	d, err := booking.NewDetail(booking.NewDetailParams{
		ID:        booking.DetailID("d-" + unit),
		BookingID: b.ID,
		UnitID:    catalog.UnitID(unit),
		VariantID: catalog.VariantID(variant),
		Range:     r,
		Delivery:  booking.DeliveryCourier,
		Price:     money.EUR(5000),
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, f.details.Claim(ctx, d, userID))
}

func rentalRange(t *testing.T, startOffset, days int) daterange.RentalRange {
	t.Helper()
	start := now.Add(time.Duration(startOffset) * 24 * time.Hour)
	r, err := daterange.New(start, start.Add(time.Duration(days)*24*time.Hour))
	require.NoError(t, err)
	return r
}

func TestCountAvailable(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()
	f.addUnit(t, "u1", "v1")
	f.addUnit(t, "u2", "v1")

	week := rentalRange(t, 7, 3)
	f.book(t, "u1", "v1", "alice", week, true)

	t.Run("overlapping booking blocks its unit", func(t *testing.T) {
		n, err := f.engine.CountAvailable(ctx, "v1", week, "bob")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("disjoint range frees both units", func(t *testing.T) {
		n, err := f.engine.CountAvailable(ctx, "v1", rentalRange(t, 20, 3), "bob")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("touching end day still conflicts", func(t *testing.T) {
		// Starts the day the first rental ends.
		n, err := f.engine.CountAvailable(ctx, "v1", rentalRange(t, 10, 2), "bob")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestCartVisibility(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()
	f.addUnit(t, "u1", "v1")

	week := rentalRange(t, 7, 3)
	f.book(t, "u1", "v1", "alice", week, false) // draft cart, never checked out

	t.Run("foreign cart does not block", func(t *testing.T) {
		n, err := f.engine.CountAvailable(ctx, "v1", week, "bob")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("own cart blocks", func(t *testing.T) {
		n, err := f.engine.CountAvailable(ctx, "v1", week, "alice")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestFirstFree(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()
	f.addUnit(t, "u1", "v1")
	f.addUnit(t, "u2", "v1")

	week := rentalRange(t, 7, 3)
	f.book(t, "u1", "v1", "alice", week, true)

	u, err := f.engine.FirstFree(ctx, "v1", week, "bob")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnitID("u2"), u.ID)

	f.book(t, "u2", "v1", "carol", week, true)
	_, err = f.engine.FirstFree(ctx, "v1", week, "bob")
	assert.ErrorIs(t, err, catalog.ErrUnitNotFound)
}

func TestCheckUnitsExcludesNonRentable(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()
	f.addUnit(t, "u1", "v1")

	u2 := catalog.NewUnit("u2", "v1", "SN-u2", now)
	require.NoError(t, u2.SetStatus(catalog.UnitMaintenance, now))
	require.NoError(t, f.units.Save(ctx, u2))

	week := rentalRange(t, 7, 3)
	out, err := f.engine.CheckUnits(ctx, []catalog.UnitID{"u1", "u2"}, week, "bob")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsAvailable)
	assert.False(t, out[1].IsAvailable, "maintenance units are never offered")

	n, err := f.engine.CountAvailable(ctx, "v1", week, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProductAvailable(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()
	f.addUnit(t, "u1", "v1")

	week := rentalRange(t, 7, 3)
	variants := []*catalog.Variant{
		{ID: "v0", Active: false},
		{ID: "v1", Active: true},
	}

	ok, err := f.engine.ProductAvailable(ctx, variants, week, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	f.book(t, "u1", "v1", "alice", week, true)
	ok, err = f.engine.ProductAvailable(ctx, variants, week, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}
