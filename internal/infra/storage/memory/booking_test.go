package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/booking"
	"skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
	"skirent/internal/infra/storage/memory"
)

var now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func TestSaveDetectsConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookingRepository()

	b := booking.NewCart("b1", "u1", "R-0001", now)
	require.NoError(t, repo.Save(ctx, b))

	first, err := repo.ByID(ctx, "b1")
	require.NoError(t, err)
	second, err := repo.ByID(ctx, "b1")
	require.NoError(t, err)

	first.SetTotal(money.EUR(100), now)
	require.NoError(t, repo.Save(ctx, first))

	second.SetTotal(money.EUR(200), now)
	assert.ErrorIs(t, repo.Save(ctx, second), booking.ErrConcurrentUpdate)

	// The winner's write is intact.
	got, err := repo.ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, money.EUR(100), got.PriceTotal)
}

func TestClaimRaceHasOneWinner(t *testing.T) {
	ctx := context.Background()
	bookings := memory.NewBookingRepository()
	details := memory.NewDetailRepository(bookings)

	r, err := daterange.New(now, now.Add(72*time.Hour))
	require.NoError(t, err)

	// Every contender has a checked-out booking, so each claim blocks all
	// the others once it lands.
	const contenders = 16
	for i := 0; i < contenders; i++ {
		b := booking.NewCart(booking.BookingID(fmt.Sprintf("b%d", i)), fmt.Sprintf("user%d", i), "", now)
		b.SetTotal(money.EUR(5000), now)
		require.NoError(t, b.BeginPayment("cs", b.PriceTotal, now))
		b.ApplyGatewayStatus(booking.GatewaySucceeded, fmt.Sprintf("pi%d", i), now)
		require.NoError(t, bookings.Save(ctx, b))
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := booking.NewDetail(booking.NewDetailParams{
				ID:        booking.DetailID(fmt.Sprintf("d%d", i)),
				BookingID: booking.BookingID(fmt.Sprintf("b%d", i)),
				UnitID:    "u1",
				VariantID: "v1",
				Range:     r,
				Delivery:  booking.DeliveryCourier,
				Price:     money.EUR(5000),
				CreatedAt: now,
			})
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = details.Claim(ctx, d, fmt.Sprintf("user%d", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, booking.ErrNoUnitsAvailable)
		}
	}
	assert.Equal(t, 1, winners, "exactly one claim may take the last unit")
}

func TestClaimAllowsDisjointRanges(t *testing.T) {
	ctx := context.Background()
	bookings := memory.NewBookingRepository()
	details := memory.NewDetailRepository(bookings)

	b := booking.NewCart("b1", "u1", "", now)
	b.SetTotal(money.EUR(5000), now)
	require.NoError(t, b.BeginPayment("cs", b.PriceTotal, now))
	b.ApplyGatewayStatus(booking.GatewaySucceeded, "pi1", now)
	require.NoError(t, bookings.Save(ctx, b))

	first, err := daterange.New(now, now.Add(48*time.Hour))
	require.NoError(t, err)
	later, err := daterange.New(now.Add(30*24*time.Hour), now.Add(33*24*time.Hour))
	require.NoError(t, err)

	claim := func(id string, r daterange.RentalRange) error {
		d, err := booking.NewDetail(booking.NewDetailParams{
			ID:        booking.DetailID(id),
			BookingID: "b1",
			UnitID:    "u1",
			VariantID: "v1",
			Range:     r,
			Delivery:  booking.DeliveryCourier,
			Price:     money.EUR(5000),
			CreatedAt: now,
		})
		require.NoError(t, err)
		return details.Claim(ctx, d, "other")
	}

	require.NoError(t, claim("d1", first))
	assert.NoError(t, claim("d2", later), "non-overlapping rental of the same unit is fine")
	assert.ErrorIs(t, claim("d3", first), booking.ErrNoUnitsAvailable)
}
