package pricing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/catalog"
	"skirent/internal/domain/pricing"
	"skirent/internal/domain/shared/money"
	"skirent/internal/infra/storage/memory"
)

type calculatorFixture struct {
	calc    *pricing.Calculator
	periods *memory.PeriodRepository
	prices  *memory.PriceListRepository
}

func newCalculatorFixture(t *testing.T) calculatorFixture {
	t.Helper()
	periods := memory.NewPeriodRepository()
	prices := memory.NewPriceListRepository()
	return calculatorFixture{
		calc:    &pricing.Calculator{Periods: periods, Prices: prices},
		periods: periods,
		prices:  prices,
	}
}

func (f calculatorFixture) addPeriod(t *testing.T, code string, position, minDays int, maxDays *int, days int) {
	t.Helper()
	p, err := catalog.NewPricePeriod(catalog.NewPeriodParams{
		ID:        catalog.PeriodID(code),
		Code:      code,
		Name:      code,
		Position:  position,
		MinDays:   minDays,
		MaxDays:   maxDays,
		Days:      days,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, f.periods.Save(context.Background(), p))
}

func (f calculatorFixture) setPrice(t *testing.T, variant, period string, cents int64) {
	t.Helper()
	entry := &catalog.PriceEntry{
		VariantID: catalog.VariantID(variant),
		PeriodID:  catalog.PeriodID(period),
		Price:     money.EUR(cents),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, f.prices.Save(context.Background(), entry))
}

func TestPriceDirectHit(t *testing.T) {
	f := newCalculatorFixture(t)
	three, seven := 3, 7
	f.addPeriod(t, "day", 1, 1, &three, 1)
	f.addPeriod(t, "week", 2, 4, &seven, 7)
	f.setPrice(t, "v1", "week", 9000)

	q := f.calc.QuoteFor(context.Background(), "v1", 5, 0, false)
	assert.Equal(t, money.EUR(9000), q.Price)
	assert.Equal(t, catalog.PeriodID("week"), q.PeriodID)
	assert.Empty(t, q.Fallback)
}

func TestPriceBestLowerMatch(t *testing.T) {
	f := newCalculatorFixture(t)
	three, seven := 3, 7
	f.addPeriod(t, "day", 1, 1, &three, 1)
	f.addPeriod(t, "week", 2, 4, &seven, 7)
	f.addPeriod(t, "long", 3, 8, nil, 14)
	// Only the week tier is priced; a 10-day rental resolves to "long"
	// but has no entry there, so the longest priced shorter tier wins.
	f.setPrice(t, "v1", "week", 9000)

	q := f.calc.QuoteFor(context.Background(), "v1", 10, 0, false)
	assert.Equal(t, money.EUR(9000), q.Price)
	assert.Equal(t, pricing.FallbackBestLowerMatch, q.Fallback)
	assert.Equal(t, catalog.PeriodID("week"), q.PeriodID)
}

func TestPriceDailyRateExtrapolation(t *testing.T) {
	f := newCalculatorFixture(t)
	three := 3
	f.addPeriod(t, "day", 1, 1, &three, 1)
	f.addPeriod(t, "long", 2, 8, nil, 14)
	// Only a one-day rate exists; longer rentals multiply it instead of
	// charging the flat day price.
	f.setPrice(t, "v1", "day", 1500)

	q := f.calc.QuoteFor(context.Background(), "v1", 10, 0, false)
	assert.Equal(t, money.EUR(15000), q.Price)
	assert.Equal(t, pricing.FallbackDailyRate, q.Fallback)
}

func TestPriceLastResortEntry(t *testing.T) {
	f := newCalculatorFixture(t)
	seven := 7
	f.addPeriod(t, "week", 1, 4, &seven, 7)
	f.addPeriod(t, "long", 2, 8, nil, 14)
	// A 2-day rental matches no tier range and no shorter implied
	// duration; any entry beats charging nothing.
	f.setPrice(t, "v1", "week", 9000)

	q := f.calc.QuoteFor(context.Background(), "v1", 2, 0, false)
	assert.Equal(t, money.EUR(9000), q.Price)
	assert.Equal(t, pricing.FallbackFirstEntry, q.Fallback)
}

func TestPriceUnpricedVariantIsZero(t *testing.T) {
	f := newCalculatorFixture(t)
	three := 3
	f.addPeriod(t, "day", 1, 1, &three, 1)

	q := f.calc.QuoteFor(context.Background(), "v1", 2, 0, false)
	assert.True(t, q.Price.IsZero())
	assert.Equal(t, pricing.FallbackZero, q.Fallback)
}

func TestPriceSameDayFallsThroughToDayPricing(t *testing.T) {
	f := newCalculatorFixture(t)
	three := 3
	f.addPeriod(t, "day", 1, 1, &three, 1)
	f.setPrice(t, "v1", "day", 1500)

	// No hourly tier convention exists, so a 4-hour same-day rental is
	// billed as one day.
	price := f.calc.Price(context.Background(), "v1", 1, 4, true)
	assert.Equal(t, money.EUR(1500), price)
}
