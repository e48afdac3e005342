package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/catalog"
	"skirent/internal/domain/pricing"
)

func period(t *testing.T, code string, position, minDays int, maxDays *int, days int) *catalog.PricePeriod {
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
	return p
}

func TestResolvePeriodPicksCoveringTier(t *testing.T) {
	three, seven := 3, 7
	periods := []*catalog.PricePeriod{
		period(t, "day", 1, 1, &three, 1),
		period(t, "week", 2, 4, &seven, 7),
		period(t, "long", 3, 8, nil, 14),
	}

	id, err := pricing.ResolvePeriod(periods, 2)
	require.NoError(t, err)
	assert.Equal(t, catalog.PeriodID("day"), id)

	id, err = pricing.ResolvePeriod(periods, 7)
	require.NoError(t, err)
	assert.Equal(t, catalog.PeriodID("week"), id)

	// Open-ended tier covers everything from its lower bound up.
	id, err = pricing.ResolvePeriod(periods, 90)
	require.NoError(t, err)
	assert.Equal(t, catalog.PeriodID("long"), id)
}

func TestResolvePeriodFallsBackToExactDays(t *testing.T) {
	three := 3
	weekend := period(t, "weekend", 1, 1, &three, 2)
	// A gap in the ranges: durations 4..6 are not covered by any range but
	// the "six" tier names exactly six days.
	six := period(t, "six", 2, 7, nil, 6)

	id, err := pricing.ResolvePeriod([]*catalog.PricePeriod{weekend, six}, 6)
	require.NoError(t, err)
	assert.Equal(t, catalog.PeriodID("six"), id)

	_, err = pricing.ResolvePeriod([]*catalog.PricePeriod{weekend, six}, 5)
	assert.ErrorIs(t, err, pricing.ErrPeriodNotFound)
}

func TestResolvePeriodSkipsInactiveAndRejectsZeroDays(t *testing.T) {
	three := 3
	p := period(t, "day", 1, 1, &three, 1)
	p.Active = false

	_, err := pricing.ResolvePeriod([]*catalog.PricePeriod{p}, 2)
	assert.ErrorIs(t, err, pricing.ErrPeriodNotFound)

	_, err = pricing.ResolvePeriod(nil, 0)
	assert.ErrorIs(t, err, pricing.ErrPeriodNotFound)
}
