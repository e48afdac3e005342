package catalog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/catalog"
)

func tier(t *testing.T, id string, minDays int, maxDays *int) *catalog.PricePeriod {
	t.Helper()
	p, err := catalog.NewPricePeriod(catalog.NewPeriodParams{
		ID:        catalog.PeriodID(id),
		Code:      id,
		Name:      id,
		MinDays:   minDays,
		MaxDays:   maxDays,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return p
}

func TestNewPricePeriod(t *testing.T) {
	t.Run("rejects missing code", func(t *testing.T) {
		_, err := catalog.NewPricePeriod(catalog.NewPeriodParams{MinDays: 1})
		assert.ErrorIs(t, err, catalog.ErrPeriodCodeRequired)
	})

	t.Run("rejects zero min days", func(t *testing.T) {
		_, err := catalog.NewPricePeriod(catalog.NewPeriodParams{Code: "x", MinDays: 0})
		assert.ErrorIs(t, err, catalog.ErrPeriodRangeInvalid)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		two := 2
		_, err := catalog.NewPricePeriod(catalog.NewPeriodParams{Code: "x", MinDays: 5, MaxDays: &two})
		assert.ErrorIs(t, err, catalog.ErrPeriodRangeInvalid)
	})
}

func TestEnsureNonOverlapping(t *testing.T) {
	three, seven := 3, 7
	day := tier(t, "day", 1, &three)
	week := tier(t, "week", 4, &seven)
	long := tier(t, "long", 8, nil)
	siblings := []*catalog.PricePeriod{day, week, long}

	t.Run("disjoint ranges pass", func(t *testing.T) {
		for _, p := range siblings {
			assert.NoError(t, catalog.EnsureNonOverlapping(p, siblings), string(p.ID))
		}
	})

	t.Run("intersecting range is rejected", func(t *testing.T) {
		five := 5
		err := catalog.EnsureNonOverlapping(tier(t, "mid", 3, &five), siblings)
		assert.ErrorIs(t, err, catalog.ErrPeriodRangeOverlap)
	})

	t.Run("open-ended range conflicts with anything above its floor", func(t *testing.T) {
		err := catalog.EnsureNonOverlapping(tier(t, "season", 6, nil), siblings)
		assert.ErrorIs(t, err, catalog.ErrPeriodRangeOverlap)
	})

	t.Run("inactive siblings are ignored", func(t *testing.T) {
		week.Active = false
		five := 5
		assert.NoError(t, catalog.EnsureNonOverlapping(tier(t, "mid", 4, &five), siblings))
		week.Active = true
	})
}

func TestContainsAndImpliedDays(t *testing.T) {
	seven := 7
	week := tier(t, "week", 4, &seven)
	assert.False(t, week.Contains(3))
	assert.True(t, week.Contains(4))
	assert.True(t, week.Contains(7))
	assert.False(t, week.Contains(8))
	assert.Equal(t, 4, week.ImpliedDays(), "lower bound when Days is unset")

	week.Days = 7
	assert.Equal(t, 7, week.ImpliedDays())

	long := tier(t, "long", 8, nil)
	assert.True(t, long.Contains(365))
}
