package daterange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/shared/daterange"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestNewRejectsInvertedRange(t *testing.T) {
	_, err := daterange.New(day(2026, 2, 10), day(2026, 2, 9))
	require.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = daterange.New(time.Time{}, day(2026, 2, 9))
	require.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestDaysRoundsUp(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		days  int
	}{
		{"same instant", day(2026, 2, 10), day(2026, 2, 10), 1},
		{"same day", day(2026, 2, 10), day(2026, 2, 10).Add(6 * time.Hour), 1},
		{"exactly 48h", day(2026, 2, 10), day(2026, 2, 12), 2},
		{"49h rounds to 3", day(2026, 2, 10), day(2026, 2, 12).Add(time.Hour), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := daterange.New(tc.start, tc.end)
			require.NoError(t, err)
			assert.Equal(t, tc.days, r.Days())
		})
	}
}

func TestHoursRoundsUp(t *testing.T) {
	r, err := daterange.New(day(2026, 2, 10), day(2026, 2, 10).Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Hours())
}

func TestSameDay(t *testing.T) {
	r, err := daterange.New(day(2026, 2, 10), day(2026, 2, 10).Add(8*time.Hour))
	require.NoError(t, err)
	assert.True(t, r.SameDay())
	assert.False(t, r.MultiDay())

	r, err = daterange.New(day(2026, 2, 10), day(2026, 2, 11))
	require.NoError(t, err)
	assert.False(t, r.SameDay())
	assert.True(t, r.MultiDay())
}

func TestOverlapsIsInclusiveOnBothBounds(t *testing.T) {
	first, err := daterange.New(day(2026, 2, 10), day(2026, 2, 12))
	require.NoError(t, err)

	// A rental starting on the day the first one ends still conflicts:
	// the unit is out until the end of the return day.
	touching, err := daterange.New(day(2026, 2, 12), day(2026, 2, 14))
	require.NoError(t, err)
	assert.True(t, first.Overlaps(touching))
	assert.True(t, touching.Overlaps(first))

	disjoint, err := daterange.New(day(2026, 2, 13), day(2026, 2, 14))
	require.NoError(t, err)
	assert.False(t, first.Overlaps(disjoint))

	contained, err := daterange.New(day(2026, 2, 11), day(2026, 2, 11))
	require.NoError(t, err)
	assert.True(t, first.Overlaps(contained))
}
