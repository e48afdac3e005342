package refund_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skirent/internal/domain/refund"
)

func TestPercentage(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	cutoff := 48

	t.Run("full refund with enough notice", func(t *testing.T) {
		pct, err := refund.Percentage(now, now.Add(72*time.Hour), cutoff)
		require.NoError(t, err)
		assert.Equal(t, 100, pct)
	})

	t.Run("exactly at the cutoff is still full", func(t *testing.T) {
		pct, err := refund.Percentage(now, now.Add(48*time.Hour), cutoff)
		require.NoError(t, err)
		assert.Equal(t, 100, pct)
	})

	t.Run("short notice halves the refund", func(t *testing.T) {
		pct, err := refund.Percentage(now, now.Add(30*time.Hour), cutoff)
		require.NoError(t, err)
		assert.Equal(t, 50, pct)
	})

	t.Run("start day closes the window", func(t *testing.T) {
		_, err := refund.Percentage(now, now.Add(6*time.Hour), cutoff)
		assert.ErrorIs(t, err, refund.ErrWindowClosed)
	})

	t.Run("past start closes the window", func(t *testing.T) {
		_, err := refund.Percentage(now, now.Add(-24*time.Hour), cutoff)
		assert.ErrorIs(t, err, refund.ErrWindowClosed)
	})
}
