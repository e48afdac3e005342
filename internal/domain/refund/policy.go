package refund

import (
	"errors"
	"time"
)

// ErrWindowClosed rejects refunds once the rental has begun: the earliest
// start date's calendar day is today or already past.
var ErrWindowClosed = errors.New("refund: rental has started, refund is no longer available")

// Percentage decides how much of the booking total is refunded, from the
// time remaining until the earliest rental start and the shop's cutoff.
// At least refundHours of notice refunds everything; shorter notice before
// the start day refunds half.
func Percentage(now, earliestStart time.Time, refundHours int) (int, error) {
	if !startDay(earliestStart).After(startDay(now)) {
		return 0, ErrWindowClosed
	}
	hoursUntil := earliestStart.Sub(now).Hours()
	if hoursUntil >= float64(refundHours) {
		return 100, nil
	}
	return 50, nil
}

func startDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
