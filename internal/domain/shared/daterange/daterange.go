package daterange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("daterange: end must not be before start")

// RentalRange is the closed interval [Start, End] a unit is out of the shop.
// Same-day rentals have Start and End on the same calendar day.
type RentalRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (RentalRange, error) {
	r := RentalRange{Start: start.UTC(), End: end.UTC()}
	if err := r.Validate(); err != nil {
		return RentalRange{}, err
	}
	return r, nil
}

func (r RentalRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days is the billed rental duration in days, never less than one for a
// valid range spanning distinct days; a same-day rental reports 1.
func (r RentalRange) Days() int {
	d := int(r.End.Sub(r.Start).Hours() / 24)
	if r.End.Sub(r.Start)%(24*time.Hour) != 0 {
		d++
	}
	if d < 1 {
		d = 1
	}
	return d
}

// Hours is the billed duration in whole hours, rounded up.
func (r RentalRange) Hours() int {
	h := int(r.End.Sub(r.Start).Hours())
	if r.End.Sub(r.Start)%time.Hour != 0 {
		h++
	}
	if h < 0 {
		h = 0
	}
	return h
}

// SameDay reports whether start and end fall on the same calendar day.
func (r RentalRange) SameDay() bool {
	return r.Start.Year() == r.End.Year() && r.Start.YearDay() == r.End.YearDay()
}

// Overlaps uses inclusive semantics on both bounds: two rentals conflict
// when one starts on the day the other ends, because the unit is still out.
func (r RentalRange) Overlaps(other RentalRange) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

// MultiDay reports whether the rental spans more than one calendar day.
func (r RentalRange) MultiDay() bool {
	return !r.SameDay()
}

// StartsOnOrBefore reports whether the rental begins on the calendar day of t
// or earlier, in UTC.
func (r RentalRange) StartsOnOrBefore(t time.Time) bool {
	day := func(x time.Time) time.Time {
		x = x.UTC()
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC)
	}
	return !day(r.Start).After(day(t))
}
