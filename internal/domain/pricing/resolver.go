package pricing

import (
	"errors"

	"skirent/internal/domain/catalog"
)

var ErrPeriodNotFound = errors.New("pricing: no period matches the rental duration")

// ResolvePeriod picks the pricing tier covering a rental of the given number
// of days. Periods are scanned in stored order (position, then id) and the
// first tier whose [MinDays, MaxDays] range contains the duration wins; the
// non-overlap invariant on period configuration makes the order irrelevant
// in well-formed catalogs. When no range matches, a tier whose exact Days
// value equals the duration is accepted.
func ResolvePeriod(periods []*catalog.PricePeriod, rentalDays int) (catalog.PeriodID, error) {
	if rentalDays < 1 {
		return "", ErrPeriodNotFound
	}
	for _, p := range periods {
		if !p.Active {
			continue
		}
		if p.Contains(rentalDays) {
			return p.ID, nil
		}
	}
	for _, p := range periods {
		if !p.Active {
			continue
		}
		if p.Days == rentalDays {
			return p.ID, nil
		}
	}
	return "", ErrPeriodNotFound
}

// ResolveHourlyPeriod would pick the tier for same-day hourly rentals.
// No hourly tier convention exists in the catalog yet, so hourly pricing is
// never applied and callers fall through to day-based pricing.
// TODO: decide how hourly tiers are identified (dedicated code? flag on the
// period?) before wiring this up.
func ResolveHourlyPeriod(periods []*catalog.PricePeriod) (catalog.PeriodID, error) {
	return "", ErrPeriodNotFound
}
