package pricing

import (
	"context"
	"errors"
	"log/slog"

	"skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/money"
)

// Calculator resolves the rental price of a variant for a duration.
//
// Price lookup never fails: when no entry matches, a cascade of
// approximations runs and the worst case is a zero price. Callers must treat
// zero as "no valid price configured", not as a free rental.
type Calculator struct {
	Periods catalog.PeriodRepository
	Prices  catalog.PriceListRepository
	Logger  *slog.Logger
}

// Quote describes how a price was arrived at, for display and auditing.
type Quote struct {
	VariantID catalog.VariantID
	PeriodID  catalog.PeriodID
	Days      int
	Price     money.Money
	// Fallback names the cascade step that produced the price; empty for a
	// direct (variant, period) hit.
	Fallback string
}

const (
	FallbackBestLowerMatch = "best_lower_match"
	FallbackDailyRate      = "daily_rate_extrapolation"
	FallbackFirstEntry     = "first_entry"
	FallbackZero           = "zero"
	FallbackHourly         = "hourly"
)

// Price computes the total rental price for a variant. Same-day bookings
// with a positive hour count attempt hourly pricing first and silently fall
// through to day-based pricing when no hourly tier is configured.
func (c *Calculator) Price(ctx context.Context, variantID catalog.VariantID, rentalDays, rentalHours int, sameDay bool) money.Money {
	q := c.QuoteFor(ctx, variantID, rentalDays, rentalHours, sameDay)
	return q.Price
}

// QuoteFor is Price with provenance.
func (c *Calculator) QuoteFor(ctx context.Context, variantID catalog.VariantID, rentalDays, rentalHours int, sameDay bool) Quote {
	periods, err := c.Periods.ListActive(ctx)
	if err != nil {
		c.warn("price period listing failed", "variant_id", variantID, "error", err)
		return Quote{VariantID: variantID, Days: rentalDays, Price: money.EUR(0), Fallback: FallbackZero}
	}

	if rentalHours > 0 && sameDay {
		if q, ok := c.hourlyQuote(ctx, variantID, periods, rentalHours); ok {
			return q
		}
	}

	if rentalDays < 1 {
		rentalDays = 1
	}

	periodID, err := ResolvePeriod(periods, rentalDays)
	if err == nil {
		entry, lookupErr := c.Prices.ByVariantAndPeriod(ctx, variantID, periodID)
		if lookupErr == nil {
			return Quote{VariantID: variantID, PeriodID: periodID, Days: rentalDays, Price: entry.Price}
		}
		if !errors.Is(lookupErr, catalog.ErrPriceEntryNotFound) {
			c.warn("price entry lookup failed", "variant_id", variantID, "period_id", periodID, "error", lookupErr)
		}
	}

	return c.fallback(ctx, variantID, periods, rentalDays)
}

// fallback runs the approximation cascade in order; the first step that
// produces a price wins.
func (c *Calculator) fallback(ctx context.Context, variantID catalog.VariantID, periods []*catalog.PricePeriod, rentalDays int) Quote {
	entries, err := c.Prices.ByVariant(ctx, variantID)
	if err != nil || len(entries) == 0 {
		if err != nil {
			c.warn("price list scan failed", "variant_id", variantID, "error", err)
		}
		return Quote{VariantID: variantID, Days: rentalDays, Price: money.EUR(0), Fallback: FallbackZero}
	}

	byID := make(map[catalog.PeriodID]*catalog.PricePeriod, len(periods))
	for _, p := range periods {
		byID[p.ID] = p
	}

	// Step 1: best lower match on the days each entry's period implies.
	// One-day entries are excluded here: a daily rate approximates longer
	// stays by extrapolation (step 2), not by its flat price.
	var best *catalog.PriceEntry
	bestDays := 0
	for _, e := range entries {
		p, ok := byID[e.PeriodID]
		if !ok {
			continue
		}
		implied := p.ImpliedDays()
		if implied == rentalDays {
			return Quote{VariantID: variantID, PeriodID: e.PeriodID, Days: rentalDays, Price: e.Price, Fallback: FallbackBestLowerMatch}
		}
		if implied > 1 && implied < rentalDays && implied > bestDays {
			best = e
			bestDays = implied
		}
	}
	if best != nil {
		return Quote{VariantID: variantID, PeriodID: best.PeriodID, Days: rentalDays, Price: best.Price, Fallback: FallbackBestLowerMatch}
	}

	// Step 2: one-day entry extrapolated to the full duration.
	for _, e := range entries {
		p, ok := byID[e.PeriodID]
		if !ok {
			continue
		}
		if p.ImpliedDays() == 1 {
			return Quote{
				VariantID: variantID,
				PeriodID:  e.PeriodID,
				Days:      rentalDays,
				Price:     e.Price.Multiply(int64(rentalDays)),
				Fallback:  FallbackDailyRate,
			}
		}
	}

	// Step 3: any entry at all, regardless of period.
	first := entries[0]
	c.warn("price resolved via last-resort entry", "variant_id", variantID, "period_id", first.PeriodID, "rental_days", rentalDays)
	return Quote{VariantID: variantID, PeriodID: first.PeriodID, Days: rentalDays, Price: first.Price, Fallback: FallbackFirstEntry}
}

func (c *Calculator) hourlyQuote(ctx context.Context, variantID catalog.VariantID, periods []*catalog.PricePeriod, hours int) (Quote, bool) {
	periodID, err := ResolveHourlyPeriod(periods)
	if err != nil {
		return Quote{}, false
	}
	entry, err := c.Prices.ByVariantAndPeriod(ctx, variantID, periodID)
	if err != nil {
		return Quote{}, false
	}
	return Quote{
		VariantID: variantID,
		PeriodID:  periodID,
		Price:     entry.Price.Multiply(int64(hours)),
		Fallback:  FallbackHourly,
	}, true
}

func (c *Calculator) warn(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Warn(msg, args...)
	}
}
