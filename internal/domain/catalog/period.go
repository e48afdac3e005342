package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPeriodNotFound     = errors.New("catalog: price period not found")
	ErrPeriodRangeInvalid = errors.New("catalog: period day range is invalid")
	ErrPeriodRangeOverlap = errors.New("catalog: period day range overlaps an existing period")
	ErrPeriodCodeRequired = errors.New("catalog: period code is required")
)

type PeriodID string

// PricePeriod is a named rental-duration tier shared across all variants.
// MinDays/MaxDays bound the durations the tier covers; a nil MaxDays means
// the range is open ended ("30+ days"). Days optionally names the exact
// duration the tier represents and is what price extrapolation works from.
type PricePeriod struct {
	ID        PeriodID
	Code      string
	Name      string
	Position  int
	Active    bool
	MinDays   int
	MaxDays   *int
	Days      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PeriodRepository interface {
	ByID(ctx context.Context, id PeriodID) (*PricePeriod, error)
	// ListActive returns active periods ordered by position, then id.
	ListActive(ctx context.Context) ([]*PricePeriod, error)
	Save(ctx context.Context, p *PricePeriod) error
}

type NewPeriodParams struct {
	ID        PeriodID
	Code      string
	Name      string
	Position  int
	MinDays   int
	MaxDays   *int
	Days      int
	CreatedAt time.Time
}

func NewPricePeriod(params NewPeriodParams) (*PricePeriod, error) {
	if params.Code == "" {
		return nil, ErrPeriodCodeRequired
	}
	if params.MinDays < 1 {
		return nil, ErrPeriodRangeInvalid
	}
	if params.MaxDays != nil && *params.MaxDays < params.MinDays {
		return nil, ErrPeriodRangeInvalid
	}
	now := params.CreatedAt.UTC()
	return &PricePeriod{
		ID:        params.ID,
		Code:      params.Code,
		Name:      params.Name,
		Position:  params.Position,
		Active:    true,
		MinDays:   params.MinDays,
		MaxDays:   params.MaxDays,
		Days:      params.Days,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Contains reports whether the tier covers the given rental duration.
func (p *PricePeriod) Contains(days int) bool {
	if days < p.MinDays {
		return false
	}
	return p.MaxDays == nil || days <= *p.MaxDays
}

// ImpliedDays is the duration a price entry for this tier stands for:
// the explicit Days when set, the lower range bound otherwise.
func (p *PricePeriod) ImpliedDays() int {
	if p.Days > 0 {
		return p.Days
	}
	return p.MinDays
}

// EnsureNonOverlapping rejects a period whose day range intersects a sibling.
// Overlap is a configuration-time invariant: lookups assume at most one tier
// covers any duration.
func EnsureNonOverlapping(candidate *PricePeriod, siblings []*PricePeriod) error {
	for _, s := range siblings {
		if s.ID == candidate.ID || !s.Active {
			continue
		}
		if rangesIntersect(candidate, s) {
			return ErrPeriodRangeOverlap
		}
	}
	return nil
}

func rangesIntersect(a, b *PricePeriod) bool {
	if a.MaxDays != nil && *a.MaxDays < b.MinDays {
		return false
	}
	if b.MaxDays != nil && *b.MaxDays < a.MinDays {
		return false
	}
	return true
}
