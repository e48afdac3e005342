package catalog

import (
	"context"
	"errors"
	"time"

	"skirent/internal/domain/shared/money"
)

var ErrPriceEntryNotFound = errors.New("catalog: price entry not found")

// PriceEntry maps (variant, period) to a price. Absence of an entry means
// the variant is not priced for that tier and lookup falls back.
type PriceEntry struct {
	VariantID VariantID
	PeriodID  PeriodID
	Price     money.Money
	UpdatedAt time.Time
}

type PriceListRepository interface {
	ByVariantAndPeriod(ctx context.Context, variantID VariantID, periodID PeriodID) (*PriceEntry, error)
	ByVariant(ctx context.Context, variantID VariantID) ([]*PriceEntry, error)
	Save(ctx context.Context, e *PriceEntry) error
	Delete(ctx context.Context, variantID VariantID, periodID PeriodID) error
}
