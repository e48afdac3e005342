package catalog

import (
	"context"
	"time"
)

// ShopSettings carries shop-wide policy knobs maintained by admins.
type ShopSettings struct {
	// RefundHours is the full-refund cutoff: cancelling at least this many
	// hours before the earliest rental start refunds 100%, later 50%.
	RefundHours int
	UpdatedAt   time.Time
}

const DefaultRefundHours = 24

type SettingsRepository interface {
	Get(ctx context.Context) (ShopSettings, error)
	Save(ctx context.Context, s ShopSettings) error
}

func (s ShopSettings) RefundCutoffHours() int {
	if s.RefundHours <= 0 {
		return DefaultRefundHours
	}
	return s.RefundHours
}
