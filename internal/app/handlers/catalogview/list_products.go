package catalogview

import (
	"context"
	"time"

	"skirent/internal/app/queries"
	"skirent/internal/app/uow"
	domainavailability "skirent/internal/domain/availability"
	domaincatalog "skirent/internal/domain/catalog"
	domainrange "skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
)

const listProductsKey = "catalog.list_products"

// ListProductsQuery is the public shop listing. When Start/End are set the
// result is filtered to products with at least one free unit in that range.
type ListProductsQuery struct {
	Start            time.Time
	End              time.Time
	RequestingUserID string
}

func (q ListProductsQuery) Key() string { return listProductsKey }

type ProductView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ImageURL       string `json:"image_url,omitempty"`
	HasVariants    bool   `json:"has_variants"`
	CanBeDelivered bool   `json:"can_be_delivered"`
	CanBePickedUp  bool   `json:"can_be_picked_up"`
	// FromPrice is the cheapest price-list entry across the product's
	// variants, zero when nothing is priced yet.
	FromPrice int64 `json:"from_price_cents"`
}

type ListProductsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListProductsHandler) Handle(ctx context.Context, q ListProductsQuery) ([]ProductView, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()

	products, err := unit.Products().List(ctx, true)
	if err != nil {
		return nil, err
	}

	var r domainrange.RentalRange
	filter := !q.Start.IsZero() && !q.End.IsZero()
	if filter {
		r, err = domainrange.New(q.Start, q.End)
		if err != nil {
			return nil, err
		}
	}

	engine := domainavailability.Engine{Units: unit.Units(), Details: unit.Details()}
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		variants, err := unit.Variants().ByProduct(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if filter {
			free, err := engine.ProductAvailable(ctx, variants, r, q.RequestingUserID)
			if err != nil {
				return nil, err
			}
			if !free {
				continue
			}
		}
		from, err := cheapestEntry(ctx, unit.Prices(), variants)
		if err != nil {
			return nil, err
		}
		out = append(out, ProductView{
			ID:             string(p.ID),
			Name:           p.Name,
			ImageURL:       p.ImageURL,
			HasVariants:    p.HasVariants,
			CanBeDelivered: p.CanBeDelivered,
			CanBePickedUp:  p.CanBePickedUp,
			FromPrice:      from.Amount,
		})
	}
	return out, nil
}

func cheapestEntry(ctx context.Context, prices domaincatalog.PriceListRepository, variants []*domaincatalog.Variant) (money.Money, error) {
	cheapest := money.EUR(0)
	found := false
	for _, v := range variants {
		entries, err := prices.ByVariant(ctx, v.ID)
		if err != nil {
			return money.EUR(0), err
		}
		for _, e := range entries {
			if e.Price.IsZero() {
				continue
			}
			if !found || e.Price.Amount < cheapest.Amount {
				cheapest = e.Price
				found = true
			}
		}
	}
	return cheapest, nil
}

var _ queries.Handler[ListProductsQuery, []ProductView] = (*ListProductsHandler)(nil)
