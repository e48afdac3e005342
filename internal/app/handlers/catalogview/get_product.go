package catalogview

import (
	"context"
	"time"

	"skirent/internal/app/queries"
	"skirent/internal/app/uow"
	domainavailability "skirent/internal/domain/availability"
	domaincatalog "skirent/internal/domain/catalog"
	domainrange "skirent/internal/domain/shared/daterange"
)

const getProductKey = "catalog.get_product"

// GetProductQuery is the product detail page: the variants with their
// attribute values and, when a range is given, how many units are free.
type GetProductQuery struct {
	ProductID        string
	Start            time.Time
	End              time.Time
	RequestingUserID string
}

func (q GetProductQuery) Key() string { return getProductKey }

type VariantView struct {
	ID         string                         `json:"id"`
	Attributes []domaincatalog.AttributeValue `json:"attributes"`
	Deposit    int64                          `json:"deposit_cents"`
	Active     bool                           `json:"active"`
	// Available is -1 when the query carried no rental range.
	Available int `json:"available"`
}

type ProductDetailView struct {
	Product  ProductView   `json:"product"`
	Variants []VariantView `json:"variants"`
}

type GetProductHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProductHandler) Handle(ctx context.Context, q GetProductQuery) (*ProductDetailView, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()

	p, err := unit.Products().ByID(ctx, domaincatalog.ProductID(q.ProductID))
	if err != nil {
		return nil, err
	}
	variants, err := unit.Variants().ByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	var r domainrange.RentalRange
	withRange := !q.Start.IsZero() && !q.End.IsZero()
	if withRange {
		r, err = domainrange.New(q.Start, q.End)
		if err != nil {
			return nil, err
		}
	}

	engine := domainavailability.Engine{Units: unit.Units(), Details: unit.Details()}
	views := make([]VariantView, 0, len(variants))
	for _, v := range variants {
		available := -1
		if withRange && v.Active {
			available, err = engine.CountAvailable(ctx, v.ID, r, q.RequestingUserID)
			if err != nil {
				return nil, err
			}
		}
		views = append(views, VariantView{
			ID:         string(v.ID),
			Attributes: v.Attributes,
			Deposit:    v.Deposit.Amount,
			Active:     v.Active,
			Available:  available,
		})
	}

	from, err := cheapestEntry(ctx, unit.Prices(), variants)
	if err != nil {
		return nil, err
	}
	return &ProductDetailView{
		Product: ProductView{
			ID:             string(p.ID),
			Name:           p.Name,
			ImageURL:       p.ImageURL,
			HasVariants:    p.HasVariants,
			CanBeDelivered: p.CanBeDelivered,
			CanBePickedUp:  p.CanBePickedUp,
			FromPrice:      from.Amount,
		},
		Variants: views,
	}, nil
}

var _ queries.Handler[GetProductQuery, *ProductDetailView] = (*GetProductHandler)(nil)
