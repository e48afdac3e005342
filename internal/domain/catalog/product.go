package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProductNotFound = errors.New("catalog: product not found")
	ErrNameRequired    = errors.New("catalog: product name is required")
)

type ProductID string

// Product is a rentable item type, e.g. a ski model or a snowboard line.
// Variant-less products carry a single implicit default variant created
// alongside the product.
type Product struct {
	ID             ProductID
	Name           string
	Description    string
	HasVariants    bool
	CanBeDelivered bool
	CanBePickedUp  bool
	Active         bool
	ImageURL       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProductRepository interface {
	ByID(ctx context.Context, id ProductID) (*Product, error)
	List(ctx context.Context, activeOnly bool) ([]*Product, error)
	Save(ctx context.Context, p *Product) error
}

type NewProductParams struct {
	ID             ProductID
	Name           string
	Description    string
	HasVariants    bool
	CanBeDelivered bool
	CanBePickedUp  bool
	CreatedAt      time.Time
}

func NewProduct(params NewProductParams) (*Product, error) {
	if params.Name == "" {
		return nil, ErrNameRequired
	}
	now := params.CreatedAt.UTC()
	return &Product{
		ID:             params.ID,
		Name:           params.Name,
		Description:    params.Description,
		HasVariants:    params.HasVariants,
		CanBeDelivered: params.CanBeDelivered,
		CanBePickedUp:  params.CanBePickedUp,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Disable soft-deletes the product from the customer catalog.
func (p *Product) Disable(now time.Time) {
	p.Active = false
	p.UpdatedAt = now.UTC()
}

func (p *Product) Enable(now time.Time) {
	p.Active = true
	p.UpdatedAt = now.UTC()
}
