package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"skirent/internal/domain/shared/money"
)

var (
	ErrVariantNotFound     = errors.New("catalog: variant not found")
	ErrDuplicateVariant    = errors.New("catalog: variant with identical attribute combination exists")
	ErrVariantNotOfProduct = errors.New("catalog: variant does not belong to product")
)

type VariantID string

// AttributeValue links a variant to one value of one attribute dimension,
// e.g. size=170 or color=red. The default variant of a variant-less product
// has no attribute values.
type AttributeValue struct {
	Attribute string
	Value     string
}

// Variant is a sellable configuration of a product and the unit of pricing
// and stock-keeping.
type Variant struct {
	ID         VariantID
	ProductID  ProductID
	Attributes []AttributeValue
	Deposit    money.Money
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type VariantRepository interface {
	ByID(ctx context.Context, id VariantID) (*Variant, error)
	ByProduct(ctx context.Context, productID ProductID) ([]*Variant, error)
	Save(ctx context.Context, v *Variant) error
}

type NewVariantParams struct {
	ID         VariantID
	ProductID  ProductID
	Attributes []AttributeValue
	Deposit    money.Money
	CreatedAt  time.Time
}

func NewVariant(params NewVariantParams) *Variant {
	now := params.CreatedAt.UTC()
	return &Variant{
		ID:         params.ID,
		ProductID:  params.ProductID,
		Attributes: append([]AttributeValue(nil), params.Attributes...),
		Deposit:    params.Deposit,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewDefaultVariant builds the implicit variant for a variant-less product.
func NewDefaultVariant(id VariantID, productID ProductID, now time.Time) *Variant {
	return NewVariant(NewVariantParams{ID: id, ProductID: productID, CreatedAt: now})
}

// AttributeKey returns a canonical form of the attribute combination, used to
// enforce combination uniqueness across a product's variants.
func (v *Variant) AttributeKey() string {
	pairs := make([]string, 0, len(v.Attributes))
	for _, av := range v.Attributes {
		pairs = append(pairs, strings.ToLower(av.Attribute)+"="+strings.ToLower(av.Value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}

// EnsureUniqueCombination rejects a variant whose attribute combination is
// already taken by a sibling.
func EnsureUniqueCombination(candidate *Variant, siblings []*Variant) error {
	key := candidate.AttributeKey()
	for _, s := range siblings {
		if s.ID == candidate.ID {
			continue
		}
		if s.AttributeKey() == key {
			return ErrDuplicateVariant
		}
	}
	return nil
}
