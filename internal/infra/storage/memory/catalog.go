package memory

import (
	"context"
	"sort"
	"sync"

	domaincatalog "skirent/internal/domain/catalog"
)

// ProductRepository stores products in memory. Not suitable for production.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[domaincatalog.ProductID]*domaincatalog.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[domaincatalog.ProductID]*domaincatalog.Product)}
}

func (r *ProductRepository) ByID(ctx context.Context, id domaincatalog.ProductID) (*domaincatalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domaincatalog.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *ProductRepository) List(ctx context.Context, activeOnly bool) ([]*domaincatalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaincatalog.Product, 0, len(r.items))
	for _, p := range r.items {
		if activeOnly && !p.Active {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domaincatalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.items[p.ID] = &clone
	return nil
}

// VariantRepository stores variants in memory.
type VariantRepository struct {
	mu    sync.RWMutex
	items map[domaincatalog.VariantID]*domaincatalog.Variant
}

func NewVariantRepository() *VariantRepository {
	return &VariantRepository{items: make(map[domaincatalog.VariantID]*domaincatalog.Variant)}
}

func (r *VariantRepository) ByID(ctx context.Context, id domaincatalog.VariantID) (*domaincatalog.Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	if !ok {
		return nil, domaincatalog.ErrVariantNotFound
	}
	return cloneVariant(v), nil
}

func (r *VariantRepository) ByProduct(ctx context.Context, productID domaincatalog.ProductID) ([]*domaincatalog.Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaincatalog.Variant, 0)
	for _, v := range r.items {
		if v.ProductID == productID {
			out = append(out, cloneVariant(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *VariantRepository) Save(ctx context.Context, v *domaincatalog.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[v.ID] = cloneVariant(v)
	return nil
}

func cloneVariant(v *domaincatalog.Variant) *domaincatalog.Variant {
	clone := *v
	clone.Attributes = append([]domaincatalog.AttributeValue(nil), v.Attributes...)
	return &clone
}

// UnitRepository stores physical units in memory.
type UnitRepository struct {
	mu    sync.RWMutex
	items map[domaincatalog.UnitID]*domaincatalog.Unit
}

func NewUnitRepository() *UnitRepository {
	return &UnitRepository{items: make(map[domaincatalog.UnitID]*domaincatalog.Unit)}
}

func (r *UnitRepository) ByID(ctx context.Context, id domaincatalog.UnitID) (*domaincatalog.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return nil, domaincatalog.ErrUnitNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *UnitRepository) ByVariant(ctx context.Context, variantID domaincatalog.VariantID) ([]*domaincatalog.Unit, error) {
	return r.listByVariant(variantID, false), nil
}

func (r *UnitRepository) RentableByVariant(ctx context.Context, variantID domaincatalog.VariantID) ([]*domaincatalog.Unit, error) {
	return r.listByVariant(variantID, true), nil
}

func (r *UnitRepository) listByVariant(variantID domaincatalog.VariantID, rentableOnly bool) []*domaincatalog.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaincatalog.Unit, 0)
	for _, u := range r.items {
		if u.VariantID != variantID {
			continue
		}
		if rentableOnly && !u.Rentable() {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *UnitRepository) Save(ctx context.Context, u *domaincatalog.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *u
	r.items[u.ID] = &clone
	return nil
}

// PeriodRepository stores price periods in memory.
type PeriodRepository struct {
	mu    sync.RWMutex
	items map[domaincatalog.PeriodID]*domaincatalog.PricePeriod
}

func NewPeriodRepository() *PeriodRepository {
	return &PeriodRepository{items: make(map[domaincatalog.PeriodID]*domaincatalog.PricePeriod)}
}

func (r *PeriodRepository) ByID(ctx context.Context, id domaincatalog.PeriodID) (*domaincatalog.PricePeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domaincatalog.ErrPeriodNotFound
	}
	return clonePeriod(p), nil
}

func (r *PeriodRepository) ListActive(ctx context.Context) ([]*domaincatalog.PricePeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaincatalog.PricePeriod, 0, len(r.items))
	for _, p := range r.items {
		if !p.Active {
			continue
		}
		out = append(out, clonePeriod(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PeriodRepository) Save(ctx context.Context, p *domaincatalog.PricePeriod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = clonePeriod(p)
	return nil
}

func clonePeriod(p *domaincatalog.PricePeriod) *domaincatalog.PricePeriod {
	clone := *p
	if p.MaxDays != nil {
		v := *p.MaxDays
		clone.MaxDays = &v
	}
	return &clone
}

type priceKey struct {
	variant domaincatalog.VariantID
	period  domaincatalog.PeriodID
}

// PriceListRepository stores price entries in memory.
type PriceListRepository struct {
	mu    sync.RWMutex
	items map[priceKey]*domaincatalog.PriceEntry
}

func NewPriceListRepository() *PriceListRepository {
	return &PriceListRepository{items: make(map[priceKey]*domaincatalog.PriceEntry)}
}

func (r *PriceListRepository) ByVariantAndPeriod(ctx context.Context, variantID domaincatalog.VariantID, periodID domaincatalog.PeriodID) (*domaincatalog.PriceEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[priceKey{variant: variantID, period: periodID}]
	if !ok {
		return nil, domaincatalog.ErrPriceEntryNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *PriceListRepository) ByVariant(ctx context.Context, variantID domaincatalog.VariantID) ([]*domaincatalog.PriceEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaincatalog.PriceEntry, 0)
	for k, e := range r.items {
		if k.variant == variantID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodID < out[j].PeriodID })
	return out, nil
}

func (r *PriceListRepository) Save(ctx context.Context, e *domaincatalog.PriceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.items[priceKey{variant: e.VariantID, period: e.PeriodID}] = &clone
	return nil
}

func (r *PriceListRepository) Delete(ctx context.Context, variantID domaincatalog.VariantID, periodID domaincatalog.PeriodID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, priceKey{variant: variantID, period: periodID})
	return nil
}

// SettingsRepository keeps the single shop settings document in memory.
type SettingsRepository struct {
	mu       sync.RWMutex
	settings domaincatalog.ShopSettings
	set      bool
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

func (r *SettingsRepository) Get(ctx context.Context) (domaincatalog.ShopSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.set {
		return domaincatalog.ShopSettings{RefundHours: domaincatalog.DefaultRefundHours}, nil
	}
	return r.settings, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s domaincatalog.ShopSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
	r.set = true
	return nil
}

var (
	_ domaincatalog.ProductRepository   = (*ProductRepository)(nil)
	_ domaincatalog.VariantRepository   = (*VariantRepository)(nil)
	_ domaincatalog.UnitRepository      = (*UnitRepository)(nil)
	_ domaincatalog.PeriodRepository    = (*PeriodRepository)(nil)
	_ domaincatalog.PriceListRepository = (*PriceListRepository)(nil)
	_ domaincatalog.SettingsRepository  = (*SettingsRepository)(nil)
)
