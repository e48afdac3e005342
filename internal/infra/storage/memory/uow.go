package memory

import (
	"context"
	"errors"

	"skirent/internal/app/uow"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainrefund "skirent/internal/domain/refund"
	domainuser "skirent/internal/domain/user"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Stores bundles every in-memory repository behind one root.
type Stores struct {
	Products *ProductRepository
	Variants *VariantRepository
	Units    *UnitRepository
	Periods  *PeriodRepository
	Prices   *PriceListRepository
	Settings *SettingsRepository
	Bookings *BookingRepository
	Details  *DetailRepository
	Refunds  *RefundRepository
	Users    *UserRepository
}

// NewStores creates the full set of empty repositories.
func NewStores() *Stores {
	bookings := NewBookingRepository()
	return &Stores{
		Products: NewProductRepository(),
		Variants: NewVariantRepository(),
		Units:    NewUnitRepository(),
		Periods:  NewPeriodRepository(),
		Prices:   NewPriceListRepository(),
		Settings: NewSettingsRepository(),
		Bookings: bookings,
		Details:  NewDetailRepository(bookings),
		Refunds:  NewRefundRepository(),
		Users:    NewUserRepository(),
	}
}

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	Stores *Stores
}

// Begin starts a lightweight transaction boundary. No isolation is provided
// but the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Stores == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{stores: f.Stores}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	stores *Stores
}

func (u *Unit) Products() domaincatalog.ProductRepository  { return u.stores.Products }
func (u *Unit) Variants() domaincatalog.VariantRepository  { return u.stores.Variants }
func (u *Unit) Units() domaincatalog.UnitRepository        { return u.stores.Units }
func (u *Unit) Periods() domaincatalog.PeriodRepository    { return u.stores.Periods }
func (u *Unit) Prices() domaincatalog.PriceListRepository  { return u.stores.Prices }
func (u *Unit) Settings() domaincatalog.SettingsRepository { return u.stores.Settings }
func (u *Unit) Bookings() domainbooking.Repository         { return u.stores.Bookings }
func (u *Unit) Details() domainbooking.DetailRepository    { return u.stores.Details }
func (u *Unit) Refunds() domainrefund.Repository           { return u.stores.Refunds }
func (u *Unit) Users() domainuser.Repository               { return u.stores.Users }

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.UnitOfWork = (*Unit)(nil)
var _ uow.UoWFactory = (Factory{})
