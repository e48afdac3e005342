package uow

import (
	"context"

	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainrefund "skirent/internal/domain/refund"
	domainuser "skirent/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Products() domaincatalog.ProductRepository
	Variants() domaincatalog.VariantRepository
	Units() domaincatalog.UnitRepository
	Periods() domaincatalog.PeriodRepository
	Prices() domaincatalog.PriceListRepository
	Settings() domaincatalog.SettingsRepository
	Bookings() domainbooking.Repository
	Details() domainbooking.DetailRepository
	Refunds() domainrefund.Repository
	Users() domainuser.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
