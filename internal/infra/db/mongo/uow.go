package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skirent/internal/app/uow"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainrefund "skirent/internal/domain/refund"
	domainuser "skirent/internal/domain/user"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Repositories are shared; the transaction boundary travels in the context
// as a session.
type Factory struct {
	DB *mongo.Database

	ProductsRepo domaincatalog.ProductRepository
	VariantsRepo domaincatalog.VariantRepository
	UnitsRepo    domaincatalog.UnitRepository
	PeriodsRepo  domaincatalog.PeriodRepository
	PricesRepo   domaincatalog.PriceListRepository
	SettingsRepo domaincatalog.SettingsRepository
	BookingsRepo domainbooking.Repository
	DetailsRepo  domainbooking.DetailRepository
	RefundsRepo  domainrefund.Repository
	UsersRepo    domainuser.Repository
}

// NewFactory builds a factory with the default repository set on db.
func NewFactory(db *mongo.Database) Factory {
	bookings := NewBookingRepository(db)
	return Factory{
		DB:           db,
		ProductsRepo: NewProductRepository(db),
		VariantsRepo: NewVariantRepository(db),
		UnitsRepo:    NewUnitRepository(db),
		PeriodsRepo:  NewPeriodRepository(db),
		PricesRepo:   NewPriceListRepository(db),
		SettingsRepo: NewSettingsRepository(db),
		BookingsRepo: bookings,
		DetailsRepo:  NewDetailRepository(db, bookings),
		RefundsRepo:  NewRefundRepository(db),
		UsersRepo:    NewUserRepository(db),
	}
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:       f.DB,
		session:  session,
		products: f.ProductsRepo,
		variants: f.VariantsRepo,
		units:    f.UnitsRepo,
		periods:  f.PeriodsRepo,
		prices:   f.PricesRepo,
		settings: f.SettingsRepo,
		bookings: f.BookingsRepo,
		details:  f.DetailsRepo,
		refunds:  f.RefundsRepo,
		users:    f.UsersRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

	products domaincatalog.ProductRepository
	variants domaincatalog.VariantRepository
	units    domaincatalog.UnitRepository
	periods  domaincatalog.PeriodRepository
	prices   domaincatalog.PriceListRepository
	settings domaincatalog.SettingsRepository
	bookings domainbooking.Repository
	details  domainbooking.DetailRepository
	refunds  domainrefund.Repository
	users    domainuser.Repository
}

func (u *Unit) Products() domaincatalog.ProductRepository {
	return u.products
}

func (u *Unit) Variants() domaincatalog.VariantRepository {
	return u.variants
}

func (u *Unit) Units() domaincatalog.UnitRepository {
	return u.units
}

func (u *Unit) Periods() domaincatalog.PeriodRepository {
	return u.periods
}

func (u *Unit) Prices() domaincatalog.PriceListRepository {
	return u.prices
}

func (u *Unit) Settings() domaincatalog.SettingsRepository {
	return u.settings
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Details() domainbooking.DetailRepository {
	return u.details
}

func (u *Unit) Refunds() domainrefund.Repository {
	return u.refunds
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for
// downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
