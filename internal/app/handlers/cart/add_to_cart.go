package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"skirent/internal/app/commands"
	"skirent/internal/app/middleware"
	"skirent/internal/app/outbox"
	"skirent/internal/app/uow"
	domainavailability "skirent/internal/domain/availability"
	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainpricing "skirent/internal/domain/pricing"
	domainrange "skirent/internal/domain/shared/daterange"
)

const addToCartKey = "cart.add"

type AddToCartCommand struct {
	CommandID       string
	UserID          string
	ProductID       string
	VariantID       string
	Start           time.Time
	End             time.Time
	DeliveryMethod  string
	PickupWindow    string
	ReturnWindow    string
	IdempotencyKeyV string
}

func (c AddToCartCommand) Key() string { return addToCartKey }

func (c AddToCartCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c AddToCartCommand) ResultPrototype() any { return &AddToCartResult{} }

type AddToCartResult struct {
	BookingID string `json:"booking_id"`
	DetailID  string `json:"detail_id"`
	UnitID    string `json:"unit_id"`
	Price     int64  `json:"price_cents"`
	Total     int64  `json:"total_cents"`
}

var (
	ErrUnitOfWorkRequired = errors.New("cart: unit of work required")
	ErrProductInactive    = errors.New("cart: product is not active")
)

// AddToCartHandler prices one rental slot, claims a free unit atomically and
// appends the line item to the user's single draft cart.
type AddToCartHandler struct {
	UoWFactory uow.UoWFactory
	Calculator *domainpricing.Calculator
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *AddToCartHandler) Handle(ctx context.Context, cmd AddToCartCommand) (*AddToCartResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	r, err := domainrange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	if err := domainbooking.ValidateDelivery(domainbooking.DeliveryMethod(cmd.DeliveryMethod), r, cmd.PickupWindow, cmd.ReturnWindow); err != nil {
		return nil, err
	}

	product, err := unit.Products().ByID(ctx, domaincatalog.ProductID(cmd.ProductID))
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, ErrProductInactive
	}
	variant, err := unit.Variants().ByID(ctx, domaincatalog.VariantID(cmd.VariantID))
	if err != nil {
		return nil, err
	}
	if variant.ProductID != product.ID {
		return nil, domaincatalog.ErrVariantNotOfProduct
	}

	price := h.Calculator.Price(ctx, variant.ID, r.Days(), r.Hours(), r.SameDay())

	now := time.Now().UTC()
	cart, err := h.activeCart(ctx, unit, cmd.UserID, now)
	if err != nil {
		return nil, err
	}

	engine := domainavailability.Engine{Units: unit.Units(), Details: unit.Details()}
	free, err := engine.FirstFree(ctx, variant.ID, r, cmd.UserID)
	if err != nil {
		if errors.Is(err, domaincatalog.ErrUnitNotFound) {
			return nil, domainbooking.ErrNoUnitsAvailable
		}
		return nil, err
	}

	detail, err := domainbooking.NewDetail(domainbooking.NewDetailParams{
		ID:           domainbooking.DetailID(cmd.CommandID),
		BookingID:    cart.ID,
		UnitID:       free.ID,
		VariantID:    variant.ID,
		Range:        r,
		Delivery:     domainbooking.DeliveryMethod(cmd.DeliveryMethod),
		PickupWindow: cmd.PickupWindow,
		ReturnWindow: cmd.ReturnWindow,
		Price:        price,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	// The availability check above is advisory only; Claim re-validates the
	// slot under mutual exclusion so the last free unit cannot be handed to
	// two racing carts.
	if err := unit.Details().Claim(ctx, detail, cmd.UserID); err != nil {
		return nil, err
	}

	details, err := unit.Details().ByBooking(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	total := domainbooking.TotalOf(details)
	cart.SetTotal(total, now)
	cart.Record(domainbooking.DetailAdded{
		BookingID: cart.ID,
		DetailID:  detail.ID,
		UnitID:    detail.UnitID,
		VariantID: detail.VariantID,
		Range:     r,
		Price:     price,
		At:        now,
	})
	if err := unit.Bookings().Save(ctx, cart); err != nil {
		return nil, err
	}

	pending := cart.PendingEvents()
	cart.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &AddToCartResult{
		BookingID: string(cart.ID),
		DetailID:  string(detail.ID),
		UnitID:    string(detail.UnitID),
		Price:     price.Amount,
		Total:     total.Amount,
	}, nil
}

// activeCart returns the user's draft booking, creating it on first use.
// At most one booking per user may have Cart set.
func (h *AddToCartHandler) activeCart(ctx context.Context, unit uow.UnitOfWork, userID string, now time.Time) (*domainbooking.Booking, error) {
	cart, err := unit.Bookings().ActiveCartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domainbooking.ErrBookingNotFound) {
		return nil, err
	}
	cart = domainbooking.NewCart(
		domainbooking.BookingID(uuid.NewString()),
		userID,
		newReference(),
		now,
	)
	if err := unit.Bookings().Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func newReference() string {
	raw := uuid.NewString()
	return "SKI-" + raw[:8]
}

func (h *AddToCartHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[AddToCartCommand, *AddToCartResult] = (*AddToCartHandler)(nil)
var _ middleware.IdempotentCommand = (*AddToCartCommand)(nil)
