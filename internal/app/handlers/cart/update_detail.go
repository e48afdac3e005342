package cart

import (
	"context"
	"errors"
	"time"

	"skirent/internal/app/commands"
	"skirent/internal/app/uow"
	domainbooking "skirent/internal/domain/booking"
)

const updateDetailKey = "cart.update_detail"

// UpdateDetailCommand edits the delivery choice of a line item already in
// the cart. The rental range and the claimed unit stay fixed.
type UpdateDetailCommand struct {
	UserID         string
	DetailID       string
	DeliveryMethod string
	PickupWindow   string
	ReturnWindow   string
}

func (c UpdateDetailCommand) Key() string { return updateDetailKey }

var ErrDetailNotOwned = errors.New("cart: line item belongs to another user")

type UpdateDetailHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *UpdateDetailHandler) Handle(ctx context.Context, cmd UpdateDetailCommand) (struct{}, error) {
	var zero struct{}
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return zero, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return zero, err
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

	detail, err := unit.Details().ByID(ctx, domainbooking.DetailID(cmd.DetailID))
	if err != nil {
		return zero, err
	}
	owner, err := unit.Bookings().ByID(ctx, detail.BookingID)
	if err != nil {
		return zero, err
	}
	if owner.UserID != cmd.UserID {
		return zero, ErrDetailNotOwned
	}
	if !owner.Cart {
		return zero, domainbooking.ErrNotCart
	}

	if err := detail.UpdateDelivery(domainbooking.DeliveryMethod(cmd.DeliveryMethod), cmd.PickupWindow, cmd.ReturnWindow, time.Now().UTC()); err != nil {
		return zero, err
	}
	if err := unit.Details().Save(ctx, detail); err != nil {
		return zero, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return zero, err
		}
		committed = true
	}
	return zero, nil
}

var _ commands.Handler[UpdateDetailCommand, struct{}] = (*UpdateDetailHandler)(nil)
