package me

import (
	"context"
	"time"

	"skirent/internal/app/queries"
	"skirent/internal/app/uow"
)

const myBookingsKey = "me.bookings"

type MyBookingsQuery struct {
	UserID string
}

func (q MyBookingsQuery) Key() string { return myBookingsKey }

type BookingLineView struct {
	DetailID     string    `json:"detail_id"`
	VariantID    string    `json:"variant_id"`
	UnitID       string    `json:"unit_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Delivery     string    `json:"delivery"`
	PickupWindow string    `json:"pickup_window,omitempty"`
	ReturnWindow string    `json:"return_window,omitempty"`
	Fulfillment  string    `json:"fulfillment"`
	Price        int64     `json:"price_cents"`
}

type BookingView struct {
	ID        string            `json:"id"`
	Reference string            `json:"reference"`
	Status    string            `json:"status"`
	Cart      bool              `json:"cart"`
	Total     int64             `json:"total_cents"`
	CreatedAt time.Time         `json:"created_at"`
	Lines     []BookingLineView `json:"lines"`
}

type MyBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MyBookingsHandler) Handle(ctx context.Context, q MyBookingsQuery) ([]BookingView, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()

	bookings, err := unit.Bookings().ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		details, err := unit.Details().ByBooking(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		lines := make([]BookingLineView, 0, len(details))
		for _, d := range details {
			lines = append(lines, BookingLineView{
				DetailID:     string(d.ID),
				VariantID:    string(d.VariantID),
				UnitID:       string(d.UnitID),
				Start:        d.Range.Start,
				End:          d.Range.End,
				Delivery:     string(d.Delivery),
				PickupWindow: d.PickupWindow,
				ReturnWindow: d.ReturnWindow,
				Fulfillment:  string(d.Fulfillment),
				Price:        d.Price.Amount,
			})
		}
		out = append(out, BookingView{
			ID:        string(b.ID),
			Reference: b.Reference,
			Status:    string(b.Status),
			Cart:      b.Cart,
			Total:     b.PriceTotal.Amount,
			CreatedAt: b.CreatedAt,
			Lines:     lines,
		})
	}
	return out, nil
}

var _ queries.Handler[MyBookingsQuery, []BookingView] = (*MyBookingsHandler)(nil)
