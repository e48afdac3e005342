package booking

import (
	"time"

	"skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
)

type CartOpened struct {
	BookingID BookingID
	UserID    string
	At        time.Time
}

func (e CartOpened) EventName() string     { return "booking.cart_opened" }
func (e CartOpened) AggregateID() string   { return string(e.BookingID) }
func (e CartOpened) OccurredAt() time.Time { return e.At }

type DetailAdded struct {
	BookingID BookingID
	DetailID  DetailID
	UnitID    catalog.UnitID
	VariantID catalog.VariantID
	Range     daterange.RentalRange
	Price     money.Money
	At        time.Time
}

func (e DetailAdded) EventName() string     { return "booking.detail_added" }
func (e DetailAdded) AggregateID() string   { return string(e.BookingID) }
func (e DetailAdded) OccurredAt() time.Time { return e.At }

type PaymentStarted struct {
	BookingID BookingID
	SessionID string
	Total     money.Money
	At        time.Time
}

func (e PaymentStarted) EventName() string     { return "booking.payment_started" }
func (e PaymentStarted) AggregateID() string   { return string(e.BookingID) }
func (e PaymentStarted) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID
	UserID    string
	Total     money.Money
	At        time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	Reason    string
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
