package booking

import (
	"context"
	"errors"
	"time"

	"skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/daterange"
	"skirent/internal/domain/shared/money"
)

var (
	ErrDetailNotFound       = errors.New("booking: line item not found")
	ErrNoUnitsAvailable     = errors.New("booking: no units available for the requested range")
	ErrDeliveryMethodNeeded = errors.New("booking: delivery method is required")
	ErrTimeWindowsRequired  = errors.New("booking: pickup and return time windows are required for multi-day pickups")
)

type DetailID string

type DeliveryMethod string

const (
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryCourier DeliveryMethod = "delivery"
)

// Fulfillment tracks the line item through the physical hand-over.
type Fulfillment string

const (
	FulfillmentIdle     Fulfillment = "idle"
	FulfillmentToPickup Fulfillment = "toPickup"
	FulfillmentPickedUp Fulfillment = "pickedUp"
	FulfillmentReturned Fulfillment = "returned"
)

// Detail is one reserved unit inside a booking for a concrete rental range.
// The unit assignment is immutable once the line item exists; only delivery
// details may be edited afterwards.
type Detail struct {
	ID           DetailID
	BookingID    BookingID
	UnitID       catalog.UnitID
	VariantID    catalog.VariantID
	Range        daterange.RentalRange
	Delivery     DeliveryMethod
	PickupWindow string
	ReturnWindow string
	Price        money.Money
	Fulfillment  Fulfillment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DetailRepository interface {
	ByID(ctx context.Context, id DetailID) (*Detail, error)
	ByBooking(ctx context.Context, bookingID BookingID) ([]*Detail, error)
	// ActiveOverlapping returns, deduplicated, the ids of those units among
	// unitIDs that carry a line item overlapping r whose parent booking is
	// active for the requesting user (not cancelled, and either checked out
	// or the requester's own cart).
	ActiveOverlapping(ctx context.Context, unitIDs []catalog.UnitID, r daterange.RentalRange, requestingUserID string) ([]catalog.UnitID, error)
	// Claim atomically inserts the detail provided no overlapping active
	// line item exists for its unit. Concurrent claims for the same slot
	// are serialized; the loser gets ErrNoUnitsAvailable.
	Claim(ctx context.Context, d *Detail, requestingUserID string) error
	Save(ctx context.Context, d *Detail) error
}

type NewDetailParams struct {
	ID           DetailID
	BookingID    BookingID
	UnitID       catalog.UnitID
	VariantID    catalog.VariantID
	Range        daterange.RentalRange
	Delivery     DeliveryMethod
	PickupWindow string
	ReturnWindow string
	Price        money.Money
	CreatedAt    time.Time
}

func NewDetail(params NewDetailParams) (*Detail, error) {
	if err := ValidateDelivery(params.Delivery, params.Range, params.PickupWindow, params.ReturnWindow); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	return &Detail{
		ID:           params.ID,
		BookingID:    params.BookingID,
		UnitID:       params.UnitID,
		VariantID:    params.VariantID,
		Range:        params.Range,
		Delivery:     params.Delivery,
		PickupWindow: params.PickupWindow,
		ReturnWindow: params.ReturnWindow,
		Price:        params.Price,
		Fulfillment:  FulfillmentIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateDelivery enforces the line-item preconditions: a delivery method is
// mandatory, and a pickup spanning multiple calendar days needs both time
// windows. Same-day pickups skip the windows.
func ValidateDelivery(method DeliveryMethod, r daterange.RentalRange, pickupWindow, returnWindow string) error {
	switch method {
	case DeliveryPickup:
		if r.MultiDay() && (pickupWindow == "" || returnWindow == "") {
			return ErrTimeWindowsRequired
		}
		return nil
	case DeliveryCourier:
		return nil
	default:
		return ErrDeliveryMethodNeeded
	}
}

// UpdateDelivery edits delivery method and windows in place. Availability is
// deliberately not re-checked: the unit assignment never changes.
func (d *Detail) UpdateDelivery(method DeliveryMethod, pickupWindow, returnWindow string, now time.Time) error {
	if err := ValidateDelivery(method, d.Range, pickupWindow, returnWindow); err != nil {
		return err
	}
	d.Delivery = method
	d.PickupWindow = pickupWindow
	d.ReturnWindow = returnWindow
	d.UpdatedAt = now.UTC()
	return nil
}

// MarkToPickup is the fulfillment cascade applied when the parent booking is
// confirmed.
func (d *Detail) MarkToPickup(now time.Time) bool {
	if d.Fulfillment != FulfillmentIdle {
		return false
	}
	d.Fulfillment = FulfillmentToPickup
	d.UpdatedAt = now.UTC()
	return true
}

// TotalOf sums line item prices; used to recompute the booking total.
func TotalOf(details []*Detail) money.Money {
	total := money.EUR(0)
	for _, d := range details {
		sum, err := total.Add(d.Price)
		if err != nil {
			continue
		}
		total = sum
	}
	return total
}

// EarliestStart returns the minimum start date among details, false when the
// list is empty.
func EarliestStart(details []*Detail) (time.Time, bool) {
	var earliest time.Time
	for _, d := range details {
		if earliest.IsZero() || d.Range.Start.Before(earliest) {
			earliest = d.Range.Start
		}
	}
	return earliest, !earliest.IsZero()
}

// LatestEnd returns the maximum end date among details, false when empty.
func LatestEnd(details []*Detail) (time.Time, bool) {
	var latest time.Time
	for _, d := range details {
		if d.Range.End.After(latest) {
			latest = d.Range.End
		}
	}
	return latest, !latest.IsZero()
}
