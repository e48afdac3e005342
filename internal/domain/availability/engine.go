package availability

import (
	"context"

	"skirent/internal/domain/booking"
	"skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/daterange"
)

// Engine answers "how many physical units are actually free for this range".
//
// A unit counts as free when its status is rentable and no active booking
// line item overlaps the range. Overlap is inclusive on both bounds (a unit
// returned on the requested start day is still out), and activity is
// relative to the requester: foreign carts are uncommitted drafts and do not
// block, the requester's own cart does, so a user cannot double-add the same
// physical slot.
//
// This is a read-only count. Reserving a unit goes through the conditional
// DetailRepository.Claim, which re-validates under mutual exclusion.
type Engine struct {
	Units   catalog.UnitRepository
	Details booking.DetailRepository
}

// UnitAvailability is the per-unit answer of CheckUnits.
type UnitAvailability struct {
	UnitID      catalog.UnitID
	IsAvailable bool
}

// CountAvailable returns the number of free units of a variant in the range.
func (e Engine) CountAvailable(ctx context.Context, variantID catalog.VariantID, r daterange.RentalRange, requestingUserID string) (int, error) {
	units, err := e.Units.RentableByVariant(ctx, variantID)
	if err != nil {
		return 0, err
	}
	if len(units) == 0 {
		return 0, nil
	}
	ids := make([]catalog.UnitID, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	booked, err := e.Details.ActiveOverlapping(ctx, ids, r, requestingUserID)
	if err != nil {
		return 0, err
	}
	return len(units) - len(booked), nil
}

// FirstFree picks any free unit of the variant, catalog.ErrUnitNotFound when
// none is left. No ordering guarantee beyond repository order.
func (e Engine) FirstFree(ctx context.Context, variantID catalog.VariantID, r daterange.RentalRange, requestingUserID string) (*catalog.Unit, error) {
	units, err := e.Units.RentableByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, catalog.ErrUnitNotFound
	}
	ids := make([]catalog.UnitID, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	booked, err := e.Details.ActiveOverlapping(ctx, ids, r, requestingUserID)
	if err != nil {
		return nil, err
	}
	taken := make(map[catalog.UnitID]struct{}, len(booked))
	for _, id := range booked {
		taken[id] = struct{}{}
	}
	for _, u := range units {
		if _, ok := taken[u.ID]; !ok {
			return u, nil
		}
	}
	return nil, catalog.ErrUnitNotFound
}

// CheckUnits reports availability per unit for an explicit unit list.
// Units whose status is not rentable are unavailable regardless of bookings.
func (e Engine) CheckUnits(ctx context.Context, unitIDs []catalog.UnitID, r daterange.RentalRange, requestingUserID string) ([]UnitAvailability, error) {
	rentable := make([]catalog.UnitID, 0, len(unitIDs))
	status := make(map[catalog.UnitID]bool, len(unitIDs))
	for _, id := range unitIDs {
		u, err := e.Units.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		status[id] = u.Rentable()
		if u.Rentable() {
			rentable = append(rentable, id)
		}
	}
	booked, err := e.Details.ActiveOverlapping(ctx, rentable, r, requestingUserID)
	if err != nil {
		return nil, err
	}
	taken := make(map[catalog.UnitID]struct{}, len(booked))
	for _, id := range booked {
		taken[id] = struct{}{}
	}
	out := make([]UnitAvailability, 0, len(unitIDs))
	for _, id := range unitIDs {
		_, isTaken := taken[id]
		out = append(out, UnitAvailability{UnitID: id, IsAvailable: status[id] && !isTaken})
	}
	return out, nil
}

// ProductAvailable reports whether at least one active variant of the
// product has a free unit in the range. Used by catalog listing filters.
func (e Engine) ProductAvailable(ctx context.Context, variants []*catalog.Variant, r daterange.RentalRange, requestingUserID string) (bool, error) {
	for _, v := range variants {
		if !v.Active {
			continue
		}
		n, err := e.CountAvailable(ctx, v.ID, r, requestingUserID)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
