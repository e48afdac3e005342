package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "skirent/internal/domain/booking"
	domaincatalog "skirent/internal/domain/catalog"
	domainrange "skirent/internal/domain/shared/daterange"
)

// BookingRepository stores bookings in memory. Not suitable for production.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) ByGatewayIntentID(ctx context.Context, intentID string) (*domainbooking.Booking, error) {
	if intentID == "" {
		return nil, domainbooking.ErrBookingNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.items {
		if b.GatewayIntentID == intentID {
			return cloneBooking(b), nil
		}
	}
	return nil, domainbooking.ErrBookingNotFound
}

func (r *BookingRepository) ActiveCartByUser(ctx context.Context, userID string) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.items {
		if b.Cart && b.UserID == userID && b.Status != domainbooking.StatusCancelled {
			return cloneBooking(b), nil
		}
	}
	return nil, domainbooking.ErrBookingNotFound
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *BookingRepository) ListInPaymentBefore(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if b.Status == domainbooking.StatusInPayment && b.UpdatedAt.Before(cutoff) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[b.ID]; ok && existing.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	clone := cloneBooking(b)
	clone.Version++
	r.items[b.ID] = clone
	b.Version = clone.Version
	return nil
}

// statusOf is used by the detail repository to evaluate the active-booking
// predicate without re-entering the public API.
func (r *BookingRepository) statusOf(id domainbooking.BookingID) (*domainbooking.Booking, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	return b, ok
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	clone := *b
	clone.ClearEvents()
	return &clone
}

// DetailRepository stores booking line items in memory. Claim serializes
// check-and-insert with the repository mutex, which is the whole point: two
// racing claims for the last unit cannot both pass the overlap check.
type DetailRepository struct {
	mu       sync.Mutex
	items    map[domainbooking.DetailID]*domainbooking.Detail
	bookings *BookingRepository
}

func NewDetailRepository(bookings *BookingRepository) *DetailRepository {
	return &DetailRepository{
		items:    make(map[domainbooking.DetailID]*domainbooking.Detail),
		bookings: bookings,
	}
}

func (r *DetailRepository) ByID(ctx context.Context, id domainbooking.DetailID) (*domainbooking.Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrDetailNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *DetailRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainbooking.Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainbooking.Detail, 0)
	for _, d := range r.items {
		if d.BookingID == bookingID {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *DetailRepository) ActiveOverlapping(ctx context.Context, unitIDs []domaincatalog.UnitID, rr domainrange.RentalRange, requestingUserID string) ([]domaincatalog.UnitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeOverlappingLocked(unitIDs, rr, requestingUserID), nil
}

func (r *DetailRepository) activeOverlappingLocked(unitIDs []domaincatalog.UnitID, rr domainrange.RentalRange, requestingUserID string) []domaincatalog.UnitID {
	wanted := make(map[domaincatalog.UnitID]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		wanted[id] = struct{}{}
	}
	seen := make(map[domaincatalog.UnitID]struct{})
	out := make([]domaincatalog.UnitID, 0)
	for _, d := range r.items {
		if _, ok := wanted[d.UnitID]; !ok {
			continue
		}
		if _, dup := seen[d.UnitID]; dup {
			continue
		}
		if !d.Range.Overlaps(rr) {
			continue
		}
		parent, ok := r.bookings.statusOf(d.BookingID)
		if !ok || !parent.Active(requestingUserID) {
			continue
		}
		seen[d.UnitID] = struct{}{}
		out = append(out, d.UnitID)
	}
	return out
}

func (r *DetailRepository) Claim(ctx context.Context, d *domainbooking.Detail, requestingUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := r.activeOverlappingLocked([]domaincatalog.UnitID{d.UnitID}, d.Range, requestingUserID)
	if len(taken) > 0 {
		return domainbooking.ErrNoUnitsAvailable
	}
	clone := *d
	r.items[d.ID] = &clone
	return nil
}

func (r *DetailRepository) Save(ctx context.Context, d *domainbooking.Detail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *d
	r.items[d.ID] = &clone
	return nil
}

var (
	_ domainbooking.Repository       = (*BookingRepository)(nil)
	_ domainbooking.DetailRepository = (*DetailRepository)(nil)
)
