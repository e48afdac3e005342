package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "skirent/internal/domain/booking"
	domainrefund "skirent/internal/domain/refund"
)

// RefundRepository stores refunds in memory.
type RefundRepository struct {
	mu    sync.RWMutex
	items map[domainrefund.RefundID]*domainrefund.Refund
}

func NewRefundRepository() *RefundRepository {
	return &RefundRepository{items: make(map[domainrefund.RefundID]*domainrefund.Refund)}
}

func (r *RefundRepository) ByID(ctx context.Context, id domainrefund.RefundID) (*domainrefund.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.items[id]
	if !ok {
		return nil, domainrefund.ErrRefundNotFound
	}
	clone := *ref
	return &clone, nil
}

func (r *RefundRepository) ByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*domainrefund.Refund, error) {
	if gatewayRefundID == "" {
		return nil, domainrefund.ErrRefundNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ref := range r.items {
		if ref.GatewayRefundID == gatewayRefundID {
			clone := *ref
			return &clone, nil
		}
	}
	return nil, domainrefund.ErrRefundNotFound
}

func (r *RefundRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainrefund.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainrefund.Refund, 0)
	for _, ref := range r.items {
		if ref.BookingID == bookingID {
			clone := *ref
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *RefundRepository) HasPending(ctx context.Context, bookingID domainbooking.BookingID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ref := range r.items {
		if ref.BookingID == bookingID && ref.Status == domainrefund.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *RefundRepository) Save(ctx context.Context, ref *domainrefund.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[ref.ID]; ok && existing.Version != ref.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	clone := *ref
	clone.Version++
	r.items[ref.ID] = &clone
	ref.Version = clone.Version
	return nil
}

var _ domainrefund.Repository = (*RefundRepository)(nil)
