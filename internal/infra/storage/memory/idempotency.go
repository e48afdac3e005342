package memory

import (
	"context"
	"sync"

	"skirent/internal/app/middleware"
)

// IdempotencyStore keeps replay records in process memory. Records vanish
// on restart, so replays after a reboot re-execute their command.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]middleware.IdempotencyRecord
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
	return nil
}
