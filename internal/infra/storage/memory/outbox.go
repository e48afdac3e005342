package memory

import (
	"context"
	"sync"

	appoutbox "skirent/internal/app/outbox"
)

// Outbox buffers event records in memory and discards them on Flush. It
// stands in for the Mongo-backed store when the process runs without a
// broker; nothing downstream ever sees these events.
type Outbox struct {
	mu      sync.Mutex
	pending []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

// Flush drops the buffered records. The middleware calls it after a
// successful command, so behavior matches the persistent store minus the
// actual publish.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = nil
	return nil
}

var _ appoutbox.Outbox = (*Outbox)(nil)
