package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrWorkerNotConfigured is returned by Run when the worker is missing its
// store or producer.
var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

const defaultPollInterval = 500 * time.Millisecond

// Producer publishes a single message to the broker. Implemented by the
// Kafka writer in production and by in-memory fakes in tests.
type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains stored booking and refund events to the broker. Each event
// is claimed before publishing, so several instances may poll the same
// store without double-sending; a failed publish reschedules the event
// along the backoff ladder instead of losing it.
type Worker struct {
	Store       *Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

// Run polls the store until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOne(ctx); err != nil {
				return err
			}
		}
	}
}

// drainOne claims the next pending event and pushes it to the broker.
// Marshal and publish errors park the event for a retry rather than
// stopping the loop.
func (w *Worker) drainOne(ctx context.Context) error {
	rec, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || rec == nil {
		return err
	}
	payload, headers, err := w.envelope(rec)
	if err != nil {
		_ = w.Store.MarkFailed(ctx, rec.ID, w.retryAt(rec.Attempts), err.Error())
		return nil
	}
	if err := w.Producer.Publish(ctx, w.topicFor(rec.Name), rec.Aggregate, payload, headers); err != nil {
		_ = w.Store.MarkFailed(ctx, rec.ID, w.retryAt(rec.Attempts), err.Error())
		return nil
	}
	return w.Store.MarkSent(ctx, rec.ID)
}

// envelope wraps the stored payload in a CloudEvents 1.0 structured
// envelope. The trace context, when present, is carried both in the
// envelope and in the broker headers.
func (w *Worker) envelope(rec *EventDocument) ([]byte, map[string]string, error) {
	if rec.Headers == nil {
		rec.Headers = map[string]string{}
	}
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            rec.Name + ".v1",
		"source":          w.eventSource(),
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps an event name like "booking.confirmed" onto the aggregate
// topic "booking.events.v1", optionally prefixed per environment.
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if w.TopicPrefix != "" {
		topic = w.TopicPrefix + topic
	}
	return topic
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) pollInterval() time.Duration {
	if w.Interval <= 0 {
		return defaultPollInterval
	}
	return w.Interval
}

// retryAt picks the next attempt time from the backoff ladder, clamping to
// the last rung once the ladder is exhausted.
func (w *Worker) retryAt(attempts int) time.Time {
	if len(w.Backoff) == 0 {
		return time.Now().Add(5 * time.Second)
	}
	if attempts >= len(w.Backoff) {
		attempts = len(w.Backoff) - 1
	}
	return time.Now().Add(w.Backoff[attempts])
}

func (w *Worker) eventSource() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://skirent"
}
