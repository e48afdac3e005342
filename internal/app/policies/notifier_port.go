package policies

import "context"

// Notifier is the fire-and-forget email side channel. Callers log failures
// and move on; a notification must never roll back a state transition.
type Notifier interface {
	Send(ctx context.Context, to, subject, html string) error
}
