package middleware

import (
	"context"

	"skirent/internal/app/commands"
	"skirent/internal/app/outbox"
)

// OutboxFlush flushes the event outbox once the command handler succeeded.
// A failed command flushes nothing, its events stay unrecorded.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		call := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := call(ctx, cmd)
			if err == nil {
				err = box.Flush(ctx)
			}
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
