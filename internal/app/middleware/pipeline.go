package middleware

import (
	"context"

	"skirent/internal/app/commands"
	"skirent/internal/app/queries"
)

// CommandMiddleware wraps a command bus with cross-cutting behavior.
type CommandMiddleware func(next commands.Bus) commands.Bus

// QueryMiddleware wraps a query bus the same way.
type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands layers middleware around the base bus. The first listed
// middleware becomes the outermost layer, so dispatch order reads
// top-to-bottom at the call site.
func ChainCommands(base commands.Bus, layers ...CommandMiddleware) commands.Bus {
	bus := base
	for i := len(layers) - 1; i >= 0; i-- {
		bus = layers[i](bus)
	}
	return bus
}

// ChainQueries mirrors ChainCommands for the read side.
func ChainQueries(base queries.Bus, layers ...QueryMiddleware) queries.Bus {
	bus := base
	for i := len(layers) - 1; i >= 0; i-- {
		bus = layers[i](bus)
	}
	return bus
}

// commandFunc lets middleware return a bus without declaring a struct per
// wrapper.
type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func wrapCommand(next commands.Bus) commandFunc {
	return next.Dispatch
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

func wrapQuery(next queries.Bus) queryFunc {
	return next.Ask
}
