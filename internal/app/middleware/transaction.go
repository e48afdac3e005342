package middleware

import (
	"context"

	"skirent/internal/app/commands"
	"skirent/internal/app/uow"
)

// TxOptionsProvider lets individual commands tune their transaction
// options. Nil applies the defaults to every command.
type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// contextInjector is implemented by units that carry a storage session
// (mongo). Binding the session into the context makes repository calls
// inside the handler run on it.
type contextInjector interface {
	InjectContext(context.Context) context.Context
}

// Transaction opens a unit of work around each dispatched command and
// commits only when the handler succeeds. Anything else rolls back,
// including a panic unwinding through the deferred cleanup.
func Transaction(factory uow.UoWFactory, provider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		call := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			var opts uow.TxOptions
			if provider != nil {
				opts = provider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			if injector, ok := unit.(contextInjector); ok {
				ctx = injector.InjectContext(ctx)
			}
			ctx = uow.ContextWithUnitOfWork(ctx, unit)

			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(ctx)
				}
			}()

			res, err := call(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(ctx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}
