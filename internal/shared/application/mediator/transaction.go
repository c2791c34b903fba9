package mediator

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// TransactionBehavior wraps command execution in a unit of work.
// It is the single rollback authority of the pipeline:
//   - successful Result -> commit
//   - failing Result    -> rollback, Result returned unchanged
//   - known fault       -> rollback, warn log, fault converted to a Result
//   - unknown error     -> rollback, error log, generic internal-error Result
//
// Queries pass straight through; no scope is opened for them.
type TransactionBehavior struct {
	factory      application.UnitOfWorkFactory
	defaultAlias string
	logger       *slog.Logger
}

// NewTransactionBehavior creates a TransactionBehavior.
func NewTransactionBehavior(factory application.UnitOfWorkFactory, defaultAlias string, logger *slog.Logger) *TransactionBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultAlias == "" {
		defaultAlias = "default"
	}
	return &TransactionBehavior{factory: factory, defaultAlias: defaultAlias, logger: logger}
}

// Handle implements Behavior.
func (b *TransactionBehavior) Handle(ctx context.Context, req any, next Next) (application.Result, error) {
	cmd, ok := req.(application.Command)
	if !ok {
		return next(ctx)
	}

	alias := b.defaultAlias
	if a, ok := req.(application.Aliased); ok && a.Alias() != "" {
		alias = a.Alias()
	}

	// Fresh scope per dispatch; never shared across calls.
	uow := b.factory(alias)
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		b.logger.Error("failed to begin unit of work",
			"command", cmd.CommandName(),
			"alias", alias,
			"error", err,
		)
		return application.NewService("Internal server error").ToResult(), nil
	}
	defer uow.Close(txCtx)

	res, err := next(txCtx)
	if err != nil {
		if rollbackErr := uow.Rollback(txCtx); rollbackErr != nil {
			b.logger.Error("rollback failed", "command", cmd.CommandName(), "error", rollbackErr)
		}
		if appErr, known := application.AsAppError(err); known {
			b.logger.Warn("command failed",
				"command", cmd.CommandName(),
				"kind", string(appErr.Kind),
				"status", int(appErr.Code),
				"error", appErr.Message,
			)
			return appErr.ToResult(), nil
		}
		b.logger.Error("unhandled error in command handler",
			"command", cmd.CommandName(),
			"alias", alias,
			"error", err,
		)
		return application.NewService("Internal server error").ToResult(), nil
	}

	if res.Succeeded() {
		if err := uow.Commit(txCtx); err != nil {
			b.logger.Error("commit failed", "command", cmd.CommandName(), "error", err)
			return application.NewService("Internal server error").ToResult(), nil
		}
	} else {
		if err := uow.Rollback(txCtx); err != nil {
			b.logger.Error("rollback failed", "command", cmd.CommandName(), "error", err)
		}
	}
	return res, nil
}
