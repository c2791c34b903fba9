package database

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// ErrNoTransaction is returned when commit or rollback is called outside an
// open unit of work.
var ErrNoTransaction = errors.New("no transaction in context")

// UnitOfWork implements application.UnitOfWork on top of a Connection.
//
// Begin stores the transaction and its commit-hook list in the returned
// context, keyed by the unit's alias. Commit runs the hooks strictly after
// the transaction durably commits, using the pre-transaction context so
// hooks do not observe the finished transaction. Close rolls back unless
// Commit was called first.
type UnitOfWork struct {
	conn   Connection
	alias  string
	logger *slog.Logger

	parentCtx context.Context
	done      bool
}

// NewUnitOfWork creates a unit of work bound to one alias.
func NewUnitOfWork(conn Connection, alias string, logger *slog.Logger) *UnitOfWork {
	if alias == "" {
		alias = DefaultAlias
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitOfWork{conn: conn, alias: alias, logger: logger}
}

// Begin starts a transaction and stores it in the context. If the context
// already carries a transaction for this alias, it is reused and marked as
// not owned; commit hooks then attach to the enclosing scope.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	u.parentCtx = ctx

	if info, ok := TxInfoFromContext(ctx, u.alias); ok {
		return WithTx(ctx, u.alias, TxInfo{Tx: info.Tx, Owned: false, Hooks: info.Hooks}), nil
	}

	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return WithTx(ctx, u.alias, TxInfo{Tx: tx, Owned: true, Hooks: &CommitHooks{}}), nil
}

// Commit commits the transaction if this unit owns it, then fires the
// scheduled commit hooks in order.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx, u.alias)
	if !ok {
		return ErrNoTransaction
	}
	if !info.Owned {
		u.done = true
		return nil
	}
	if err := info.Tx.Commit(ctx); err != nil {
		return err
	}
	u.done = true

	if info.Hooks != nil && info.Hooks.Len() > 0 {
		hookCtx := u.parentCtx
		if hookCtx == nil {
			hookCtx = context.Background()
		}
		info.Hooks.Run(hookCtx)
	}
	return nil
}

// Rollback rolls back the transaction if this unit owns it and discards any
// scheduled commit hooks.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx, u.alias)
	if !ok {
		return ErrNoTransaction
	}
	u.done = true
	if !info.Owned {
		return nil
	}
	return info.Tx.Rollback(ctx)
}

// Close releases the unit of work. If neither Commit nor Rollback ran, the
// transaction is rolled back (fail-closed).
func (u *UnitOfWork) Close(ctx context.Context) {
	if u.done {
		return
	}
	if err := u.Rollback(ctx); err != nil && !errors.Is(err, ErrNoTransaction) {
		u.logger.Error("implicit rollback failed", "alias", u.alias, "error", err)
	}
}

// NewUnitOfWorkFactory returns a factory producing fresh units bound to the
// manager's connections. An unknown alias surfaces when the unit begins.
func NewUnitOfWorkFactory(m *Manager, logger *slog.Logger) application.UnitOfWorkFactory {
	return func(alias string) application.UnitOfWork {
		conn, err := m.Get(alias)
		if err != nil {
			return &failedUnitOfWork{err: err}
		}
		return NewUnitOfWork(conn, alias, logger)
	}
}

type failedUnitOfWork struct{ err error }

func (f *failedUnitOfWork) Begin(context.Context) (context.Context, error) { return nil, f.err }
func (f *failedUnitOfWork) Commit(context.Context) error                   { return f.err }
func (f *failedUnitOfWork) Rollback(context.Context) error                 { return f.err }
func (f *failedUnitOfWork) Close(context.Context)                          {}
