package database

import "context"

// txKey is keyed by alias so independent datastores can each carry an open
// transaction in the same context.
type txKey struct{ alias string }

// CommitHooks collects callbacks scheduled to run strictly after the
// enclosing transaction durably commits. Hooks run in scheduling order and
// are discarded on rollback.
type CommitHooks struct {
	fns []func(ctx context.Context)
}

// Add appends a hook.
func (h *CommitHooks) Add(fn func(ctx context.Context)) {
	h.fns = append(h.fns, fn)
}

// Run executes the hooks in scheduling order and clears them.
func (h *CommitHooks) Run(ctx context.Context) {
	fns := h.fns
	h.fns = nil
	for _, fn := range fns {
		fn(ctx)
	}
}

// Len returns the number of pending hooks.
func (h *CommitHooks) Len() int { return len(h.fns) }

// TxInfo holds an open transaction for one alias, whether the current scope
// owns it, and the hooks to fire after it commits.
type TxInfo struct {
	Tx    Transaction
	Owned bool
	Hooks *CommitHooks
}

// WithTx stores transaction info for an alias in the context.
func WithTx(ctx context.Context, alias string, info TxInfo) context.Context {
	if alias == "" {
		alias = DefaultAlias
	}
	return context.WithValue(ctx, txKey{alias: alias}, info)
}

// TxInfoFromContext extracts transaction info for an alias from the context.
func TxInfoFromContext(ctx context.Context, alias string) (TxInfo, bool) {
	if alias == "" {
		alias = DefaultAlias
	}
	info, ok := ctx.Value(txKey{alias: alias}).(TxInfo)
	if !ok || info.Tx == nil {
		return TxInfo{}, false
	}
	return info, true
}

// ExecutorFromContext returns the open transaction for the alias if present,
// otherwise the given connection. Repositories use this so writes join an
// enclosing unit of work transparently.
func ExecutorFromContext(ctx context.Context, alias string, conn Connection) Executor {
	if info, ok := TxInfoFromContext(ctx, alias); ok {
		return info.Tx
	}
	return conn
}

// OnCommit schedules fn to run after the transaction open on alias commits.
// If no transaction is open for that alias, fn runs immediately.
func OnCommit(ctx context.Context, alias string, fn func(ctx context.Context)) {
	info, ok := TxInfoFromContext(ctx, alias)
	if !ok || info.Hooks == nil {
		fn(ctx)
		return
	}
	info.Hooks.Add(fn)
}
