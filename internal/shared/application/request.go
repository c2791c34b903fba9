// Package application defines the shared contracts of the request pipeline:
// command/query markers, the Result envelope, the application fault taxonomy
// and the unit-of-work boundary.
package application

import "context"

// Command represents a request that modifies system state.
// Commands run inside a transaction opened by the pipeline.
type Command interface {
	CommandName() string
}

// Query represents a request that reads system state.
// Queries never open a transaction.
type Query interface {
	QueryName() string
}

// Aliased is implemented by requests that target a specific datastore alias.
type Aliased interface {
	Alias() string
}

// Idempotent is implemented by commands that carry an idempotency key.
// An empty key disables idempotency handling for that request.
type Idempotent interface {
	IdempotencyKey() string
}

// AnonymousAllowed is implemented by requests that may be executed without
// an authenticated principal.
type AnonymousAllowed interface {
	AllowAnonymous() bool
}

// UnitOfWork provides a transactional scope for a single command dispatch.
// Close must roll back unless Commit was called first (fail-closed).
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context)
}

// UnitOfWorkFactory produces a fresh unit of work bound to a datastore alias.
// Each dispatch gets its own instance; units are never shared across requests.
type UnitOfWorkFactory func(alias string) UnitOfWork
