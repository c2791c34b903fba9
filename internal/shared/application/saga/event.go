// Package saga delivers committed write events to interested consumers:
// a durable outbox writer, a dynamic command re-dispatcher driven by a
// naming-convention index, and a fan-out composite that isolates failures
// between them.
package saga

import "context"

// Event describes a fact recorded by a successful write. Events are built
// by the dispatcher's Emit and never mutated afterwards.
type Event struct {
	// Entity is the aggregate name, e.g. "User".
	Entity string
	// Action is what happened, e.g. "Created".
	Action string
	// EventType is a single camel-case descriptor used when Entity and
	// Action are not set explicitly, e.g. "CreateBlogPost".
	EventType string
	// Payload is the free-form event body.
	Payload map[string]any
	// AggregateID identifies the affected aggregate.
	AggregateID string
	// Alias is the datastore alias whose transaction produced the event.
	Alias string
	// Command optionally names a registered command directly, e.g.
	// "users.CreateUser". When set it bypasses index routing entirely.
	Command string
}

// Saga consumes a committed event. Errors are caught and logged at the
// dispatch boundary; they never unwind into the originating request.
type Saga interface {
	Process(ctx context.Context, evt *Event) error
}

// EmitOptions carries the fields of an event to schedule.
type EmitOptions struct {
	Entity      string
	Action      string
	EventType   string
	Payload     map[string]any
	AggregateID string
	Alias       string
	Command     string
}

// Dispatcher schedules events to run after the enclosing transaction
// commits.
type Dispatcher interface {
	// Emit builds an event from opts and schedules it post-commit. The
	// target alias is inferred from the active transaction when empty.
	Emit(ctx context.Context, opts EmitOptions)
	// AfterCommit schedules a lazily built event on the given alias,
	// inferring the alias from the active transaction when empty.
	AfterCommit(ctx context.Context, factory func() *Event, alias string)
}
