package saga

import (
	"context"
	"log/slog"
)

// ScopeInspector reports which datastore alias has an open transaction in a
// context. Used to infer the post-commit scheduling target when the caller
// does not name one.
type ScopeInspector interface {
	ActiveAlias(ctx context.Context) string
}

// CommitScheduler registers a callback to run strictly after the
// transaction open on an alias commits. With no open transaction the
// callback runs immediately.
type CommitScheduler interface {
	OnCommit(ctx context.Context, alias string, fn func(ctx context.Context))
}

// PostCommitDispatcher schedules event delivery after the enclosing
// transaction durably commits. Scheduled events fire in scheduling order,
// never on rollback and never before commit. Processing errors are caught
// and logged here: by the time an event fires, the originating request has
// already returned its result.
type PostCommitDispatcher struct {
	saga      Saga
	scopes    ScopeInspector
	scheduler CommitScheduler
	logger    *slog.Logger
}

// NewPostCommitDispatcher creates a PostCommitDispatcher.
func NewPostCommitDispatcher(saga Saga, scopes ScopeInspector, scheduler CommitScheduler, logger *slog.Logger) *PostCommitDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostCommitDispatcher{saga: saga, scopes: scopes, scheduler: scheduler, logger: logger}
}

// Emit implements Dispatcher.
func (d *PostCommitDispatcher) Emit(ctx context.Context, opts EmitOptions) {
	alias := d.inferAlias(ctx, opts.Alias)
	payload := opts.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	evt := &Event{
		Entity:      opts.Entity,
		Action:      opts.Action,
		EventType:   opts.EventType,
		Payload:     payload,
		AggregateID: opts.AggregateID,
		Alias:       alias,
		Command:     opts.Command,
	}
	d.AfterCommit(ctx, func() *Event { return evt }, alias)
}

// AfterCommit implements Dispatcher.
func (d *PostCommitDispatcher) AfterCommit(ctx context.Context, factory func() *Event, alias string) {
	alias = d.inferAlias(ctx, alias)
	d.logger.Debug("event scheduled for post-commit dispatch", "alias", alias)

	d.scheduler.OnCommit(ctx, alias, func(ctx context.Context) {
		evt := factory()
		d.dispatchNow(ctx, evt)
	})
}

func (d *PostCommitDispatcher) dispatchNow(ctx context.Context, evt *Event) {
	d.logger.Info("dispatching event",
		"entity", evt.Entity,
		"action", evt.Action,
		"event_type", evt.EventType,
		"alias", evt.Alias,
	)
	if err := d.saga.Process(ctx, evt); err != nil {
		d.logger.Error("saga dispatch failed",
			"entity", evt.Entity,
			"action", evt.Action,
			"error", err,
		)
	}
}

func (d *PostCommitDispatcher) inferAlias(ctx context.Context, alias string) string {
	if alias != "" {
		return alias
	}
	return d.scopes.ActiveAlias(ctx)
}
