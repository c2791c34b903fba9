package saga_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
)

// fakeScope plays both ScopeInspector and CommitScheduler. Scheduled hooks
// are collected so tests control exactly when "commit" happens.
type fakeScope struct {
	active   string
	inTx     bool
	schedule []scheduled
}

type scheduled struct {
	alias string
	fn    func(ctx context.Context)
}

func (f *fakeScope) ActiveAlias(context.Context) string { return f.active }

func (f *fakeScope) OnCommit(ctx context.Context, alias string, fn func(ctx context.Context)) {
	if !f.inTx {
		fn(ctx)
		return
	}
	f.schedule = append(f.schedule, scheduled{alias: alias, fn: fn})
}

func (f *fakeScope) commit(ctx context.Context) {
	hooks := f.schedule
	f.schedule = nil
	for _, h := range hooks {
		h.fn(ctx)
	}
}

type captureSaga struct {
	events []*saga.Event
}

func (s *captureSaga) Process(_ context.Context, evt *saga.Event) error {
	s.events = append(s.events, evt)
	return nil
}

func TestPostCommitDispatcher_EmitDefersUntilCommit(t *testing.T) {
	scope := &fakeScope{active: "default", inTx: true}
	sink := &captureSaga{}
	d := saga.NewPostCommitDispatcher(sink, scope, scope, nil)

	d.Emit(context.Background(), saga.EmitOptions{
		Entity:      "User",
		Action:      "Created",
		AggregateID: "u1",
		Payload:     map[string]any{"username": "alice"},
	})
	assert.Empty(t, sink.events)

	scope.commit(context.Background())
	require.Len(t, sink.events, 1)
	evt := sink.events[0]
	assert.Equal(t, "User", evt.Entity)
	assert.Equal(t, "Created", evt.Action)
	assert.Equal(t, "u1", evt.AggregateID)
	assert.Equal(t, "default", evt.Alias)
}

func TestPostCommitDispatcher_EmitWithoutTransactionRunsImmediately(t *testing.T) {
	scope := &fakeScope{active: "default", inTx: false}
	sink := &captureSaga{}
	d := saga.NewPostCommitDispatcher(sink, scope, scope, nil)

	d.Emit(context.Background(), saga.EmitOptions{Entity: "User", Action: "Deleted"})
	require.Len(t, sink.events, 1)
}

func TestPostCommitDispatcher_AliasInferredFromActiveScope(t *testing.T) {
	scope := &fakeScope{active: "analytics", inTx: true}
	sink := &captureSaga{}
	d := saga.NewPostCommitDispatcher(sink, scope, scope, nil)

	d.Emit(context.Background(), saga.EmitOptions{Entity: "Report", Action: "Created"})
	scope.commit(context.Background())

	require.Len(t, sink.events, 1)
	assert.Equal(t, "analytics", sink.events[0].Alias)
	require.Len(t, scope.schedule, 0)
}

func TestPostCommitDispatcher_ExplicitAliasWins(t *testing.T) {
	scope := &fakeScope{active: "default", inTx: true}
	sink := &captureSaga{}
	d := saga.NewPostCommitDispatcher(sink, scope, scope, nil)

	d.Emit(context.Background(), saga.EmitOptions{Entity: "User", Action: "Created", Alias: "audit"})
	scope.commit(context.Background())

	require.Len(t, sink.events, 1)
	assert.Equal(t, "audit", sink.events[0].Alias)
}

func TestPostCommitDispatcher_NilPayloadBecomesEmptyMap(t *testing.T) {
	scope := &fakeScope{active: "default", inTx: false}
	sink := &captureSaga{}
	d := saga.NewPostCommitDispatcher(sink, scope, scope, nil)

	d.Emit(context.Background(), saga.EmitOptions{Entity: "User", Action: "Created"})
	require.Len(t, sink.events, 1)
	assert.NotNil(t, sink.events[0].Payload)
}

func TestPostCommitDispatcher_AfterCommitBuildsLazily(t *testing.T) {
	scope := &fakeScope{active: "default", inTx: true}
	sink := &captureSaga{}
	d := saga.NewPostCommitDispatcher(sink, scope, scope, nil)

	built := false
	d.AfterCommit(context.Background(), func() *saga.Event {
		built = true
		return &saga.Event{Entity: "User", Action: "Updated"}
	}, "")

	assert.False(t, built)
	scope.commit(context.Background())
	assert.True(t, built)
	require.Len(t, sink.events, 1)
}
