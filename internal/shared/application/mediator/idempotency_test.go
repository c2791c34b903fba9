package mediator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/mediator"
)

type keyedCommand struct {
	key string
}

func (*keyedCommand) CommandName() string      { return "test.Keyed" }
func (c *keyedCommand) IdempotencyKey() string { return c.key }

type fakeStore struct {
	entries map[string]application.Result
	getErr  error
	setErr  error
	sets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]application.Result{}}
}

func (s *fakeStore) Get(_ context.Context, key string) (application.Result, bool, error) {
	if s.getErr != nil {
		return application.Result{}, false, s.getErr
	}
	res, ok := s.entries[key]
	return res, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key string, res application.Result) error {
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.entries[key] = res
	return nil
}

func TestIdempotencyBehavior_CacheHitShortCircuits(t *testing.T) {
	store := newFakeStore()
	store.entries["k1"] = application.OK("cached", "first run")
	b := mediator.NewIdempotencyBehavior(store, nil)

	handlerRan := false
	res, err := b.Handle(context.Background(), &keyedCommand{key: "k1"}, func(ctx context.Context) (application.Result, error) {
		handlerRan = true
		return application.OK("fresh", ""), nil
	})
	require.NoError(t, err)
	assert.False(t, handlerRan)
	assert.Equal(t, "cached", res.Data)
	assert.Equal(t, "first run", res.Message)
}

func TestIdempotencyBehavior_MissRunsAndStores(t *testing.T) {
	store := newFakeStore()
	b := mediator.NewIdempotencyBehavior(store, nil)

	res, err := b.Handle(context.Background(), &keyedCommand{key: "k1"}, func(ctx context.Context) (application.Result, error) {
		return application.OK("fresh", ""), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Data)
	assert.Equal(t, res, store.entries["k1"])
}

func TestIdempotencyBehavior_RunsHandlerAtMostOncePerKey(t *testing.T) {
	store := newFakeStore()
	b := mediator.NewIdempotencyBehavior(store, nil)

	runs := 0
	handler := func(ctx context.Context) (application.Result, error) {
		runs++
		return application.OK(runs, ""), nil
	}

	first, err := b.Handle(context.Background(), &keyedCommand{key: "k1"}, handler)
	require.NoError(t, err)
	second, err := b.Handle(context.Background(), &keyedCommand{key: "k1"}, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, runs)
	assert.Equal(t, first, second)
}

func TestIdempotencyBehavior_EmptyKeyDisables(t *testing.T) {
	store := newFakeStore()
	b := mediator.NewIdempotencyBehavior(store, nil)

	runs := 0
	handler := func(ctx context.Context) (application.Result, error) {
		runs++
		return application.OK(nil, ""), nil
	}

	for i := 0; i < 2; i++ {
		_, err := b.Handle(context.Background(), &keyedCommand{key: ""}, handler)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, runs)
	assert.Zero(t, store.sets)
}

func TestIdempotencyBehavior_StoreFailuresAreNonFatal(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	b := mediator.NewIdempotencyBehavior(store, nil)

	res, err := b.Handle(context.Background(), &keyedCommand{key: "k1"}, func(ctx context.Context) (application.Result, error) {
		return application.OK("fresh", ""), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Data)
}

func TestIdempotencyBehavior_HandlerErrorNotCached(t *testing.T) {
	store := newFakeStore()
	b := mediator.NewIdempotencyBehavior(store, nil)

	_, err := b.Handle(context.Background(), &keyedCommand{key: "k1"}, func(ctx context.Context) (application.Result, error) {
		return application.Result{}, errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, store.entries)
}
