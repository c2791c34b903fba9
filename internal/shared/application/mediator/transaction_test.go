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

type fakeUnitOfWork struct {
	beginErr  error
	commitErr error

	began      bool
	committed  bool
	rolledBack bool
	closed     bool
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if u.beginErr != nil {
		return nil, u.beginErr
	}
	u.began = true
	return ctx, nil
}

func (u *fakeUnitOfWork) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *fakeUnitOfWork) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

func (u *fakeUnitOfWork) Close(context.Context) { u.closed = true }

type aliasedCommand struct {
	alias string
}

func (*aliasedCommand) CommandName() string { return "test.Aliased" }
func (c *aliasedCommand) Alias() string     { return c.alias }

func newTransactionHarness(uow *fakeUnitOfWork) (*mediator.TransactionBehavior, *string) {
	var seenAlias string
	factory := func(alias string) application.UnitOfWork {
		seenAlias = alias
		return uow
	}
	return mediator.NewTransactionBehavior(factory, "default", nil), &seenAlias
}

func TestTransactionBehavior_CommitsOnSuccess(t *testing.T) {
	uow := &fakeUnitOfWork{}
	b, alias := newTransactionHarness(uow)

	res, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		return application.OK(nil, "done"), nil
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "default", *alias)
	assert.True(t, uow.committed)
	assert.False(t, uow.rolledBack)
	assert.True(t, uow.closed)
}

func TestTransactionBehavior_UsesCommandAlias(t *testing.T) {
	uow := &fakeUnitOfWork{}
	b, alias := newTransactionHarness(uow)

	_, err := b.Handle(context.Background(), &aliasedCommand{alias: "analytics"}, func(ctx context.Context) (application.Result, error) {
		return application.OK(nil, ""), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "analytics", *alias)
}

func TestTransactionBehavior_RollsBackFailedResult(t *testing.T) {
	uow := &fakeUnitOfWork{}
	b, _ := newTransactionHarness(uow)

	failed := application.Fail("bad input", application.StatusBadRequest, nil)
	res, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		return failed, nil
	})
	require.NoError(t, err)
	// Failing results pass through untouched.
	assert.Equal(t, failed, res)
	assert.True(t, uow.rolledBack)
	assert.False(t, uow.committed)
}

func TestTransactionBehavior_ConvertsKnownFault(t *testing.T) {
	uow := &fakeUnitOfWork{}
	b, _ := newTransactionHarness(uow)

	res, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		return application.Result{}, application.NewNotFound("user not found")
	})
	require.NoError(t, err)
	assert.Equal(t, application.StatusNotFound, res.Code)
	assert.Equal(t, "user not found", res.Message)
	assert.True(t, uow.rolledBack)
}

func TestTransactionBehavior_MasksUnknownError(t *testing.T) {
	uow := &fakeUnitOfWork{}
	b, _ := newTransactionHarness(uow)

	res, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		return application.Result{}, errors.New("pq: connection reset")
	})
	require.NoError(t, err)
	assert.Equal(t, application.StatusInternalError, res.Code)
	// Internal details never leak to the caller.
	assert.Equal(t, "Internal server error", res.Message)
	assert.True(t, uow.rolledBack)
}

func TestTransactionBehavior_BeginFailure(t *testing.T) {
	uow := &fakeUnitOfWork{beginErr: errors.New("connect refused")}
	b, _ := newTransactionHarness(uow)

	handlerRan := false
	res, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		handlerRan = true
		return application.OK(nil, ""), nil
	})
	require.NoError(t, err)
	assert.False(t, handlerRan)
	assert.Equal(t, application.StatusInternalError, res.Code)
}

func TestTransactionBehavior_CommitFailure(t *testing.T) {
	uow := &fakeUnitOfWork{commitErr: errors.New("disk full")}
	b, _ := newTransactionHarness(uow)

	res, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		return application.OK(nil, ""), nil
	})
	require.NoError(t, err)
	assert.Equal(t, application.StatusInternalError, res.Code)
}

func TestTransactionBehavior_QueriesBypassTransaction(t *testing.T) {
	factoryCalled := false
	factory := func(alias string) application.UnitOfWork {
		factoryCalled = true
		return &fakeUnitOfWork{}
	}
	b := mediator.NewTransactionBehavior(factory, "default", nil)

	res, err := b.Handle(context.Background(), &echoQuery{}, func(ctx context.Context) (application.Result, error) {
		return application.OK(nil, "read"), nil
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.False(t, factoryCalled)
}
