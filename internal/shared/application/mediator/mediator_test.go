package mediator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/mediator"
)

type pingCommand struct{}

func (*pingCommand) CommandName() string { return "test.Ping" }

type echoQuery struct{}

func (*echoQuery) QueryName() string { return "test.Echo" }

func okHandler(message string) mediator.Factory {
	return func() mediator.Handler {
		return mediator.HandlerFunc(func(ctx context.Context, req any) (application.Result, error) {
			return application.OK(nil, message), nil
		})
	}
}

func TestMediator_Send(t *testing.T) {
	m := mediator.New()
	require.NoError(t, m.Register(&pingCommand{}, okHandler("pong")))

	res, err := m.Send(context.Background(), &pingCommand{})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "pong", res.Message)
}

func TestMediator_Send_NoHandler(t *testing.T) {
	m := mediator.New()
	require.NoError(t, m.Register(&pingCommand{}, okHandler("pong")))

	_, err := m.Send(context.Background(), &echoQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
	// The error names every registered type to make wiring bugs obvious.
	assert.Contains(t, err.Error(), "pingCommand")
}

func TestMediator_Register_Duplicate(t *testing.T) {
	m := mediator.New()
	require.NoError(t, m.Register(&pingCommand{}, okHandler("one")))

	err := m.Register(&pingCommand{}, okHandler("two"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate handler registration")

	assert.Panics(t, func() {
		m.MustRegister(&pingCommand{}, okHandler("three"))
	})
}

func TestMediator_HandlerInstanceCached(t *testing.T) {
	m := mediator.New()
	calls := 0
	require.NoError(t, m.Register(&pingCommand{}, func() mediator.Handler {
		calls++
		return mediator.HandlerFunc(func(ctx context.Context, req any) (application.Result, error) {
			return application.OK(nil, ""), nil
		})
	}))

	for range 3 {
		_, err := m.Send(context.Background(), &pingCommand{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

type recordingBehavior struct {
	name  string
	trace *[]string
}

func (b *recordingBehavior) Handle(ctx context.Context, req any, next mediator.Next) (application.Result, error) {
	*b.trace = append(*b.trace, b.name+":before")
	res, err := next(ctx)
	*b.trace = append(*b.trace, b.name+":after")
	return res, err
}

func TestMediator_BehaviorOrder(t *testing.T) {
	var trace []string
	m := mediator.New(mediator.WithBehaviors(
		&recordingBehavior{name: "outer", trace: &trace},
		&recordingBehavior{name: "inner", trace: &trace},
	))
	require.NoError(t, m.Register(&pingCommand{}, func() mediator.Handler {
		return mediator.HandlerFunc(func(ctx context.Context, req any) (application.Result, error) {
			trace = append(trace, "handler")
			return application.OK(nil, ""), nil
		})
	}))

	_, err := m.Send(context.Background(), &pingCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"outer:before", "inner:before", "handler", "inner:after", "outer:after",
	}, trace)
}

func TestMediator_SendAsync(t *testing.T) {
	m := mediator.New()
	require.NoError(t, m.Register(&pingCommand{}, okHandler("pong")))

	outcome := <-m.SendAsync(context.Background(), &pingCommand{})
	require.NoError(t, outcome.Err)
	assert.Equal(t, "pong", outcome.Result.Message)
}

func TestMediator_SendAsync_NoHandler(t *testing.T) {
	m := mediator.New()

	outcome := <-m.SendAsync(context.Background(), &pingCommand{})
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "no handler registered")
}
