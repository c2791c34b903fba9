package eventbus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/eventbus"
)

func TestInProcessEventBus_PublishDeliversSynchronously(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &mockConsumer{eventTypes: []string{"user.created"}}
	bus.RegisterConsumer(consumer)

	require.NoError(t, bus.Publish(context.Background(), "user.created", []byte(`{"username":"alice"}`)))

	require.Len(t, consumer.handled, 1)
	event := consumer.handled[0]
	assert.Equal(t, "user.created", event.RoutingKey)
	assert.NotEqual(t, [16]byte{}, [16]byte(event.EventID))

	payload, err := event.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, "alice", payload["username"])
}

func TestInProcessEventBus_ConsumerErrorIsSwallowed(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	bus.RegisterConsumer(&mockConsumer{
		eventTypes: []string{"user.created"},
		handleErr:  errors.New("handler broken"),
	})

	// Consumer failures stay inside the bus so the relay marks the record
	// processed and moves on.
	assert.NoError(t, bus.Publish(context.Background(), "user.created", []byte(`{}`)))
}

func TestInProcessEventBus_PublishWithoutConsumers(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), "user.created", []byte(`{}`)))
}

func TestInProcessEventBus_StartBlocksUntilCancel(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, bus.Close())
}
