package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/eventbus"
)

type mockConsumer struct {
	eventTypes []string
	handled    []*eventbus.ConsumedEvent
	handleErr  error
}

func (m *mockConsumer) EventTypes() []string { return m.eventTypes }

func (m *mockConsumer) Handle(_ context.Context, event *eventbus.ConsumedEvent) error {
	m.handled = append(m.handled, event)
	return m.handleErr
}

func newEvent(routingKey string) *eventbus.ConsumedEvent {
	return &eventbus.ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: routingKey,
		Payload:    json.RawMessage(`{"username":"alice"}`),
		ReceivedAt: time.Now(),
	}
}

func TestConsumerRegistry_Register(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(nil)
	consumer := &mockConsumer{eventTypes: []string{"user.created", "user.deleted"}}
	registry.Register(consumer)

	assert.Len(t, registry.GetConsumers("user.created"), 1)
	assert.Len(t, registry.GetConsumers("user.deleted"), 1)
	assert.Empty(t, registry.GetConsumers("user.updated"))
	assert.Equal(t, 2, registry.ConsumerCount())
	assert.ElementsMatch(t, []string{"user.created", "user.deleted"}, registry.EventTypes())
}

func TestConsumerRegistry_DispatchRoutesByKey(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(nil)
	userConsumer := &mockConsumer{eventTypes: []string{"user.created"}}
	postConsumer := &mockConsumer{eventTypes: []string{"blogpost.published"}}
	registry.Register(userConsumer)
	registry.Register(postConsumer)

	require.NoError(t, registry.Dispatch(context.Background(), newEvent("user.created")))
	assert.Len(t, userConsumer.handled, 1)
	assert.Empty(t, postConsumer.handled)
}

func TestConsumerRegistry_DispatchNoConsumers(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(nil)
	assert.NoError(t, registry.Dispatch(context.Background(), newEvent("user.created")))
}

func TestConsumerRegistry_DispatchRunsAllConsumers(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(nil)
	failing := &mockConsumer{eventTypes: []string{"user.created"}, handleErr: errors.New("boom")}
	healthy := &mockConsumer{eventTypes: []string{"user.created"}}
	registry.Register(failing)
	registry.Register(healthy)

	err := registry.Dispatch(context.Background(), newEvent("user.created"))
	require.Error(t, err)
	// A failing consumer never starves the others.
	assert.Len(t, healthy.handled, 1)
}

func TestConsumedEvent_DecodePayload(t *testing.T) {
	event := newEvent("user.created")
	payload, err := event.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, "alice", payload["username"])

	empty := &eventbus.ConsumedEvent{}
	payload, err = empty.DecodePayload()
	require.NoError(t, err)
	assert.Empty(t, payload)
}
