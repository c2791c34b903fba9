package saga

import (
	"context"
	"log/slog"
)

// OutboxWriter persists one outbox record against a specific datastore.
// The write must be durable before Add returns.
type OutboxWriter interface {
	Add(ctx context.Context, aggregateType, aggregateID, eventType string, payload map[string]any, tenantID string) error
}

// OutboxStore hands out writers bound to a datastore alias.
type OutboxStore interface {
	Using(alias string) OutboxWriter
}

// OutboxSaga persists every committed event as a durable outbox record,
// giving at-least-once durability independent of any other consumer.
type OutboxSaga struct {
	store  OutboxStore
	logger *slog.Logger
}

// NewOutboxSaga creates an OutboxSaga.
func NewOutboxSaga(store OutboxStore, logger *slog.Logger) *OutboxSaga {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxSaga{store: store, logger: logger}
}

// Process implements Saga.
func (s *OutboxSaga) Process(ctx context.Context, evt *Event) error {
	entity := evt.Entity
	if entity == "" {
		entity = "Unknown"
	}
	action := evt.Action
	if action == "" {
		action = "Unknown"
	}

	tenantID := "main"
	if t, ok := evt.Payload["tenant_id"].(string); ok && t != "" {
		tenantID = t
	}

	return s.store.Using(evt.Alias).Add(ctx, entity, evt.AggregateID, action, evt.Payload, tenantID)
}
