package outbox

import (
	"context"
	"time"
)

// Repository defines outbox persistence against one datastore.
type Repository interface {
	// Add durably stores a new outbox record before returning.
	Add(ctx context.Context, aggregateType, aggregateID, eventType string, payload map[string]any, tenantID string) error

	// GetUnprocessed retrieves unprocessed records ordered by creation
	// time, skipping records whose retry time has not come.
	GetUnprocessed(ctx context.Context, limit int) ([]*Record, error)

	// MarkProcessed marks a record as successfully relayed.
	MarkProcessed(ctx context.Context, id int64) error

	// MarkFailed records a relay failure with the next retry time.
	MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error

	// MarkDead marks a record as dead-lettered.
	MarkDead(ctx context.Context, id int64, reason string) error

	// DeleteOld removes processed records older than the retention period.
	DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error)
}
