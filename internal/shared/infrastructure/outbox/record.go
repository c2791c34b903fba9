// Package outbox durably persists committed events and relays them to an
// event publisher in the background.
package outbox

import (
	"encoding/json"
	"time"
)

// Record is the durable projection of a committed event.
type Record struct {
	ID            int64
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	TenantID      string
	CreatedAt     time.Time
	Processed     bool

	// Relay bookkeeping.
	RetryCount     int
	NextRetryAt    *time.Time
	LastError      *string
	DeadLetteredAt *time.Time
}

// CanRetry returns true if the record is eligible for another relay
// attempt.
func (r *Record) CanRetry(maxRetries int) bool {
	return r.RetryCount < maxRetries
}

// RoutingKey derives the publish routing key, e.g. "user.created".
func (r *Record) RoutingKey() string {
	return normalizeKey(r.AggregateType) + "." + normalizeKey(r.EventType)
}

func normalizeKey(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
