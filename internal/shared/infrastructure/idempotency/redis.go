package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// DefaultTTL bounds how long a cached result shields replays.
const DefaultTTL = 24 * time.Hour

// RedisStore caches command results in Redis, shared across processes.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store over an existing client. A non-positive TTL
// falls back to DefaultTTL.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "conduit:idempotency:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached result for key, if any.
func (s *RedisStore) Get(ctx context.Context, key string) (application.Result, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return application.Result{}, false, nil
	}
	if err != nil {
		return application.Result{}, false, fmt.Errorf("idempotency get %q: %w", key, err)
	}

	var result application.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return application.Result{}, false, fmt.Errorf("idempotency decode %q: %w", key, err)
	}
	return result, true, nil
}

// Set caches the result for key with the store's TTL.
func (s *RedisStore) Set(ctx context.Context, key string, result application.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("idempotency encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency set %q: %w", key, err)
	}
	return nil
}
