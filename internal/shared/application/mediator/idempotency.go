package mediator

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// IdempotencyStore maps idempotency keys to cached results.
// Set failures are non-fatal: idempotency is an optimization, not a
// correctness dependency for the caller.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (application.Result, bool, error)
	Set(ctx context.Context, key string, res application.Result) error
}

// IdempotencyBehavior short-circuits commands whose idempotency key has a
// cached Result. On a miss it runs the continuation and stores the Result
// best effort.
type IdempotencyBehavior struct {
	store  IdempotencyStore
	logger *slog.Logger
}

// NewIdempotencyBehavior creates an IdempotencyBehavior.
func NewIdempotencyBehavior(store IdempotencyStore, logger *slog.Logger) *IdempotencyBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyBehavior{store: store, logger: logger}
}

// Handle implements Behavior.
func (b *IdempotencyBehavior) Handle(ctx context.Context, req any, next Next) (application.Result, error) {
	idem, ok := req.(application.Idempotent)
	if !ok || idem.IdempotencyKey() == "" {
		return next(ctx)
	}
	key := idem.IdempotencyKey()

	cached, hit, err := b.store.Get(ctx, key)
	if err != nil {
		b.logger.Warn("idempotency store get failed", "key", key, "error", err)
	} else if hit {
		b.logger.Debug("idempotency cache hit", "key", key)
		return cached, nil
	}

	res, err := next(ctx)
	if err != nil {
		return res, err
	}

	if storeErr := b.store.Set(ctx, key, res); storeErr != nil {
		b.logger.Warn("idempotency store set failed", "key", key, "error", storeErr)
	}
	return res, nil
}
