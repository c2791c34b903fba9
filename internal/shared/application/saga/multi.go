package saga

import (
	"context"
	"log/slog"
)

// MultiSaga fans a committed event out to every registered saga in
// registration order. Failures are isolated: one saga's error is logged
// and the next saga still runs.
type MultiSaga struct {
	sagas  []Saga
	logger *slog.Logger
}

// NewMultiSaga creates a MultiSaga.
func NewMultiSaga(logger *slog.Logger, sagas ...Saga) *MultiSaga {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiSaga{sagas: sagas, logger: logger}
}

// Process implements Saga.
func (m *MultiSaga) Process(ctx context.Context, evt *Event) error {
	for _, s := range m.sagas {
		if err := s.Process(ctx, evt); err != nil {
			m.logger.Error("saga failed",
				"entity", evt.Entity,
				"action", evt.Action,
				"event_type", evt.EventType,
				"error", err,
			)
		}
	}
	return nil
}
