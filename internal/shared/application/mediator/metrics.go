package mediator

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// MetricsBehavior records the wall-clock duration of the inner chain.
// It never alters the Result and never suppresses errors.
type MetricsBehavior struct {
	duration *prometheus.HistogramVec
	logger   *slog.Logger
}

// NewMetricsBehavior creates a MetricsBehavior and registers its collectors
// with the given registerer. A nil registerer uses the default registry.
func NewMetricsBehavior(reg prometheus.Registerer, logger *slog.Logger) *MetricsBehavior {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "conduit",
		Name:      "request_duration_seconds",
		Help:      "Wall-clock duration of request handling including inner behaviors.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"request", "status"})
	reg.MustRegister(duration)

	return &MetricsBehavior{duration: duration, logger: logger}
}

// Handle implements Behavior.
func (b *MetricsBehavior) Handle(ctx context.Context, req any, next Next) (application.Result, error) {
	start := time.Now()
	res, err := next(ctx)
	elapsed := time.Since(start)

	status := strconv.Itoa(int(res.Code))
	if err != nil {
		status = "error"
	}
	b.duration.WithLabelValues(requestName(req), status).Observe(elapsed.Seconds())
	b.logger.Debug("request handled",
		"request", requestName(req),
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, err
}

func requestName(req any) string {
	switch r := req.(type) {
	case application.Command:
		return r.CommandName()
	case application.Query:
		return r.QueryName()
	default:
		return "unknown"
	}
}
