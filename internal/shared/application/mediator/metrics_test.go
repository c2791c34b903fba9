package mediator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/mediator"
)

func TestMetricsBehavior_PassesResultThrough(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := mediator.NewMetricsBehavior(reg, nil)

	want := application.OK("payload", "done")
	res, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, res)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "conduit_request_duration_seconds", families[0].GetName())

	metric := families[0].GetMetric()
	require.Len(t, metric, 1)
	labels := map[string]string{}
	for _, l := range metric[0].GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	assert.Equal(t, "test.Ping", labels["request"])
	assert.Equal(t, "200", labels["status"])
}

func TestMetricsBehavior_PassesErrorThrough(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := mediator.NewMetricsBehavior(reg, nil)

	boom := errors.New("boom")
	_, err := b.Handle(context.Background(), &pingCommand{}, func(ctx context.Context) (application.Result, error) {
		return application.Result{}, boom
	})
	assert.ErrorIs(t, err, boom)

	families, gatherErr := reg.Gather()
	require.NoError(t, gatherErr)
	require.Len(t, families, 1)
	metric := families[0].GetMetric()
	require.Len(t, metric, 1)
	labels := map[string]string{}
	for _, l := range metric[0].GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	assert.Equal(t, "error", labels["status"])
}

func TestMetricsBehavior_QueriesLabelledByName(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := mediator.NewMetricsBehavior(reg, nil)

	_, err := b.Handle(context.Background(), &echoQuery{}, func(ctx context.Context) (application.Result, error) {
		return application.OK(nil, ""), nil
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	metric := families[0].GetMetric()
	require.Len(t, metric, 1)
	labels := map[string]string{}
	for _, l := range metric[0].GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	assert.Equal(t, "test.Echo", labels["request"])
}
