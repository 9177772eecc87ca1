package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/roomgate/internal/gate"
)

func newTestMetrics() (*Metrics, *metric.ManualReader) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return newMetrics(mp.Meter(instrumentationName), nil), reader
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// sumBy totals an int64 sum, keyed by the value of attribute key.
func sumBy(t *testing.T, m metricdata.Metrics, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(key)
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestMetrics_OutcomesAndErrors(t *testing.T) {
	m, reader := newTestMetrics()
	ctx := context.Background()

	m.begin(ctx, toolClassifyExchange).end("PERSIST", nil)
	m.begin(ctx, toolClassifyExchange).end("FLUSH", nil)
	m.begin(ctx, toolClassifyExchange).end("FLUSH", nil)
	m.begin(ctx, toolClassifyExchange).end("", gate.ErrInvalidInput)

	got := collect(t, reader)
	require.Contains(t, got, "roomgate.mcp.tool.duration_seconds")

	assert.Equal(t, map[string]int64{"PERSIST": 1, "FLUSH": 2, "error": 1},
		sumBy(t, got["roomgate.mcp.tool.invocations_total"], "outcome"))
	assert.Equal(t, map[string]int64{"invalid_input": 1},
		sumBy(t, got["roomgate.mcp.tool.errors_total"], "reason"))
	assert.Equal(t, map[string]int64{toolClassifyExchange: 0},
		sumBy(t, got["roomgate.mcp.tool.active_requests"], "tool"))
}

func TestMetrics_ActiveWhileInFlight(t *testing.T) {
	m, reader := newTestMetrics()
	ctx := context.Background()

	first := m.begin(ctx, toolClassifyExchange)
	m.begin(ctx, toolClassifyExchange)
	first.end("FLUSH", nil)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumBy(t, got["roomgate.mcp.tool.active_requests"], "tool")[toolClassifyExchange])
}

func TestMetrics_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		var nilMetrics *Metrics
		nilMetrics.begin(context.Background(), "x").end("", errors.New("boom"))
		(&Metrics{}).begin(context.Background(), "x").end("FLUSH", nil)
	})
}
