package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// TestTelemetry keeps ended spans and metric points in memory so tests can
// check what the gate and its surfaces emitted.
type TestTelemetry struct {
	*Telemetry

	SpanRecorder *tracetest.SpanRecorder
	Reader       *sdkmetric.ManualReader
}

// NewTestTelemetry returns an enabled instance that exports nowhere.
// Its providers are not installed globally.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	tt := &TestTelemetry{
		SpanRecorder: tracetest.NewSpanRecorder(),
		Reader:       sdkmetric.NewManualReader(),
	}
	tt.Telemetry = &Telemetry{
		config:         cfg,
		logger:         zap.NewNop(),
		tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(tt.SpanRecorder)),
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(tt.Reader)),
	}
	tt.healthy.Store(true)
	return tt
}

// Spans returns all ended spans.
func (t *TestTelemetry) Spans() []trace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpanByName returns the first ended span called name, or nil.
func (t *TestTelemetry) SpanByName(name string) trace.ReadOnlySpan {
	for _, span := range t.Spans() {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

func (t *TestTelemetry) spanNames() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	return names
}

func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	assert.Contains(tb, t.spanNames(), name)
}

// AssertSpanAttribute checks key on the named span. expected is compared
// against the attribute's Go value: string, bool, int64 or float64.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName, key string, expected any) {
	tb.Helper()
	span := t.SpanByName(spanName)
	require.NotNil(tb, span, "span %q not found in %v", spanName, t.spanNames())

	for _, attr := range span.Attributes() {
		if string(attr.Key) == key {
			assert.Equal(tb, expected, attr.Value.AsInterface(), "span %q attribute %q", spanName, key)
			return
		}
	}
	assert.Fail(tb, "missing span attribute", "span %q has no attribute %q", spanName, key)
}

// CounterValue sums an int64 counter over points whose attribute set is
// exactly attrs. No attrs sums every point.
func (t *TestTelemetry) CounterValue(tb testing.TB, name string, attrs ...attribute.KeyValue) int64 {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(tb, t.Reader.Collect(context.Background(), &rm))

	want := attribute.NewSet(attrs...)
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(tb, ok, "metric %q is %T, not an int64 sum", name, m.Data)
			for _, dp := range sum.DataPoints {
				if len(attrs) == 0 || dp.Attributes.Equals(&want) {
					total += dp.Value
				}
			}
		}
	}
	return total
}
