package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	tel, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_EnabledWithoutCollector(t *testing.T) {
	// Exporters connect lazily, so a missing collector does not fail startup.
	for _, protocol := range []string{"grpc", "http"} {
		t.Run(protocol, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			cfg.Protocol = protocol
			cfg.Endpoint = "127.0.0.1:1"

			core, logs := observer.New(zap.InfoLevel)
			tel, err := New(context.Background(), cfg, zap.New(core))
			require.NoError(t, err)
			assert.True(t, tel.IsEnabled())
			assert.Equal(t, 1, logs.FilterMessage("telemetry enabled").Len())

			_, span := tel.Tracer("test").Start(context.Background(), "probe")
			span.End()

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			_ = tel.Shutdown(ctx)
			assert.False(t, tel.Health().Healthy)
		})
	}
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.LoggerProvider()
		tel.SetLoggerProvider(nil)
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
	})
	assert.Equal(t, HealthStatus{Healthy: false, Degraded: true}, tel.Health())
}

func TestTelemetry_ShutdownDisabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, tel.ForceFlush(context.Background()))
	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Health().Healthy)
}

func TestTelemetry_LoggerProviderDefaultsToGlobal(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, global.GetLoggerProvider(), tel.LoggerProvider())
}

func TestTestTelemetry_Spans(t *testing.T) {
	tt := NewTestTelemetry()

	_, span := tt.Tracer("test").Start(context.Background(), "gate.Process")
	span.SetAttributes(
		attribute.String("gate.decision", "PERSIST"),
		attribute.Float64("gate.probability", 0.75),
		attribute.Bool("gate.persisted", true),
		attribute.Int64("gate.text_length", 42),
	)
	span.End()

	tt.AssertSpanExists(t, "gate.Process")
	tt.AssertSpanAttribute(t, "gate.Process", "gate.decision", "PERSIST")
	tt.AssertSpanAttribute(t, "gate.Process", "gate.probability", 0.75)
	tt.AssertSpanAttribute(t, "gate.Process", "gate.persisted", true)
	tt.AssertSpanAttribute(t, "gate.Process", "gate.text_length", int64(42))
	assert.Nil(t, tt.SpanByName("missing"))
}

func TestTestTelemetry_CounterValue(t *testing.T) {
	tt := NewTestTelemetry()

	counter, err := tt.Meter("test").Int64Counter("gate.decisions")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 2, metricAttrs("PERSIST"))
	counter.Add(ctx, 3, metricAttrs("FLUSH"))

	assert.Equal(t, int64(5), tt.CounterValue(t, "gate.decisions"))
	assert.Equal(t, int64(3), tt.CounterValue(t, "gate.decisions", attribute.String("decision", "FLUSH")))
	assert.Equal(t, int64(0), tt.CounterValue(t, "absent"))
}

func TestTestTelemetry_Shutdown(t *testing.T) {
	tt := NewTestTelemetry()

	_, span := tt.Tracer("test").Start(context.Background(), "span")
	span.End()

	require.NoError(t, tt.ForceFlush(context.Background()))
	require.NoError(t, tt.Shutdown(context.Background()))
	assert.False(t, tt.Health().Healthy)
}

func metricAttrs(decision string) metric.AddOption {
	return metric.WithAttributes(attribute.String("decision", decision))
}
