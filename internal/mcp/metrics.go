package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roomgate/internal/gate"
)

const instrumentationName = "github.com/fyrsmithlabs/roomgate/internal/mcp"

// Metrics records tool calls. Instruments that fail to register stay nil
// and are skipped.
type Metrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
	errors      metric.Int64Counter
	active      metric.Int64UpDownCounter
}

// NewMetrics registers the tool instruments on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(instrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("failed to create instrument", zap.String("instrument", name), zap.Error(err))
		}
	}

	var m Metrics
	var err error
	m.invocations, err = meter.Int64Counter("roomgate.mcp.tool.invocations_total",
		metric.WithDescription("MCP tool calls by outcome (FLUSH, PERSIST or error)"),
		metric.WithUnit("{invocation}"))
	warn("invocations_total", err)

	m.duration, err = meter.Float64Histogram("roomgate.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool call latency including embedding and storage"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5))
	warn("duration_seconds", err)

	m.errors, err = meter.Int64Counter("roomgate.mcp.tool.errors_total",
		metric.WithDescription("Failed MCP tool calls by reason"),
		metric.WithUnit("{error}"))
	warn("errors_total", err)

	m.active, err = meter.Int64UpDownCounter("roomgate.mcp.tool.active_requests",
		metric.WithDescription("MCP tool calls in flight"),
		metric.WithUnit("{request}"))
	warn("active_requests", err)

	return &m
}

// toolCall is one in-flight tool invocation.
type toolCall struct {
	m     *Metrics
	ctx   context.Context
	tool  attribute.KeyValue
	start time.Time
}

// begin marks a tool call as active. The caller must call end exactly once.
func (m *Metrics) begin(ctx context.Context, tool string) *toolCall {
	c := &toolCall{m: m, ctx: ctx, tool: attribute.String("tool", tool), start: time.Now()}
	if m != nil && m.active != nil {
		m.active.Add(ctx, 1, metric.WithAttributes(c.tool))
	}
	return c
}

// end records the outcome: the decision on success, "error" otherwise.
func (c *toolCall) end(decision string, err error) {
	m := c.m
	if m == nil {
		return
	}
	if m.active != nil {
		m.active.Add(c.ctx, -1, metric.WithAttributes(c.tool))
	}

	outcome := decision
	if err != nil {
		outcome = "error"
	}
	if m.invocations != nil {
		m.invocations.Add(c.ctx, 1, metric.WithAttributes(c.tool, attribute.String("outcome", outcome)))
	}
	if m.duration != nil {
		m.duration.Record(c.ctx, time.Since(c.start).Seconds(), metric.WithAttributes(c.tool))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(c.ctx, 1, metric.WithAttributes(c.tool, attribute.String("reason", categorizeError(err))))
	}
}

// categorizeError maps an error to a low-cardinality reason label.
func categorizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gate.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, gate.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, gate.ErrStoreCorruption):
		return "store_corrupted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal_error"
	}
}
