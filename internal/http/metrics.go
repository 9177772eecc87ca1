package http

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/roomgate/internal/http"

// decisionKey is the echo context key a handler sets to the gate decision.
const decisionKey = "roomgate.decision"

// HTTPMetrics records request counts and latency per route, plus the
// FLUSH/PERSIST split of successful classifications.
type HTTPMetrics struct {
	requests  metric.Int64Counter
	latency   metric.Float64Histogram
	inFlight  metric.Int64UpDownCounter
	decisions metric.Int64Counter
}

// NewHTTPMetrics creates HTTP metrics on the global meter provider.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	return newHTTPMetrics(otel.Meter(httpInstrumentationName), logger)
}

func newHTTPMetrics(meter metric.Meter, logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var m HTTPMetrics
	var err error
	m.requests, err = meter.Int64Counter("roomgate.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status"),
		metric.WithUnit("{request}"))
	keep(err)
	m.latency, err = meter.Float64Histogram("roomgate.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route and status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5))
	keep(err)
	m.inFlight, err = meter.Int64UpDownCounter("roomgate.http.active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"))
	keep(err)
	m.decisions, err = meter.Int64Counter("roomgate.http.decisions_total",
		metric.WithDescription("Classifications served over HTTP by decision"),
		metric.WithUnit("{exchange}"))
	keep(err)

	if len(errs) > 0 {
		logger.Warn("failed to create some http instruments", zap.Error(errors.Join(errs...)))
	}
	return &m
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
// Routes are labeled by pattern; unknown paths share "unmatched".
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()
			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("route", route),
				attribute.Int("status", status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if d, ok := c.Get(decisionKey).(string); ok && m.decisions != nil {
				m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", d)))
			}
			return err
		}
	}
}
