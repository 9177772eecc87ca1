package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func sumsBy(t *testing.T, rm metricdata.ResourceMetrics, name string, key attribute.Key) map[string]int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			out := map[string]int64{}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(key)
				out[v.Emit()] += dp.Value
			}
			return out
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return nil
}

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newHTTPMetrics(mp.Meter(httpInstrumentationName), nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	flip := false
	e.POST("/classify", func(c echo.Context) error {
		flip = !flip
		d := "FLUSH"
		if flip {
			d = "PERSIST"
		}
		c.Set(decisionKey, d)
		return c.JSON(http.StatusOK, map[string]string{"decision": d})
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodPost, "/classify"},
		{http.MethodPost, "/classify"},
		{http.MethodPost, "/classify"},
		{http.MethodGet, "/missing"},
	} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	routes := sumsBy(t, rm, "roomgate.http.requests_total", "route")
	assert.Equal(t, int64(1), routes["/health"])
	assert.Equal(t, int64(3), routes["/classify"])
	assert.Equal(t, map[string]int64{"200": 4, "404": 1},
		sumsBy(t, rm, "roomgate.http.requests_total", "status"))
	assert.Equal(t, map[string]int64{"PERSIST": 2, "FLUSH": 1},
		sumsBy(t, rm, "roomgate.http.decisions_total", "decision"))
	for _, n := range sumsBy(t, rm, "roomgate.http.active_requests", "route") {
		assert.Zero(t, n)
	}
}
