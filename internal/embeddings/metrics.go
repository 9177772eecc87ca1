package embeddings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const embeddingsInstrumentationName = "github.com/fyrsmithlabs/roomgate/internal/embeddings"

// Metrics instruments embedding calls. Exchange text is never recorded.
type Metrics struct {
	meter     metric.Meter
	logger    *zap.Logger
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
	rejected  metric.Int64Counter
}

// NewMetrics creates Metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newMetrics(otel.Meter(embeddingsInstrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	m := &Metrics{meter: meter, logger: logger}

	var err error
	m.duration, err = meter.Float64Histogram(
		"roomgate.embedding.duration_seconds",
		metric.WithDescription("Time spent embedding, by model and operation (encode, encode_batch)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	)
	m.warn("duration histogram", err)

	// Training embeds the whole corpus; serving embeds one exchange.
	m.batchSize, err = meter.Int64Histogram(
		"roomgate.embedding.batch_size",
		metric.WithDescription("Texts per embedding call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 8, 16, 32, 64, 128, 256),
	)
	m.warn("batch size histogram", err)

	m.errors, err = meter.Int64Counter(
		"roomgate.embedding.errors_total",
		metric.WithDescription("Provider failures by model and operation"),
		metric.WithUnit("{error}"),
	)
	m.warn("errors counter", err)

	m.rejected, err = meter.Int64Counter(
		"roomgate.embedding.rejected_total",
		metric.WithDescription("Inputs or vectors rejected by the adapter contract, by reason (blank_input, degenerate)"),
		metric.WithUnit("{call}"),
	)
	m.warn("rejected counter", err)

	return m
}

func (m *Metrics) warn(instrument string, err error) {
	if err != nil {
		m.logger.Warn("failed to create embedding instrument", zap.String("instrument", instrument), zap.Error(err))
	}
}

// RecordGeneration records one provider call.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, duration time.Duration, batchSize int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), attrs)
	}
	if batchSize > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batchSize), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

// RecordRejection counts a call refused by Guard.
func (m *Metrics) RecordRejection(ctx context.Context, model string, err error) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("reason", rejectionReason(err)),
	))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "blank_input"
	case errors.Is(err, ErrDegenerateEmbedding):
		return "degenerate"
	default:
		return "other"
	}
}
