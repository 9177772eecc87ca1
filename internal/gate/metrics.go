package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts gate verdicts.
	// Labels: decision (FLUSH, PERSIST), category (empty for FLUSH)
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomgate",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Total number of gate decisions",
		},
		[]string{"decision", "category"},
	)

	// ErrorsTotal counts Process calls that returned an error.
	// Labels: stage (validate, classify, persist)
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomgate",
			Subsystem: "gate",
			Name:      "errors_total",
			Help:      "Total number of failed gate calls by pipeline stage",
		},
		[]string{"stage"},
	)

	// Duration observes end-to-end Process latency.
	Duration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "roomgate",
			Subsystem: "gate",
			Name:      "process_duration_seconds",
			Help:      "Latency of gate Process calls",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)
