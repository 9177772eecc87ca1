package memorystore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AppendsTotal counts persisted exchanges.
	// Labels: category
	AppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomgate",
			Subsystem: "store",
			Name:      "appends_total",
			Help:      "Total number of exchanges appended to the memory store",
		},
		[]string{"category"},
	)

	// AppendFailures counts appends that did not reach disk.
	// Labels: reason (corrupt, io)
	AppendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomgate",
			Subsystem: "store",
			Name:      "append_failures_total",
			Help:      "Total number of failed memory store appends",
		},
		[]string{"reason"},
	)

	// Entries is the number of records in the document after the last write or read.
	Entries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "roomgate",
			Subsystem: "store",
			Name:      "entries",
			Help:      "Number of entries in the memory store document",
		},
	)
)
