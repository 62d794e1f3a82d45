// Package metrics provides centralized Prometheus metrics for the monitoring pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceChecksTotal counts per-source check outcomes.
	// Results: baseline, unchanged, changed, fetch_error, persist_error, no_fetcher.
	SourceChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_source_checks_total",
			Help: "Total number of source checks by source and result",
		},
		[]string{"source_id", "result"},
	)

	// SourceCheckDuration measures the duration of a full per-source pipeline.
	SourceCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monitor_source_check_duration_seconds",
			Help:    "Duration of per-source check pipelines in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"source_id"},
	)

	// ChangesDetectedTotal counts detected content drifts by source type.
	ChangesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_changes_detected_total",
			Help: "Total number of content changes detected by source type",
		},
		[]string{"source_type"},
	)

	// EventsCreatedTotal counts persisted monitoring events.
	EventsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_events_created_total",
			Help: "Total number of monitoring events created by type and severity",
		},
		[]string{"event_type", "severity"},
	)

	// EventPersistErrorsTotal counts events dropped because the sink failed.
	EventPersistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_event_persist_errors_total",
			Help: "Total number of events dropped due to persistence failures",
		},
	)

	// EnrichmentsTotal counts summary enrichment attempts by status.
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_enrichments_total",
			Help: "Total number of summary enrichment attempts by status",
		},
		[]string{"status"},
	)
)
