package worker

import (
	"incentive-monitor/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the monitoring worker.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// tick-loop metrics:
//
//   - worker_tick_runs_total: Total scheduler ticks by status (success/failure)
//   - worker_tick_duration_seconds: Duration histogram of tick execution
//   - worker_tick_sources_due_total: Total due sources picked up across ticks
//   - worker_tick_last_success_timestamp: Unix timestamp of last successful tick
type WorkerMetrics struct {
	*config.ConfigMetrics

	// TickRunsTotal counts scheduler tick runs by status (success, failure).
	TickRunsTotal *prometheus.CounterVec

	// TickDurationSeconds measures tick execution duration.
	// Buckets cover sub-second ticks with nothing due up to long
	// many-source ticks.
	TickDurationSeconds prometheus.Histogram

	// TickSourcesDueTotal counts due sources picked up across all ticks.
	TickSourcesDueTotal prometheus.Counter

	// TickLastSuccessTimestamp records the Unix timestamp of the last
	// successful tick, for staleness alerting.
	TickLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a WorkerMetrics instance. Metrics register with
// the default Prometheus registry via promauto at creation time.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		TickRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_tick_runs_total",
			Help: "Total number of scheduler tick runs by status (success/failure)",
		}, []string{"status"}),

		TickDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_tick_duration_seconds",
			Help:    "Duration of scheduler tick execution in seconds",
			Buckets: []float64{0.1, 1, 5, 15, 30, 60, 120, 300},
		}),

		TickSourcesDueTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_tick_sources_due_total",
			Help: "Total number of due sources picked up across all ticks",
		}),

		TickLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_tick_last_success_timestamp",
			Help: "Unix timestamp of the last successful scheduler tick",
		}),
	}
}

// RecordTickRun increments the tick run counter for the given status
// ("success" or "failure").
func (m *WorkerMetrics) RecordTickRun(status string) {
	m.TickRunsTotal.WithLabelValues(status).Inc()
}

// RecordTickDuration observes the duration of one tick in seconds.
func (m *WorkerMetrics) RecordTickDuration(seconds float64) {
	m.TickDurationSeconds.Observe(seconds)
}

// RecordSourcesDue adds the number of due sources picked up by one tick.
func (m *WorkerMetrics) RecordSourcesDue(count int) {
	m.TickSourcesDueTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful tick.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.TickLastSuccessTimestamp.SetToCurrentTime()
}
