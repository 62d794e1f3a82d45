package metrics

import (
	"strconv"
	"time"
)

// RecordSourceCheck records the outcome of one source check.
func RecordSourceCheck(sourceID int64, result string) {
	SourceChecksTotal.WithLabelValues(strconv.FormatInt(sourceID, 10), result).Inc()
}

// RecordCheckDuration records the duration of one per-source pipeline.
func RecordCheckDuration(sourceID int64, duration time.Duration) {
	SourceCheckDuration.WithLabelValues(strconv.FormatInt(sourceID, 10)).Observe(duration.Seconds())
}

// RecordChangeDetected records a detected content drift.
func RecordChangeDetected(sourceType string) {
	ChangesDetectedTotal.WithLabelValues(sourceType).Inc()
}

// RecordEventCreated records a persisted monitoring event.
func RecordEventCreated(eventType, severity string) {
	EventsCreatedTotal.WithLabelValues(eventType, severity).Inc()
}

// RecordEventPersistError records an event dropped by a failing sink.
func RecordEventPersistError() {
	EventPersistErrorsTotal.Inc()
}

// RecordEnrichment records a summary enrichment attempt.
func RecordEnrichment(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	EnrichmentsTotal.WithLabelValues(status).Inc()
}
