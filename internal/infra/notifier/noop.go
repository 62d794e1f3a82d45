package notifier

import (
	"context"
	"log/slog"

	"incentive-monitor/internal/domain/entity"
)

// NoopNotifier is a no-op implementation of the Notifier interface.
// Used when no notification channel is configured, so the monitoring
// pipeline can run without external delivery.
type NoopNotifier struct{}

// NewNoopNotifier creates a new NoopNotifier.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// NotifyEvent logs the event at debug level and returns nil.
func (n *NoopNotifier) NotifyEvent(_ context.Context, event *entity.Event, jurisdictionName string) error {
	slog.Debug("noop notifier: skipping notification",
		slog.Int64("event_id", event.ID),
		slog.String("jurisdiction", jurisdictionName),
		slog.String("severity", string(event.Severity)))
	return nil
}
