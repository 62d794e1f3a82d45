// Package notifier provides webhook senders for monitoring event alerts.
// It defines the Notifier interface which allows different alerting
// mechanisms (Slack, Discord) to be used interchangeably, plus a no-op
// implementation for when alerting is disabled.
package notifier

import (
	"context"

	"incentive-monitor/internal/domain/entity"
)

// Notifier is an interface for sending monitoring event alerts.
// Implementations handle rate limiting, retries, and error logging
// internally, and must respect context cancellation.
type Notifier interface {
	// NotifyEvent sends an alert about a detected monitoring event.
	// jurisdictionName is the human-readable name of the jurisdiction the
	// event belongs to, used for message formatting.
	NotifyEvent(ctx context.Context, event *entity.Event, jurisdictionName string) error
}
