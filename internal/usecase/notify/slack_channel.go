package notify

import (
	"context"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/infra/notifier"
)

// SlackChannel implements the Channel interface for Slack notifications.
// It wraps the SlackNotifier from the infrastructure layer to provide the
// Channel abstraction for the notification use case.
type SlackChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewSlackChannel creates a new Slack channel with the specified
// configuration. If Slack notifications are disabled, a NoopNotifier is
// used instead so the Channel interface contract is always satisfied.
func NewSlackChannel(config notifier.SlackConfig) *SlackChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewSlackNotifier(config)
	} else {
		n = notifier.NewNoopNotifier()
	}

	return &SlackChannel{
		notifier: n,
		enabled:  config.Enabled,
	}
}

// Name returns the channel identifier "slack".
func (c *SlackChannel) Name() string {
	return "slack"
}

// IsEnabled returns whether Slack notifications are enabled via configuration.
func (c *SlackChannel) IsEnabled() bool {
	return c.enabled
}

// Send delivers a monitoring event notification to Slack.
//
// The underlying notifier handles rate limiting (1 req/s with burst of 1),
// retry logic, context timeout and request ID logging.
func (c *SlackChannel) Send(ctx context.Context, event *entity.Event, jurisdictionName string) error {
	if !c.enabled {
		return ErrChannelDisabled
	}

	if event == nil || event.Title == "" {
		return ErrInvalidEvent
	}

	return c.notifier.NotifyEvent(ctx, event, jurisdictionName)
}
