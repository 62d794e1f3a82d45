package notify

import (
	"context"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/infra/notifier"
)

// DiscordChannel implements the Channel interface for Discord notifications.
// It wraps the DiscordNotifier from the infrastructure layer to provide the
// Channel abstraction for the notification use case.
type DiscordChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewDiscordChannel creates a new Discord channel with the specified
// configuration. If Discord notifications are disabled, a NoopNotifier is
// used instead so the Channel interface contract is always satisfied.
func NewDiscordChannel(config notifier.DiscordConfig) *DiscordChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewDiscordNotifier(config)
	} else {
		n = notifier.NewNoopNotifier()
	}

	return &DiscordChannel{
		notifier: n,
		enabled:  config.Enabled,
	}
}

// Name returns the channel identifier "discord".
func (c *DiscordChannel) Name() string {
	return "discord"
}

// IsEnabled returns whether Discord notifications are enabled via configuration.
func (c *DiscordChannel) IsEnabled() bool {
	return c.enabled
}

// Send delivers a monitoring event notification to Discord.
//
// The underlying notifier handles rate limiting (0.5 req/s with burst of 3),
// retry logic, context timeout and request ID logging.
func (c *DiscordChannel) Send(ctx context.Context, event *entity.Event, jurisdictionName string) error {
	if !c.enabled {
		return ErrChannelDisabled
	}

	if event == nil || event.Title == "" {
		return ErrInvalidEvent
	}

	return c.notifier.NotifyEvent(ctx, event, jurisdictionName)
}
