package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"incentive-monitor/internal/domain/entity"

	"github.com/google/uuid"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration
}

// DiscordNotifier sends critical monitoring event notifications to Discord
// via webhook.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *webhookLimiter
}

// NewDiscordNotifier creates a new DiscordNotifier with the specified
// configuration. The rate limiter is set to 0.5 requests/second with burst
// of 3 (Discord Webhook limit: 30 requests per minute = 0.5 req/s).
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: newWebhookLimiter(0.5, 3),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	// Discord limits
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	truncationSuffix     = "..."

	// Embed colors by severity
	discordRedColor    = 15548997 // #ED4245
	discordYellowColor = 16705372 // #FEE75C
	discordBlueColor   = 5793266  // #5865F2
)

// severityColor maps an event severity to a Discord embed color.
func severityColor(severity entity.Severity) int {
	switch severity {
	case entity.SeverityCritical:
		return discordRedColor
	case entity.SeverityWarning:
		return discordYellowColor
	default:
		return discordBlueColor
	}
}

// buildEmbedPayload creates a Discord webhook payload from a monitoring event.
//
// The payload includes:
//   - Title: Event title (truncated to 256 chars if needed)
//   - Description: Event summary (truncated to 4090 chars + "..." if needed)
//   - URL: Source page the change was detected on
//   - Color: Severity-based (red for critical, yellow for warning)
//   - Footer: Jurisdiction name + event type
//   - Timestamp: Detection time in RFC3339 format
func (d *DiscordNotifier) buildEmbedPayload(event *entity.Event, jurisdictionName string) DiscordWebhookPayload {
	title := event.Title
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}

	description := truncate(event.Summary, maxDescriptionLength, truncationSuffix)

	embed := DiscordEmbed{
		Title:       title,
		Description: description,
		URL:         event.SourceURL,
		Color:       severityColor(event.Severity),
		Footer: DiscordEmbedFooter{
			Text: fmt.Sprintf("%s • %s", jurisdictionName, event.EventType),
		},
		Timestamp: event.DetectedAt.Format(time.RFC3339),
	}

	return DiscordWebhookPayload{
		Embeds: []DiscordEmbed{embed},
	}
}

// sendWebhookRequest sends a single Discord webhook request.
//
// Error types:
//   - 429: Rate limit error (retryable, contains retry_after duration)
//   - 4xx (non-429): Client error (non-retryable)
//   - 5xx: Server error (retryable)
//   - Network error: Connection/timeout error (retryable)
func (d *DiscordNotifier) sendWebhookRequest(ctx context.Context, event *entity.Event, jurisdictionName string) error {
	payload := d.buildEmbedPayload(event, jurisdictionName)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	return classifyResponse("Discord", resp, body)
}

// NotifyEvent sends a Discord notification for a critical monitoring event.
// This method implements the Notifier interface.
//
// It performs the following steps:
//  1. Generate unique request_id for tracing
//  2. Apply rate limiting to prevent API abuse (0.5 req/s, burst of 3)
//  3. Send webhook request with retry logic
func (d *DiscordNotifier) NotifyEvent(ctx context.Context, event *entity.Event, jurisdictionName string) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("Starting Discord notification",
		slog.String("request_id", requestID),
		slog.Int64("event_id", event.ID),
		slog.String("jurisdiction_id", event.JurisdictionID),
		slog.String("severity", string(event.Severity)))

	if err := d.rateLimiter.wait(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("request_id", requestID),
			slog.Int64("event_id", event.ID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return sendWithRetry(ctx, "discord", func(ctx context.Context) error {
		return d.sendWebhookRequest(ctx, event, jurisdictionName)
	})
}
