package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"incentive-monitor/internal/domain/entity"

	"github.com/google/uuid"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackNotifier sends critical monitoring event notifications to Slack via
// Incoming Webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *webhookLimiter
}

// NewSlackNotifier creates a new SlackNotifier with the specified configuration.
// The rate limiter is set to 1 request/second with burst of 1
// (Slack Webhook limit: 1 message per second).
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: newWebhookLimiter(1.0, 1),
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context", "divider"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"` // Actual text content
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxContextTextLength = 2000
	maxFallbackLength    = 150

	slackTruncationSuffix = "..."
)

// buildBlockKitPayload creates a Slack webhook payload from a monitoring event.
//
// The payload includes:
//   - Text: Fallback text for notifications (severity + title + jurisdiction)
//   - Section Block: Event title (bold, linked to the source page) + summary
//   - Context Block: Jurisdiction, event type and detection timestamp
func (s *SlackNotifier) buildBlockKitPayload(event *entity.Event, jurisdictionName string) SlackWebhookPayload {
	fallbackText := fmt.Sprintf("[%s] %s - %s", strings.ToUpper(string(event.Severity)), event.Title, jurisdictionName)
	fallbackText = truncate(fallbackText, maxFallbackLength, slackTruncationSuffix)

	titleLine := fmt.Sprintf("*%s*", event.Title)
	if event.SourceURL != "" {
		titleLine = fmt.Sprintf("*<%s|%s>*", event.SourceURL, event.Title)
	}
	sectionText := fmt.Sprintf(":rotating_light: %s\n\n%s", titleLine, event.Summary)
	sectionText = truncate(sectionText, maxSectionTextLength, slackTruncationSuffix)

	contextText := fmt.Sprintf("%s • %s • %s",
		jurisdictionName, event.EventType, event.DetectedAt.Format(time.RFC3339))
	contextText = truncate(contextText, maxContextTextLength, slackTruncationSuffix)

	sectionBlock := SlackBlock{
		Type: "section",
		Text: &SlackTextObject{
			Type: "mrkdwn",
			Text: sectionText,
		},
	}

	contextBlock := SlackBlock{
		Type: "context",
		Elements: []SlackTextObject{
			{
				Type: "mrkdwn",
				Text: contextText,
			},
		},
	}

	return SlackWebhookPayload{
		Text:   fallbackText,
		Blocks: []SlackBlock{sectionBlock, contextBlock},
	}
}

// sendWebhookRequest sends a single Slack webhook request.
//
// Error types:
//   - 429: Rate limit error (retryable, contains retry_after duration)
//   - 4xx (non-429): Client error (non-retryable)
//   - 5xx: Server error (retryable)
//   - Network error: Connection/timeout error (retryable)
func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, event *entity.Event, jurisdictionName string) error {
	payload := s.buildBlockKitPayload(event, jurisdictionName)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	return classifyResponse("Slack", resp, body)
}

// NotifyEvent sends a Slack notification for a critical monitoring event.
// This method implements the Notifier interface.
//
// It performs the following steps:
//  1. Generate unique request_id for tracing
//  2. Apply rate limiting to prevent API abuse (1 req/s, burst of 1)
//  3. Send webhook request with retry logic
func (s *SlackNotifier) NotifyEvent(ctx context.Context, event *entity.Event, jurisdictionName string) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("Starting Slack notification",
		slog.String("request_id", requestID),
		slog.Int64("event_id", event.ID),
		slog.String("jurisdiction_id", event.JurisdictionID),
		slog.String("severity", string(event.Severity)))

	if err := s.rateLimiter.wait(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("request_id", requestID),
			slog.Int64("event_id", event.ID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return sendWithRetry(ctx, "slack", func(ctx context.Context) error {
		return s.sendWebhookRequest(ctx, event, jurisdictionName)
	})
}
