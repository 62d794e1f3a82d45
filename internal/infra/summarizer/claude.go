// Package summarizer provides AI-powered summary enrichment for monitoring
// events. It includes adapters for Claude (Anthropic) and OpenAI APIs with
// circuit breaker and retry reliability patterns. Enrichment is best-effort:
// callers fall back to truncated raw content when a provider fails.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"incentive-monitor/internal/resilience/circuitbreaker"
	"incentive-monitor/internal/resilience/retry"
	"incentive-monitor/internal/usecase/monitor"
)

// maxInputChars bounds the content sent to a provider to keep token usage
// predictable for large webpage extracts.
const maxInputChars = 10000

// ClaudeConfig holds configuration parameters for the Claude summarizer.
type ClaudeConfig struct {
	// CharacterLimit is the maximum number of characters requested for a
	// summary. Loaded from SUMMARIZER_CHAR_LIMIT.
	// Valid range: 100-2000 characters. Default: 300.
	CharacterLimit int

	// Model is the Claude API model identifier to use for summarization.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	MaxTokens int

	// Timeout is the maximum duration for a single summarization API call.
	Timeout time.Duration
}

// LoadClaudeConfig loads configuration from environment variables.
// An invalid SUMMARIZER_CHAR_LIMIT falls back to the default with a warning.
func LoadClaudeConfig() ClaudeConfig {
	const defaultCharLimit = 300

	charLimit := defaultCharLimit

	if envLimit := os.Getenv("SUMMARIZER_CHAR_LIMIT"); envLimit != "" {
		parsed, err := strconv.Atoi(envLimit)
		if err != nil {
			slog.Warn("Invalid SUMMARIZER_CHAR_LIMIT format, using default",
				slog.String("value", envLimit),
				slog.Int("default", defaultCharLimit),
				slog.String("error", err.Error()))
		} else if err := ValidateCharacterLimit(parsed); err != nil {
			slog.Warn("SUMMARIZER_CHAR_LIMIT out of valid range, using default",
				slog.Int("value", parsed),
				slog.Int("default", defaultCharLimit),
				slog.String("error", err.Error()))
		} else {
			charLimit = parsed
		}
	}

	return ClaudeConfig{
		CharacterLimit: charLimit,
		Model:          "claude-sonnet-4-5-20250929",
		MaxTokens:      1024,
		Timeout:        60 * time.Second,
	}
}

// Claude implements summary enrichment using Anthropic's Claude API
// with circuit breaker and retry logic.
type Claude struct {
	client          anthropic.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	config          ClaudeConfig
	metricsRecorder SummaryMetricsRecorder
}

// NewClaude creates a new Claude summarizer with the given API key.
func NewClaude(apiKey string) *Claude {
	config := LoadClaudeConfig()

	slog.Info("Initialized Claude summarizer with configuration",
		slog.Int("character_limit", config.CharacterLimit),
		slog.String("model", config.Model))

	return &Claude{
		client:          anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker:  circuitbreaker.New(circuitbreaker.SummarizerConfig("claude-api")),
		retryConfig:     retry.AIAPIConfig(),
		config:          config,
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

// Summarize generates an event summary for detected jurisdiction content.
// It uses circuit breaker and retry logic; the caller treats any error as a
// signal to fall back to truncated raw content.
func (c *Claude) Summarize(ctx context.Context, req monitor.SummaryRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doSummarize(ctx, req)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", fmt.Errorf("claude summarize failed after retries: %w", retryErr)
	}

	return result, nil
}

// doSummarize performs the actual API call without retry or circuit breaker.
func (c *Claude) doSummarize(ctx context.Context, req monitor.SummaryRequest) (string, error) {
	requestID := uuid.New().String()

	prompt := buildPrompt(req, c.config.CharacterLimit)
	inputLength := utf8.RuneCountInString(req.Content)

	slog.InfoContext(ctx, "Starting summarization",
		slog.String("request_id", requestID),
		slog.String("jurisdiction", req.Jurisdiction),
		slog.Int("input_length", inputLength),
		slog.Int("character_limit", c.config.CharacterLimit))

	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Summarization failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		slog.ErrorContext(ctx, "Claude API returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		slog.ErrorContext(ctx, "Claude API returned unexpected response type",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	summary := textBlock.Text
	summaryLength := utf8.RuneCountInString(summary)
	withinLimit := summaryLength <= c.config.CharacterLimit

	slog.InfoContext(ctx, "Summarization completed",
		slog.String("request_id", requestID),
		slog.Int("summary_length", summaryLength),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))

	c.metricsRecorder.RecordLength(summaryLength)
	c.metricsRecorder.RecordDuration(duration)
	c.metricsRecorder.RecordCompliance(withinLimit)
	if !withinLimit {
		c.metricsRecorder.RecordLimitExceeded()
	}

	return summary, nil
}

// buildPrompt constructs the enrichment prompt shared by both providers.
// The model sees the jurisdiction and source so it can keep the summary
// anchored to what changed rather than restating boilerplate.
func buildPrompt(req monitor.SummaryRequest, charLimit int) string {
	content := req.Content
	if len(content) > maxInputChars {
		content = content[:maxInputChars] + "...\n(content truncated)"
	}

	return fmt.Sprintf(
		"You are monitoring government tax incentive programs for changes.\n"+
			"Jurisdiction: %s\nSource: %s\nTitle: %s\n\n"+
			"Summarize the following detected content in at most %d characters, "+
			"focusing on what changed for the incentive program (rates, deadlines, "+
			"eligibility, new or expiring programs). Reply with the summary only.\n\n%s",
		req.Jurisdiction, req.SourceURL, req.Title, charLimit, content)
}
