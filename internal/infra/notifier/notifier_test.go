package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"incentive-monitor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func criticalEvent() *entity.Event {
	return &entity.Event{
		ID:             42,
		JurisdictionID: "GA",
		EventType:      entity.EventTypeExpiration,
		Severity:       entity.SeverityCritical,
		Title:          "Film tax credit program expires September 30",
		Summary:        "The Georgia film tax credit sunset date has been confirmed.",
		SourceURL:      "https://dor.georgia.gov/film-tax-credit",
		DetectedAt:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Slack
// ---------------------------------------------------------------------------

func TestSlackNotifier_NotifyEvent(t *testing.T) {
	var received SlackWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(SlackConfig{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	})

	err := notifier.NotifyEvent(context.Background(), criticalEvent(), "Georgia")
	require.NoError(t, err)

	assert.Contains(t, received.Text, "[CRITICAL]")
	assert.Contains(t, received.Text, "Georgia")
	require.Len(t, received.Blocks, 2)

	section := received.Blocks[0]
	assert.Equal(t, "section", section.Type)
	require.NotNil(t, section.Text)
	assert.Equal(t, "mrkdwn", section.Text.Type)
	assert.Contains(t, section.Text.Text, "<https://dor.georgia.gov/film-tax-credit|Film tax credit program expires September 30>")
	assert.Contains(t, section.Text.Text, "sunset date has been confirmed")

	contextBlock := received.Blocks[1]
	assert.Equal(t, "context", contextBlock.Type)
	require.Len(t, contextBlock.Elements, 1)
	assert.Contains(t, contextBlock.Elements[0].Text, "Georgia")
	assert.Contains(t, contextBlock.Elements[0].Text, "expiration")
	assert.Contains(t, contextBlock.Elements[0].Text, "2026-03-01T09:30:00Z")
}

func TestSlackNotifier_ClientErrorNotRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid_blocks"))
	}))
	defer server.Close()

	notifier := NewSlackNotifier(SlackConfig{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	})

	err := notifier.NotifyEvent(context.Background(), criticalEvent(), "Georgia")
	require.Error(t, err)

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "4xx must not be retried")
}

func TestSlackNotifier_RateLimitRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"retry_after": 0.05}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(SlackConfig{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	})

	err := notifier.NotifyEvent(context.Background(), criticalEvent(), "Georgia")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "429 should wait retry_after and retry once")
}

// ---------------------------------------------------------------------------
// Discord
// ---------------------------------------------------------------------------

func TestDiscordNotifier_NotifyEvent(t *testing.T) {
	var received DiscordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	})

	err := notifier.NotifyEvent(context.Background(), criticalEvent(), "Georgia")
	require.NoError(t, err)

	require.Len(t, received.Embeds, 1)
	embed := received.Embeds[0]
	assert.Equal(t, "Film tax credit program expires September 30", embed.Title)
	assert.Equal(t, "The Georgia film tax credit sunset date has been confirmed.", embed.Description)
	assert.Equal(t, "https://dor.georgia.gov/film-tax-credit", embed.URL)
	assert.Equal(t, discordRedColor, embed.Color)
	assert.Equal(t, "Georgia • expiration", embed.Footer.Text)
	assert.Equal(t, "2026-03-01T09:30:00Z", embed.Timestamp)
}

func TestDiscordNotifier_SeverityColors(t *testing.T) {
	assert.Equal(t, discordRedColor, severityColor(entity.SeverityCritical))
	assert.Equal(t, discordYellowColor, severityColor(entity.SeverityWarning))
	assert.Equal(t, discordBlueColor, severityColor(entity.SeverityInfo))
}

func TestDiscordNotifier_TruncatesLongSummary(t *testing.T) {
	var received DiscordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{
		Enabled:    true,
		WebhookURL: server.URL,
		Timeout:    5 * time.Second,
	})

	event := criticalEvent()
	for len(event.Summary) <= maxDescriptionLength {
		event.Summary += event.Summary
	}

	err := notifier.NotifyEvent(context.Background(), event, "Georgia")
	require.NoError(t, err)

	require.Len(t, received.Embeds, 1)
	description := received.Embeds[0].Description
	assert.Len(t, description, maxDescriptionLength)
	assert.True(t, len(description) >= len(truncationSuffix))
	assert.Equal(t, truncationSuffix, description[len(description)-len(truncationSuffix):])
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func TestClassifyResponse(t *testing.T) {
	makeResp := func(status int, headers map[string]string) *http.Response {
		resp := &http.Response{StatusCode: status, Header: http.Header{}}
		for k, v := range headers {
			resp.Header.Set(k, v)
		}
		return resp
	}

	t.Run("2xx is nil", func(t *testing.T) {
		assert.NoError(t, classifyResponse("Slack", makeResp(http.StatusOK, nil), nil))
		assert.NoError(t, classifyResponse("Discord", makeResp(http.StatusNoContent, nil), nil))
	})

	t.Run("429 carries retry_after from body", func(t *testing.T) {
		err := classifyResponse("Discord", makeResp(http.StatusTooManyRequests, nil), []byte(`{"retry_after": 2.5}`))
		var rateLimitErr *RateLimitError
		require.ErrorAs(t, err, &rateLimitErr)
		assert.Equal(t, 2500*time.Millisecond, rateLimitErr.RetryAfter)
	})

	t.Run("429 falls back to Retry-After header", func(t *testing.T) {
		err := classifyResponse("Slack", makeResp(http.StatusTooManyRequests, map[string]string{"Retry-After": "7"}), []byte("rate limited"))
		var rateLimitErr *RateLimitError
		require.ErrorAs(t, err, &rateLimitErr)
		assert.Equal(t, 7*time.Second, rateLimitErr.RetryAfter)
	})

	t.Run("429 without hints uses default", func(t *testing.T) {
		err := classifyResponse("Slack", makeResp(http.StatusTooManyRequests, nil), nil)
		var rateLimitErr *RateLimitError
		require.ErrorAs(t, err, &rateLimitErr)
		assert.Equal(t, 5*time.Second, rateLimitErr.RetryAfter)
	})

	t.Run("4xx is a client error", func(t *testing.T) {
		err := classifyResponse("Slack", makeResp(http.StatusForbidden, nil), []byte("no_service"))
		var clientErr *ClientError
		require.ErrorAs(t, err, &clientErr)
		assert.Equal(t, http.StatusForbidden, clientErr.StatusCode)
		assert.False(t, isRetryableError(err))
	})

	t.Run("5xx is a retryable server error", func(t *testing.T) {
		err := classifyResponse("Discord", makeResp(http.StatusBadGateway, nil), []byte("upstream down"))
		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, http.StatusBadGateway, serverErr.StatusCode)
		assert.True(t, isRetryableError(err))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10, "..."))
	assert.Equal(t, "exactly", truncate("exactly", 7, "..."))
	assert.Equal(t, "long te...", truncate("long text here", 10, "..."))
	assert.Equal(t, "lo", truncate("long text", 2, "..."))
}

func TestNoopNotifier(t *testing.T) {
	notifier := NewNoopNotifier()
	assert.NoError(t, notifier.NotifyEvent(context.Background(), criticalEvent(), "Georgia"))
}
