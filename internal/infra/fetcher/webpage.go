package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"incentive-monitor/internal/detect"
	"incentive-monitor/internal/resilience/circuitbreaker"
	"incentive-monitor/internal/resilience/retry"
	"incentive-monitor/internal/usecase/monitor"
)

// maxPageChars bounds extracted page text before fingerprinting and storage.
// Beyond this bound, boilerplate churn deep in the page can no longer
// destabilize the fingerprint.
const maxPageChars = 10000

// WebpageFetcher implements the webpage strategy using goquery. It strips
// script and style elements, extracts visible text, collapses whitespace,
// and truncates before fingerprinting.
type WebpageFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewWebpageFetcher creates a new WebpageFetcher with the given HTTP client.
func NewWebpageFetcher(client *http.Client) *WebpageFetcher {
	return &WebpageFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.PageFetchConfig()),
		retryConfig:    retry.PageFetchConfig(),
	}
}

// Fetch retrieves a page and returns its canonicalized visible text.
func (w *WebpageFetcher) Fetch(ctx context.Context, pageURL string) (*monitor.FetchResult, error) {
	var result *monitor.FetchResult

	retryErr := retry.WithBackoff(ctx, w.retryConfig, func() error {
		cbResult, err := w.circuitBreaker.Execute(func() (interface{}, error) {
			return w.doFetch(ctx, pageURL)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("page fetch circuit breaker open, request rejected",
					slog.String("service", "page-fetch"),
					slog.String("url", pageURL),
					slog.String("state", w.circuitBreaker.State().String()))
			}
			return err
		}

		result = cbResult.(*monitor.FetchResult)
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return result, nil
}

// doFetch performs the actual page fetch without retry or circuit breaker.
func (w *WebpageFetcher) doFetch(ctx context.Context, pageURL string) (*monitor.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	content := CanonicalText(doc.Find("body").Text())
	if content == "" {
		// Fragment without a body element; fall back to the whole document.
		content = CanonicalText(doc.Text())
	}

	return &monitor.FetchResult{
		Content:     content,
		Fingerprint: detect.Fingerprint(content),
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
	}, nil
}

// CanonicalText collapses all whitespace runs to single spaces and truncates
// to the page character bound.
func CanonicalText(raw string) string {
	collapsed := strings.Join(strings.Fields(raw), " ")
	runes := []rune(collapsed)
	if len(runes) > maxPageChars {
		return string(runes[:maxPageChars])
	}
	return collapsed
}
