package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker"

	"incentive-monitor/internal/detect"
	"incentive-monitor/internal/resilience/circuitbreaker"
	"incentive-monitor/internal/resilience/retry"
	"incentive-monitor/internal/usecase/monitor"
)

// APIFetcher implements the JSON API strategy. Responses are decoded and
// re-serialized so object keys come out deterministically sorted; two
// responses that differ only in key order fingerprint identically.
type APIFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewAPIFetcher creates a new APIFetcher with the given HTTP client.
func NewAPIFetcher(client *http.Client) *APIFetcher {
	return &APIFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.APIFetchConfig()),
		retryConfig:    retry.PageFetchConfig(),
	}
}

// Fetch retrieves a JSON endpoint and returns its canonical serialization.
func (a *APIFetcher) Fetch(ctx context.Context, apiURL string) (*monitor.FetchResult, error) {
	var result *monitor.FetchResult

	retryErr := retry.WithBackoff(ctx, a.retryConfig, func() error {
		cbResult, err := a.circuitBreaker.Execute(func() (interface{}, error) {
			return a.doFetch(ctx, apiURL)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("api fetch circuit breaker open, request rejected",
					slog.String("service", "api-fetch"),
					slog.String("url", apiURL),
					slog.String("state", a.circuitBreaker.State().String()))
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

// doFetch performs the actual API fetch without retry or circuit breaker.
func (a *APIFetcher) doFetch(ctx context.Context, apiURL string) (*monitor.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch api: %w", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	content, err := CanonicalJSON(body)
	if err != nil {
		// Malformed JSON is a fetch failure, never a content change.
		return nil, err
	}

	return &monitor.FetchResult{
		Content:     content,
		Fingerprint: detect.Fingerprint(content),
	}, nil
}

// CanonicalJSON re-serializes a JSON document with sorted object keys.
// encoding/json marshals map keys in sorted order, so decoding into
// untyped values and re-marshaling yields a deterministic form.
func CanonicalJSON(raw []byte) (string, error) {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}

	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalize json: %w", err)
	}

	return string(canonical), nil
}
