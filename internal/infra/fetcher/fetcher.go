// Package fetcher provides the per-source-type fetch strategies of the
// monitoring pipeline. Each strategy retrieves a source, canonicalizes its
// content, and fingerprints it, wrapped in retry and circuit breaker logic.
package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/resilience/retry"
	"incentive-monitor/internal/usecase/monitor"
)

const (
	// maxBodySize caps response bodies to bound memory per fetch.
	maxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTimeout bounds a single fetch including redirects and body read.
	DefaultTimeout = 30 * time.Second

	userAgent = "IncentiveMonitorBot/1.0"
)

// NewFetchers builds the strategy registry keyed by source type.
// All strategies share the given HTTP client, which should carry the
// per-fetch timeout and TLS settings.
func NewFetchers(client *http.Client) map[entity.SourceType]monitor.Fetcher {
	return map[entity.SourceType]monitor.Fetcher{
		entity.SourceTypeRSS:     NewRSSFetcher(client),
		entity.SourceTypeWebpage: NewWebpageFetcher(client),
		entity.SourceTypeAPI:     NewAPIFetcher(client),
	}
}

// readBody drains a response body with the size cap applied and translates
// HTTP status failures into retryable errors.
func readBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status fetching %s", resp.Request.URL.Host),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
