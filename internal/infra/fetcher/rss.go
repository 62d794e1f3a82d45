package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"incentive-monitor/internal/detect"
	"incentive-monitor/internal/resilience/circuitbreaker"
	"incentive-monitor/internal/resilience/retry"
	"incentive-monitor/internal/usecase/monitor"
)

// rssEntryCap bounds how many feed entries participate in canonical content
// and are kept as structured entries for event construction.
const rssEntryCap = 10

// RSSFetcher implements the RSS strategy using the gofeed library.
// Canonical content is built from entry title, link, and publish date only,
// so copy edits to entry summaries do not destabilize the fingerprint.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch retrieves and parses an RSS/Atom feed, returning canonical content,
// its fingerprint, and up to 10 structured entries ordered most recent first.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) (*monitor.FetchResult, error) {
	var result *monitor.FetchResult

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feedURL)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
				return err
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

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) (*monitor.FetchResult, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]monitor.FeedEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		published := time.Time{}
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		}

		summary := it.Description
		if summary == "" {
			summary = it.Content
		}

		entries = append(entries, monitor.FeedEntry{
			Title:     it.Title,
			Link:      it.Link,
			Published: published,
			Summary:   summary,
		})
	}

	// Most recent first; feeds without dates keep document order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Published.After(entries[j].Published)
	})
	if len(entries) > rssEntryCap {
		entries = entries[:rssEntryCap]
	}

	var canonical strings.Builder
	for _, entry := range entries {
		canonical.WriteString(entry.Title)
		canonical.WriteByte('|')
		canonical.WriteString(entry.Link)
		canonical.WriteByte('|')
		canonical.WriteString(entry.Published.UTC().Format(time.RFC3339))
		canonical.WriteByte('\n')
	}

	content := canonical.String()
	return &monitor.FetchResult{
		Content:     content,
		Fingerprint: detect.Fingerprint(content),
		Title:       feed.Title,
		Entries:     entries,
	}, nil
}
