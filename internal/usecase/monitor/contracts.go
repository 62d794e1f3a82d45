package monitor

import (
	"context"
	"time"

	"incentive-monitor/internal/domain/entity"
)

// FetchResult is the uniform result returned by every fetch strategy.
// Content is the canonical form of what the source currently serves, and
// Fingerprint is its digest. Entries is populated only for RSS sources.
type FetchResult struct {
	Content     string
	Fingerprint string
	Title       string
	Entries     []FeedEntry
}

// FeedEntry is a structured RSS entry kept for event construction.
type FeedEntry struct {
	Title     string
	Link      string
	Published time.Time
	Summary   string
}

// Fetcher retrieves and canonicalizes content for one source type.
// Implementations must bound their own timeouts and return structured
// failures rather than panicking, so per-source isolation holds.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// SummaryRequest carries the inputs for best-effort summary enrichment.
type SummaryRequest struct {
	Title        string
	Content      string
	Jurisdiction string
	SourceURL    string
}

// Summarizer is the optional external enrichment capability. A failed or
// absent summarizer never blocks event creation; the pipeline falls back
// to truncated raw content.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// Broadcaster fans a persisted event out to live subscribers.
type Broadcaster interface {
	Broadcast(event *entity.Event)
}
