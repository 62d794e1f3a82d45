// Package monitor implements the jurisdiction change-monitoring pipeline:
// due-source selection, fetch, change detection, classification, event
// construction, persistence, fan-out, and notification dispatch.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"incentive-monitor/internal/classify"
	"incentive-monitor/internal/detect"
	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/observability/metrics"
	"incentive-monitor/internal/repository"
	"incentive-monitor/internal/usecase/notify"
)

const (
	// rssEventCap bounds event creation per RSS check to the most recent
	// entries, to keep a busy feed from flooding subscribers.
	rssEventCap = 5

	enrichmentTimeout = 20 * time.Second
)

// Config controls pipeline concurrency and timeouts.
type Config struct {
	// Parallelism bounds concurrent per-source pipelines within one tick.
	Parallelism int

	// SourceTimeout bounds one source's fetch-to-notify pipeline.
	SourceTimeout time.Duration

	// CommitTimeout bounds the check-state write, which runs detached
	// from the per-source context.
	CommitTimeout time.Duration
}

// DefaultConfig returns production defaults for the pipeline.
func DefaultConfig() Config {
	return Config{
		Parallelism:   5,
		SourceTimeout: 2 * time.Minute,
		CommitTimeout: 10 * time.Second,
	}
}

// Service drives periodic evaluation of monitoring sources. Each tick it
// loads due sources and runs their pipelines under bounded concurrency;
// one source's failure never prevents others from running.
type Service struct {
	SourceRepo    repository.SourceRepository
	EventRepo     repository.EventRepository
	Fetchers      map[entity.SourceType]Fetcher
	Summarizer    Summarizer  // nil disables enrichment
	Hub           Broadcaster // nil disables fan-out
	NotifyService notify.Service
	config        Config
}

// NewService creates a monitoring Service with the provided dependencies.
// Summarizer and Hub may be nil to disable enrichment and fan-out.
func NewService(
	sourceRepo repository.SourceRepository,
	eventRepo repository.EventRepository,
	fetchers map[entity.SourceType]Fetcher,
	summarizer Summarizer,
	hub Broadcaster,
	notifyService notify.Service,
	config Config,
) *Service {
	if config.Parallelism <= 0 {
		config.Parallelism = DefaultConfig().Parallelism
	}
	if config.SourceTimeout <= 0 {
		config.SourceTimeout = DefaultConfig().SourceTimeout
	}
	if config.CommitTimeout <= 0 {
		config.CommitTimeout = DefaultConfig().CommitTimeout
	}
	return &Service{
		SourceRepo:    sourceRepo,
		EventRepo:     eventRepo,
		Fetchers:      fetchers,
		Summarizer:    summarizer,
		Hub:           hub,
		NotifyService: notifyService,
		config:        config,
	}
}

// CheckStats contains statistics about one monitoring tick.
type CheckStats struct {
	Sources       int
	Baselines     int64
	Changed       int64
	EventsCreated int64
	FetchErrors   int64
	PersistErrors int64
	Duration      time.Duration
}

// CheckDueSources runs one monitoring tick: it loads due sources and runs
// the per-source pipeline for each under bounded concurrency. It returns an
// error only when the source registry itself cannot be read; per-source
// failures are logged, counted, and isolated.
func (s *Service) CheckDueSources(ctx context.Context) (*CheckStats, error) {
	logger := slog.Default()
	start := time.Now()
	stats := &CheckStats{}

	srcs, err := s.SourceRepo.ListDue(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("list due sources: %w", err)
	}

	sem := make(chan struct{}, s.config.Parallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, src := range srcs {
		// Inactive or not-yet-due rows from a stale read are skipped here
		// rather than trusted from the repository alone.
		if !src.IsDue(start) {
			continue
		}
		stats.Sources++

		src := src
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			srcCtx, cancel := context.WithTimeout(egCtx, s.config.SourceTimeout)
			defer cancel()

			s.checkSource(srcCtx, src, stats)
			return nil
		})
	}

	// Workers always return nil; Wait only observes context cancellation.
	_ = eg.Wait()

	stats.Duration = time.Since(start)
	logger.Info("monitoring tick completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("baselines", atomic.LoadInt64(&stats.Baselines)),
		slog.Int64("changed", atomic.LoadInt64(&stats.Changed)),
		slog.Int64("events_created", atomic.LoadInt64(&stats.EventsCreated)),
		slog.Int64("fetch_errors", atomic.LoadInt64(&stats.FetchErrors)),
		slog.Int64("persist_errors", atomic.LoadInt64(&stats.PersistErrors)),
		slog.Duration("duration", stats.Duration),
	)

	return stats, nil
}

// checkSource runs the fetch → detect → classify → persist → broadcast →
// notify pipeline for a single source. Check state advances only after a
// successful fetch, and only after every event for a detected change was
// persisted, so a persistence failure re-detects the same drift next cycle.
func (s *Service) checkSource(ctx context.Context, src *entity.Source, stats *CheckStats) {
	logger := slog.Default()
	checkStart := time.Now()

	fetcher, ok := s.Fetchers[src.SourceType]
	if !ok {
		logger.Error("no fetcher registered for source type",
			slog.Int64("source_id", src.ID),
			slog.String("source_type", string(src.SourceType)))
		metrics.RecordSourceCheck(src.ID, "no_fetcher")
		return
	}

	result, err := fetcher.Fetch(ctx, src.URL)
	if err != nil {
		// Fetch and parse failures leave lastCheckedAt/lastHash untouched;
		// the source becomes due again on its normal interval.
		atomic.AddInt64(&stats.FetchErrors, 1)
		logger.Warn("source fetch failed",
			slog.Int64("source_id", src.ID),
			slog.String("jurisdiction", src.JurisdictionID),
			slog.String("url", src.URL),
			slog.Any("error", err))
		metrics.RecordSourceCheck(src.ID, "fetch_error")
		return
	}

	if src.LastHash == nil {
		atomic.AddInt64(&stats.Baselines, 1)
		s.commitCheckState(ctx, src, result.Fingerprint)
		metrics.RecordSourceCheck(src.ID, "baseline")
		logger.Info("baseline fingerprint established",
			slog.Int64("source_id", src.ID),
			slog.String("jurisdiction", src.JurisdictionID))
		return
	}

	if !detect.HasChanged(src.LastHash, result.Fingerprint) {
		s.commitCheckState(ctx, src, result.Fingerprint)
		metrics.RecordSourceCheck(src.ID, "unchanged")
		return
	}

	metrics.RecordChangeDetected(string(src.SourceType))
	events := s.buildEvents(ctx, src, result)

	persistFailed := false
	for _, event := range events {
		if err := s.EventRepo.Create(ctx, event); err != nil {
			persistFailed = true
			atomic.AddInt64(&stats.PersistErrors, 1)
			logger.Warn("event persistence failed, dropping event for this cycle",
				slog.Int64("source_id", src.ID),
				slog.String("title", event.Title),
				slog.Any("error", err))
			metrics.RecordEventPersistError()
			continue
		}

		atomic.AddInt64(&stats.EventsCreated, 1)
		metrics.RecordEventCreated(string(event.EventType), string(event.Severity))
		s.deliver(ctx, event, src)
	}

	if persistFailed {
		// Deliberately keep the old fingerprint: the drift is re-detected
		// and re-classified on the next due cycle instead of being lost.
		logger.Warn("check state not advanced after persistence failure",
			slog.Int64("source_id", src.ID))
		metrics.RecordSourceCheck(src.ID, "persist_error")
		return
	}

	atomic.AddInt64(&stats.Changed, 1)
	s.commitCheckState(ctx, src, result.Fingerprint)
	metrics.RecordSourceCheck(src.ID, "changed")
	metrics.RecordCheckDuration(src.ID, time.Since(checkStart))

	logger.Info("source change processed",
		slog.Int64("source_id", src.ID),
		slog.String("jurisdiction", src.JurisdictionID),
		slog.Int("events", len(events)),
		slog.Duration("duration", time.Since(checkStart)))
}

// deliver hands a persisted event to the broadcast hub and, for critical
// severity, to notification dispatch. Both are best-effort: delivery
// failures never affect check-state bookkeeping.
func (s *Service) deliver(ctx context.Context, event *entity.Event, src *entity.Source) {
	if s.Hub != nil {
		s.Hub.Broadcast(event)
	}

	if event.Severity == entity.SeverityCritical && s.NotifyService != nil {
		// Detached from the per-source timeout: dispatch is fire-and-forget
		// and bounded by the notify service's own timeouts.
		if err := s.NotifyService.NotifyEvent(context.WithoutCancel(ctx), event, src.JurisdictionName); err != nil {
			slog.Warn("notification dispatch failed",
				slog.Int64("event_id", event.ID),
				slog.Any("error", err))
		}
	}
}

// commitCheckState records a successful check. It detaches from the
// per-source context so a tick timeout cannot leave the row inconsistent
// with a fetch that already succeeded, but carries its own deadline so a
// hung write cannot wedge the tick.
func (s *Service) commitCheckState(ctx context.Context, src *entity.Source, fingerprint string) {
	safeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.CommitTimeout)
	defer cancel()

	if err := s.SourceRepo.UpdateCheckState(safeCtx, src.ID, fingerprint, time.Now()); err != nil {
		slog.Error("failed to update source check state",
			slog.Int64("source_id", src.ID),
			slog.Any("error", err))
	}
}

// buildEvents constructs the events for a detected change. RSS changes
// produce up to rssEventCap events, one per most-recent entry, each
// classified independently; webpage and API changes produce one event.
func (s *Service) buildEvents(ctx context.Context, src *entity.Source, result *FetchResult) []*entity.Event {
	now := time.Now()
	sourceID := src.ID

	if src.SourceType == entity.SourceTypeRSS && len(result.Entries) > 0 {
		entries := result.Entries
		if len(entries) > rssEventCap {
			entries = entries[:rssEventCap]
		}

		events := make([]*entity.Event, 0, len(entries))
		for _, entry := range entries {
			eventType, severity := classify.Classify(entry.Title + " " + entry.Summary)
			summary := s.enrich(ctx, SummaryRequest{
				Title:        entry.Title,
				Content:      entry.Summary,
				Jurisdiction: src.JurisdictionName,
				SourceURL:    entry.Link,
			}, entity.TruncateSummary(entry.Summary))

			events = append(events, &entity.Event{
				JurisdictionID: src.JurisdictionID,
				SourceID:       &sourceID,
				EventType:      eventType,
				Severity:       severity,
				Title:          entry.Title,
				Summary:        summary,
				SourceURL:      entry.Link,
				DetectedAt:     now,
				Metadata: map[string]string{
					"published": entry.Published.UTC().Format(time.RFC3339),
				},
			})
		}
		return events
	}

	title := result.Title
	if title == "" {
		title = fmt.Sprintf("%s monitoring update", src.JurisdictionName)
	}

	eventType, severity := classify.Classify(result.Content)
	summary := s.enrich(ctx, SummaryRequest{
		Title:        title,
		Content:      result.Content,
		Jurisdiction: src.JurisdictionName,
		SourceURL:    src.URL,
	}, entity.TruncateSummary(result.Content))

	return []*entity.Event{{
		JurisdictionID: src.JurisdictionID,
		SourceID:       &sourceID,
		EventType:      eventType,
		Severity:       severity,
		Title:          title,
		Summary:        summary,
		SourceURL:      src.URL,
		DetectedAt:     now,
	}}
}

// enrich replaces the truncated summary with a richer one from the optional
// summarizer. Absence, timeout, or failure all fall back silently.
func (s *Service) enrich(ctx context.Context, req SummaryRequest, fallback string) string {
	if s.Summarizer == nil {
		return fallback
	}

	enrichCtx, cancel := context.WithTimeout(ctx, enrichmentTimeout)
	defer cancel()

	summary, err := s.Summarizer.Summarize(enrichCtx, req)
	if err != nil || summary == "" {
		slog.Debug("summary enrichment unavailable, using truncated content",
			slog.String("title", req.Title),
			slog.Any("error", err))
		metrics.RecordEnrichment(false)
		return fallback
	}

	metrics.RecordEnrichment(true)
	return summary
}
