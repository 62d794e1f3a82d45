package entity

import (
	"fmt"
	"time"
)

// SourceType identifies the fetch strategy used for a monitoring source.
type SourceType string

const (
	SourceTypeRSS     SourceType = "rss"
	SourceTypeWebpage SourceType = "webpage"
	SourceTypeAPI     SourceType = "api"
)

// Source represents an external feed, page, or API that is polled on a
// schedule for tax-incentive program changes in one jurisdiction.
// LastCheckedAt and LastHash are mutated only by the monitoring pipeline,
// and only after a successful check.
type Source struct {
	ID                   int64
	JurisdictionID       string
	JurisdictionName     string
	SourceType           SourceType
	URL                  string
	CheckIntervalSeconds int
	Active               bool
	LastCheckedAt        *time.Time
	LastHash             *string
}

// Validate validates the Source entity fields.
func (s *Source) Validate() error {
	switch s.SourceType {
	case SourceTypeRSS, SourceTypeWebpage, SourceTypeAPI:
	default:
		return fmt.Errorf("invalid source_type: %s (must be rss, webpage, or api)", s.SourceType)
	}

	if s.JurisdictionID == "" {
		return &ValidationError{Field: "jurisdiction_id", Message: "must not be empty"}
	}
	if s.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	if s.CheckIntervalSeconds <= 0 {
		return &ValidationError{Field: "check_interval_seconds", Message: "must be positive"}
	}

	return nil
}

// CheckInterval returns the polling cadence as a duration.
func (s *Source) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalSeconds) * time.Second
}

// IsDue reports whether the source should be checked at the given time.
// A source that has never been checked (LastCheckedAt == nil) is always due;
// its first check establishes the fingerprint baseline without emitting events.
func (s *Source) IsDue(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.LastCheckedAt == nil {
		return true
	}
	return !now.Before(s.LastCheckedAt.Add(s.CheckInterval()))
}
