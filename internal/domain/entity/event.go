package entity

import "time"

// EventType classifies what kind of program change a monitoring event describes.
type EventType string

const (
	EventTypeIncentiveChange EventType = "incentive_change"
	EventTypeNewProgram      EventType = "new_program"
	EventTypeExpiration      EventType = "expiration"
	EventTypeNews            EventType = "news"
)

// Severity tiers a monitoring event for downstream routing.
// Critical events additionally trigger external notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// MaxSummaryLength bounds event summaries before enrichment.
const MaxSummaryLength = 300

// Event represents a detected change on a monitored jurisdiction source.
// Events are immutable once persisted; the pipeline constructs them and
// hands them to the event repository, which owns them from then on.
// SourceID is nil for events that do not originate from per-source polling.
type Event struct {
	ID             int64
	JurisdictionID string
	SourceID       *int64
	EventType      EventType
	Severity       Severity
	Title          string
	Summary        string
	SourceURL      string
	DetectedAt     time.Time
	Metadata       map[string]string
}

// Validate validates the Event entity fields.
func (e *Event) Validate() error {
	switch e.EventType {
	case EventTypeIncentiveChange, EventTypeNewProgram, EventTypeExpiration, EventTypeNews:
	default:
		return &ValidationError{Field: "event_type", Message: "unknown event type"}
	}

	switch e.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return &ValidationError{Field: "severity", Message: "unknown severity"}
	}

	if e.JurisdictionID == "" {
		return &ValidationError{Field: "jurisdiction_id", Message: "must not be empty"}
	}
	if e.Title == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}

	return nil
}

// TruncateSummary bounds text to MaxSummaryLength characters, appending an
// ellipsis when content was cut.
func TruncateSummary(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxSummaryLength {
		return text
	}
	return string(runes[:MaxSummaryLength]) + "..."
}
