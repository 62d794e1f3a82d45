// Package classify maps detected content to a typed, severity-tagged
// monitoring event using an ordered keyword taxonomy. Classification never
// fails: text that matches no rule falls through to (news, info).
package classify

import (
	"strings"

	"incentive-monitor/internal/domain/entity"
)

// Keyword sets evaluated in order. The first matching type rule wins;
// the critical set is a post-hoc severity override, not a type rule.
var (
	newProgramKeywords = []string{"new program", "launch", "introduced", "announcing"}
	expirationKeywords = []string{"expir", "sunset", "ending", "deadline", "last day"}
	incentiveKeywords  = []string{"tax credit", "incentive", "rebate", "grant", "percentage", "credit rate"}
	changeKeywords     = []string{"change", "update", "modif", "adjust"}
	criticalKeywords   = []string{"urgent", "immediate", "critical", "deadline", "expir"}
)

// Classify determines the event type and severity for the given text.
// Matching is case-insensitive substring matching. After the type decision,
// severity is unconditionally escalated to critical when any critical
// keyword appears, regardless of what the type rule selected.
func Classify(text string) (entity.EventType, entity.Severity) {
	lower := strings.ToLower(text)

	eventType, severity := classifyType(lower)

	if containsAny(lower, criticalKeywords) {
		severity = entity.SeverityCritical
	}

	return eventType, severity
}

// classifyType applies the ordered type rules without the critical override.
func classifyType(lower string) (entity.EventType, entity.Severity) {
	if containsAny(lower, newProgramKeywords) {
		return entity.EventTypeNewProgram, entity.SeverityWarning
	}

	if containsAny(lower, expirationKeywords) {
		return entity.EventTypeExpiration, entity.SeverityCritical
	}

	if containsAny(lower, incentiveKeywords) {
		if containsAny(lower, changeKeywords) {
			return entity.EventTypeIncentiveChange, entity.SeverityWarning
		}
		return entity.EventTypeIncentiveChange, entity.SeverityInfo
	}

	return entity.EventTypeNews, entity.SeverityInfo
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
