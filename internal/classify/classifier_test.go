package classify_test

import (
	"testing"

	"incentive-monitor/internal/classify"
	"incentive-monitor/internal/domain/entity"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantType     entity.EventType
		wantSeverity entity.Severity
	}{
		{
			name:         "new program announcement",
			text:         "Announcing a new program for film production companies",
			wantType:     entity.EventTypeNewProgram,
			wantSeverity: entity.SeverityWarning,
		},
		{
			name:         "expiration is critical by type rule",
			text:         "The digital media credit is ending this fiscal year",
			wantType:     entity.EventTypeExpiration,
			wantSeverity: entity.SeverityCritical,
		},
		{
			name:         "incentive keyword with change keyword",
			text:         "Update to the tax credit percentage for 2026",
			wantType:     entity.EventTypeIncentiveChange,
			wantSeverity: entity.SeverityWarning,
		},
		{
			name:         "incentive keyword without change keyword",
			text:         "Overview of the production rebate",
			wantType:     entity.EventTypeIncentiveChange,
			wantSeverity: entity.SeverityInfo,
		},
		{
			name:         "no rule matches",
			text:         "Quarterly newsletter from the office",
			wantType:     entity.EventTypeNews,
			wantSeverity: entity.SeverityInfo,
		},
		{
			name:         "case insensitive matching",
			text:         "NEW PROGRAM LAUNCH",
			wantType:     entity.EventTypeNewProgram,
			wantSeverity: entity.SeverityWarning,
		},
		{
			name:         "type rule order: new program beats incentive",
			text:         "Launch of the expanded tax credit",
			wantType:     entity.EventTypeNewProgram,
			wantSeverity: entity.SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotSeverity := classify.Classify(tt.text)
			if gotType != tt.wantType {
				t.Errorf("type = %s, want %s", gotType, tt.wantType)
			}
			if gotSeverity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", gotSeverity, tt.wantSeverity)
			}
		})
	}
}

// The critical keyword set escalates severity regardless of which type rule
// matched, including the fallback news type.
func TestClassify_CriticalEscalation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType entity.EventType
	}{
		{
			name:     "urgent news",
			text:     "Urgent notice from the film office",
			wantType: entity.EventTypeNews,
		},
		{
			name:     "incentive change marked critical",
			text:     "Critical update to the tax credit rate",
			wantType: entity.EventTypeIncentiveChange,
		},
		{
			name:     "new program with immediate effect",
			text:     "Announcing a new program effective immediate",
			wantType: entity.EventTypeNewProgram,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotSeverity := classify.Classify(tt.text)
			if gotType != tt.wantType {
				t.Errorf("type = %s, want %s", gotType, tt.wantType)
			}
			if gotSeverity != entity.SeverityCritical {
				t.Errorf("severity = %s, want critical", gotSeverity)
			}
		})
	}
}
