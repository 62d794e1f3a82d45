package entity_test

import (
	"testing"
	"time"

	"incentive-monitor/internal/domain/entity"
)

func validSource() *entity.Source {
	return &entity.Source{
		ID:                   1,
		JurisdictionID:       "CA",
		JurisdictionName:     "California",
		SourceType:           entity.SourceTypeRSS,
		URL:                  "https://film.ca.gov/feed",
		CheckIntervalSeconds: 3600,
		Active:               true,
	}
}

func TestSource_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*entity.Source)
		wantErr bool
	}{
		{name: "valid rss source", mutate: func(s *entity.Source) {}, wantErr: false},
		{name: "valid webpage source", mutate: func(s *entity.Source) { s.SourceType = entity.SourceTypeWebpage }, wantErr: false},
		{name: "valid api source", mutate: func(s *entity.Source) { s.SourceType = entity.SourceTypeAPI }, wantErr: false},
		{name: "unknown source type", mutate: func(s *entity.Source) { s.SourceType = "ftp" }, wantErr: true},
		{name: "empty jurisdiction", mutate: func(s *entity.Source) { s.JurisdictionID = "" }, wantErr: true},
		{name: "empty url", mutate: func(s *entity.Source) { s.URL = "" }, wantErr: true},
		{name: "zero interval", mutate: func(s *entity.Source) { s.CheckIntervalSeconds = 0 }, wantErr: true},
		{name: "negative interval", mutate: func(s *entity.Source) { s.CheckIntervalSeconds = -60 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := validSource()
			tt.mutate(src)
			err := src.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSource_IsDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-30 * time.Minute)
	stale := now.Add(-2 * time.Hour)

	tests := []struct {
		name   string
		mutate func(*entity.Source)
		want   bool
	}{
		{name: "never checked is always due", mutate: func(s *entity.Source) { s.LastCheckedAt = nil }, want: true},
		{name: "checked within interval", mutate: func(s *entity.Source) { s.LastCheckedAt = &recent }, want: false},
		{name: "interval elapsed", mutate: func(s *entity.Source) { s.LastCheckedAt = &stale }, want: true},
		{
			name: "exactly at the boundary",
			mutate: func(s *entity.Source) {
				at := now.Add(-time.Hour)
				s.LastCheckedAt = &at
			},
			want: true,
		},
		{
			name: "inactive source is never due",
			mutate: func(s *entity.Source) {
				s.Active = false
				s.LastCheckedAt = nil
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := validSource()
			tt.mutate(src)
			if got := src.IsDue(now); got != tt.want {
				t.Fatalf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSource_CheckInterval(t *testing.T) {
	src := validSource()
	if got := src.CheckInterval(); got != time.Hour {
		t.Fatalf("CheckInterval() = %v, want 1h", got)
	}
}
