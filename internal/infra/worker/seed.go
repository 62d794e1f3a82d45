package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/repository"
)

// sourcesFile is the YAML shape for the optional source seed file:
//
//	sources:
//	  - jurisdiction_id: CA
//	    jurisdiction_name: California
//	    source_type: rss
//	    url: https://film.ca.gov/feed/
//	    check_interval_seconds: 3600
//	    active: true
type sourcesFile struct {
	Sources []seedSource `yaml:"sources"`
}

type seedSource struct {
	JurisdictionID       string `yaml:"jurisdiction_id"`
	JurisdictionName     string `yaml:"jurisdiction_name"`
	SourceType           string `yaml:"source_type"`
	URL                  string `yaml:"url"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
	Active               *bool  `yaml:"active"`
}

// SeedSources loads a YAML seed file and creates any sources not already
// present (matched by URL). Existing sources are never modified, so seeding
// is idempotent across restarts and safe alongside admin edits. Invalid
// entries are logged and skipped; only I/O and parse failures abort.
func SeedSources(ctx context.Context, path string, repo repository.SourceRepository, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse sources file: %w", err)
	}

	created := 0
	skipped := 0
	for _, seed := range file.Sources {
		active := true
		if seed.Active != nil {
			active = *seed.Active
		}

		source := &entity.Source{
			JurisdictionID:       seed.JurisdictionID,
			JurisdictionName:     seed.JurisdictionName,
			SourceType:           entity.SourceType(seed.SourceType),
			URL:                  seed.URL,
			CheckIntervalSeconds: seed.CheckIntervalSeconds,
			Active:               active,
		}

		if err := source.Validate(); err != nil {
			logger.Warn("skipping invalid seed source",
				slog.String("url", seed.URL),
				slog.Any("error", err))
			skipped++
			continue
		}

		_, err := repo.GetByURL(ctx, source.URL)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("look up seed source %s: %w", source.URL, err)
		}

		if err := repo.Create(ctx, source); err != nil {
			return fmt.Errorf("create seed source %s: %w", source.URL, err)
		}
		created++
	}

	logger.Info("source seeding complete",
		slog.String("path", path),
		slog.Int("created", created),
		slog.Int("skipped", skipped))
	return nil
}
