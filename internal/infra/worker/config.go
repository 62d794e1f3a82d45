package worker

import (
	"fmt"
	"log/slog"
	"time"

	"incentive-monitor/internal/pkg/config"
)

// WorkerConfig holds the operational configuration for the monitoring worker:
// tick scheduling, per-tick parallelism, timeouts, and server ports.
//
// All fields have defaults and validation rules so the worker can start
// safely even with invalid or missing configuration (fail-open: an invalid
// value falls back to its default with a warning and a metric, it never
// aborts startup).
type WorkerConfig struct {
	// TickSchedule drives the scheduler loop. Accepts cron descriptors
	// ("@every 60s") or standard five-field cron expressions.
	// Default: "@every 60s"
	TickSchedule string

	// Timezone is the IANA timezone used for cron evaluation.
	// Default: "UTC"
	Timezone string

	// CheckParallelism bounds how many due sources are checked
	// concurrently within one tick. Range: 1-50. Default: 5
	CheckParallelism int

	// SourceTimeout bounds one source's full pipeline run
	// (fetch, detect, classify, persist, broadcast). Default: 2 minutes
	SourceTimeout time.Duration

	// FetchTimeout is the HTTP client timeout shared by all fetchers.
	// Default: 30 seconds
	FetchTimeout time.Duration

	// NotifyMaxConcurrent bounds concurrent notification deliveries.
	// Range: 1-50. Default: 10
	NotifyMaxConcurrent int

	// HealthPort serves liveness/readiness probes and Prometheus metrics.
	// Range: 1024-65535. Default: 9091
	HealthPort int

	// WSPort serves the live event stream WebSocket endpoint.
	// Range: 1024-65535. Default: 8081
	WSPort int

	// SourcesFile is an optional YAML seed file of monitoring sources
	// loaded at startup. Empty disables seeding.
	SourcesFile string
}

// DefaultConfig returns a WorkerConfig with production defaults: a 60-second
// tick, five concurrent source checks, and the standard probe/stream ports.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		TickSchedule:        "@every 60s",
		Timezone:            "UTC",
		CheckParallelism:    5,
		SourceTimeout:       2 * time.Minute,
		FetchTimeout:        30 * time.Second,
		NotifyMaxConcurrent: 10,
		HealthPort:          9091,
		WSPort:              8081,
		SourcesFile:         "",
	}
}

// Validate checks every field, collecting all violations rather than
// stopping at the first.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.TickSchedule); err != nil {
		errors = append(errors, fmt.Errorf("tick schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateIntRange(c.CheckParallelism, 1, 50); err != nil {
		errors = append(errors, fmt.Errorf("check parallelism: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.SourceTimeout); err != nil {
		errors = append(errors, fmt.Errorf("source timeout: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.FetchTimeout); err != nil {
		errors = append(errors, fmt.Errorf("fetch timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50); err != nil {
		errors = append(errors, fmt.Errorf("notify max concurrent: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if err := config.ValidateIntRange(c.WSPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("ws port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to defaults on failure.
//
// Environment variables:
//   - TICK_SCHEDULE: cron descriptor or expression (default: "@every 60s")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - CHECK_PARALLELISM: integer 1-50 (default: 5)
//   - SOURCE_TIMEOUT: duration string, e.g. "2m" (default: 2 minutes)
//   - FETCH_TIMEOUT: duration string, e.g. "30s" (default: 30 seconds)
//   - NOTIFY_MAX_CONCURRENT: integer 1-50 (default: 10)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//   - WS_PORT: integer 1024-65535 (default: 8081)
//   - SOURCES_FILE: path to YAML source seed file (default: none)
//
// Never returns an error: each invalid value falls back to its default with
// a warning log and a fallback metric.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	recordFallback := func(field string, warnings []string) {
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("TICK_SCHEDULE", cfg.TickSchedule, config.ValidateCronSchedule)
	cfg.TickSchedule = result.Value.(string)
	if result.FallbackApplied {
		recordFallback("tick_schedule", result.Warnings)
	}

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		recordFallback("timezone", result.Warnings)
	}

	result = config.LoadEnvInt("CHECK_PARALLELISM", cfg.CheckParallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.CheckParallelism = result.Value.(int)
	if result.FallbackApplied {
		recordFallback("check_parallelism", result.Warnings)
	}

	result = config.LoadEnvDuration("SOURCE_TIMEOUT", cfg.SourceTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 30*time.Minute)
	})
	cfg.SourceTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		recordFallback("source_timeout", result.Warnings)
	}

	result = config.LoadEnvDuration("FETCH_TIMEOUT", cfg.FetchTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Second, 5*time.Minute)
	})
	cfg.FetchTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		recordFallback("fetch_timeout", result.Warnings)
	}

	result = config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.NotifyMaxConcurrent = result.Value.(int)
	if result.FallbackApplied {
		recordFallback("notify_max_concurrent", result.Warnings)
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		recordFallback("health_port", result.Warnings)
	}

	result = config.LoadEnvInt("WS_PORT", cfg.WSPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.WSPort = result.Value.(int)
	if result.FallbackApplied {
		recordFallback("ws_port", result.Warnings)
	}

	cfg.SourcesFile = config.LoadEnvString("SOURCES_FILE", cfg.SourcesFile)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
