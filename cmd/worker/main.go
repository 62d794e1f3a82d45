package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"incentive-monitor/internal/handler/ws"
	pgRepo "incentive-monitor/internal/infra/adapter/persistence/postgres"
	"incentive-monitor/internal/infra/db"
	"incentive-monitor/internal/infra/fetcher"
	"incentive-monitor/internal/infra/notifier"
	"incentive-monitor/internal/infra/summarizer"
	workerPkg "incentive-monitor/internal/infra/worker"
	"incentive-monitor/internal/observability/logging"
	"incentive-monitor/internal/usecase/monitor"
	"incentive-monitor/internal/usecase/notify"
)

func main() {
	logger := logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("tick_schedule", workerConfig.TickSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("check_parallelism", workerConfig.CheckParallelism),
		slog.Duration("source_timeout", workerConfig.SourceTimeout),
		slog.Int("notify_max_concurrent", workerConfig.NotifyMaxConcurrent),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("ws_port", workerConfig.WSPort))

	// Seed monitoring sources from the optional YAML registry file.
	srcRepo := pgRepo.NewSourceRepo(database)
	eventRepo := pgRepo.NewEventRepo(database)
	if workerConfig.SourcesFile != "" {
		if err := workerPkg.SeedSources(ctx, workerConfig.SourcesFile, srcRepo, logger); err != nil {
			logger.Error("failed to seed monitoring sources", slog.Any("error", err))
			os.Exit(1)
		}
	}

	notifyService := setupNotifyService(logger, workerConfig)

	// Start metrics HTTP server
	startMetricsServer(ctx, logger, notifyService)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	// Start the live event stream server
	hub := ws.NewHub()
	wsServer := startEventStreamServer(logger, hub, workerConfig.WSPort)

	svc := monitor.NewService(
		srcRepo,
		eventRepo,
		fetcher.NewFetchers(createHTTPClient(workerConfig.FetchTimeout)),
		createSummarizer(logger),
		hub,
		notifyService,
		monitor.Config{
			Parallelism:   workerConfig.CheckParallelism,
			SourceTimeout: workerConfig.SourceTimeout,
		},
	)

	runScheduler(ctx, logger, svc, workerConfig, workerMetrics, healthServer)

	// Graceful shutdown: stop accepting probes, drain in-flight work.
	healthServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("event stream server shutdown error", slog.Any("error", err))
	}
	if err := notifyService.Shutdown(shutdownCtx); err != nil {
		logger.Error("notification service shutdown error", slog.Any("error", err))
	}
	logger.Info("worker stopped")
}

// initDatabase opens the database connection and applies schema migrations.
func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// setupNotifyService builds the notification service from the channel
// configurations present in the environment.
func setupNotifyService(logger *slog.Logger, workerConfig *workerPkg.WorkerConfig) notify.Service {
	var channels []notify.Channel

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
		logger.Info("Discord channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Discord channel disabled")
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
		logger.Info("Slack channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Slack channel disabled")
	}

	notifyService := notify.NewService(channels, workerConfig.NotifyMaxConcurrent)
	logger.Info("Notification service initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_concurrent", workerConfig.NotifyMaxConcurrent))
	return notifyService
}

// startEventStreamServer serves the WebSocket event stream on its own port.
func startEventStreamServer(logger *slog.Logger, hub *ws.Hub, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws/events", ws.NewHandler(hub))

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("event stream server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("event stream server error", slog.Any("error", err))
		}
	}()

	return server
}

// createSummarizer creates a summarizer based on the SUMMARIZER_TYPE
// environment variable. Enrichment is optional; the default "none" keeps
// the worker runnable without any AI provider credentials.
func createSummarizer(logger *slog.Logger) monitor.Summarizer {
	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	if summarizerType == "" {
		summarizerType = "none"
	}

	switch summarizerType {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude")
			os.Exit(1)
		}
		logger.Info("Using Claude API for summarization", slog.String("type", "claude"))
		return summarizer.NewClaude(apiKey)
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is required when SUMMARIZER_TYPE=openai")
			os.Exit(1)
		}
		config, err := summarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Error("Failed to load OpenAI configuration", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Using OpenAI API for summarization",
			slog.String("type", "openai"),
			slog.Int("character_limit", config.CharacterLimit))
		return summarizer.NewOpenAI(apiKey, config)
	case "none":
		logger.Info("Summary enrichment disabled, using truncated raw content")
		return summarizer.NewNoOp()
	default:
		logger.Error("Invalid SUMMARIZER_TYPE",
			slog.String("type", summarizerType),
			slog.String("expected", "claude, openai or none"))
		os.Exit(1)
		return nil
	}
}

// createHTTPClient creates the HTTP client shared by all source fetchers.
// TLS 1.2+ is enforced for security.
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// loadDiscordConfig loads Discord configuration from environment variables.
//
// Environment variables:
//   - DISCORD_ENABLED: Boolean flag to enable Discord notifications (default: false)
//   - DISCORD_WEBHOOK_URL: Discord webhook URL (required if enabled)
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := validateWebhook(logger, "Discord", webhookURL)
	if err != nil {
		return notifier.DiscordConfig{Enabled: false}
	}

	if u.Host != "discord.com" {
		logger.Warn("Invalid Discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// loadSlackConfig loads Slack configuration from environment variables.
//
// Environment variables:
//   - SLACK_ENABLED: Boolean flag to enable Slack notifications (default: false)
//   - SLACK_WEBHOOK_URL: Slack webhook URL (required if enabled)
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := validateWebhook(logger, "Slack", webhookURL)
	if err != nil {
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Host != "hooks.slack.com" {
		logger.Warn("Invalid Slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// validateWebhook applies the scheme and host checks shared by all webhook
// channels. Service-specific host and path checks stay with the caller.
func validateWebhook(logger *slog.Logger, service, webhookURL string) (*url.URL, error) {
	if webhookURL == "" {
		logger.Warn(service + " webhook URL is empty, disabling notifications")
		return nil, fmt.Errorf("empty webhook URL")
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid "+service+" webhook URL format, disabling notifications", slog.Any("error", err))
		return nil, err
	}

	if u.Scheme != "https" {
		logger.Warn(service + " webhook URL must use HTTPS, disabling notifications")
		return nil, fmt.Errorf("webhook URL must use https")
	}

	return u, nil
}

// runScheduler starts the cron scheduler and runs monitoring ticks until the
// context is canceled.
func runScheduler(ctx context.Context, logger *slog.Logger, svc *monitor.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.TickSchedule, func() {
		runTick(logger, svc, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after the scheduler is set up
	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	logger.Info("worker started", slog.String("schedule", cfg.TickSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received, waiting for running tick to finish")
	<-c.Stop().Done()
}

// runTick executes one monitoring pass with timeout and error handling.
func runTick(logger *slog.Logger, svc *monitor.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordTickRun("started")
	logger.Info("monitoring tick started")

	// A full pass over due sources is bounded at a multiple of the
	// per-source timeout so a stuck tick cannot pile up behind the next.
	ctx, cancel := context.WithTimeout(context.Background(), 10*cfg.SourceTimeout)
	defer cancel()

	stats, err := svc.CheckDueSources(ctx)
	if err != nil {
		logger.Error("monitoring tick failed", slog.Any("error", err))
		metrics.RecordTickRun("failure")
		metrics.RecordTickDuration(time.Since(startTime).Seconds())
		return
	}

	metrics.RecordTickRun("success")
	metrics.RecordTickDuration(time.Since(startTime).Seconds())
	metrics.RecordSourcesDue(stats.Sources)
	metrics.RecordLastSuccess()

	logger.Info("monitoring tick completed",
		slog.Int("sources", stats.Sources),
		slog.Int64("baselines", stats.Baselines),
		slog.Int64("changed", stats.Changed),
		slog.Int64("events_created", stats.EventsCreated),
		slog.Int64("fetch_errors", stats.FetchErrors),
		slog.Int64("persist_errors", stats.PersistErrors),
		slog.Duration("duration", stats.Duration))
}
