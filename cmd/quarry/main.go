package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quarrylabs/quarry/internal/analysis"
	"github.com/quarrylabs/quarry/internal/api"
	"github.com/quarrylabs/quarry/internal/bus"
	"github.com/quarrylabs/quarry/internal/config"
	"github.com/quarrylabs/quarry/internal/crawl"
	"github.com/quarrylabs/quarry/internal/forum"
	"github.com/quarrylabs/quarry/internal/sampler"
	"github.com/quarrylabs/quarry/internal/store"
	"github.com/quarrylabs/quarry/internal/tasks"
)

const taskWorkers = 4

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("quarry starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// NATS
	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Forum client
	if cfg.ForumCookie == "" {
		slog.Warn("FORUM_COOKIE not set — unauthenticated forum access")
	}
	forumClient := forum.NewClient(cfg.ForumURL, cfg.ForumCookie)

	// Sampler client
	samplerClient := sampler.NewClient(cfg.SamplerURL)
	slog.Info("sampler client ready", "url", cfg.SamplerURL)

	crawlDelay := time.Duration(cfg.CrawlDelayMillis) * time.Millisecond
	progressInterval := time.Duration(cfg.ProgressInterval) * time.Millisecond

	orchestrator := crawl.New(db, forumClient, busClient, crawlDelay, progressInterval, slog.Default())
	runner := analysis.NewRunner(db, samplerClient, busClient, progressInterval, slog.Default())

	// Task queue
	queue := tasks.NewQueue(cfg.TaskQueueSize, slog.Default())
	queue.Start(ctx, taskWorkers)

	// HTTP API
	srv := api.NewServer(cfg.Port, db, queue, orchestrator, runner, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := busClient.Publish(bus.SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("quarry ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	queue.Wait()
	slog.Info("quarry stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
