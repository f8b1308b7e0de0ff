package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mizan/internal/amqp"
	"mizan/internal/config"
	"mizan/internal/export"
	gsheet "mizan/internal/export/google"
	applog "mizan/internal/log"
	"mizan/internal/report"
	"mizan/internal/sources"
	"mizan/internal/storage"
	"mizan/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting mizan-worker")

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// SQLite run archive
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Google Sheets exporter (optional)
	var exporter export.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = sheetsClient
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Upstream client, report engine and the refresh worker around them
	upstream := sources.NewClient(cfg.UpstreamBaseURL, &http.Client{Timeout: cfg.UpstreamTimeout})
	engine := report.NewEngine(upstream)
	refreshWorker := worker.NewRefreshWorker(engine, repo, exporter, cfg.WindowDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume refresh requests from AMQP. The consumer redials on
	// connection errors until the context is cancelled.
	if cfg.AMQPURL != "" {
		go func() {
			err := amqp.ConsumeRefreshForever(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, func(msg *amqp.RefreshMessage) error {
				return refreshWorker.HandleRefreshMessage(ctx, msg)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Info("AMQP disabled - running on the periodic schedule only")
	}

	// Rebuild immediately on startup, then on the periodic schedule.
	go func() {
		msg := amqp.NewRefreshMessage(cfg.WindowDays, "startup")
		if err := refreshWorker.HandleRefreshMessage(ctx, msg); err != nil {
			logger.Error("Startup refresh failed", "error", err)
		}
		refreshWorker.RunPeriodic(ctx, cfg.RefreshInterval)
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight work a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
