package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"scadenze/internal/amqp"
	"scadenze/internal/config"
	"scadenze/internal/core"
	"scadenze/internal/engine"
	applog "scadenze/internal/log"
	"scadenze/internal/services"
	"scadenze/internal/storage"
	"scadenze/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	applog.Setup(slog.LevelInfo)
	logger := applog.ForComponent(applog.ComponentProcessor)

	logger.Info("Starting due-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The due worker always runs against the durable SQLite records.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Postings created here are published for the sync worker to mirror.
	var events engine.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without eventing", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized")
		}
	}

	st := store.New()
	records, err := repo.ListObligations(context.Background())
	if err != nil {
		logger.Error("Failed to load obligations", "error", err)
		os.Exit(1)
	}
	st.Load(records)
	logger.Info("Obligations loaded", "count", len(records))

	eng := engine.New(st, repo, repo, events, cfg.UndoWindow)
	proc := services.NewProcessor(st, eng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOnce := func() {
		today := core.DateOf(time.Now())
		result, err := proc.ProcessDue(ctx, today)
		if err != nil {
			logger.Error("Due processing failed", "error", err)
			return
		}
		logger.Info("Due processing complete",
			"date", today.String(),
			"executed", result.Executed,
			"skipped", result.Skipped,
			"failures", len(result.Failures))
	}

	// Catch up anything that came due while the worker was down.
	logger.Info("Running initial due processing...")
	runOnce()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.DueCron, runOnce); err != nil {
		logger.Error("Invalid cron expression", "expression", cfg.DueCron, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Due processor scheduled", "cron", cfg.DueCron)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Due worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
