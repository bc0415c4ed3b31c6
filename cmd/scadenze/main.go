package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scadenze/internal/amqp"
	"scadenze/internal/config"
	"scadenze/internal/engine"
	apphttp "scadenze/internal/http"
	"scadenze/internal/ledger"
	"scadenze/internal/ledger/memory"
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
	logger := applog.ForComponent(applog.ComponentApp)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		persist     ledger.ObligationPersistence
		ledgerStore ledger.Store
	)

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		persist, ledgerStore = repo, repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		persist = memory.NewPersistence()
		ledgerStore = memory.NewLedger()
		logger.Info("Initialized memory backend")
	}

	// Hydrate the working copy from the durable records.
	st := store.New()
	records, err := persist.ListObligations(context.Background())
	if err != nil {
		logger.Error("Failed to load obligations", "error", err)
		os.Exit(1)
	}
	st.Load(records)
	logger.Info("Obligations loaded", "count", len(records))

	// AMQP is optional; without it postings simply stay local until the
	// worker's backup sweep picks them up.
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

	eng := engine.New(st, persist, ledgerStore, events, cfg.UndoWindow)
	proc := services.NewProcessor(st, eng)

	srv := apphttp.NewServer(":"+cfg.Port, st, eng, proc)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting scadenze server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
