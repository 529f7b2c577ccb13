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

	"fintrack/internal/config"
	"fintrack/internal/events"
	apphttp "fintrack/internal/http"
	"fintrack/internal/scanner"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/postgres"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Choose data backend (default: memory)
	var store storage.Store
	switch cfg.DataBackend {
	case "postgres":
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize postgres backend", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
		logger.Info("Initialized postgres backend")
	default:
		store = memory.New()
		logger.Info("Initialized memory backend")
	}

	// AMQP is optional; without it mutations simply skip event publishing.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, events disabled", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized")
		}
	}

	// Receipt scanning is optional; without an API key the endpoint answers 503.
	var sc apphttp.ReceiptScanner
	if cfg.GeminiAPIKey != "" {
		s, err := scanner.New(ctx, scanner.Config{
			APIKey:        cfg.GeminiAPIKey,
			PrimaryModel:  cfg.GeminiModelPrimary,
			FallbackModel: cfg.GeminiModelFallback,
		})
		if err != nil {
			logger.Warn("Failed to initialize receipt scanner", "error", err)
		} else {
			sc = s
			logger.Info("Receipt scanner initialized", "model", cfg.GeminiModelPrimary)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:     services.NewAccountService(store),
		Transactions: services.NewTransactionService(store, publisher),
		Budget:       services.NewBudgetService(store),
		Dashboard:    services.NewDashboardService(store),
		Scanner:      sc,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

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

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
