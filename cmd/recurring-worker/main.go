package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/events"
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

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	default:
		store = memory.New()
		logger.Warn("Using memory backend; recurring state will not survive restarts")
	}

	var amqpClient *events.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	var publisher services.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	processor := services.NewRecurringProcessor(store, publisher, cfg.RecurringBatchSize)
	budget := services.NewBudgetService(store)

	// Budget alerts piggyback on the transaction event stream: every
	// committed mutation triggers a re-check for that user and account.
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeTransactionEvents(ctx, func(ev *events.TransactionEvent) error {
				fired, err := budget.EvaluateAlert(ctx, ev.UserID, ev.AccountID, time.Now().UTC())
				if err != nil {
					return err
				}
				if fired {
					logger.Info("Budget alert sent", "user_id", ev.UserID)
				}
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Event consumer stopped", "error", err)
			}
		}()
	}

	logger.Info("Recurring transaction processor configured",
		"interval", cfg.RecurringInterval,
		"batch_size", cfg.RecurringBatchSize)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	// Run initial processing on startup
	if count, err := processor.ProcessDue(ctx, time.Now().UTC()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "transactions_created", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := processor.ProcessDue(ctx, now.UTC())
				if err != nil {
					logger.Error("Periodic processing failed", "error", err)
					continue
				}
				logger.Info("Periodic processing complete",
					"transactions_created", count,
					"next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	logger.Info("Recurring-worker shutdown complete")
}
