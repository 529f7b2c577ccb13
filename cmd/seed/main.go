// Command seed fills the configured backend with demo data: one user with
// two accounts, a budget, and a few months of plausible transactions.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/postgres"
)

var categories = []string{
	"housing", "transportation", "groceries", "utilities", "entertainment",
	"food", "shopping", "healthcare", "travel", "bills",
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	userFlag := flag.String("user", "", "user id to seed data for (random when empty)")
	months := flag.Int("months", 3, "months of transaction history to generate")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.DataBackend != "postgres" {
		logger.Error("Seeding requires the postgres backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	userID := uuid.New()
	if *userFlag != "" {
		parsed, err := uuid.Parse(*userFlag)
		if err != nil {
			logger.Error("Invalid user id", "user", *userFlag)
			os.Exit(1)
		}
		userID = parsed
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize postgres backend", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seed(ctx, db, userID, *months); err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Seeding complete", "user_id", userID)
}

func seed(ctx context.Context, store storage.Store, userID uuid.UUID, months int) error {
	accounts := services.NewAccountService(store)
	transactions := services.NewTransactionService(store, nil)
	budget := services.NewBudgetService(store)

	checking, err := accounts.Create(ctx, userID, services.CreateAccountInput{
		Name:    "Checking",
		Type:    core.AccountCurrent,
		Balance: decimal.NewFromInt(2500),
	})
	if err != nil {
		return err
	}
	savings, err := accounts.Create(ctx, userID, services.CreateAccountInput{
		Name:    "Savings",
		Type:    core.AccountSavings,
		Balance: decimal.NewFromInt(12000),
	})
	if err != nil {
		return err
	}

	if _, err := budget.Update(ctx, userID, decimal.NewFromInt(1500)); err != nil {
		return err
	}

	now := time.Now().UTC()
	for m := 0; m < months; m++ {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -m, 0)

		// Salary at the start of the month.
		_, err := transactions.Create(ctx, userID, services.CreateTransactionInput{
			Type:        core.Income,
			AccountID:   checking.ID,
			Amount:      decimal.NewFromInt(3200),
			Description: "Salary",
			Category:    "salary",
			Date:        monthStart,
			Status:      core.StatusCompleted,
		})
		if err != nil {
			return err
		}

		for i := 0; i < 15+rand.Intn(10); i++ {
			account := checking
			if rand.Intn(10) == 0 {
				account = savings
			}
			amount := decimal.NewFromFloat(float64(rand.Intn(12000)+100) / 100)
			_, err := transactions.Create(ctx, userID, services.CreateTransactionInput{
				Type:        core.Expense,
				AccountID:   account.ID,
				Amount:      amount,
				Description: faker.Sentence(),
				Category:    categories[rand.Intn(len(categories))],
				Date:        monthStart.AddDate(0, 0, rand.Intn(27)+1),
				Status:      core.StatusCompleted,
			})
			if err != nil {
				return err
			}
		}
	}

	// A monthly rent template for the recurring worker to pick up.
	_, err = transactions.Create(ctx, userID, services.CreateTransactionInput{
		Type:              core.Expense,
		AccountID:         checking.ID,
		Amount:            decimal.NewFromInt(950),
		Description:       "Rent",
		Category:          "housing",
		Date:              now,
		Status:            core.StatusCompleted,
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
	})
	return err
}
