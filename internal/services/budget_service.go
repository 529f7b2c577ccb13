package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// budgetAlertThreshold is the share of the monthly budget at which an alert
// fires (once per calendar month).
var budgetAlertThreshold = decimal.RequireFromString("0.8")

// BudgetService manages the per-user monthly budget and its usage.
type BudgetService struct {
	store storage.Store
}

func NewBudgetService(store storage.Store) *BudgetService {
	return &BudgetService{store: store}
}

// BudgetOverview pairs the budget (nil when the user never set one) with
// the current month's expense total on the queried account.
type BudgetOverview struct {
	Budget          *core.Budget
	CurrentExpenses decimal.Decimal
}

// Overview returns the budget and the current month's expenses for the
// given account. A user without a budget is not an error.
func (s *BudgetService) Overview(ctx context.Context, userID, accountID uuid.UUID) (*BudgetOverview, error) {
	budget, err := s.store.GetBudget(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	from, to := monthBounds(time.Now().UTC())
	expenses, err := s.store.SumExpenses(ctx, userID, accountID, from, to)
	if err != nil {
		return nil, err
	}

	return &BudgetOverview{Budget: budget, CurrentExpenses: expenses}, nil
}

// Update sets (or creates) the user's budget amount.
func (s *BudgetService) Update(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*core.Budget, error) {
	b := core.Budget{Amount: amount}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	out, err := s.store.UpsertBudget(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return out, nil
}

// EvaluateAlert checks whether the month's expenses on accountID have
// crossed the alert threshold and, if so, stamps the budget as alerted.
// It returns true when a new alert should go out. At most one alert fires
// per calendar month.
func (s *BudgetService) EvaluateAlert(ctx context.Context, userID, accountID uuid.UUID, now time.Time) (bool, error) {
	budget, err := s.store.GetBudget(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if budget.LastAlertSent != nil &&
		budget.LastAlertSent.Year() == now.Year() &&
		budget.LastAlertSent.Month() == now.Month() {
		return false, nil
	}

	from, to := monthBounds(now)
	expenses, err := s.store.SumExpenses(ctx, userID, accountID, from, to)
	if err != nil {
		return false, err
	}

	if expenses.LessThan(budget.Amount.Mul(budgetAlertThreshold)) {
		return false, nil
	}

	if err := s.store.MarkBudgetAlerted(ctx, userID, now); err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "Budget alert triggered",
		"user_id", userID,
		"account_id", accountID,
		"expenses", expenses.String(),
		"budget", budget.Amount.String())
	return true, nil
}
