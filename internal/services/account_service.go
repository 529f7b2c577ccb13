package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// AccountService manages the account lifecycle. Balances are only seeded
// here at creation; afterwards they move exclusively through the
// transaction orchestrator.
type AccountService struct {
	store storage.Store
}

func NewAccountService(store storage.Store) *AccountService {
	return &AccountService{store: store}
}

type CreateAccountInput struct {
	Name      string
	Type      core.AccountType
	Balance   decimal.Decimal
	IsDefault bool
}

// Create adds an account. A user's first account is always made the
// default regardless of the requested flag; making any account default
// unsets the previous one inside the same unit of work.
func (s *AccountService) Create(ctx context.Context, userID uuid.UUID, in CreateAccountInput) (*core.Account, error) {
	if in.Balance.IsNegative() {
		return nil, core.ErrInvalidAmount
	}

	a := core.Account{
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Balance:   in.Balance,
		IsDefault: in.IsDefault,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		existing, err := tx.ListAccounts(ctx, userID)
		if err != nil {
			return err
		}
		a.IsDefault = len(existing) == 0 || in.IsDefault
		if a.IsDefault {
			if err := tx.ClearDefaultAccount(ctx, userID); err != nil {
				return err
			}
		}
		return tx.CreateAccount(ctx, &a)
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"account_id", a.ID,
		"user_id", userID,
		"type", a.Type,
		"is_default", a.IsDefault)
	return &a, nil
}

// List returns the user's accounts, newest first, with transaction counts.
func (s *AccountService) List(ctx context.Context, userID uuid.UUID) ([]storage.AccountSummary, error) {
	return s.store.ListAccounts(ctx, userID)
}

// GetWithTransactions returns an account and its transactions, newest
// first.
func (s *AccountService) GetWithTransactions(ctx context.Context, userID, id uuid.UUID) (*core.Account, []core.Transaction, error) {
	a, err := s.store.GetAccount(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	transactions, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
		UserID:    userID,
		AccountID: &id,
		PageSize:  1000,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list account transactions: %w", err)
	}
	return a, transactions, nil
}

// SetDefault flips the default flag to the given account, clearing the
// previous default in the same unit of work.
func (s *AccountService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*core.Account, error) {
	var a *core.Account
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.ClearDefaultAccount(ctx, userID); err != nil {
			return err
		}
		var err error
		a, err = tx.SetDefaultAccount(ctx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// monthBounds returns the UTC start and end instants of now's calendar
// month.
func monthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
