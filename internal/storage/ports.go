// Package storage defines the persistence ports for fintrack. Two backends
// implement them: postgres (production) and memory (dev and tests).
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// AccountSummary is an account plus its transaction count, as shown on the
// dashboard account list.
type AccountSummary struct {
	core.Account
	TransactionCount int64
}

// TransactionFilter narrows a transaction listing. UserID is mandatory;
// everything else is optional. Page is 1-based, PageSize defaults to 20.
type TransactionFilter struct {
	UserID    uuid.UUID
	AccountID *uuid.UUID
	Type      *core.TransactionType
	Status    *core.TransactionStatus
	Category  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// AccountStore persists accounts. AdjustBalance is the only way a balance
// moves: a single relative increment executed by the storage engine, never a
// read-modify-write at the application layer.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *core.Account) error
	GetAccount(ctx context.Context, id, userID uuid.UUID) (*core.Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]AccountSummary, error)
	// AccountOwned returns core.ErrNotFound unless the account exists and
	// belongs to userID. It must run inside the same unit of work as any
	// write that depends on it.
	AccountOwned(ctx context.Context, accountID, userID uuid.UUID) error
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error
	ClearDefaultAccount(ctx context.Context, userID uuid.UUID) error
	SetDefaultAccount(ctx context.Context, accountID, userID uuid.UUID) (*core.Account, error)
}

// TransactionStore persists transactions. All reads and deletes are scoped
// to an owner; an id that exists under another owner behaves exactly like a
// missing one.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t *core.Transaction) error
	GetTransaction(ctx context.Context, id, userID uuid.UUID) (*core.Transaction, error)
	UpdateTransaction(ctx context.Context, t *core.Transaction) error
	DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	ListTransactionsByIDs(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]core.Transaction, error)
	DeleteTransactionsByIDs(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) error
	SumExpenses(ctx context.Context, userID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	ListDueRecurring(ctx context.Context, due time.Time, limit int) ([]core.Transaction, error)
	MarkRecurringProcessed(ctx context.Context, id uuid.UUID, processedAt, next time.Time) error
}

// BudgetStore persists the per-user monthly budget.
type BudgetStore interface {
	GetBudget(ctx context.Context, userID uuid.UUID) (*core.Budget, error)
	UpsertBudget(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*core.Budget, error)
	MarkBudgetAlerted(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// Store is the full persistence port. InTx runs fn inside one atomic unit
// of work: every write made through the Store handed to fn commits together
// or not at all. Calling InTx on a Store already inside a unit of work joins
// the outer one.
type Store interface {
	AccountStore
	TransactionStore
	BudgetStore
	InTx(ctx context.Context, fn func(Store) error) error
}
