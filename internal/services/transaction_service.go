// Package services holds the orchestrators that compose storage operations
// into atomic units of work. The transaction mutation paths here are the
// only code allowed to move an account balance.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

// Publisher emits post-commit domain events. Implementations must be safe
// to call from request goroutines; the orchestrators treat publish failures
// as log-only.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, ev *events.TransactionEvent) error
}

// TransactionService keeps account balances consistent with the transaction
// rows they cache. Every mutation pairs its row write with the matching
// balance increments inside one unit of work.
type TransactionService struct {
	store storage.Store
	pub   Publisher
}

func NewTransactionService(store storage.Store, pub Publisher) *TransactionService {
	return &TransactionService{store: store, pub: pub}
}

// CreateTransactionInput carries the validated fields for a new transaction.
type CreateTransactionInput struct {
	Type              core.TransactionType
	AccountID         uuid.UUID
	Amount            decimal.Decimal
	Description       string
	Category          string
	Date              time.Time
	ReceiptURL        string
	IsRecurring       bool
	RecurringInterval core.RecurringInterval
	Status            core.TransactionStatus // defaults to PENDING
}

// UpdateTransactionInput mirrors the create input; nil optional fields keep
// the original value.
type UpdateTransactionInput struct {
	Type              core.TransactionType
	AccountID         uuid.UUID
	Amount            decimal.Decimal
	Date              time.Time
	IsRecurring       bool
	RecurringInterval core.RecurringInterval
	Description       *string
	Category          *string
	ReceiptURL        *string
	Status            *core.TransactionStatus
}

// Create validates the input, verifies account ownership, and inserts the
// transaction row together with its balance increment in one unit of work.
func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, in CreateTransactionInput) (*core.Transaction, error) {
	status := in.Status
	if status == "" {
		status = core.StatusPending
	}

	t := core.Transaction{
		UserID:            userID,
		AccountID:         in.AccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Description:       in.Description,
		Category:          in.Category,
		Date:              in.Date,
		ReceiptURL:        in.ReceiptURL,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
		Status:            status,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if t.IsRecurring {
		next, err := core.NextOccurrence(t.Date, t.RecurringInterval)
		if err != nil {
			return nil, err
		}
		t.NextRecurringDate = &next
	}

	delta := core.SignedDelta(t.Type, t.Amount)

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.AccountOwned(ctx, t.AccountID, userID); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &t); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, t.AccountID, delta)
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, events.ActionCreated, &t)
	return &t, nil
}

// Update rewrites a transaction and reconciles balances. When the account
// is unchanged a single net increment is applied (elided when zero); when
// the transaction moved, the old account gets the reversal and the new one
// the fresh delta, all in the same unit of work as the row update.
func (s *TransactionService) Update(ctx context.Context, userID, id uuid.UUID, in UpdateTransactionInput) (*core.Transaction, error) {
	var updated core.Transaction

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		original, err := tx.GetTransaction(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := tx.AccountOwned(ctx, in.AccountID, userID); err != nil {
			return err
		}

		oldDelta := core.SignedDelta(original.Type, original.Amount)
		newDelta := core.SignedDelta(in.Type, in.Amount)

		updated = *original
		updated.Type = in.Type
		updated.AccountID = in.AccountID
		updated.Amount = in.Amount
		updated.Date = in.Date
		updated.IsRecurring = in.IsRecurring
		updated.RecurringInterval = in.RecurringInterval
		if in.Description != nil {
			updated.Description = *in.Description
		}
		if in.Category != nil {
			updated.Category = *in.Category
		}
		if in.ReceiptURL != nil {
			updated.ReceiptURL = *in.ReceiptURL
		}
		if in.Status != nil {
			updated.Status = *in.Status
		}
		if updated.IsRecurring {
			next, err := core.NextOccurrence(updated.Date, updated.RecurringInterval)
			if err != nil {
				return err
			}
			updated.NextRecurringDate = &next
		} else {
			updated.RecurringInterval = ""
			updated.NextRecurringDate = nil
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		if err := tx.UpdateTransaction(ctx, &updated); err != nil {
			return err
		}

		if original.AccountID != updated.AccountID {
			if err := tx.AdjustBalance(ctx, original.AccountID, oldDelta.Neg()); err != nil {
				return err
			}
			return tx.AdjustBalance(ctx, updated.AccountID, newDelta)
		}
		if net := newDelta.Sub(oldDelta); !net.IsZero() {
			return tx.AdjustBalance(ctx, updated.AccountID, net)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, events.ActionUpdated, &updated)
	return &updated, nil
}

// Delete removes a single transaction and reverses its balance contribution
// in one unit of work.
func (s *TransactionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	var deleted *core.Transaction

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		original, err := tx.GetTransaction(ctx, id, userID)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id, userID); err != nil {
			return err
		}
		deleted = original
		return tx.AdjustBalance(ctx, original.AccountID, core.SignedDelta(original.Type, original.Amount).Neg())
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, events.ActionDeleted, deleted)
	return nil
}

// BulkDelete removes every listed transaction the caller owns and applies
// the aggregate reversal per account. Ids owned by someone else are
// silently excluded from both the deletion and the balance math; they are a
// scoping filter, not an error.
func (s *TransactionService) BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return core.ErrNoIDs
	}
	if len(ids) > core.MaxBulkDeleteIDs {
		return core.ErrTooManyIDs
	}

	err := s.store.InTx(ctx, func(tx storage.Store) error {
		owned, err := tx.ListTransactionsByIDs(ctx, ids, userID)
		if err != nil {
			return err
		}
		if len(owned) == 0 {
			return nil
		}

		// Reversal contribution per account: the amount to add back for
		// expenses, subtract for income.
		changes := make(map[uuid.UUID]decimal.Decimal)
		for _, t := range owned {
			changes[t.AccountID] = changes[t.AccountID].Add(core.SignedDelta(t.Type, t.Amount).Neg())
		}

		if err := tx.DeleteTransactionsByIDs(ctx, ids, userID); err != nil {
			return err
		}

		// Stable order keeps lock acquisition deterministic across
		// concurrent bulk deletes.
		accountIDs := make([]uuid.UUID, 0, len(changes))
		for id := range changes {
			accountIDs = append(accountIDs, id)
		}
		sort.Slice(accountIDs, func(i, j int) bool {
			return accountIDs[i].String() < accountIDs[j].String()
		})
		for _, accountID := range accountIDs {
			if err := tx.AdjustBalance(ctx, accountID, changes[accountID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bulk delete transactions: %w", err)
	}

	slog.InfoContext(ctx, "Bulk deleted transactions", "requested", len(ids), "user_id", userID)
	return nil
}

// Get returns a single transaction scoped to its owner.
func (s *TransactionService) Get(ctx context.Context, userID, id uuid.UUID) (*core.Transaction, error) {
	return s.store.GetTransaction(ctx, id, userID)
}

// List returns a filtered, paginated transaction listing.
func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

func (s *TransactionService) publish(ctx context.Context, action string, t *core.Transaction) {
	if s.pub == nil || t == nil {
		return
	}
	ev := events.NewTransactionEvent(action, t.ID, t.UserID, t.AccountID)
	if err := s.pub.PublishTransactionEvent(ctx, ev); err != nil {
		// The mutation already committed; the event is best-effort.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"action", action,
			"transaction_id", t.ID,
			"error", err)
	}
}
