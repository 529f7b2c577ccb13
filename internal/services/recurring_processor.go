package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

// RecurringProcessor materializes due recurring transactions. Each
// template spawns a concrete transaction through the same row-write plus
// balance-increment pairing the interactive paths use, so account balances
// stay consistent with the ledger no matter who wrote to it.
type RecurringProcessor struct {
	store     storage.Store
	pub       Publisher
	batchSize int
}

func NewRecurringProcessor(store storage.Store, pub Publisher, batchSize int) *RecurringProcessor {
	return &RecurringProcessor{store: store, pub: pub, batchSize: batchSize}
}

// ProcessDue creates the next instance of every recurring transaction
// whose next date has arrived. Each template is processed in its own unit
// of work; one failing template does not block the rest.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := p.store.ListDueRecurring(ctx, now, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"due", len(due),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, template := range due {
		if err := p.processOne(ctx, template, now); err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring transaction",
				"template_id", template.ID,
				"error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (p *RecurringProcessor) processOne(ctx context.Context, template core.Transaction, now time.Time) error {
	next, err := core.NextOccurrence(now, template.RecurringInterval)
	if err != nil {
		return err
	}

	instance := core.Transaction{
		UserID:      template.UserID,
		AccountID:   template.AccountID,
		Type:        template.Type,
		Amount:      template.Amount,
		Description: template.Description + " (Recurring)",
		Category:    template.Category,
		Date:        now,
		Status:      core.StatusCompleted,
	}

	err = p.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.AccountOwned(ctx, template.AccountID, template.UserID); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &instance); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, instance.AccountID, core.SignedDelta(instance.Type, instance.Amount)); err != nil {
			return err
		}
		return tx.MarkRecurringProcessed(ctx, template.ID, now, next)
	})
	if err != nil {
		return err
	}

	if p.pub != nil {
		ev := events.NewTransactionEvent(events.ActionCreated, instance.ID, instance.UserID, instance.AccountID)
		if err := p.pub.PublishTransactionEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "Failed to publish recurring transaction event",
				"transaction_id", instance.ID,
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Recurring transaction materialized",
		"template_id", template.ID,
		"transaction_id", instance.ID,
		"next_date", next.Format("2006-01-02"))
	return nil
}
