package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func seedRecurring(t *testing.T, store *memory.Store, userID, accountID uuid.UUID, amount string, next time.Time) *core.Transaction {
	t.Helper()
	tx := &core.Transaction{
		UserID:            userID,
		AccountID:         accountID,
		Type:              core.Expense,
		Amount:            dec(amount),
		Description:       "Rent",
		Category:          "housing",
		Date:              next.AddDate(0, -1, 0),
		Status:            core.StatusCompleted,
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: &next,
	}
	require.NoError(t, store.InsertTransaction(context.Background(), tx))
	return tx
}

func TestProcessDueMaterializesInstance(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	userID := uuid.New()
	acc := newAccount(t, store, userID, "1000")
	pub := &capturingPublisher{}
	proc := NewRecurringProcessor(store, pub, 50)

	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	template := seedRecurring(t, store, userID, acc.ID, "800", now)

	n, err := proc.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, accountBalance(t, store, acc.ID, userID).Equal(dec("200")))

	list, err := store.ListTransactions(ctx, storage.TransactionFilter{UserID: userID})
	require.NoError(t, err)
	require.Len(t, list, 2)

	var instance *core.Transaction
	for i := range list {
		if list[i].ID != template.ID {
			instance = &list[i]
		}
	}
	require.NotNil(t, instance)
	assert.Equal(t, "Rent (Recurring)", instance.Description)
	assert.Equal(t, core.StatusCompleted, instance.Status)
	assert.False(t, instance.IsRecurring)

	updated, err := store.GetTransaction(ctx, template.ID, userID)
	require.NoError(t, err)
	require.NotNil(t, updated.NextRecurringDate)
	assert.Equal(t, now.AddDate(0, 1, 0), *updated.NextRecurringDate)
	require.NotNil(t, updated.LastProcessed)
	assert.Equal(t, now, *updated.LastProcessed)

	assert.Equal(t, []string{"created"}, pub.actions())
}

func TestProcessDueSkipsFutureTemplates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	userID := uuid.New()
	acc := newAccount(t, store, userID, "1000")
	proc := NewRecurringProcessor(store, nil, 50)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedRecurring(t, store, userID, acc.ID, "800", now.AddDate(0, 0, 10))

	n, err := proc.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, accountBalance(t, store, acc.ID, userID).Equal(dec("1000")))
}

func TestProcessDueContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	userID := uuid.New()
	acc := newAccount(t, store, userID, "1000")
	proc := NewRecurringProcessor(store, nil, 50)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	// An orphaned template whose account is gone fails ownership and is
	// skipped; the healthy one still processes.
	seedRecurring(t, store, userID, uuid.New(), "50", now.AddDate(0, 0, -2))
	seedRecurring(t, store, userID, acc.ID, "100", now)

	n, err := proc.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, accountBalance(t, store, acc.ID, userID).Equal(dec("900")))
}

func TestProcessDueHonorsBatchSize(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	userID := uuid.New()
	acc := newAccount(t, store, userID, "0")
	proc := NewRecurringProcessor(store, nil, 2)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedRecurring(t, store, userID, acc.ID, "10", now.AddDate(0, 0, -i))
	}

	n, err := proc.ProcessDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
