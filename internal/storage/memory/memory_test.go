package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestInTxRollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()

	a := &core.Account{UserID: userID, Name: "Checking", Type: core.AccountCurrent, Balance: decimal.NewFromInt(100)}
	require.NoError(t, s.CreateAccount(ctx, a))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Store) error {
		if err := tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(50)); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &core.Transaction{
			UserID:    userID,
			AccountID: a.ID,
			Type:      core.Income,
			Amount:    decimal.NewFromInt(50),
			Category:  "salary",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID, userID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)), "balance restored")

	list, err := s.ListTransactions(ctx, storage.TransactionFilter{UserID: userID})
	require.NoError(t, err)
	assert.Empty(t, list, "inserted row rolled back")
}

func TestInTxCommitKeepsState(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()

	a := &core.Account{UserID: userID, Name: "Checking", Type: core.AccountCurrent, Balance: decimal.Zero}
	require.NoError(t, s.CreateAccount(ctx, a))

	err := s.InTx(ctx, func(tx storage.Store) error {
		return tx.AdjustBalance(ctx, a.ID, decimal.NewFromInt(25))
	})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, a.ID, userID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(25)))
}

func TestInTxNestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()

	a := &core.Account{UserID: userID, Name: "Checking", Type: core.AccountCurrent, Balance: decimal.Zero}
	require.NoError(t, s.CreateAccount(ctx, a))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Store) error {
		if err := tx.InTx(ctx, func(inner storage.Store) error {
			return inner.AdjustBalance(ctx, a.ID, decimal.NewFromInt(10))
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, a.ID, userID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero(), "inner write rolled back with the outer unit")
}
