// Package memory implements the storage ports in process memory. It is the
// default dev backend and the test double for the orchestrators: it honors
// the same unit-of-work and atomic-increment contracts as the postgres
// backend, with a snapshot rollback standing in for a database transaction.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type state struct {
	accounts     map[uuid.UUID]core.Account
	transactions map[uuid.UUID]core.Transaction
	budgets      map[uuid.UUID]core.Budget // keyed by user id
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.budgets {
		c.budgets[k] = v
	}
	return c
}

func newState() *state {
	return &state{
		accounts:     make(map[uuid.UUID]core.Account),
		transactions: make(map[uuid.UUID]core.Transaction),
		budgets:      make(map[uuid.UUID]core.Budget),
	}
}

// Store implements storage.Store in memory.
type Store struct {
	mu   sync.Mutex
	st   *state
	inTx bool
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		// the unit of work already holds the lock
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx takes the store lock, runs fn against the live state, and restores a
// pre-transaction snapshot if fn fails. Nested calls join the outer unit.
func (s *Store) InTx(_ context.Context, fn func(storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	txView := &Store{st: s.st, inTx: true}
	if err := fn(txView); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

/* ------------------------------ accounts ------------------------------ */

func (s *Store) CreateAccount(_ context.Context, a *core.Account) error {
	defer s.lock()()

	now := time.Now().UTC()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	s.st.accounts[a.ID] = *a
	return nil
}

func (s *Store) GetAccount(_ context.Context, id, userID uuid.UUID) (*core.Account, error) {
	defer s.lock()()

	a, ok := s.st.accounts[id]
	if !ok || a.UserID != userID {
		return nil, core.ErrNotFound
	}
	out := a
	return &out, nil
}

func (s *Store) ListAccounts(_ context.Context, userID uuid.UUID) ([]storage.AccountSummary, error) {
	defer s.lock()()

	var out []storage.AccountSummary
	for _, a := range s.st.accounts {
		if a.UserID != userID {
			continue
		}
		sum := storage.AccountSummary{Account: a}
		for _, t := range s.st.transactions {
			if t.AccountID == a.ID {
				sum.TransactionCount++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) AccountOwned(_ context.Context, accountID, userID uuid.UUID) error {
	defer s.lock()()

	a, ok := s.st.accounts[accountID]
	if !ok || a.UserID != userID {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustBalance(_ context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	defer s.lock()()

	a, ok := s.st.accounts[accountID]
	if !ok {
		return core.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = time.Now().UTC()
	s.st.accounts[accountID] = a
	return nil
}

func (s *Store) ClearDefaultAccount(_ context.Context, userID uuid.UUID) error {
	defer s.lock()()

	for id, a := range s.st.accounts {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			a.UpdatedAt = time.Now().UTC()
			s.st.accounts[id] = a
		}
	}
	return nil
}

func (s *Store) SetDefaultAccount(_ context.Context, accountID, userID uuid.UUID) (*core.Account, error) {
	defer s.lock()()

	a, ok := s.st.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, core.ErrNotFound
	}
	a.IsDefault = true
	a.UpdatedAt = time.Now().UTC()
	s.st.accounts[accountID] = a
	out := a
	return &out, nil
}

/* ---------------------------- transactions ---------------------------- */

func (s *Store) InsertTransaction(_ context.Context, t *core.Transaction) error {
	defer s.lock()()

	now := time.Now().UTC()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	s.st.transactions[t.ID] = *t
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id, userID uuid.UUID) (*core.Transaction, error) {
	defer s.lock()()

	t, ok := s.st.transactions[id]
	if !ok || t.UserID != userID {
		return nil, core.ErrNotFound
	}
	out := t
	return &out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t *core.Transaction) error {
	defer s.lock()()

	old, ok := s.st.transactions[t.ID]
	if !ok || old.UserID != t.UserID {
		return core.ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.st.transactions[t.ID] = *t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, userID uuid.UUID) error {
	defer s.lock()()

	t, ok := s.st.transactions[id]
	if !ok || t.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.st.transactions, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	defer s.lock()()

	var all []core.Transaction
	for _, t := range s.st.transactions {
		if t.UserID != f.UserID {
			continue
		}
		if f.AccountID != nil && t.AccountID != *f.AccountID {
			continue
		}
		if f.Type != nil && t.Type != *f.Type {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
			continue
		}
		if f.From != nil && t.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && t.Date.After(*f.To) {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *Store) ListTransactionsByIDs(_ context.Context, ids []uuid.UUID, userID uuid.UUID) ([]core.Transaction, error) {
	defer s.lock()()

	var out []core.Transaction
	for _, id := range ids {
		if t, ok := s.st.transactions[id]; ok && t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) DeleteTransactionsByIDs(_ context.Context, ids []uuid.UUID, userID uuid.UUID) error {
	defer s.lock()()

	for _, id := range ids {
		if t, ok := s.st.transactions[id]; ok && t.UserID == userID {
			delete(s.st.transactions, id)
		}
	}
	return nil
}

func (s *Store) SumExpenses(_ context.Context, userID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	defer s.lock()()

	sum := decimal.Zero
	for _, t := range s.st.transactions {
		if t.UserID != userID || t.AccountID != accountID || t.Type != core.Expense {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

func (s *Store) ListDueRecurring(_ context.Context, due time.Time, limit int) ([]core.Transaction, error) {
	defer s.lock()()

	var out []core.Transaction
	for _, t := range s.st.transactions {
		if t.IsRecurring && t.NextRecurringDate != nil && !t.NextRecurringDate.After(due) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextRecurringDate.Before(*out[j].NextRecurringDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkRecurringProcessed(_ context.Context, id uuid.UUID, processedAt, next time.Time) error {
	defer s.lock()()

	t, ok := s.st.transactions[id]
	if !ok {
		return core.ErrNotFound
	}
	p, n := processedAt, next
	t.LastProcessed = &p
	t.NextRecurringDate = &n
	t.UpdatedAt = time.Now().UTC()
	s.st.transactions[id] = t
	return nil
}

/* ------------------------------- budgets ------------------------------ */

func (s *Store) GetBudget(_ context.Context, userID uuid.UUID) (*core.Budget, error) {
	defer s.lock()()

	b, ok := s.st.budgets[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := b
	return &out, nil
}

func (s *Store) UpsertBudget(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (*core.Budget, error) {
	defer s.lock()()

	now := time.Now().UTC()
	b, ok := s.st.budgets[userID]
	if !ok {
		b = core.Budget{ID: uuid.New(), UserID: userID, CreatedAt: now}
	}
	b.Amount = amount
	b.UpdatedAt = now
	s.st.budgets[userID] = b
	out := b
	return &out, nil
}

func (s *Store) MarkBudgetAlerted(_ context.Context, userID uuid.UUID, at time.Time) error {
	defer s.lock()()

	b, ok := s.st.budgets[userID]
	if !ok {
		return core.ErrNotFound
	}
	v := at
	b.LastAlertSent = &v
	b.UpdatedAt = time.Now().UTC()
	s.st.budgets[userID] = b
	return nil
}
