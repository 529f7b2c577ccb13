package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// DashboardService assembles the landing-page view: accounts, recent
// transactions, and budget usage, fetched concurrently.
type DashboardService struct {
	store storage.Store
}

func NewDashboardService(store storage.Store) *DashboardService {
	return &DashboardService{store: store}
}

type DashboardOverview struct {
	Accounts           []storage.AccountSummary
	RecentTransactions []core.Transaction
	Budget             *core.Budget
	CurrentExpenses    decimal.Decimal
}

// Overview fetches the three dashboard sections in parallel. Budget usage
// is computed against the default account; a user without a default account
// or a budget simply gets zeroes.
func (s *DashboardService) Overview(ctx context.Context, userID uuid.UUID) (*DashboardOverview, error) {
	out := &DashboardOverview{CurrentExpenses: decimal.Zero}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := s.store.ListAccounts(gctx, userID)
		if err != nil {
			return err
		}
		out.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		recent, err := s.store.ListTransactions(gctx, storage.TransactionFilter{
			UserID:   userID,
			PageSize: 10,
		})
		if err != nil {
			return err
		}
		out.RecentTransactions = recent
		return nil
	})
	g.Go(func() error {
		budget, err := s.store.GetBudget(gctx, userID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}
			return err
		}
		out.Budget = budget
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.Budget != nil {
		for _, a := range out.Accounts {
			if !a.IsDefault {
				continue
			}
			from, to := monthBounds(time.Now().UTC())
			expenses, err := s.store.SumExpenses(ctx, userID, a.ID, from, to)
			if err != nil {
				return nil, err
			}
			out.CurrentExpenses = expenses
			break
		}
	}
	return out, nil
}
