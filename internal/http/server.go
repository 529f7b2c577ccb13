// Package http exposes the JSON API. Authentication happens upstream; the
// gateway injects the authenticated user id as a header and every handler
// is scoped to that user.
package http

import (
	"context"
	"net/http"
	"sync"

	"fintrack/internal/scanner"
	"fintrack/internal/services"
)

// ReceiptScanner is the slice of the scanner the API needs.
type ReceiptScanner interface {
	Scan(ctx context.Context, data []byte, mimeType string) (*scanner.Receipt, error)
}

type Server struct {
	http.Server

	accounts     *services.AccountService
	transactions *services.TransactionService
	budget       *services.BudgetService
	dashboard    *services.DashboardService
	scanner      ReceiptScanner

	shutdownOnce sync.Once
}

// Deps carries the service dependencies of the API server. Scanner may be
// nil; the scan endpoint then answers 503.
type Deps struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Budget       *services.BudgetService
	Dashboard    *services.DashboardService
	Scanner      ReceiptScanner
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		accounts:     deps.Accounts,
		transactions: deps.Transactions,
		budget:       deps.Budget,
		dashboard:    deps.Dashboard,
		scanner:      deps.Scanner,
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/accounts", s.withUser(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withUser(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts/{id}", s.withUser(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}/default", s.withUser(s.handleSetDefaultAccount))

	mux.HandleFunc("GET /api/transactions", s.withUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withUser(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.withUser(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withUser(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withUser(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/bulk-delete", s.withUser(s.handleBulkDeleteTransactions))

	mux.HandleFunc("GET /api/budget", s.withUser(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.withUser(s.handleUpdateBudget))

	mux.HandleFunc("POST /api/receipts/scan", s.withUser(s.handleScanReceipt))

	mux.HandleFunc("GET /api/dashboard", s.withUser(s.handleDashboard))

	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
