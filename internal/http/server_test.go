package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/scanner"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

type stubScanner struct {
	receipt *scanner.Receipt
	err     error
}

func (s *stubScanner) Scan(_ context.Context, data []byte, mimeType string) (*scanner.Receipt, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.receipt, nil
}

func newTestServer(t *testing.T, sc ReceiptScanner) *Server {
	t.Helper()
	store := memory.New()
	return NewServer(":0", Deps{
		Accounts:     services.NewAccountService(store),
		Transactions: services.NewTransactionService(store, nil),
		Budget:       services.NewBudgetService(store),
		Dashboard:    services.NewDashboardService(store),
		Scanner:      sc,
	})
}

func doRequest(t *testing.T, srv *Server, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != uuid.Nil {
		req.Header.Set(UserHeader, userID.String())
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodGet, "/healthz", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodGet, "/api/accounts", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set(UserHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()

	rec := doRequest(t, srv, http.MethodPost, "/api/accounts", userID, map[string]any{
		"name": "Checking", "type": "CURRENT", "balance": "150.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeResponse[accountResponse](t, rec)
	assert.Equal(t, "150.5", created.Balance)
	assert.True(t, created.IsDefault, "first account becomes default")

	rec = doRequest(t, srv, http.MethodGet, "/api/accounts", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeResponse[[]accountResponse](t, rec)
	require.Len(t, list, 1)

	rec = doRequest(t, srv, http.MethodGet, "/api/accounts/"+created.ID.String(), userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another user cannot see it.
	rec = doRequest(t, srv, http.MethodGet, "/api/accounts/"+created.ID.String(), uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing name", map[string]any{"type": "CURRENT"}, http.StatusUnprocessableEntity},
		{"bad type", map[string]any{"name": "X", "type": "OFFSHORE"}, http.StatusUnprocessableEntity},
		{"negative balance", map[string]any{"name": "X", "type": "CURRENT", "balance": "-5"}, http.StatusUnprocessableEntity},
		{"unparseable balance", map[string]any{"name": "X", "type": "CURRENT", "balance": "lots"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/accounts", userID, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func createTestAccount(t *testing.T, srv *Server, userID uuid.UUID, balance string) accountResponse {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/api/accounts", userID, map[string]any{
		"name": "Checking", "type": "CURRENT", "balance": balance,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeResponse[accountResponse](t, rec)
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()
	acc := createTestAccount(t, srv, userID, "100")

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions", userID, map[string]any{
		"type":       "EXPENSE",
		"account_id": acc.ID.String(),
		"amount":     "30",
		"category":   "groceries",
		"date":       "2026-03-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeResponse[transactionResponse](t, rec)
	assert.Equal(t, "30", created.Amount)
	assert.Equal(t, "PENDING", created.Status)

	// Balance moved.
	rec = doRequest(t, srv, http.MethodGet, "/api/accounts/"+acc.ID.String(), userID, nil)
	got := decodeResponse[accountResponse](t, rec)
	assert.Equal(t, "70", got.Balance)

	// Update the amount; balance reconciles.
	rec = doRequest(t, srv, http.MethodPut, "/api/transactions/"+created.ID.String(), userID, map[string]any{
		"type":       "EXPENSE",
		"account_id": acc.ID.String(),
		"amount":     "50",
		"date":       "2026-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeResponse[transactionResponse](t, rec)
	assert.Equal(t, "50", updated.Amount)
	assert.Equal(t, "groceries", updated.Category, "absent optional field keeps original")

	rec = doRequest(t, srv, http.MethodGet, "/api/accounts/"+acc.ID.String(), userID, nil)
	got = decodeResponse[accountResponse](t, rec)
	assert.Equal(t, "50", got.Balance)

	// Delete restores the balance.
	rec = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+created.ID.String(), userID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/accounts/"+acc.ID.String(), userID, nil)
	got = decodeResponse[accountResponse](t, rec)
	assert.Equal(t, "100", got.Balance)

	rec = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+created.ID.String(), userID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()
	acc := createTestAccount(t, srv, userID, "100")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"zero amount", map[string]any{
			"type": "EXPENSE", "account_id": acc.ID.String(), "amount": "0",
			"category": "groceries", "date": "2026-03-10",
		}, http.StatusUnprocessableEntity},
		{"bad type", map[string]any{
			"type": "TRANSFER", "account_id": acc.ID.String(), "amount": "10",
			"category": "groceries", "date": "2026-03-10",
		}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{
			"type": "EXPENSE", "account_id": acc.ID.String(), "amount": "10",
			"category": "groceries", "date": "soon",
		}, http.StatusUnprocessableEntity},
		{"recurring without interval", map[string]any{
			"type": "EXPENSE", "account_id": acc.ID.String(), "amount": "10",
			"category": "groceries", "date": "2026-03-10", "is_recurring": true,
		}, http.StatusUnprocessableEntity},
		{"unknown account", map[string]any{
			"type": "EXPENSE", "account_id": uuid.NewString(), "amount": "10",
			"category": "groceries", "date": "2026-03-10",
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/transactions", userID, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestBulkDeleteEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()
	acc := createTestAccount(t, srv, userID, "100")

	var ids []string
	for i := 0; i < 3; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/api/transactions", userID, map[string]any{
			"type": "EXPENSE", "account_id": acc.ID.String(), "amount": "10",
			"category": "groceries", "date": "2026-03-10",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodeResponse[transactionResponse](t, rec).ID.String())
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions/bulk-delete", userID, map[string]any{"ids": ids})
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, "/api/accounts/"+acc.ID.String(), userID, nil)
	assert.Equal(t, "100", decodeResponse[accountResponse](t, rec).Balance)

	rec = doRequest(t, srv, http.MethodPost, "/api/transactions/bulk-delete", userID, map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListTransactionsFilters(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()
	acc := createTestAccount(t, srv, userID, "1000")

	for i := 1; i <= 3; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/api/transactions", userID, map[string]any{
			"type": "EXPENSE", "account_id": acc.ID.String(), "amount": fmt.Sprintf("%d", i*10),
			"category": "groceries", "date": fmt.Sprintf("2026-03-%02d", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/transactions", userID, map[string]any{
		"type": "INCOME", "account_id": acc.ID.String(), "amount": "500",
		"category": "salary", "date": "2026-03-25",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?type=EXPENSE", userID, nil)
	assert.Len(t, decodeResponse[[]transactionResponse](t, rec), 3)

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?category=salary", userID, nil)
	assert.Len(t, decodeResponse[[]transactionResponse](t, rec), 1)

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?from=2026-03-02&to=2026-03-03", userID, nil)
	assert.Len(t, decodeResponse[[]transactionResponse](t, rec), 2)

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?page=1&page_size=2", userID, nil)
	list := decodeResponse[[]transactionResponse](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "500", list[0].Amount, "newest first")

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?type=SIDEWAYS", userID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBudgetEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()
	acc := createTestAccount(t, srv, userID, "100")

	rec := doRequest(t, srv, http.MethodGet, "/api/budget?account_id="+acc.ID.String(), userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ov := decodeResponse[budgetOverviewResponse](t, rec)
	assert.Nil(t, ov.Budget)
	assert.Equal(t, "0", ov.CurrentExpenses)

	rec = doRequest(t, srv, http.MethodPut, "/api/budget", userID, map[string]any{"amount": "500"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "500", decodeResponse[budgetResponse](t, rec).Amount)

	rec = doRequest(t, srv, http.MethodPut, "/api/budget", userID, map[string]any{"amount": "-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/budget?account_id="+acc.ID.String(), userID, nil)
	ov = decodeResponse[budgetOverviewResponse](t, rec)
	require.NotNil(t, ov.Budget)
	assert.Equal(t, "500", ov.Budget.Amount)
}

func TestDashboardEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	userID := uuid.New()
	acc := createTestAccount(t, srv, userID, "100")

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions", userID, map[string]any{
		"type": "EXPENSE", "account_id": acc.ID.String(), "amount": "10",
		"category": "groceries", "date": time.Now().UTC().Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, srv, http.MethodPut, "/api/budget", userID, map[string]any{"amount": "500"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/dashboard", userID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dash := decodeResponse[dashboardResponse](t, rec)
	require.Len(t, dash.Accounts, 1)
	assert.Equal(t, "90", dash.Accounts[0].Balance)
	require.Len(t, dash.RecentTransactions, 1)
	require.NotNil(t, dash.Budget)
	assert.Equal(t, "10", dash.CurrentExpenses)
}

func TestScanReceiptEndpoint(t *testing.T) {
	receipt := &scanner.Receipt{
		Amount:       decimal.RequireFromString("42.50"),
		Date:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Description:  "Weekly shop",
		MerchantName: "Esselunga",
		Category:     "groceries",
	}
	srv := newTestServer(t, &stubScanner{receipt: receipt})
	userID := uuid.New()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "receipt.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(UserHeader, userID.String())
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeResponse[scanResponse](t, rec)
	assert.Equal(t, "42.5", out.Amount)
	assert.Equal(t, "groceries", out.Category)
}

func TestScanReceiptUnavailableWithoutScanner(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/receipts/scan", uuid.New(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
