package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type transactionRequest struct {
	Type              string  `json:"type"`
	AccountID         string  `json:"account_id"`
	Amount            string  `json:"amount"`
	Description       *string `json:"description"`
	Category          *string `json:"category"`
	Date              string  `json:"date"`
	ReceiptURL        *string `json:"receipt_url"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurringInterval string  `json:"recurring_interval"`
	Status            *string `json:"status"`
}

func (req *transactionRequest) parseCommon() (accountID uuid.UUID, amount decimal.Decimal, date time.Time, err error) {
	accountID, err = uuid.Parse(req.AccountID)
	if err != nil {
		err = core.ErrEmptyAccount
		return
	}
	amount, err = core.ParseAmount(req.Amount)
	if err != nil {
		return
	}
	date, err = parseDate(req.Date)
	return
}

// parseDate accepts RFC3339 or bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.ErrInvalidDate
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	accountID, amount, date, err := req.parseCommon()
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := services.CreateTransactionInput{
		Type:              core.TransactionType(req.Type),
		AccountID:         accountID,
		Amount:            amount,
		Date:              date,
		IsRecurring:       req.IsRecurring,
		RecurringInterval: core.RecurringInterval(req.RecurringInterval),
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.ReceiptURL != nil {
		in.ReceiptURL = *req.ReceiptURL
	}
	if req.Status != nil {
		in.Status = core.TransactionStatus(*req.Status)
	}

	tx, err := s.transactions.Create(r.Context(), userFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}

	tx, err := s.transactions.Get(r.Context(), userFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	accountID, amount, date, err := req.parseCommon()
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := services.UpdateTransactionInput{
		Type:              core.TransactionType(req.Type),
		AccountID:         accountID,
		Amount:            amount,
		Date:              date,
		IsRecurring:       req.IsRecurring,
		RecurringInterval: core.RecurringInterval(req.RecurringInterval),
		Description:       req.Description,
		Category:          req.Category,
		ReceiptURL:        req.ReceiptURL,
	}
	if req.Status != nil {
		status := core.TransactionStatus(*req.Status)
		in.Status = &status
	}

	tx, err := s.transactions.Update(r.Context(), userFromContext(r.Context()), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}

	if err := s.transactions.Delete(r.Context(), userFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.transactions.BulkDelete(r.Context(), userFromContext(r.Context()), req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f := storage.TransactionFilter{UserID: userFromContext(r.Context())}
	q := r.URL.Query()

	if v := q.Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid account_id")
			return
		}
		f.AccountID = &id
	}
	if v := q.Get("type"); v != "" {
		typ := core.TransactionType(v)
		if !typ.Valid() {
			writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid type")
			return
		}
		f.Type = &typ
	}
	if v := q.Get("status"); v != "" {
		status := core.TransactionStatus(v)
		if !status.Valid() {
			writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid status")
			return
		}
		f.Status = &status
	}
	f.Category = q.Get("category")
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.To = &t
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Page = n
		}
	}
	if v := q.Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.PageSize = n
		}
	}

	list, err := s.transactions.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(list))
}
