package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type createAccountRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	IsDefault bool   `json:"is_default"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		balance, err = decimal.NewFromString(req.Balance)
		if err != nil {
			writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid balance")
			return
		}
	}

	a, err := s.accounts.Create(r.Context(), userFromContext(r.Context()), services.CreateAccountInput{
		Name:      req.Name,
		Type:      core.AccountType(req.Type),
		Balance:   balance,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.accounts.List(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, toAccountSummaryResponse(sum))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}

	a, transactions, err := s.accounts.GetWithTransactions(r.Context(), userFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		accountResponse
		Transactions []transactionResponse `json:"transactions"`
	}{
		accountResponse: toAccountResponse(a),
		Transactions:    toTransactionResponses(transactions),
	})
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}

	a, err := s.accounts.SetDefault(r.Context(), userFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}
