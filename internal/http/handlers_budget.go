package http

import (
	"net/http"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type budgetOverviewResponse struct {
	Budget          *budgetResponse `json:"budget"`
	CurrentExpenses string          `json:"current_expenses"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "account_id is required")
		return
	}

	ov, err := s.budget.Overview(r.Context(), userFromContext(r.Context()), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := budgetOverviewResponse{CurrentExpenses: ov.CurrentExpenses.String()}
	if ov.Budget != nil {
		b := toBudgetResponse(ov.Budget)
		out.Budget = &b
	}
	writeJSON(w, http.StatusOK, out)
}

type updateBudgetRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req updateBudgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.budget.Update(r.Context(), userFromContext(r.Context()), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}
