package http

import (
	"net/http"
)

type dashboardResponse struct {
	Accounts           []accountResponse     `json:"accounts"`
	RecentTransactions []transactionResponse `json:"recent_transactions"`
	Budget             *budgetResponse       `json:"budget"`
	CurrentExpenses    string                `json:"current_expenses"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ov, err := s.dashboard.Overview(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := dashboardResponse{
		Accounts:           make([]accountResponse, 0, len(ov.Accounts)),
		RecentTransactions: toTransactionResponses(ov.RecentTransactions),
		CurrentExpenses:    ov.CurrentExpenses.String(),
	}
	for _, a := range ov.Accounts {
		out.Accounts = append(out.Accounts, toAccountSummaryResponse(a))
	}
	if ov.Budget != nil {
		b := toBudgetResponse(ov.Budget)
		out.Budget = &b
	}
	writeJSON(w, http.StatusOK, out)
}
