package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/scanner"
	"fintrack/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// validationErrs are client mistakes reported verbatim with a 422.
var validationErrs = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyAccount,
	core.ErrEmptyCategory,
	core.ErrEmptyName,
	core.ErrInvalidDate,
	core.ErrDescriptionTooLong,
	core.ErrInvalidType,
	core.ErrInvalidStatus,
	core.ErrInvalidInterval,
	core.ErrMissingInterval,
	core.ErrInvalidAccType,
	core.ErrNoIDs,
	core.ErrTooManyIDs,
	scanner.ErrUnsupportedType,
	scanner.ErrFileTooLarge,
	scanner.ErrNotAReceipt,
}

// writeError maps domain errors onto status codes. Anything unrecognized
// is a 500 with a generic body; the detail stays in the server log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case isValidationError(err):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

/* ------------------------------ responses ----------------------------- */

// Money crosses the API as strings to keep amounts exact.

type accountResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Balance          string    `json:"balance"`
	IsDefault        bool      `json:"is_default"`
	TransactionCount int64     `json:"transaction_count,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toAccountResponse(a *core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance.String(),
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAccountSummaryResponse(s storage.AccountSummary) accountResponse {
	out := toAccountResponse(&s.Account)
	out.TransactionCount = s.TransactionCount
	return out
}

type transactionResponse struct {
	ID                uuid.UUID  `json:"id"`
	AccountID         uuid.UUID  `json:"account_id"`
	Type              string     `json:"type"`
	Amount            string     `json:"amount"`
	Description       string     `json:"description,omitempty"`
	Category          string     `json:"category"`
	Date              time.Time  `json:"date"`
	ReceiptURL        string     `json:"receipt_url,omitempty"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurringInterval string     `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time `json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time `json:"last_processed,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toTransactionResponse(t *core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Amount:            t.Amount.String(),
		Description:       t.Description,
		Category:          t.Category,
		Date:              t.Date,
		ReceiptURL:        t.ReceiptURL,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		NextRecurringDate: t.NextRecurringDate,
		LastProcessed:     t.LastProcessed,
		Status:            string(t.Status),
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func toTransactionResponses(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTransactionResponse(&ts[i]))
	}
	return out
}

type budgetResponse struct {
	Amount        string     `json:"amount"`
	LastAlertSent *time.Time `json:"last_alert_sent,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toBudgetResponse(b *core.Budget) budgetResponse {
	return budgetResponse{
		Amount:        b.Amount.String(),
		LastAlertSent: b.LastAlertSent,
		UpdatedAt:     b.UpdatedAt,
	}
}
