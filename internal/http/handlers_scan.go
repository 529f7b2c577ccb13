package http

import (
	"io"
	"net/http"
	"time"
)

// Multipart form memory limit; larger files spill to disk before the
// scanner's own size check rejects them.
const scanFormMemory = 10 << 20

type scanResponse struct {
	Amount       string    `json:"amount"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	MerchantName string    `json:"merchant_name"`
	Category     string    `json:"category"`
}

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "receipt scanning is not configured")
		return
	}

	if err := r.ParseMultipartForm(scanFormMemory); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "failed to read file")
		return
	}

	receipt, err := s.scanner.Scan(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Amount:       receipt.Amount.String(),
		Date:         receipt.Date,
		Description:  receipt.Description,
		MerchantName: receipt.MerchantName,
		Category:     receipt.Category,
	})
}
