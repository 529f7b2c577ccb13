package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// UserHeader is set by the upstream gateway after authentication.
const UserHeader = "X-User-ID"

// withUser logs the request and resolves the authenticated user. Requests
// without a valid user header are rejected before reaching the handler.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		userID, err := uuid.Parse(r.Header.Get(UserHeader))
		if err != nil || userID == uuid.Nil {
			slog.InfoContext(ctx, "Request rejected: missing or invalid user",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path)
			writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx = context.WithValue(ctx, userIDKey, userID)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(rw, r.WithContext(ctx))

		slog.InfoContext(ctx, "HTTP request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func userFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
