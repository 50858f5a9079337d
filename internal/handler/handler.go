// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/billing"
	"github.com/numberadder/numberadder/internal/handler/dto"
	"github.com/numberadder/numberadder/internal/middleware"
	"github.com/numberadder/numberadder/internal/model"
)

// Handler serves the service-level endpoints.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	return &Handler{version: version}
}

// Info describes the service.
// GET /
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.InfoResponse{Name: "numberadder", Version: h.version})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: dto.ErrorBody{Code: code, Message: message}})
}

// decodeJSON reads a single JSON object from the body. It writes the error
// response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	if _, err := dec.Token(); err != io.EOF {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be a single JSON object")
		return false
	}
	return true
}

// principal returns the authenticated user id, writing a 401 if absent.
func principal(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	}
	return userID, ok
}

// writeServiceError maps domain errors to HTTP responses. Anything unknown
// is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var providerErr *billing.APIError
	switch {
	case errors.Is(err, model.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, model.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, model.ErrAuthenticationRequired):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, model.ErrInsufficientPlan):
		writeError(w, http.StatusForbidden, "PREMIUM_REQUIRED", "This operation requires a premium plan")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, model.ErrUnsupportedOperation):
		writeError(w, http.StatusBadRequest, "UNSUPPORTED_OPERATION", "Unsupported operation")
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Operands and result must be finite numbers")
	case errors.Is(err, billing.ErrAlreadyPremium):
		writeError(w, http.StatusConflict, "ALREADY_PREMIUM", "Account is already premium")
	case errors.Is(err, billing.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "BILLING_UNAVAILABLE", "Billing is not configured")
	case errors.Is(err, billing.ErrInvalidSignature),
		errors.Is(err, billing.ErrMalformedHeader),
		errors.Is(err, billing.ErrReplayWindowExceeded):
		writeError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid webhook signature")
	case errors.Is(err, billing.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid webhook payload")
	case errors.As(err, &providerErr):
		logger.Error("billing provider error",
			slog.Int("status", providerErr.StatusCode),
			slog.String("type", providerErr.Type),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusBadGateway, "BILLING_PROVIDER_ERROR", "Payment provider request failed")
	default:
		logger.Error("internal error",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
