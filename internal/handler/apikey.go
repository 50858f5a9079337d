package handler

import (
	"log/slog"
	"net/http"

	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(accounts *service.AccountService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{accounts: accounts, logger: logger}
}

// Issue handles POST /me/api-key. The plaintext key appears in this response only.
func (h *APIKeyHandler) Issue(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal(w, r)
	if !ok {
		return
	}
	resp, err := h.accounts.IssueAPIKey(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Revoke handles DELETE /me/api-key. Revoking with no active key still returns 204.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal(w, r)
	if !ok {
		return
	}
	if _, err := h.accounts.RevokeAPIKey(r.Context(), userID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /me/api-key.
func (h *APIKeyHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal(w, r)
	if !ok {
		return
	}
	has, err := h.accounts.APIKeyStatus(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.APIKeyStatusResponse{HasAPIKey: has})
}
