package handler

import (
	"log/slog"
	"net/http"

	"github.com/numberadder/numberadder/internal/handler/dto"
	"github.com/numberadder/numberadder/internal/middleware"
	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/service"
)

// CalcHandler exposes the operation gateway.
type CalcHandler struct {
	gateway *service.Gateway
	logger  *slog.Logger
}

// NewCalcHandler creates a new CalcHandler.
func NewCalcHandler(gateway *service.Gateway, logger *slog.Logger) *CalcHandler {
	return &CalcHandler{gateway: gateway, logger: logger}
}

// Perform returns the handler for POST /{kind}.
func (h *CalcHandler) Perform(kind model.OperationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := principal(w, r)
		if !ok {
			return
		}

		var req dto.OperandsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.A == nil || req.B == nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Both a and b are required")
			return
		}
		if err := middleware.ValidateOperands(*req.A, *req.B); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}

		result, err := h.gateway.Perform(r.Context(), userID, kind, *req.A, *req.B)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// History handles GET /history.
func (h *CalcHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal(w, r)
	if !ok {
		return
	}
	calcs, err := h.gateway.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.HistoryResponse{Calculations: calcs})
}

// Operations handles GET /operations.
func (h *CalcHandler) Operations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.OperationsResponse{Operations: h.gateway.Operations()})
}
