package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/numberadder/numberadder/internal/billing"
	"github.com/numberadder/numberadder/internal/handler/dto"
)

// maxWebhookBody bounds provider event payloads.
const maxWebhookBody = 64 << 10

// BillingHandler serves checkout and provider webhooks.
type BillingHandler struct {
	billing *billing.Service
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc *billing.Service, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{billing: svc, logger: logger}
}

// Checkout handles POST /billing/checkout.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := principal(w, r)
	if !ok {
		return
	}
	session, err := h.billing.StartCheckout(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CheckoutResponse{CheckoutURL: session.URL, SessionID: session.ID})
}

// Webhook handles POST /billing/webhook. The signature covers the raw body.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Could not read request body")
		return
	}
	if len(payload) > maxWebhookBody {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		return
	}

	eventType, err := h.billing.HandleWebhook(r.Context(), payload, r.Header.Get(billing.SignatureHeader))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WebhookResponse{Received: true, Type: eventType})
}
