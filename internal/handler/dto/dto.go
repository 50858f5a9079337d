// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/service"
)

// CredentialsRequest is the body of /register and /login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OperandsRequest is the body of an operation call. Both operands are required.
type OperandsRequest struct {
	A *float64 `json:"a"`
	B *float64 `json:"b"`
}

// HistoryResponse lists calculations newest first.
type HistoryResponse struct {
	Calculations []model.Calculation `json:"calculations"`
}

// OperationsResponse lists available operations.
type OperationsResponse struct {
	Operations []service.OperationInfo `json:"operations"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// CheckoutResponse points the client at the hosted checkout page.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// WebhookResponse acknowledges a billing event.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Type     string `json:"type"`
}

// ErrorBody is the inner error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// InfoResponse describes the service at GET /.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
