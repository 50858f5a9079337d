// Package model defines domain entities for the application.
package model

import "time"

// Tier is a coarse authorization level gating operations.
type Tier string

// Tier constants.
const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Allows reports whether a user on tier t may use an operation requiring required.
func (t Tier) Allows(required Tier) bool {
	switch required {
	case TierStandard, "":
		return true
	case TierPremium:
		return t == TierPremium
	default:
		return false
	}
}

// CredentialMethod identifies how a request was authenticated.
type CredentialMethod string

// Credential methods.
const (
	MethodAPIKey CredentialMethod = "api_key"
	MethodBearer CredentialMethod = "bearer"
)

// AuthContext holds the authenticated principal for a request.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID int64
	Method CredentialMethod
}

// APIKeyIssueResponse includes the plaintext key (shown only once).
type APIKeyIssueResponse struct {
	Key       string    `json:"api_key"` // Plaintext - display once only!
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// APIKeyStatusResponse reports whether a key is active without exposing it.
type APIKeyStatusResponse struct {
	HasAPIKey bool `json:"has_api_key"`
}
