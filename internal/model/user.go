// Package model defines domain entities for the application.
package model

import "time"

// User is an account record. PasswordHash and APIKeyHash never leave the server.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Premium      bool      `json:"premium"`
	BillingRef   *string   `json:"-"`
	APIKeyHash   *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasAPIKey reports whether the user currently has an active API key.
func (u *User) HasAPIKey() bool {
	return u.APIKeyHash != nil && *u.APIKeyHash != ""
}

// Tier returns the plan tier the user is on.
func (u *User) Tier() Tier {
	if u.Premium {
		return TierPremium
	}
	return TierStandard
}

// Public strips secret-bearing fields.
func (u *User) Public() *User {
	return &User{
		ID:         u.ID,
		Email:      u.Email,
		Premium:    u.Premium,
		BillingRef: u.BillingRef,
		CreatedAt:  u.CreatedAt,
	}
}

// UserProfile is the account view returned by GET /me.
type UserProfile struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Premium    bool      `json:"premium"`
	HasBilling bool      `json:"has_billing"`
	HasAPIKey  bool      `json:"has_api_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToProfile converts a User to its profile view.
func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:         u.ID,
		Email:      u.Email,
		Premium:    u.Premium,
		HasBilling: u.BillingRef != nil && *u.BillingRef != "",
		HasAPIKey:  u.HasAPIKey(),
		CreatedAt:  u.CreatedAt,
	}
}

// TokenResponse is returned by registration and login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
