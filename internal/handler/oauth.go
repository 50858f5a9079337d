package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/numberadder/numberadder/internal/oauth"
	"github.com/numberadder/numberadder/internal/service"
)

// OAuthHandler runs the identity-provider login flow.
type OAuthHandler struct {
	provider      *oauth.Provider
	accounts      *service.AccountService
	secureCookies bool
	logger        *slog.Logger
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(provider *oauth.Provider, accounts *service.AccountService, secureCookies bool, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider:      provider,
		accounts:      accounts,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Login handles GET /auth/oauth/login by redirecting to the provider.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := oauth.NewState()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	http.SetCookie(w, oauth.StateCookie(state, h.secureCookies))
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /auth/oauth/callback and returns a bearer token.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, oauth.ClearStateCookie(h.secureCookies))

	if err := oauth.CheckState(r); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_STATE", "Login state mismatch")
		return
	}
	q := r.URL.Query()
	if q.Get("error") != "" {
		writeError(w, http.StatusBadRequest, "OAUTH_DENIED", "Login was not authorized")
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Missing authorization code")
		return
	}

	email, err := h.provider.Email(r.Context(), code)
	switch {
	case errors.Is(err, oauth.ErrEmailUnavailable):
		writeError(w, http.StatusBadRequest, "EMAIL_UNAVAILABLE", "Identity provider did not return a verified email")
		return
	case errors.Is(err, oauth.ErrExchangeFailed):
		h.logger.Warn("oauth code exchange failed", slog.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Authorization code rejected")
		return
	case err != nil:
		h.logger.Error("oauth userinfo failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "OAUTH_PROVIDER_ERROR", "Identity provider request failed")
		return
	}

	session, err := h.accounts.LoginOAuth(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
