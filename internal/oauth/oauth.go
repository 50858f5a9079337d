// Package oauth implements the authorization-code login flow against an external identity provider.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	// StateCookieName holds the per-login anti-CSRF state.
	StateCookieName = "na_oauth_state"
	// StateTTL bounds how long a login attempt may take.
	StateTTL = 10 * time.Minute

	// DefaultUserInfoURL is the OpenID Connect userinfo endpoint of the default provider.
	DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var (
	// ErrStateMismatch is returned when the callback state does not match the cookie.
	ErrStateMismatch = errors.New("oauth state mismatch")
	// ErrEmailUnavailable is returned when the provider gives no verified email.
	ErrEmailUnavailable = errors.New("verified email not available")
	// ErrExchangeFailed is returned when the authorization code cannot be redeemed.
	ErrExchangeFailed = errors.New("authorization code exchange failed")
)

// Config describes the identity provider client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// Enabled reports whether OAuth login is configured.
func (c Config) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// Provider runs the code exchange and userinfo lookup.
type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewProvider builds a provider, defaulting endpoints to Google.
func NewProvider(cfg Config, httpClient *http.Client) *Provider {
	endpoint := endpoints.Google
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email"}
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		httpClient:  httpClient,
	}
}

// AuthCodeURL returns the provider consent URL for the given state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
}

// Email exchanges the code and returns the account's verified email address.
func (p *Provider) Email(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" || (info.EmailVerified != nil && !*info.EmailVerified) {
		return "", ErrEmailUnavailable
	}
	return strings.TrimSpace(info.Email), nil
}

// NewState returns a random URL-safe state value.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// StateCookie builds the cookie that carries state across the redirect.
func StateCookie(state string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/auth/oauth",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearStateCookie expires the state cookie.
func ClearStateCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/auth/oauth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CheckState compares the callback state against the cookie in constant time.
func CheckState(r *http.Request) error {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return ErrStateMismatch
	}
	got := r.URL.Query().Get("state")
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(cookie.Value)) != 1 {
		return ErrStateMismatch
	}
	return nil
}
