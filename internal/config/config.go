// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/numberadder/numberadder/internal/analytics"
	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/billing"
	"github.com/numberadder/numberadder/internal/oauth"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// MinProductionSecretLength is the shortest JWT_SECRET accepted in production.
const MinProductionSecretLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Storage. For sqlite DATABASE_URL is a file path.
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL,required"`

	// Cache (Redis). Optional: without it API keys are not cached and analytics is disabled.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://*.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Authentication
	JWTSecret        string        `env:"JWT_SECRET,required,unset"`
	TokenTTL         time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	TokenIssuer      string        `env:"TOKEN_ISSUER" envDefault:"numberadder"`
	APIKeyCacheTTL   time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"1m"`
	AuthFailureDelay time.Duration `env:"AUTH_FAILURE_DELAY" envDefault:"50ms"`

	// Billing (Stripe-compatible)
	BillingSecretKey     string `env:"BILLING_SECRET_KEY,unset"`
	BillingWebhookSecret string `env:"BILLING_WEBHOOK_SECRET,unset"`
	BillingPriceID       string `env:"BILLING_PRICE_ID"`
	BillingSuccessURL    string `env:"BILLING_SUCCESS_URL"`
	BillingCancelURL     string `env:"BILLING_CANCEL_URL"`
	BillingAPIBaseURL    string `env:"BILLING_API_BASE_URL"`

	// Analytics forwarding. The worker only runs when both Redis and an endpoint are set.
	AnalyticsEndpoint     string        `env:"ANALYTICS_ENDPOINT"`
	AnalyticsAPIKey       string        `env:"ANALYTICS_API_KEY,unset"`
	AnalyticsBatchSize    int           `env:"ANALYTICS_BATCH_SIZE" envDefault:"50"`
	AnalyticsBlockTimeout time.Duration `env:"ANALYTICS_BLOCK_TIMEOUT" envDefault:"5s"`

	// OAuth login
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET,unset"`
	OAuthRedirectURL  string `env:"OAUTH_REDIRECT_URL"`
	OAuthAuthURL      string `env:"OAUTH_AUTH_URL"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL"`
	OAuthUserInfoURL  string `env:"OAUTH_USERINFO_URL"`

	// Metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// TokenConfig returns the bearer token codec settings.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret: []byte(c.JWTSecret),
		TTL:    c.TokenTTL,
		Issuer: c.TokenIssuer,
	}
}

func (c *Config) baseURL(path string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + path
}

// BillingConfig returns provider settings. Redirect URLs default to pages under BASE_URL.
func (c *Config) BillingConfig() billing.Config {
	cfg := billing.Config{
		SecretKey:     c.BillingSecretKey,
		WebhookSecret: c.BillingWebhookSecret,
		PriceID:       c.BillingPriceID,
		SuccessURL:    c.BillingSuccessURL,
		CancelURL:     c.BillingCancelURL,
		BaseURL:       c.BillingAPIBaseURL,
	}
	if cfg.SuccessURL == "" {
		cfg.SuccessURL = c.baseURL("/billing/success")
	}
	if cfg.CancelURL == "" {
		cfg.CancelURL = c.baseURL("/billing/cancel")
	}
	return cfg
}

// AnalyticsSinkConfig returns the capture endpoint settings.
func (c *Config) AnalyticsSinkConfig() analytics.SinkConfig {
	return analytics.SinkConfig{
		Endpoint: c.AnalyticsEndpoint,
		APIKey:   c.AnalyticsAPIKey,
	}
}

// AnalyticsEnabled reports whether the forwarding worker should run.
func (c *Config) AnalyticsEnabled() bool {
	return c.RedisURL != "" && c.AnalyticsEndpoint != ""
}

// OAuthConfig returns identity provider settings.
func (c *Config) OAuthConfig() oauth.Config {
	cfg := oauth.Config{
		ClientID:     c.OAuthClientID,
		ClientSecret: c.OAuthClientSecret,
		RedirectURL:  c.OAuthRedirectURL,
		AuthURL:      c.OAuthAuthURL,
		TokenURL:     c.OAuthTokenURL,
		UserInfoURL:  c.OAuthUserInfoURL,
	}
	if cfg.ClientID != "" && cfg.RedirectURL == "" {
		cfg.RedirectURL = c.baseURL("/auth/oauth/callback")
	}
	return cfg
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverPostgres:
		u, err := url.Parse(c.DatabaseURL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, errors.New("DATABASE_URL must be a postgres:// URL for the postgres driver"))
		}
	case DriverSQLite:
		if strings.Contains(c.DatabaseURL, "://") {
			errs = append(errs, errors.New("DATABASE_URL must be a file path for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	if c.IsProduction() && len(c.JWTSecret) < MinProductionSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", MinProductionSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	if c.IsProduction() {
		for name, raw := range c.outboundEndpoints() {
			if err := ValidateOutboundURL(raw); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	if c.OAuthClientID != "" && c.OAuthClientSecret == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_SECRET is required when OAUTH_CLIENT_ID is set"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
