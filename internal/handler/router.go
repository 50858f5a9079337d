package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/metrics"
	"github.com/numberadder/numberadder/internal/middleware"
	"github.com/numberadder/numberadder/internal/model"
)

// RouterConfig collects everything the route table needs.
type RouterConfig struct {
	Logger   *slog.Logger
	Metrics  metrics.Recorder
	Resolver *auth.Resolver

	Info     *Handler
	Health   *HealthHandler
	Accounts *AccountHandler
	Calc     *CalcHandler
	APIKeys  *APIKeyHandler
	Billing  *BillingHandler
	// OAuth is nil when no identity provider is configured.
	OAuth *OAuthHandler
	// MetricsHandler is nil when metrics are disabled.
	MetricsHandler http.Handler

	Security           middleware.SecurityConfig
	CORS               middleware.CORSConfig
	MaxBodySize        int64
	MinFailureDuration time.Duration
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodySize
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, recorder))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(maxBody))

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/health", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/", cfg.Info.Info)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/register", cfg.Accounts.Register)
	r.Post("/login", cfg.Accounts.Login)
	r.Post("/billing/webhook", cfg.Billing.Webhook)

	if cfg.OAuth != nil {
		r.Route("/auth/oauth", func(r chi.Router) {
			r.Get("/login", cfg.OAuth.Login)
			r.Get("/callback", cfg.OAuth.Callback)
		})
	}

	authFor := func(mode auth.Mode) func(http.Handler) http.Handler {
		return middleware.Authenticate(middleware.AuthConfig{
			Resolver:           cfg.Resolver,
			Mode:               mode,
			Logger:             cfg.Logger,
			Metrics:            recorder,
			MinFailureDuration: cfg.MinFailureDuration,
		})
	}

	// API key or bearer token.
	r.Group(func(r chi.Router) {
		r.Use(authFor(auth.ModeFlexible))

		r.Post("/add", cfg.Calc.Perform(model.OpAdd))
		r.Post("/multiply", cfg.Calc.Perform(model.OpMultiply))
		r.Get("/operations", cfg.Calc.Operations)
		r.Get("/history", cfg.Calc.History)

		r.Get("/me", cfg.Accounts.Me)
		r.Get("/me/export", cfg.Accounts.Export)
		r.Delete("/me", cfg.Accounts.Erase)
		r.Get("/me/api-key", cfg.APIKeys.Status)
	})

	// Bearer token only: an API key cannot mint or revoke keys or start payments.
	r.Group(func(r chi.Router) {
		r.Use(authFor(auth.ModeStrict))

		r.Post("/me/api-key", cfg.APIKeys.Issue)
		r.Delete("/me/api-key", cfg.APIKeys.Revoke)
		r.Post("/billing/checkout", cfg.Billing.Checkout)
	})

	r.NotFound(cfg.Info.NotFound)
	r.MethodNotAllowed(cfg.Info.MethodNotAllowed)

	return r
}
