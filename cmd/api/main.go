// Package main is the entrypoint for the numberadder API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/numberadder/numberadder/internal/analytics"
	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/billing"
	"github.com/numberadder/numberadder/internal/cache"
	"github.com/numberadder/numberadder/internal/config"
	"github.com/numberadder/numberadder/internal/handler"
	"github.com/numberadder/numberadder/internal/metrics"
	"github.com/numberadder/numberadder/internal/middleware"
	"github.com/numberadder/numberadder/internal/oauth"
	"github.com/numberadder/numberadder/internal/repository/backend"
	"github.com/numberadder/numberadder/internal/server"
	"github.com/numberadder/numberadder/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	store, err := backend.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error(
			"failed to open database",
			slog.String("driver", cfg.DatabaseDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("connected to database", "driver", cfg.DatabaseDriver)

	var recorder metrics.Recorder = metrics.NewNoop()
	var prom *metrics.PrometheusRecorder
	if cfg.MetricsEnabled {
		prom = metrics.NewPrometheus()
		recorder = prom
	}

	// Redis is optional. Interfaces stay untyped nil when it is absent.
	var (
		cacheClient *cache.Cache
		keyCache    auth.KeyCache
		keys        service.KeyInvalidator
		healthCache handler.HealthChecker
		events      analytics.EventPublisher = analytics.NoopPublisher{}
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cfg.APIKeyCacheTTL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer cacheClient.Close()
		keyCache, keys, healthCache = cacheClient, cacheClient, cacheClient
		events = analytics.NewPublisher(cacheClient.Client(), logger, recorder)
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set; API-key cache and analytics disabled")
	}

	tokens, err := auth.NewTokenCodec(cfg.TokenConfig())
	if err != nil {
		logger.Error("failed to create token codec", "error", err)
		os.Exit(1)
	}

	// Services
	resolver := auth.NewResolver(store, tokens, keyCache, logger)
	accounts := service.NewAccountService(store, tokens, keys, events, logger, recorder)
	gateway := service.NewGateway(store, events, logger, recorder)

	billingCfg := cfg.BillingConfig()
	var provider billing.Provider
	if billingCfg.Enabled() {
		provider = billing.NewClient(billingCfg, billing.NewHTTPClient())
	} else {
		logger.Info("billing checkout disabled")
	}
	billingService := billing.NewService(provider, accounts, billingCfg.WebhookSecret, logger)

	var oauthHandler *handler.OAuthHandler
	if oauthCfg := cfg.OAuthConfig(); oauthCfg.Enabled() {
		oauthHandler = handler.NewOAuthHandler(oauth.NewProvider(oauthCfg, nil), accounts, !cfg.IsDevelopment(), logger)
		logger.Info("oauth login enabled")
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	routerCfg := handler.RouterConfig{
		Logger:             logger,
		Metrics:            recorder,
		Resolver:           resolver,
		Info:               handler.New(version),
		Health:             handler.NewHealthHandler(store, healthCache),
		Accounts:           handler.NewAccountHandler(accounts, logger),
		Calc:               handler.NewCalcHandler(gateway, logger),
		APIKeys:            handler.NewAPIKeyHandler(accounts, logger),
		Billing:            handler.NewBillingHandler(billingService, logger),
		OAuth:              oauthHandler,
		Security:           middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:               corsCfg,
		MaxBodySize:        cfg.MaxRequestBodySize,
		MinFailureDuration: cfg.AuthFailureDelay,
	}
	if prom != nil {
		routerCfg.MetricsHandler = prom.Handler()
	}

	srv := server.New(handler.NewRouter(routerCfg), server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if cfg.AnalyticsEnabled() {
		worker := analytics.NewWorker(
			cacheClient.Client(),
			analytics.NewHTTPSink(cfg.AnalyticsSinkConfig()),
			logger,
			analytics.NewConsumerID(),
			recorder,
		)
		worker.SetBatchSize(cfg.AnalyticsBatchSize)
		worker.SetBlockTimeout(cfg.AnalyticsBlockTimeout)
		srv.Go("analytics-worker", worker.Run)
		srv.OnShutdown("analytics-worker", worker.Shutdown)
		logger.Info("analytics forwarding enabled", "host", config.EndpointHost(cfg.AnalyticsEndpoint))
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"version", version,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "numberadder")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
