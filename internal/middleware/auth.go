package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/metrics"
	"github.com/numberadder/numberadder/internal/model"
)

// APIKeyHeader carries API keys.
const APIKeyHeader = "X-API-Key"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Resolver *auth.Resolver
	Mode     auth.Mode
	Logger   *slog.Logger
	Metrics  metrics.Recorder
	// MinFailureDuration pads rejected requests so failures take uniform time.
	MinFailureDuration time.Duration
}

// Authenticate resolves the request's credentials and injects the principal
// into the request context. Requests that fail resolution never reach next.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			creds := auth.CredentialsFromHeaders(r.Header.Get(APIKeyHeader), r.Header.Get("Authorization"))

			principal, err := cfg.Resolver.Resolve(r.Context(), cfg.Mode, creds)
			if err != nil {
				reason := "internal_error"
				var resolveErr *auth.ResolveError
				if errors.As(err, &resolveErr) {
					reason = resolveErr.Reason
				}
				recorder.IncAuthAttempt(reason)

				attrs := []any{
					slog.String("reason", reason),
					slog.String("mode", cfg.Mode.String()),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				}
				if resolveErr == nil {
					cfg.Logger.Error("authentication error", append(attrs, slog.String("error", err.Error()))...)
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
					return
				}
				cfg.Logger.Warn("authentication failed", attrs...)

				padFailure(r, cfg.MinFailureDuration-time.Since(start))
				writeAuthError(w, err)
				return
			}

			recorder.IncAuthAttempt(string(principal.Method))
			cfg.Logger.Debug("authentication successful",
				slog.Int64("user_id", principal.UserID),
				slog.String("method", string(principal.Method)),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// padFailure waits for d or until the client goes away.
func padFailure(r *http.Request, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.Context().Done():
	}
}

// writeAuthError writes a 401. The message never says which factor was wrong.
func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="numberadder"`)
	if errors.Is(err, model.ErrAuthenticationRequired) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
}
