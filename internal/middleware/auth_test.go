package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/metrics"
	"github.com/numberadder/numberadder/internal/testutil"
)

type authFixture struct {
	resolver *auth.Resolver
	token    string
	apiKey   string
	userID   int64
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	userID, err := store.CreateUser(ctx, testutil.UniqueEmail("mw"), "hash")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	key, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v", err)
	}
	if _, err := store.SetAPIKeyHash(ctx, userID, &key.Hash); err != nil {
		t.Fatalf("SetAPIKeyHash() error = %v", err)
	}

	tokens, err := auth.NewTokenCodec(auth.TokenConfig{Secret: []byte(testutil.TestJWTSecret)})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	token, _, err := tokens.Issue(userID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	return authFixture{
		resolver: auth.NewResolver(store, tokens, nil, testutil.DiscardLogger()),
		token:    token,
		apiKey:   key.Plaintext,
		userID:   userID,
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	tests := []struct {
		name       string
		mode       auth.Mode
		apiKey     string
		bearer     string
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{name: "flexible api key", mode: auth.ModeFlexible, apiKey: f.apiKey, wantStatus: http.StatusOK},
		{name: "flexible bearer", mode: auth.ModeFlexible, bearer: f.token, wantStatus: http.StatusOK},
		{name: "strict bearer", mode: auth.ModeStrict, bearer: f.token, wantStatus: http.StatusOK},
		{name: "missing", mode: auth.ModeFlexible, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED", wantReason: auth.ReasonMissingCredentials},
		{name: "strict rejects api key", mode: auth.ModeStrict, apiKey: f.apiKey, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED", wantReason: auth.ReasonAPIKeyNotAllowed},
		{name: "bad api key", mode: auth.ModeFlexible, apiKey: "na_nope", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS", wantReason: auth.ReasonInvalidAPIKey},
		{name: "bad token", mode: auth.ModeFlexible, bearer: "x.y.z", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS", wantReason: auth.ReasonInvalidToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			recorder := metrics.NewInMemory()
			var gotUser int64
			handler := Authenticate(AuthConfig{
				Resolver: f.resolver,
				Mode:     tt.mode,
				Logger:   slog.New(slog.NewJSONHandler(&logs, nil)),
				Metrics:  recorder,
			})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = auth.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if gotUser != f.userID {
					t.Errorf("principal user = %d, want %d", gotUser, f.userID)
				}
				return
			}

			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
			if !strings.Contains(logs.String(), `"reason":"`+tt.wantReason+`"`) {
				t.Errorf("log missing reason %q: %s", tt.wantReason, logs.String())
			}
			if tt.apiKey != "" && strings.Contains(logs.String(), tt.apiKey) {
				t.Error("log contains the presented api key")
			}
			if recorder.Snapshot().AuthAttempts[tt.wantReason] != 1 {
				t.Errorf("auth attempts = %v", recorder.Snapshot().AuthAttempts)
			}
		})
	}
}

func TestAuthenticate_FailurePadding(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		pad      time.Duration
		cancel   bool
		minTotal time.Duration
		maxTotal time.Duration
	}{
		{name: "padded", pad: 50 * time.Millisecond, minTotal: 50 * time.Millisecond, maxTotal: 5 * time.Second},
		{name: "client gone", pad: 10 * time.Second, cancel: true, maxTotal: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := Authenticate(AuthConfig{
				Resolver:           f.resolver,
				Mode:               auth.ModeFlexible,
				Logger:             testutil.DiscardLogger(),
				MinFailureDuration: tt.pad,
			})(next)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}
			req := httptest.NewRequest(http.MethodGet, "/add", nil).WithContext(ctx)
			req.Header.Set("Authorization", "Bearer not-a-token")
			rec := httptest.NewRecorder()

			start := time.Now()
			handler.ServeHTTP(rec, req)
			elapsed := time.Since(start)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if elapsed < tt.minTotal || elapsed > tt.maxTotal {
				t.Errorf("elapsed = %s, want between %s and %s", elapsed, tt.minTotal, tt.maxTotal)
			}
		})
	}
}
