package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[int64]*model.User
	lookups int
	failAll error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*model.User)}
}

func (f *fakeUsers) add(id int64, keyHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{ID: id, Email: "u@example.com"}
	if keyHash != "" {
		h := keyHash
		u.APIKeyHash = &h
	}
	f.byID[id] = u
}

func (f *fakeUsers) FindUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindUserByAPIKeyHash(_ context.Context, hash string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, u := range f.byID {
		if u.APIKeyHash != nil && *u.APIKeyHash == hash {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type fakeKeyCache struct {
	mu      sync.Mutex
	entries map[string]int64
}

func (c *fakeKeyCache) LookupKey(_ context.Context, hash string) (int64, KeyCacheState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[hash]
	switch {
	case !ok:
		return 0, KeyCacheMiss, nil
	case id == 0:
		return 0, KeyCacheRevoked, nil
	default:
		return id, KeyCacheHit, nil
	}
}

func (c *fakeKeyCache) RememberKey(_ context.Context, hash string, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[hash]; !ok {
		c.entries[hash] = userID
	}
	return nil
}

func (c *fakeKeyCache) ForgetKey(_ context.Context, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = 0
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCredentialsFromHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		authz string
		want  Credentials
	}{
		{"none", "", "", Credentials{}},
		{"bearer", "", "Bearer abc", Credentials{BearerToken: "abc"}},
		{"lowercase scheme", "", "bearer abc", Credentials{BearerToken: "abc"}},
		{"basic ignored", "", "Basic Zm9vOmJhcg==", Credentials{}},
		{"api key", " na_x ", "", Credentials{APIKey: "na_x"}},
		{"both", "na_x", "Bearer t", Credentials{APIKey: "na_x", BearerToken: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := CredentialsFromHeaders(tt.key, tt.authz); got != tt.want {
				t.Errorf("CredentialsFromHeaders() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolver_Matrix(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	users := newFakeUsers()

	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	users.add(1, key.Hash)
	users.add(2, "")

	tokenFor2, _, _ := codec.Issue(2)
	tokenForGhost, _, _ := codec.Issue(99)
	unknownKey, _ := GenerateAPIKey()

	resolver := NewResolver(users, codec, nil, discardLogger())

	tests := []struct {
		name       string
		mode       Mode
		creds      Credentials
		wantUser   int64
		wantMethod model.CredentialMethod
		wantErr    error
		wantReason string
	}{
		{
			name:    "flexible none",
			mode:    ModeFlexible,
			wantErr: model.ErrAuthenticationRequired, wantReason: ReasonMissingCredentials,
		},
		{
			name:    "strict none",
			mode:    ModeStrict,
			wantErr: model.ErrAuthenticationRequired, wantReason: ReasonMissingCredentials,
		},
		{
			name:     "flexible api key",
			mode:     ModeFlexible,
			creds:    Credentials{APIKey: key.Plaintext},
			wantUser: 1, wantMethod: model.MethodAPIKey,
		},
		{
			name:     "flexible bearer",
			mode:     ModeFlexible,
			creds:    Credentials{BearerToken: tokenFor2},
			wantUser: 2, wantMethod: model.MethodBearer,
		},
		{
			name:     "api key wins over bearer",
			mode:     ModeFlexible,
			creds:    Credentials{APIKey: key.Plaintext, BearerToken: tokenFor2},
			wantUser: 1, wantMethod: model.MethodAPIKey,
		},
		{
			name:    "invalid api key is not skipped",
			mode:    ModeFlexible,
			creds:   Credentials{APIKey: unknownKey.Plaintext, BearerToken: tokenFor2},
			wantErr: model.ErrInvalidCredential, wantReason: ReasonInvalidAPIKey,
		},
		{
			name:    "malformed api key",
			mode:    ModeFlexible,
			creds:   Credentials{APIKey: "nope"},
			wantErr: model.ErrInvalidCredential, wantReason: ReasonInvalidAPIKey,
		},
		{
			name:    "bad bearer",
			mode:    ModeFlexible,
			creds:   Credentials{BearerToken: "garbage"},
			wantErr: model.ErrInvalidCredential, wantReason: ReasonInvalidToken,
		},
		{
			name:    "bearer for erased user",
			mode:    ModeFlexible,
			creds:   Credentials{BearerToken: tokenForGhost},
			wantErr: model.ErrInvalidCredential, wantReason: ReasonUnknownSubject,
		},
		{
			name:     "strict bearer",
			mode:     ModeStrict,
			creds:    Credentials{BearerToken: tokenFor2},
			wantUser: 2, wantMethod: model.MethodBearer,
		},
		{
			name:    "strict api key only",
			mode:    ModeStrict,
			creds:   Credentials{APIKey: key.Plaintext},
			wantErr: model.ErrAuthenticationRequired, wantReason: ReasonAPIKeyNotAllowed,
		},
		{
			name:     "strict uses bearer when both present",
			mode:     ModeStrict,
			creds:    Credentials{APIKey: key.Plaintext, BearerToken: tokenFor2},
			wantUser: 2, wantMethod: model.MethodBearer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolver.Resolve(context.Background(), tt.mode, tt.creds)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve error = %v, want %v", err, tt.wantErr)
				}
				var re *ResolveError
				if !errors.As(err, &re) || re.Reason != tt.wantReason {
					t.Errorf("reason = %v, want %s", err, tt.wantReason)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got.UserID != tt.wantUser || got.Method != tt.wantMethod {
				t.Errorf("Resolve() = %+v, want user %d via %s", got, tt.wantUser, tt.wantMethod)
			}
		})
	}
}

func TestResolver_StoreFailureIsNotCredentialError(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	users := newFakeUsers()
	users.failAll = errors.New("connection refused")
	resolver := NewResolver(users, codec, nil, discardLogger())

	token, _, _ := codec.Issue(1)
	_, err := resolver.Resolve(context.Background(), ModeFlexible, Credentials{BearerToken: token})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, model.ErrInvalidCredential) || errors.Is(err, model.ErrAuthenticationRequired) {
		t.Errorf("store failure should surface as internal error, got %v", err)
	}
}

func TestResolver_KeyCache(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)
	users := newFakeUsers()
	key, _ := GenerateAPIKey()
	users.add(1, key.Hash)

	cache := &fakeKeyCache{entries: make(map[string]int64)}
	resolver := NewResolver(users, codec, cache, discardLogger())
	ctx := context.Background()
	creds := Credentials{APIKey: key.Plaintext}

	for i := 0; i < 3; i++ {
		got, err := resolver.Resolve(ctx, ModeFlexible, creds)
		if err != nil {
			t.Fatalf("Resolve #%d failed: %v", i, err)
		}
		if got.UserID != 1 {
			t.Fatalf("Resolve #%d user = %d, want 1", i, got.UserID)
		}
	}
	if users.lookups != 1 {
		t.Errorf("store lookups = %d, want 1 (cache should serve repeats)", users.lookups)
	}

	// Revocation leaves a tombstone that wins over any late population.
	_ = cache.ForgetKey(ctx, key.Hash)
	_ = cache.RememberKey(ctx, key.Hash, 1)

	_, err := resolver.Resolve(ctx, ModeFlexible, creds)
	if !errors.Is(err, model.ErrInvalidCredential) {
		t.Errorf("revoked key should fail with InvalidCredential, got %v", err)
	}
}

func TestMode_String(t *testing.T) {
	t.Parallel()

	if ModeStrict.String() != "strict" || ModeFlexible.String() != "flexible" {
		t.Error("unexpected mode names")
	}
}
