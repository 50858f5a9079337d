package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

// Mode selects which credential kinds a Resolver accepts.
type Mode int

const (
	// ModeFlexible accepts an API key or a bearer token; the API key wins when both are sent.
	ModeFlexible Mode = iota
	// ModeStrict accepts bearer tokens only.
	ModeStrict
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "flexible"
}

// Failure reasons attached to resolution errors for logging.
const (
	ReasonMissingCredentials = "missing_credentials"
	ReasonInvalidAPIKey      = "invalid_api_key"
	ReasonInvalidToken       = "invalid_token"
	ReasonUnknownSubject     = "unknown_subject"
	ReasonAPIKeyNotAllowed   = "api_key_not_allowed"
)

// Credentials is the raw credential material presented by a request.
type Credentials struct {
	APIKey      string
	BearerToken string
}

// CredentialsFromHeaders extracts credentials from "X-API-Key" and "Authorization: Bearer".
func CredentialsFromHeaders(apiKeyHeader, authorizationHeader string) Credentials {
	creds := Credentials{APIKey: strings.TrimSpace(apiKeyHeader)}
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorizationHeader), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		creds.BearerToken = strings.TrimSpace(token)
	}
	return creds
}

// ResolveError is returned when a request cannot be authenticated.
// It unwraps to model.ErrInvalidCredential or model.ErrAuthenticationRequired.
type ResolveError struct {
	Reason string
	Err    error
}

func (e *ResolveError) Error() string {
	return e.Err.Error() + " (" + e.Reason + ")"
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

func invalid(reason string) error {
	return &ResolveError{Reason: reason, Err: model.ErrInvalidCredential}
}

// UserLookup is the slice of the credential store the resolver reads.
// Absence is reported as repository.ErrUserNotFound.
type UserLookup interface {
	FindUserByID(ctx context.Context, id int64) (*model.User, error)
	FindUserByAPIKeyHash(ctx context.Context, hash string) (*model.User, error)
}

// KeyCacheState is the outcome of a cache lookup.
type KeyCacheState int

// Cache states.
const (
	KeyCacheMiss KeyCacheState = iota
	KeyCacheHit
	KeyCacheRevoked
)

// KeyCache memoizes API-key hash to user id resolutions.
type KeyCache interface {
	LookupKey(ctx context.Context, keyHash string) (int64, KeyCacheState, error)
	RememberKey(ctx context.Context, keyHash string, userID int64) error
	ForgetKey(ctx context.Context, keyHash string) error
}

// Resolver maps request credentials to an authenticated principal.
type Resolver struct {
	users  UserLookup
	tokens *TokenCodec
	cache  KeyCache
	logger *slog.Logger
}

// NewResolver creates a Resolver. cache may be nil.
func NewResolver(users UserLookup, tokens *TokenCodec, cache KeyCache, logger *slog.Logger) *Resolver {
	return &Resolver{
		users:  users,
		tokens: tokens,
		cache:  cache,
		logger: logger.With("component", "resolver"),
	}
}

// Resolve authenticates creds according to mode.
func (r *Resolver) Resolve(ctx context.Context, mode Mode, creds Credentials) (*model.AuthContext, error) {
	if mode == ModeFlexible && creds.APIKey != "" {
		return r.resolveAPIKey(ctx, creds.APIKey)
	}
	if creds.BearerToken != "" {
		return r.resolveBearer(ctx, creds.BearerToken)
	}
	if mode == ModeStrict && creds.APIKey != "" {
		return nil, &ResolveError{Reason: ReasonAPIKeyNotAllowed, Err: model.ErrAuthenticationRequired}
	}
	return nil, &ResolveError{Reason: ReasonMissingCredentials, Err: model.ErrAuthenticationRequired}
}

func (r *Resolver) resolveAPIKey(ctx context.Context, key string) (*model.AuthContext, error) {
	if !ValidateKeyFormat(key) {
		return nil, invalid(ReasonInvalidAPIKey)
	}
	hash := HashAPIKey(key)

	if r.cache != nil {
		userID, state, err := r.cache.LookupKey(ctx, hash)
		switch {
		case err != nil:
			r.logger.Warn("api key cache lookup failed", slog.String("error", err.Error()))
		case state == KeyCacheHit:
			return &model.AuthContext{UserID: userID, Method: model.MethodAPIKey}, nil
		case state == KeyCacheRevoked:
			return nil, invalid(ReasonInvalidAPIKey)
		}
	}

	user, err := r.users.FindUserByAPIKeyHash(ctx, hash)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, invalid(ReasonInvalidAPIKey)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.RememberKey(ctx, hash, user.ID); err != nil {
			r.logger.Warn("api key cache populate failed", slog.String("error", err.Error()))
		}
	}

	return &model.AuthContext{UserID: user.ID, Method: model.MethodAPIKey}, nil
}

func (r *Resolver) resolveBearer(ctx context.Context, token string) (*model.AuthContext, error) {
	userID, err := r.tokens.Verify(token)
	if err != nil {
		return nil, invalid(ReasonInvalidToken)
	}

	// Tokens outlive erasure, so the subject must still exist.
	if _, err := r.users.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, invalid(ReasonUnknownSubject)
		}
		return nil, fmt.Errorf("lookup token subject: %w", err)
	}

	return &model.AuthContext{UserID: userID, Method: model.MethodBearer}, nil
}
