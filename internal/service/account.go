// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/numberadder/numberadder/internal/analytics"
	"github.com/numberadder/numberadder/internal/auth"
	"github.com/numberadder/numberadder/internal/metrics"
	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

// TokenIssuer signs bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
}

// KeyInvalidator drops cached API-key resolutions.
type KeyInvalidator interface {
	ForgetKey(ctx context.Context, keyHash string) error
}

// AccountService runs the account lifecycle: registration, login, plan
// upgrades, API keys, export and erasure.
type AccountService struct {
	store   repository.Store
	tokens  TokenIssuer
	keys    KeyInvalidator
	events  analytics.EventPublisher
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAccountService creates a new AccountService. keys and events may be nil.
func NewAccountService(store repository.Store, tokens TokenIssuer, keys KeyInvalidator, events analytics.EventPublisher, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if events == nil {
		events = analytics.NoopPublisher{}
	}
	return &AccountService{
		store:   store,
		tokens:  tokens,
		keys:    keys,
		events:  events,
		logger:  logger.With("component", "accounts"),
		metrics: recorder,
		now:     time.Now,
	}
}

// mapStoreError converts store sentinels to domain errors.
func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return model.ErrNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return model.ErrDuplicateEmail
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *AccountService) session(userID int64) (*model.TokenResponse, error) {
	token, expiresAt, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.TokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt}, nil
}

// Register creates an account and returns a bearer token for it.
func (s *AccountService) Register(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.store.CreateUser(ctx, email, hash)
	if err != nil {
		return nil, mapStoreError("create user", err)
	}

	s.metrics.IncRegistration()
	s.events.PublishAsync(analytics.NewEvent(analytics.EventUserRegistered, userID, map[string]string{"method": "password"}))
	s.logger.Info("user registered", "user_id", userID)

	return s.session(userID)
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnVerify spends the same work as a real verification so unknown emails
// are not distinguishable by timing.
func burnVerify(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("numberadder-timing-equalizer")
	})
	if dummyHash != "" {
		_, _ = auth.VerifyPassword(password, dummyHash)
	}
}

// Login verifies email and password and returns a bearer token.
// Unknown email and wrong password fail identically.
func (s *AccountService) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		burnVerify(password)
		s.metrics.IncLogin("failed")
		return nil, model.ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("stored password hash unusable", "user_id", user.ID, "error", err)
		}
		s.metrics.IncLogin("failed")
		return nil, model.ErrInvalidCredential
	}

	s.metrics.IncLogin("success")
	s.events.PublishAsync(analytics.NewEvent(analytics.EventUserLoggedIn, user.ID, map[string]string{"method": "password"}))

	return s.session(user.ID)
}

// LoginOAuth signs in the account for an identity-provider verified email,
// creating it on first login with an unusable password.
func (s *AccountService) LoginOAuth(ctx context.Context, email string) (*model.TokenResponse, error) {
	hash, err := auth.UnusablePasswordHash()
	if err != nil {
		return nil, fmt.Errorf("generate placeholder password: %w", err)
	}

	user, created, err := s.store.GetOrCreateUser(ctx, email, hash)
	if err != nil {
		return nil, mapStoreError("get or create user", err)
	}

	if created {
		s.metrics.IncRegistration()
		s.events.PublishAsync(analytics.NewEvent(analytics.EventUserRegistered, user.ID, map[string]string{"method": "oauth"}))
		s.logger.Info("user registered via oauth", "user_id", user.ID)
	}
	s.metrics.IncLogin("success")
	s.events.PublishAsync(analytics.NewEvent(analytics.EventUserLoggedIn, user.ID, map[string]string{"method": "oauth"}))

	return s.session(user.ID)
}

// Profile returns the account without its password hash.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError("find user", err)
	}
	return user, nil
}

// UpgradeToPremium sets the premium flag. Re-applying is a no-op.
func (s *AccountService) UpgradeToPremium(ctx context.Context, userID int64) error {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return mapStoreError("find user", err)
	}
	if user.Premium {
		return nil
	}

	if err := s.store.SetPremium(ctx, userID); err != nil {
		return mapStoreError("set premium", err)
	}

	s.metrics.IncUpgrade()
	s.events.PublishAsync(analytics.NewEvent(analytics.EventAccountUpgraded, userID, nil))
	s.logger.Info("account upgraded", "user_id", userID)
	return nil
}

// AttachBillingRef records the external billing customer for the account.
func (s *AccountService) AttachBillingRef(ctx context.Context, userID int64, ref string) error {
	if ref == "" {
		return model.ErrInvalidInput
	}
	if err := s.store.SetBillingRef(ctx, userID, ref); err != nil {
		return mapStoreError("set billing ref", err)
	}
	return nil
}

// UpgradeByBillingRef upgrades the account owning the billing reference.
func (s *AccountService) UpgradeByBillingRef(ctx context.Context, ref string) error {
	if ref == "" {
		return model.ErrNotFound
	}
	user, err := s.store.FindUserByBillingRef(ctx, ref)
	if err != nil {
		return mapStoreError("find user by billing ref", err)
	}
	return s.UpgradeToPremium(ctx, user.ID)
}

// IssueAPIKey generates a key, stores only its hash, and returns the
// plaintext exactly once. Any previous key stops working.
func (s *AccountService) IssueAPIKey(ctx context.Context, userID int64) (*model.APIKeyIssueResponse, error) {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	prev, err := s.store.SetAPIKeyHash(ctx, userID, &key.Hash)
	if err != nil {
		return nil, mapStoreError("set api key hash", err)
	}
	s.forgetKey(ctx, prev)

	s.metrics.IncAPIKeyIssued()
	s.events.PublishAsync(analytics.NewEvent(analytics.EventAPIKeyIssued, userID, map[string]string{"rotated": strconv.FormatBool(prev != nil)}))
	s.logger.Info("api key issued", "user_id", userID, "key_prefix", key.Display)

	return &model.APIKeyIssueResponse{
		Key:       key.Plaintext,
		KeyPrefix: key.Display,
		CreatedAt: s.now().UTC(),
		Message:   "Store this key securely. It will not be shown again.",
	}, nil
}

// RevokeAPIKey clears the user's key. It reports whether a key was active.
func (s *AccountService) RevokeAPIKey(ctx context.Context, userID int64) (bool, error) {
	prev, err := s.store.SetAPIKeyHash(ctx, userID, nil)
	if err != nil {
		return false, mapStoreError("clear api key hash", err)
	}
	if prev == nil {
		return false, nil
	}
	s.forgetKey(ctx, prev)

	s.metrics.IncAPIKeyRevoked()
	s.events.PublishAsync(analytics.NewEvent(analytics.EventAPIKeyRevoked, userID, nil))
	s.logger.Info("api key revoked", "user_id", userID)
	return true, nil
}

// APIKeyStatus reports whether the user has an active key.
func (s *AccountService) APIKeyStatus(ctx context.Context, userID int64) (bool, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return false, mapStoreError("find user", err)
	}
	return user.HasAPIKey(), nil
}

// EraseAccount deletes the user and their whole history atomically.
func (s *AccountService) EraseAccount(ctx context.Context, userID int64) error {
	deleted, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return mapStoreError("delete user", err)
	}
	s.forgetKey(ctx, deleted.APIKeyHash)

	s.metrics.IncAccountErased()
	s.events.PublishAsync(analytics.NewEvent(analytics.EventAccountErased, userID, nil))
	s.logger.Info("account erased", "user_id", userID)
	return nil
}

// ExportAccount returns the data-portability document.
func (s *AccountService) ExportAccount(ctx context.Context, userID int64) (*model.ExportDocument, error) {
	doc, err := s.store.ExportUserData(ctx, userID)
	if err != nil {
		return nil, mapStoreError("export user data", err)
	}
	return doc, nil
}

// forgetKey invalidates a cached resolution after the store change committed.
func (s *AccountService) forgetKey(ctx context.Context, hash *string) {
	if s.keys == nil || hash == nil || *hash == "" {
		return
	}
	if err := s.keys.ForgetKey(ctx, *hash); err != nil {
		// The stale entry resolves until API_KEY_CACHE_TTL expires.
		s.metrics.IncAPIKeyInvalidationFailed()
		s.logger.Warn("failed to invalidate cached api key", "error", err)
	}
}
