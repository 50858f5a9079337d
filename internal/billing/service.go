package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/numberadder/numberadder/internal/model"
)

// EventCheckoutCompleted is the only provider event that changes account state.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	// ErrAlreadyPremium is returned when a premium user starts another checkout.
	ErrAlreadyPremium = errors.New("account is already premium")
	// ErrInvalidPayload is returned for webhook bodies that are not provider events.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Accounts is the slice of the account service billing needs.
type Accounts interface {
	Profile(ctx context.Context, userID int64) (*model.User, error)
	AttachBillingRef(ctx context.Context, userID int64, ref string) error
	UpgradeToPremium(ctx context.Context, userID int64) error
	UpgradeByBillingRef(ctx context.Context, ref string) error
}

// Provider creates customers and checkout sessions.
type Provider interface {
	CreateCustomer(ctx context.Context, userID int64, email string) (string, error)
	CreateCheckout(ctx context.Context, userID int64, customerID string) (*CheckoutSession, error)
}

// Service runs checkout and webhook flows.
type Service struct {
	provider      Provider
	accounts      Accounts
	webhookSecret string
	replayWindow  time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a billing service.
func NewService(provider Provider, accounts Accounts, webhookSecret string, logger *slog.Logger) *Service {
	return &Service{
		provider:      provider,
		accounts:      accounts,
		webhookSecret: webhookSecret,
		replayWindow:  DefaultReplayWindow,
		logger:        logger.With("component", "billing"),
		now:           time.Now,
	}
}

// StartCheckout returns a hosted checkout session for the user.
// It returns ErrNotConfigured when no provider is wired.
// A customer is created on first use and stored as the user's billing reference.
// Provider calls happen outside any store transaction.
func (s *Service) StartCheckout(ctx context.Context, userID int64) (*CheckoutSession, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	user, err := s.accounts.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Premium {
		return nil, ErrAlreadyPremium
	}

	customerID := ""
	if user.BillingRef != nil {
		customerID = *user.BillingRef
	}
	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, user.ID, user.Email)
		if err != nil {
			return nil, err
		}
		if err := s.accounts.AttachBillingRef(ctx, user.ID, customerID); err != nil {
			return nil, fmt.Errorf("attach billing ref: %w", err)
		}
	}

	session, err := s.provider.CreateCheckout(ctx, user.ID, customerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout session created", "user_id", user.ID, "session_id", session.ID)
	return session, nil
}

type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ClientReferenceID string `json:"client_reference_id"`
			Customer          string `json:"customer"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhook verifies and applies a provider event. It returns the event type.
// Events for accounts that no longer exist are acknowledged without error.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (string, error) {
	if s.webhookSecret == "" {
		return "", ErrNotConfigured
	}
	if err := VerifySignature(s.webhookSecret, signatureHeader, payload, s.replayWindow, s.now()); err != nil {
		return "", err
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.Type == "" {
		return "", ErrInvalidPayload
	}

	logger := s.logger.With("event_id", event.ID, "event_type", event.Type)
	if event.Type != EventCheckoutCompleted {
		logger.Debug("ignoring billing event")
		return event.Type, nil
	}

	obj := event.Data.Object
	err := s.upgrade(ctx, obj.ClientReferenceID, obj.Customer)
	if errors.Is(err, model.ErrNotFound) {
		logger.Warn("billing event for unknown account", "customer", obj.Customer)
		return event.Type, nil
	}
	if err != nil {
		return "", err
	}

	logger.Info("account upgraded from billing event")
	return event.Type, nil
}

func (s *Service) upgrade(ctx context.Context, clientReference, customer string) error {
	userID, err := strconv.ParseInt(clientReference, 10, 64)
	if err != nil || userID <= 0 {
		if customer == "" {
			return model.ErrNotFound
		}
		return s.accounts.UpgradeByBillingRef(ctx, customer)
	}

	if err := s.accounts.UpgradeToPremium(ctx, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) && customer != "" {
			return s.accounts.UpgradeByBillingRef(ctx, customer)
		}
		return err
	}

	if customer != "" {
		if err := s.accounts.AttachBillingRef(ctx, userID, customer); err != nil {
			s.logger.Warn("failed to record billing ref", "user_id", userID, "error", err)
		}
	}
	return nil
}
