package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	// DefaultBaseURL is the provider API root.
	DefaultBaseURL = "https://api.stripe.com"
)

// ErrNotConfigured is returned when billing credentials are missing.
var ErrNotConfigured = errors.New("billing is not configured")

// Config holds provider credentials and checkout settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	SuccessURL    string
	CancelURL     string
	BaseURL       string
}

// Enabled reports whether checkout can be started.
func (c Config) Enabled() bool {
	return c.SecretKey != "" && c.PriceID != ""
}

// CheckoutSession is the subset of the provider's session we use.
type CheckoutSession struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CustomerID string `json:"customer"`
}

// APIError is returned for non-2xx provider responses.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("billing provider returned %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// Client talks to the provider's REST API using form-encoded requests.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewHTTPClient creates an HTTP client configured for provider calls.
// It has appropriate timeouts and does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewClient creates a provider client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{cfg: cfg, http: httpClient}
}

// CreateCustomer registers a customer for the user and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, userID int64, email string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[user_id]", strconv.FormatInt(userID, 10))

	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/customers", form, &out); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("create customer: empty customer id")
	}
	return out.ID, nil
}

// CreateCheckout opens a subscription checkout session for an existing customer.
func (c *Client) CreateCheckout(ctx context.Context, userID int64, customerID string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", customerID)
	form.Set("client_reference_id", strconv.FormatInt(userID, 10))
	form.Set("line_items[0][price]", c.cfg.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("cancel_url", c.cfg.CancelURL)

	var session CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if session.CustomerID == "" {
		session.CustomerID = customerID
	}
	return &session, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if !c.cfg.Enabled() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.SecretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", ulid.Make().String())
	req.Header.Set("User-Agent", "NumberAdder-Billing/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &envelope)
		return &APIError{StatusCode: resp.StatusCode, Type: envelope.Error.Type, Message: envelope.Error.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
