package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_CreateCustomerAndCheckout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "sk_test" {
			t.Errorf("basic auth user = %q, want sk_test", user)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing Idempotency-Key header")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/customers":
			if r.PostForm.Get("metadata[user_id]") != "12" {
				t.Errorf("metadata[user_id] = %q", r.PostForm.Get("metadata[user_id]"))
			}
			_, _ = w.Write([]byte(`{"id":"cus_123"}`))
		case "/v1/checkout/sessions":
			if r.PostForm.Get("client_reference_id") != "12" {
				t.Errorf("client_reference_id = %q", r.PostForm.Get("client_reference_id"))
			}
			if r.PostForm.Get("line_items[0][price]") != "price_1" {
				t.Errorf("price = %q", r.PostForm.Get("line_items[0][price]"))
			}
			_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1","customer":"cus_123"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{SecretKey: "sk_test", PriceID: "price_1", BaseURL: srv.URL + "/"}, srv.Client())
	ctx := context.Background()

	customer, err := client.CreateCustomer(ctx, 12, "a@example.com")
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	if customer != "cus_123" {
		t.Errorf("customer = %q, want cus_123", customer)
	}

	session, err := client.CreateCheckout(ctx, 12, customer)
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if session.URL != "https://pay.example/cs_1" || session.CustomerID != "cus_123" {
		t.Errorf("session = %+v", session)
	}
}

func TestClient_ProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","message":"declined"}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{SecretKey: "sk_test", PriceID: "price_1", BaseURL: srv.URL}, srv.Client())
	_, err := client.CreateCustomer(context.Background(), 1, "a@example.com")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired || apiErr.Type != "card_error" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{}, nil)
	if _, err := client.CreateCustomer(context.Background(), 1, "a@example.com"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}
