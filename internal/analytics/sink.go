package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"
)

const (
	// SinkTimeout is the total request timeout for one capture call.
	SinkTimeout = 10 * time.Second
	// JitterFactor is the ±percentage of jitter applied to retry delays.
	JitterFactor = 0.2
)

// Sink receives validated event batches.
type Sink interface {
	Send(ctx context.Context, events []Event) error
}

// SinkConfig configures the HTTP capture endpoint.
type SinkConfig struct {
	Endpoint string
	APIKey   string
}

// HTTPSink posts batches to a PostHog-compatible /batch capture endpoint.
type HTTPSink struct {
	cfg    SinkConfig
	client *http.Client
}

// NewHTTPSink creates a sink with sensible transport timeouts.
func NewHTTPSink(cfg SinkConfig) *HTTPSink {
	return &HTTPSink{
		cfg: cfg,
		client: &http.Client{
			Timeout: SinkTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: 5 * time.Second,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type captureEvent struct {
	UUID       string            `json:"uuid"`
	Event      string            `json:"event"`
	DistinctID string            `json:"distinct_id"`
	Properties map[string]string `json:"properties,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

type captureBatch struct {
	APIKey string         `json:"api_key"`
	Batch  []captureEvent `json:"batch"`
}

// SinkError is returned for non-2xx responses.
type SinkError struct {
	StatusCode int
	Body       string
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("capture endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the failure is worth retrying.
func (e *SinkError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Send posts the batch.
func (s *HTTPSink) Send(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := captureBatch{APIKey: s.cfg.APIKey, Batch: make([]captureEvent, 0, len(events))}
	for _, e := range events {
		batch.Batch = append(batch.Batch, captureEvent{
			UUID:       e.ID,
			Event:      e.Name,
			DistinctID: e.DistinctID(),
			Properties: e.Properties,
			Timestamp:  e.Time().Format(time.RFC3339Nano),
		})
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NumberAdder-Analytics/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SinkError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// retryDelays for batch delivery backoff.
var retryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

// nextRetryDelay calculates the delay before retry attempt (0-indexed) with ±20% jitter.
func nextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryDelays) {
		attempt = len(retryDelays) - 1
	}

	base := retryDelays[attempt]
	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}
