// Package billing integrates with a Stripe-compatible payment provider.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrReplayWindowExceeded is returned when timestamp is outside replay window.
	ErrReplayWindowExceeded = errors.New("timestamp outside replay window")
	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMalformedHeader is returned when the signature header cannot be parsed.
	ErrMalformedHeader = errors.New("malformed signature header")
)

const (
	// SignatureHeader carries the provider's webhook signature.
	SignatureHeader = "Stripe-Signature"
	// DefaultReplayWindow is the default replay protection window.
	DefaultReplayWindow = 5 * time.Minute
)

// ComputeSignature creates the HMAC-SHA256 signature for a webhook payload.
// The signed string is "{timestamp}.{payload}".
func ComputeSignature(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeaderValue formats a header value in the provider's "t=...,v1=..." layout.
func SignatureHeaderValue(secret string, timestamp int64, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, ComputeSignature(secret, timestamp, payload))
}

type signedHeader struct {
	timestamp  int64
	signatures []string
}

func parseSignatureHeader(header string) (signedHeader, error) {
	var out signedHeader
	haveTimestamp := false

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return out, ErrMalformedHeader
			}
			out.timestamp = ts
			haveTimestamp = true
		case "v1":
			out.signatures = append(out.signatures, value)
		}
	}

	if !haveTimestamp || len(out.signatures) == 0 {
		return out, ErrMalformedHeader
	}
	return out, nil
}

// VerifySignature checks a signature header against the payload with replay protection.
// Any v1 entry may match, which lets the provider roll secrets.
func VerifySignature(secret, header string, payload []byte, replayWindow time.Duration, now time.Time) error {
	parsed, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Unix() - parsed.timestamp
	if age < 0 {
		age = -age
	}
	if age > int64(replayWindow.Seconds()) {
		return ErrReplayWindowExceeded
	}

	expected := []byte(ComputeSignature(secret, parsed.timestamp, payload))
	for _, sig := range parsed.signatures {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return ErrInvalidSignature
}
