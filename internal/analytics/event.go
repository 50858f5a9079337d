// Package analytics provides best-effort product event capture and delivery.
package analytics

import (
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event names.
const (
	EventUserRegistered       = "user_registered"
	EventUserLoggedIn         = "user_logged_in"
	EventCalculationPerformed = "calculation_performed"
	EventAPIKeyIssued         = "api_key_issued"
	EventAPIKeyRevoked        = "api_key_revoked"
	EventAccountUpgraded      = "account_upgraded"
	EventAccountErased        = "account_erased"
)

var knownEvents = map[string]bool{
	EventUserRegistered:       true,
	EventUserLoggedIn:         true,
	EventCalculationPerformed: true,
	EventAPIKeyIssued:         true,
	EventAPIKeyRevoked:        true,
	EventAccountUpgraded:      true,
	EventAccountErased:        true,
}

// Event is the compact wire format stored on the Redis stream.
// Events carry the numeric user id only, never email or credential material.
type Event struct {
	ID         string            `json:"id"`
	Name       string            `json:"e"`
	UserID     int64             `json:"uid"`
	Properties map[string]string `json:"p,omitempty"`
	OccurredAt int64             `json:"t"` // Unix milliseconds
}

// NewEvent builds an event stamped now with a fresh ULID.
func NewEvent(name string, userID int64, props map[string]string) Event {
	now := time.Now()
	return Event{
		ID:         ulid.Make().String(),
		Name:       name,
		UserID:     userID,
		Properties: props,
		OccurredAt: now.UnixMilli(),
	}
}

// DistinctID is the identifier reported to the capture endpoint.
func (e Event) DistinctID() string {
	return "user:" + strconv.FormatInt(e.UserID, 10)
}

// Time returns OccurredAt as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.OccurredAt).UTC()
}
