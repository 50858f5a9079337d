package analytics

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	e := NewEvent(EventCalculationPerformed, 42, map[string]string{"operation": "add"})

	if _, err := ulid.ParseStrict(e.ID); err != nil {
		t.Fatalf("ID %q is not a ULID: %v", e.ID, err)
	}
	if e.UserID != 42 {
		t.Errorf("UserID = %d, want 42", e.UserID)
	}
	if e.Time().Before(before) {
		t.Errorf("Time() = %v, want after %v", e.Time(), before)
	}
	if got := e.DistinctID(); got != "user:42" {
		t.Errorf("DistinctID() = %q, want user:42", got)
	}
	if err := ValidateEvent(e); err != nil {
		t.Errorf("ValidateEvent() = %v, want nil", err)
	}
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewEvent(EventUserLoggedIn, 1, nil).ID
		if seen[id] {
			t.Fatalf("duplicate event id %s", id)
		}
		seen[id] = true
	}
}

func TestEvent_JSONOmitsEmail(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewEvent(EventUserRegistered, 7, nil))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "@") {
		t.Errorf("event payload %s must not carry email", data)
	}
	if !strings.Contains(string(data), `"uid":7`) {
		t.Errorf("event payload %s missing uid", data)
	}
}

func TestDecodeMessage(t *testing.T) {
	t.Parallel()

	valid, _ := json.Marshal(NewEvent(EventAPIKeyIssued, 3, nil))
	unknown, _ := json.Marshal(Event{ID: ulid.Make().String(), Name: "link_clicked", UserID: 3, OccurredAt: 1})

	tests := []struct {
		name       string
		values     map[string]interface{}
		wantReason string
	}{
		{name: "valid", values: map[string]interface{}{"payload": string(valid)}},
		{name: "missing payload", values: map[string]interface{}{}, wantReason: "invalid_format"},
		{name: "non-string payload", values: map[string]interface{}{"payload": 12}, wantReason: "invalid_format"},
		{name: "bad json", values: map[string]interface{}{"payload": "{"}, wantReason: "unmarshal_error"},
		{name: "unknown event", values: map[string]interface{}{"payload": string(unknown)}, wantReason: "validation_error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event, reason, _ := decodeMessage(redis.XMessage{ID: "1-0", Values: tt.values})
			if reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tt.wantReason)
			}
			if tt.wantReason == "" && event.UserID != 3 {
				t.Errorf("UserID = %d, want 3", event.UserID)
			}
		})
	}
}

func TestNextRetryDelay(t *testing.T) {
	t.Parallel()

	for attempt, base := range retryDelays {
		lo := time.Duration(float64(base) * (1 - JitterFactor))
		hi := time.Duration(float64(base) * (1 + JitterFactor))
		for i := 0; i < 20; i++ {
			d := nextRetryDelay(attempt)
			if d < lo || d > hi {
				t.Fatalf("nextRetryDelay(%d) = %v, want within [%v, %v]", attempt, d, lo, hi)
			}
		}
	}

	last := retryDelays[len(retryDelays)-1]
	if d := nextRetryDelay(99); d > time.Duration(float64(last)*(1+JitterFactor)) {
		t.Errorf("nextRetryDelay(99) = %v, want capped near %v", d, last)
	}
	if d := nextRetryDelay(-1); d > time.Duration(float64(retryDelays[0])*(1+JitterFactor)) {
		t.Errorf("nextRetryDelay(-1) = %v, want first delay", d)
	}
}
