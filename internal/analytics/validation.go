package analytics

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

const (
	maxProperties     = 16
	maxPropertyLength = 200
)

// ValidateEvent validates event fields before delivery.
func ValidateEvent(event Event) error {
	if event.ID == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := ulid.ParseStrict(event.ID); err != nil {
		return fmt.Errorf("id must be a ULID: %w", err)
	}
	if !knownEvents[event.Name] {
		return fmt.Errorf("unknown event %q", event.Name)
	}
	if event.UserID <= 0 {
		return fmt.Errorf("user id must be positive")
	}
	if event.OccurredAt <= 0 {
		return fmt.Errorf("timestamp must be set")
	}
	if len(event.Properties) > maxProperties {
		return fmt.Errorf("too many properties")
	}
	for k, v := range event.Properties {
		if k == "" || len(k) > maxPropertyLength || len(v) > maxPropertyLength {
			return fmt.Errorf("property %q out of bounds", k)
		}
	}
	return nil
}
