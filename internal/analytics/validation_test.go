package analytics

import (
	"strings"
	"testing"
)

func TestValidateEvent(t *testing.T) {
	valid := NewEvent(EventCalculationPerformed, 7, map[string]string{"operation": "add"})
	if err := ValidateEvent(valid); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	mutate := func(f func(*Event)) Event {
		e := valid
		e.Properties = map[string]string{"operation": "add"}
		f(&e)
		return e
	}

	tooMany := make(map[string]string)
	for i := 0; i < maxProperties+1; i++ {
		tooMany[strings.Repeat("k", i+1)] = "v"
	}

	cases := []struct {
		name  string
		event Event
	}{
		{"missing_id", mutate(func(e *Event) { e.ID = "" })},
		{"bad_id", mutate(func(e *Event) { e.ID = "not-a-ulid" })},
		{"unknown_event", mutate(func(e *Event) { e.Name = "clicked" })},
		{"zero_user", mutate(func(e *Event) { e.UserID = 0 })},
		{"missing_timestamp", mutate(func(e *Event) { e.OccurredAt = 0 })},
		{"too_many_properties", mutate(func(e *Event) { e.Properties = tooMany })},
		{"long_value", mutate(func(e *Event) { e.Properties["operation"] = strings.Repeat("x", maxPropertyLength+1) })},
		{"empty_key", mutate(func(e *Event) { e.Properties[""] = "x" })},
	}

	for _, tc := range cases {
		if err := ValidateEvent(tc.event); err == nil {
			t.Fatalf("expected error for %s", tc.name)
		}
	}
}
