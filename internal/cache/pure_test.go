package cache

import (
	"testing"
	"time"

	"github.com/numberadder/numberadder/internal/auth"
)

func TestKeyCacheKey(t *testing.T) {
	t.Parallel()

	if got := keyCacheKey("abc"); got != "auth:key:abc" {
		t.Errorf("keyCacheKey(abc) = %q", got)
	}
}

func TestDecodeKeyEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     string
		wantID    int64
		wantState auth.KeyCacheState
	}{
		{"user id", "42", 42, auth.KeyCacheHit},
		{"revoked", revokedMarker, 0, auth.KeyCacheRevoked},
		{"garbage", "not-a-number", 0, auth.KeyCacheMiss},
		{"zero", "0", 0, auth.KeyCacheMiss},
		{"negative", "-1", 0, auth.KeyCacheMiss},
		{"empty", "", 0, auth.KeyCacheMiss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, state := decodeKeyEntry(tt.value)
			if id != tt.wantID || state != tt.wantState {
				t.Errorf("decodeKeyEntry(%q) = %d, %v; want %d, %v", tt.value, id, state, tt.wantID, tt.wantState)
			}
		})
	}
}

func TestNewWithClient_DefaultTTL(t *testing.T) {
	t.Parallel()

	c := NewWithClient(nil, 0)
	if c.keyTTL != DefaultKeyTTL {
		t.Errorf("keyTTL = %v, want %v", c.keyTTL, DefaultKeyTTL)
	}
	c = NewWithClient(nil, 5*time.Second)
	if c.keyTTL != 5*time.Second {
		t.Errorf("keyTTL = %v, want 5s", c.keyTTL)
	}
}
