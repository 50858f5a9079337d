package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Key format: na_{secret}
// Example: na_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	KeyPrefix     = "na_"
	KeySecretLen  = 64 // hex encoded 32 bytes
	keyDisplayLen = 8
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	keyFormatRegex = regexp.MustCompile(`^na_[a-f0-9]{64}$`)
)

// GeneratedKey contains the parts of a newly generated API key.
type GeneratedKey struct {
	Plaintext string // Full key (show once only)
	Hash      string // SHA-256 hex digest for storage
	Display   string // Short non-secret prefix safe to show in listings
}

// GenerateAPIKey creates a new 256-bit API key.
func GenerateAPIKey() (*GeneratedKey, error) {
	secret := make([]byte, KeySecretLen/2)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := KeyPrefix + hex.EncodeToString(secret)

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      HashAPIKey(plaintext),
		Display:   DisplayPrefix(plaintext),
	}, nil
}

// HashAPIKey returns the SHA-256 hex digest persisted for a key.
// API keys carry 256 bits of entropy so a fast deterministic hash is enough for lookup.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidateKeyFormat checks if the key matches the expected format.
func ValidateKeyFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}

// DisplayPrefix returns the key prefix plus the first few secret characters.
func DisplayPrefix(key string) string {
	n := len(KeyPrefix) + keyDisplayLen
	if len(key) < n {
		return key
	}
	return key[:n]
}
