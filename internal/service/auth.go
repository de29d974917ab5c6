package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/domain"
)

const apiKeyPrefix = "qzf_"

// KeyAuthService validates bearer keys against a fixed set loaded from configuration.
// Only SHA-256 hashes of the keys are held in memory.
type KeyAuthService struct {
	hashes [][sha256.Size]byte
}

func NewKeyAuthService(keys []string) *KeyAuthService {
	s := &KeyAuthService{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		s.hashes = append(s.hashes, sha256.Sum256([]byte(k)))
	}
	return s
}

// Enabled reports whether at least one key is configured.
func (s *KeyAuthService) Enabled() bool {
	return len(s.hashes) > 0
}

// ValidateAPIKey returns a stable principal for the key: the first 12 hex chars of its hash.
func (s *KeyAuthService) ValidateAPIKey(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrInvalidAPIKey
	}

	sum := sha256.Sum256([]byte(token))
	match := 0
	for _, h := range s.hashes {
		match |= subtle.ConstantTimeCompare(sum[:], h[:])
	}
	if match != 1 {
		return "", domain.ErrInvalidAPIKey
	}
	return hashToken(token)[:12], nil
}

// GenerateAPIToken returns a new random key in the qzf_<64 hex> format.
func GenerateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// IsValidAPIToken checks the format of generated keys.
func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := strings.TrimPrefix(token, apiKeyPrefix)
	if len(hexPart) != 64 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}
