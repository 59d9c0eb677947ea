package domain

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
)

// MinSigningKeySize is the minimum accepted signing key length in bytes.
// HMAC-SHA256 keys shorter than the hash output weaken the MAC.
const MinSigningKeySize = 32

// SigningKey is one HMAC signing key, identified for rotation. The id is
// written into the token header so verification can select the right key.
type SigningKey struct {
	ID  string
	Key []byte
}

// SigningKeyChain holds the signing keys with one designated as active. New
// tokens are signed with the active key; old keys stay in the chain until
// every token signed with them has expired, so key rotation never invalidates
// outstanding tokens.
//
// The chain is immutable after construction and safe for concurrent reads.
type SigningKeyChain struct {
	activeID string
	keys     map[string]*SigningKey
}

// NewSigningKeyChain builds a chain from the given keys with activeID as the
// active key. Every key must be at least MinSigningKeySize bytes and activeID
// must match one of the keys.
func NewSigningKeyChain(activeID string, keys []SigningKey) (*SigningKeyChain, error) {
	skc := &SigningKeyChain{
		activeID: activeID,
		keys:     make(map[string]*SigningKey, len(keys)),
	}

	for i := range keys {
		if len(keys[i].Key) < MinSigningKeySize {
			skc.Close()
			return nil, fmt.Errorf(
				"%w: signing key %s must be at least %d bytes, got %d",
				ErrSigningKeyTooShort,
				keys[i].ID,
				MinSigningKeySize,
				len(keys[i].Key),
			)
		}
		k := make([]byte, len(keys[i].Key))
		copy(k, keys[i].Key)
		skc.keys[keys[i].ID] = &SigningKey{ID: keys[i].ID, Key: k}
	}

	if _, ok := skc.keys[activeID]; !ok {
		skc.Close()
		return nil, fmt.Errorf("%w: %s", ErrActiveSigningKeyNotFound, activeID)
	}

	return skc, nil
}

// ActiveSigningKeyID returns the id of the key used to sign new tokens.
func (s *SigningKeyChain) ActiveSigningKeyID() string {
	return s.activeID
}

// Active returns the active signing key.
func (s *SigningKeyChain) Active() (*SigningKey, bool) {
	return s.Get(s.activeID)
}

// Get retrieves a signing key by id. Used to verify tokens signed before a
// key rotation.
func (s *SigningKeyChain) Get(id string) (*SigningKey, bool) {
	key, ok := s.keys[id]
	return key, ok
}

// Close zeroes all key material and resets the chain. Call at shutdown.
func (s *SigningKeyChain) Close() {
	for _, key := range s.keys {
		cryptoDomain.Zero(key.Key)
	}
	s.activeID = ""
	s.keys = nil
}

// LoadSigningKeyChainFromEnv loads signing keys from environment variables:
//
//	SIGNING_KEYS="key-2025:YWJjZGVm...,key-2024:MTIzNDU2..."
//	ACTIVE_SIGNING_KEY_ID="key-2025"
//
// Each entry is "id:base64key" with a standard-base64 key of at least
// MinSigningKeySize bytes.
func LoadSigningKeyChainFromEnv() (*SigningKeyChain, error) {
	raw := os.Getenv("SIGNING_KEYS")
	if raw == "" {
		return nil, ErrSigningKeysNotSet
	}

	active := os.Getenv("ACTIVE_SIGNING_KEY_ID")
	if active == "" {
		return nil, ErrActiveSigningKeyIDNotSet
	}

	var keys []SigningKey
	defer func() {
		for i := range keys {
			cryptoDomain.Zero(keys[i].Key)
		}
	}()

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSigningKeysFormat, part)
		}
		key, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidSigningKeyBase64, p[0], err)
		}
		keys = append(keys, SigningKey{ID: p[0], Key: key})
	}

	return NewSigningKeyChain(active, keys)
}
