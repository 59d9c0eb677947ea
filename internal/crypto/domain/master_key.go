package domain

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
)

// MasterKey is one 32-byte field-encryption key, identified for rotation.
//
// Master keys are provisioned at process start by an external collaborator
// (environment variables in development, a KMS-unwrapped blob in production)
// and held only in memory for the process lifetime. The field cipher never
// generates or persists them.
type MasterKey struct {
	ID  string
	Key []byte
}

// MasterKeyChain manages a collection of master keys with one designated as
// active. New fields are encrypted with the active key; old keys remain
// available so fields encrypted before a rotation stay decryptable without
// re-encryption.
//
// Thread safety: the chain uses sync.Map internally for concurrent access.
type MasterKeyChain struct {
	activeID string
	keys     sync.Map
}

// NewMasterKeyChain builds a chain from the given keys with activeID as the
// active key. Every key must be exactly KeySize bytes and activeID must match
// one of the keys.
func NewMasterKeyChain(activeID string, keys []MasterKey) (*MasterKeyChain, error) {
	mkc := &MasterKeyChain{activeID: activeID}

	for i := range keys {
		if len(keys[i].Key) != KeySize {
			mkc.Close()
			return nil, fmt.Errorf(
				"%w: master key %s must be %d bytes, got %d",
				ErrInvalidKeySize,
				keys[i].ID,
				KeySize,
				len(keys[i].Key),
			)
		}
		k := make([]byte, KeySize)
		copy(k, keys[i].Key)
		mkc.keys.Store(keys[i].ID, &MasterKey{ID: keys[i].ID, Key: k})
	}

	if _, ok := mkc.Get(activeID); !ok {
		mkc.Close()
		return nil, fmt.Errorf("%w: %s", ErrActiveMasterKeyNotFound, activeID)
	}

	return mkc, nil
}

// ActiveMasterKeyID returns the id of the key used to encrypt new fields.
func (m *MasterKeyChain) ActiveMasterKeyID() string {
	return m.activeID
}

// Active returns the active master key.
func (m *MasterKeyChain) Active() (*MasterKey, bool) {
	return m.Get(m.activeID)
}

// Get retrieves a master key by id. Used to decrypt fields produced before a
// key rotation.
func (m *MasterKeyChain) Get(id string) (*MasterKey, bool) {
	if masterKey, ok := m.keys.Load(id); ok {
		return masterKey.(*MasterKey), ok
	}
	return nil, false
}

// Close zeroes all key material and resets the chain. Call at shutdown.
func (m *MasterKeyChain) Close() {
	m.keys.Range(func(_, value any) bool {
		Zero(value.(*MasterKey).Key)
		return true
	})
	m.activeID = ""
	m.keys.Clear()
}

// LoadMasterKeyChainFromEnv loads master keys from environment variables:
//
//	MASTER_KEYS="key-2025:YWJjZGVm...,key-2024:MTIzNDU2..."
//	ACTIVE_MASTER_KEY_ID="key-2025"
//
// Each entry is "id:base64key" with a standard-base64, 32-byte key.
// Temporary decoded key bytes are zeroed after being copied into the chain.
func LoadMasterKeyChainFromEnv() (*MasterKeyChain, error) {
	raw := os.Getenv("MASTER_KEYS")
	if raw == "" {
		return nil, ErrMasterKeysNotSet
	}

	active := os.Getenv("ACTIVE_MASTER_KEY_ID")
	if active == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	var keys []MasterKey
	defer func() {
		for i := range keys {
			Zero(keys[i].Key)
		}
	}()

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		key, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, p[0], err)
		}
		keys = append(keys, MasterKey{ID: p[0], Key: key})
	}

	return NewMasterKeyChain(active, keys)
}
