package domain

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validKey() []byte {
	key := make([]byte, MinSigningKeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewSigningKeyChain(t *testing.T) {
	t.Run("Success_SingleKey", func(t *testing.T) {
		chain, err := NewSigningKeyChain("key-1", []SigningKey{{ID: "key-1", Key: validKey()}})
		assert.NoError(t, err)
		assert.Equal(t, "key-1", chain.ActiveSigningKeyID())

		active, ok := chain.Active()
		assert.True(t, ok)
		assert.Equal(t, "key-1", active.ID)
	})

	t.Run("Success_OldKeysRemainRetrievable", func(t *testing.T) {
		chain, err := NewSigningKeyChain("key-2", []SigningKey{
			{ID: "key-1", Key: validKey()},
			{ID: "key-2", Key: validKey()},
		})
		assert.NoError(t, err)

		old, ok := chain.Get("key-1")
		assert.True(t, ok)
		assert.Equal(t, "key-1", old.ID)
	})

	t.Run("Error_KeyTooShort", func(t *testing.T) {
		_, err := NewSigningKeyChain("key-1", []SigningKey{{ID: "key-1", Key: []byte("short")}})
		assert.ErrorIs(t, err, ErrSigningKeyTooShort)
	})

	t.Run("Error_ActiveKeyNotFound", func(t *testing.T) {
		_, err := NewSigningKeyChain("missing", []SigningKey{{ID: "key-1", Key: validKey()}})
		assert.ErrorIs(t, err, ErrActiveSigningKeyNotFound)
	})

	t.Run("KeysAreCopied", func(t *testing.T) {
		original := validKey()
		chain, err := NewSigningKeyChain("key-1", []SigningKey{{ID: "key-1", Key: original}})
		assert.NoError(t, err)

		original[0] = 0xFF
		stored, _ := chain.Get("key-1")
		assert.NotEqual(t, byte(0xFF), stored.Key[0])
	})

	t.Run("CloseZeroesKeys", func(t *testing.T) {
		chain, err := NewSigningKeyChain("key-1", []SigningKey{{ID: "key-1", Key: validKey()}})
		assert.NoError(t, err)

		stored, _ := chain.Get("key-1")
		chain.Close()

		for _, b := range stored.Key {
			assert.Equal(t, byte(0), b)
		}
		_, ok := chain.Get("key-1")
		assert.False(t, ok)
	})
}

func TestLoadSigningKeyChainFromEnv(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(validKey())

	t.Run("Success", func(t *testing.T) {
		t.Setenv("SIGNING_KEYS", "key-1:"+encoded+",key-2:"+encoded)
		t.Setenv("ACTIVE_SIGNING_KEY_ID", "key-2")

		chain, err := LoadSigningKeyChainFromEnv()
		assert.NoError(t, err)
		assert.Equal(t, "key-2", chain.ActiveSigningKeyID())

		_, ok := chain.Get("key-1")
		assert.True(t, ok)
	})

	t.Run("Error_KeysNotSet", func(t *testing.T) {
		t.Setenv("SIGNING_KEYS", "")
		t.Setenv("ACTIVE_SIGNING_KEY_ID", "key-1")

		_, err := LoadSigningKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrSigningKeysNotSet)
	})

	t.Run("Error_ActiveIDNotSet", func(t *testing.T) {
		t.Setenv("SIGNING_KEYS", "key-1:"+encoded)
		t.Setenv("ACTIVE_SIGNING_KEY_ID", "")

		_, err := LoadSigningKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrActiveSigningKeyIDNotSet)
	})

	t.Run("Error_MalformedEntry", func(t *testing.T) {
		t.Setenv("SIGNING_KEYS", "key-without-separator")
		t.Setenv("ACTIVE_SIGNING_KEY_ID", "key-1")

		_, err := LoadSigningKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrInvalidSigningKeysFormat)
	})

	t.Run("Error_InvalidBase64", func(t *testing.T) {
		t.Setenv("SIGNING_KEYS", "key-1:not-base64!!!")
		t.Setenv("ACTIVE_SIGNING_KEY_ID", "key-1")

		_, err := LoadSigningKeyChainFromEnv()
		assert.ErrorIs(t, err, ErrInvalidSigningKeyBase64)
	})
}
