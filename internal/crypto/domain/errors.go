package domain

import (
	"github.com/allisson/authcore/internal/errors"
)

// Cryptographic operation errors.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key is not exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrAuthenticationFailed indicates the authentication tag did not verify:
	// the ciphertext was tampered with or the wrong key was used. The specific
	// cause is deliberately not disclosed, and no partial plaintext is ever
	// returned.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrUnauthorized, "authentication failed")

	// ErrMasterKeysNotSet indicates the MASTER_KEYS environment variable is not configured.
	ErrMasterKeysNotSet = errors.New("MASTER_KEYS environment variable not set")

	// ErrActiveMasterKeyIDNotSet indicates ACTIVE_MASTER_KEY_ID is not configured.
	ErrActiveMasterKeyIDNotSet = errors.New("ACTIVE_MASTER_KEY_ID environment variable not set")

	// ErrInvalidMasterKeysFormat indicates MASTER_KEYS entries are not "id:base64key".
	ErrInvalidMasterKeysFormat = errors.New("invalid MASTER_KEYS format")

	// ErrInvalidMasterKeyBase64 indicates a master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.New("invalid master key base64")

	// ErrActiveMasterKeyNotFound indicates the active key id has no matching key entry.
	ErrActiveMasterKeyNotFound = errors.New("active master key not found")

	// ErrUnknownKeyID indicates an encrypted field references a key id that is
	// not present in the chain. Decryption cannot proceed.
	ErrUnknownKeyID = errors.Wrap(errors.ErrUnavailable, "unknown master key id")
)
