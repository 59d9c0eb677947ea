package domain

import (
	"github.com/allisson/authcore/internal/errors"
)

// Token errors.
var (
	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "token expired")

	// ErrInvalidToken indicates the token cannot be trusted: bad signature,
	// unknown signing key, malformed shape, wrong issuer or audience, or the
	// wrong kind for the operation. Deliberately generic so callers cannot
	// tell which check failed.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrTokenRevoked indicates the refresh token's identifier appears in the
	// revocation index.
	ErrTokenRevoked = errors.Wrap(errors.ErrUnauthorized, "token revoked")

	// Signing key provisioning errors. These are startup faults, not request
	// failures.

	// ErrSigningKeysNotSet indicates the SIGNING_KEYS environment variable is not set.
	ErrSigningKeysNotSet = errors.New("SIGNING_KEYS environment variable not set")

	// ErrActiveSigningKeyIDNotSet indicates the ACTIVE_SIGNING_KEY_ID environment variable is not set.
	ErrActiveSigningKeyIDNotSet = errors.New("ACTIVE_SIGNING_KEY_ID environment variable not set")

	// ErrInvalidSigningKeysFormat indicates SIGNING_KEYS is not in "id:base64key" format.
	ErrInvalidSigningKeysFormat = errors.New("invalid SIGNING_KEYS format, expected id:base64key")

	// ErrInvalidSigningKeyBase64 indicates a signing key is not valid base64.
	ErrInvalidSigningKeyBase64 = errors.New("invalid base64 in signing key")

	// ErrSigningKeyTooShort indicates a signing key is below the minimum size.
	ErrSigningKeyTooShort = errors.New("signing key below minimum size")

	// ErrActiveSigningKeyNotFound indicates the active key id matches no provided key.
	ErrActiveSigningKeyNotFound = errors.New("active signing key not found in SIGNING_KEYS")
)
