package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	credentialDomain "github.com/allisson/authcore/internal/credential/domain"
	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
	apperrors "github.com/allisson/authcore/internal/errors"
)

const (
	// saltLength is the per-credential random salt size in bytes.
	saltLength = 16
	// keyLength is the derived key size in bytes.
	keyLength = 32
)

// Argon2idHasher implements Hasher using Argon2id key derivation.
//
// Hashes are stored in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<base64 salt>$<base64 key>
//
// so the cost parameters travel with each credential and NeedsRehash can
// compare them against the currently configured target.
type Argon2idHasher struct {
	minSecretLength int
}

// NewArgon2idHasher creates a new Argon2idHasher. Secrets shorter than
// minSecretLength are rejected with ErrWeakSecret.
func NewArgon2idHasher(minSecretLength int) *Argon2idHasher {
	return &Argon2idHasher{minSecretLength: minSecretLength}
}

// Hash derives an Argon2id hash from the secret with a fresh random salt.
// The secret is zeroed before returning, on success and on failure.
func (h *Argon2idHasher) Hash(secret []byte, params credentialDomain.Params) (string, error) {
	defer cryptoDomain.Zero(secret)

	if len(secret) < h.minSecretLength {
		return "", credentialDomain.ErrWeakSecret
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", apperrors.Wrap(err, "failed to generate salt")
	}

	key := argon2.IDKey(secret, salt, params.Time, params.Memory, params.Parallelism, keyLength)
	defer cryptoDomain.Zero(key)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Time,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify compares a secret against a stored PHC-encoded hash in constant time.
// The secret is zeroed before returning.
func (h *Argon2idHasher) Verify(secret []byte, encodedHash string) (bool, error) {
	defer cryptoDomain.Zero(secret)

	params, salt, storedKey, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	defer cryptoDomain.Zero(storedKey)

	key := argon2.IDKey(secret, salt, params.Time, params.Memory, params.Parallelism, uint32(len(storedKey)))
	defer cryptoDomain.Zero(key)

	return subtle.ConstantTimeCompare(storedKey, key) == 1, nil
}

// NeedsRehash reports whether the stored parameters are weaker than target.
func (h *Argon2idHasher) NeedsRehash(encodedHash string, target credentialDomain.Params) (bool, error) {
	params, _, storedKey, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	cryptoDomain.Zero(storedKey)

	return params.WeakerThan(target), nil
}

// decodeHash parses a PHC-formatted Argon2id hash into its parts.
// Any malformation yields ErrCorruptCredential.
func decodeHash(encodedHash string) (credentialDomain.Params, []byte, []byte, error) {
	var params credentialDomain.Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return params, nil, nil, apperrors.Wrap(credentialDomain.ErrCorruptCredential, "malformed hash")
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, apperrors.Wrapf(
			credentialDomain.ErrCorruptCredential,
			"unexpected algorithm %q",
			parts[1],
		)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, apperrors.Wrap(credentialDomain.ErrCorruptCredential, "malformed version")
	}
	if version != argon2.Version {
		return params, nil, nil, apperrors.Wrapf(
			credentialDomain.ErrCorruptCredential,
			"unsupported argon2 version %d",
			version,
		)
	}

	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&params.Memory,
		&params.Time,
		&params.Parallelism,
	); err != nil {
		return params, nil, nil, apperrors.Wrap(credentialDomain.ErrCorruptCredential, "malformed parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, apperrors.Wrap(credentialDomain.ErrCorruptCredential, "malformed salt")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, apperrors.Wrap(credentialDomain.ErrCorruptCredential, "malformed key")
	}

	return params, salt, key, nil
}
