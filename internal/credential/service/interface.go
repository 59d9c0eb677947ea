// Package service provides password hashing for the credential vault.
//
// The vault owns the one deliberately slow operation in the system: Argon2id
// key derivation with tunable memory/time/parallelism costs. Callers must not
// hold per-subject locks while a hash or verification is in flight.
package service

import (
	credentialDomain "github.com/allisson/authcore/internal/credential/domain"
)

// Hasher defines password hashing operations for the credential vault.
// Implementations must generate a unique salt per Hash call and compare
// derived keys in constant time.
type Hasher interface {
	// Hash derives a PHC-encoded Argon2id hash from the secret.
	// Returns ErrWeakSecret if the secret is empty or below the configured
	// minimum length. The secret slice is zeroed before returning.
	Hash(secret []byte, params credentialDomain.Params) (string, error)

	// Verify compares a secret against a stored PHC-encoded hash.
	// The comparison of the derived key is constant time irrespective of
	// where the bytes diverge; the result is a bare boolean, never partial
	// match information. A malformed stored hash yields ErrCorruptCredential,
	// never a false verification result.
	Verify(secret []byte, encodedHash string) (bool, error)

	// NeedsRehash reports whether the stored hash was derived with cost
	// parameters weaker than target, enabling lazy upgrade on the next
	// successful login. Returns ErrCorruptCredential for malformed hashes.
	NeedsRehash(encodedHash string, target credentialDomain.Params) (bool, error)
}
