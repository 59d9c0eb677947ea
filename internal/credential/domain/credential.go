// Package domain defines credential domain models for password storage.
// A credential binds a subject to an Argon2id hash of its password; the
// plaintext secret is never retained beyond the hashing or verification call.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Params holds the Argon2id cost parameters stored alongside every hash.
// Keeping them per-credential allows lazy upgrades: when the configured
// target becomes stronger, the credential is rehashed on the next
// successful login instead of forcing a mass rehash.
type Params struct {
	// Memory is the memory cost in KiB.
	Memory uint32
	// Time is the number of iterations.
	Time uint32
	// Parallelism is the degree of parallelism.
	Parallelism uint8
}

// WeakerThan reports whether p is weaker than target in any dimension.
func (p Params) WeakerThan(target Params) bool {
	return p.Memory < target.Memory ||
		p.Time < target.Time ||
		p.Parallelism < target.Parallelism
}

// Credential represents a stored password credential owned by one subject.
// SecretHash is an opaque PHC-formatted string (algorithm, parameters, salt
// and derived key); callers never inspect it directly. A credential is
// replaced, never mutated, on password change.
type Credential struct {
	SubjectID  uuid.UUID
	SubjectRef string
	SecretHash string
	Roles      []string
	CreatedAt  time.Time
	ChangedAt  time.Time
}
