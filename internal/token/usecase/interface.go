// Package usecase implements the token engine business logic: issuance,
// verification, rotation and revocation of access/refresh token pairs.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// UseCase defines the interface for token business logic operations.
type UseCase interface {
	// Issue mints a single signed token of the given kind. The token's
	// lifetime depends on the kind: short for access tokens, long for
	// refresh tokens.
	Issue(
		ctx context.Context,
		subjectID uuid.UUID,
		subjectRef string,
		roles []string,
		kind tokenDomain.Kind,
	) (string, *tokenDomain.Claims, error)

	// IssuePair mints an access+refresh pair for the subject.
	IssuePair(
		ctx context.Context,
		subjectID uuid.UUID,
		subjectRef string,
		roles []string,
	) (*tokenDomain.Pair, error)

	// Parse checks the token's signature, expiry and kind without consulting
	// the revocation index. The session layer uses it to distinguish a
	// stale-but-authentic refresh token (replay) from a forged one.
	Parse(ctx context.Context, token string, kind tokenDomain.Kind) (*tokenDomain.Claims, error)

	// Verify checks the token and returns its claims. Checks run in order:
	// signature and expiry first, then, for refresh tokens only, the
	// revocation index. Access tokens are never checked against the index;
	// they are self-expiring and their compromise window is bounded by the
	// short access lifetime.
	Verify(ctx context.Context, token string, kind tokenDomain.Kind) (*tokenDomain.Claims, error)

	// Rotate verifies the presented refresh token, revokes its identifier
	// and mints a new pair for the same subject, atomically. Of two
	// concurrent rotations of the same token exactly one succeeds; the
	// other observes the revocation and fails with ErrTokenRevoked.
	Rotate(ctx context.Context, refreshToken string) (*tokenDomain.Pair, error)

	// Revoke adds the token identifier to the revocation index. Idempotent:
	// revoking an already-revoked identifier is a no-op, not an error.
	Revoke(ctx context.Context, tokenID, subjectID uuid.UUID, expiresAt time.Time) error

	// Prune removes revocation entries whose natural expiry has passed and
	// returns how many were removed. Garbage collection only; an expired
	// token already fails the expiry check.
	Prune(ctx context.Context) (int64, error)
}

// RevocationRepository defines the revocation index operations. The index is
// read on every refresh-token verification and written on every rotation or
// revocation, so implementations must be safe for concurrent use.
type RevocationRepository interface {
	// Insert adds the entry to the index. Returns false without error when
	// the identifier is already present. The insert must be atomic: of two
	// concurrent inserts of the same identifier exactly one returns true.
	Insert(ctx context.Context, entry *tokenDomain.RevocationEntry) (bool, error)

	// Contains reports whether the identifier is in the index.
	Contains(ctx context.Context, tokenID uuid.UUID) (bool, error)

	// Prune deletes entries whose expiry is at or before now.
	Prune(ctx context.Context, now time.Time) (int64, error)
}
