// Package domain defines token domain models: signed bearer tokens, their
// claim sets, and the revocation index entries that back refresh-token
// revocation.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the token kind.
type Kind string

const (
	// KindAccess is a short-lived token presented on every authenticated
	// request. Access tokens are self-expiring and never checked against the
	// revocation index, so verifying one is a pure CPU operation.
	KindAccess Kind = "access"

	// KindRefresh is a long-lived token used only to mint new token pairs.
	// Refresh tokens are revocable and checked against the revocation index
	// on every use.
	KindRefresh Kind = "refresh"
)

// IsValid reports whether k is a known token kind.
func (k Kind) IsValid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the closed claim set embedded in every token. Fields are
// explicitly enumerated; unexpected claims in a presented token are never
// surfaced as trusted data.
type Claims struct {
	SubjectID  uuid.UUID
	SubjectRef string
	Roles      []string
	Issuer     string
	Audience   string
	TokenID    uuid.UUID
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Kind       Kind
}

// Pair is an access+refresh token pair minted together at login or rotation.
// RefreshTokenID is recorded by the session as the current refresh-token
// identifier for replay detection.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	RefreshTokenID   uuid.UUID
}

// RevocationEntry marks one refresh-token identifier as revoked. Entries are
// kept until the token's natural expiry passes, after which they are eligible
// for pruning (an expired token already fails the expiry check, so pruning
// never changes observable behavior).
type RevocationEntry struct {
	TokenID   uuid.UUID
	SubjectID uuid.UUID
	ExpiresAt time.Time
	RevokedAt time.Time
}
