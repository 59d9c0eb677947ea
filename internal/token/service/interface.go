// Package service provides token signing and verification for the token
// engine. Signing is stateless: all revocation bookkeeping lives in the use
// case layer, so Sign and Parse complete without external I/O.
package service

import (
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// Signer signs claim sets into opaque bearer tokens and parses them back.
type Signer interface {
	// Sign produces a signed token embedding the claims. Any modification to
	// the token after signing invalidates the signature. The token carries
	// the id of the signing key used, so verification keeps working across
	// key rotations.
	Sign(claims *tokenDomain.Claims) (string, error)

	// Parse verifies the token's signature, expiry, issuer and audience, and
	// returns the embedded claims. Returns ErrTokenExpired when the expiry
	// has passed and ErrInvalidToken for every other failure (bad signature,
	// unknown signing key, malformed shape, wrong issuer or audience).
	Parse(token string) (*tokenDomain.Claims, error)
}
