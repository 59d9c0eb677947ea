package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/allisson/authcore/internal/errors"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// jwtClaims is the wire shape of the claim set. It is a closed structure:
// extra claims in a presented token are ignored, never surfaced.
type jwtClaims struct {
	jwt.RegisteredClaims
	SubjectRef string   `json:"ref"`
	Roles      []string `json:"roles,omitempty"`
	Kind       string   `json:"kind"`
}

// jwtSigner implements Signer using HS256 JWTs with a rotatable key chain.
// The signing key id travels in the "kid" header so verification selects the
// key the token was actually signed with.
type jwtSigner struct {
	chain    *tokenDomain.SigningKeyChain
	issuer   string
	audience string
}

// NewJWTSigner creates a Signer backed by the given signing key chain.
// Issuer and audience are embedded into every signed token and enforced on
// every parse.
func NewJWTSigner(chain *tokenDomain.SigningKeyChain, issuer, audience string) Signer {
	return &jwtSigner{
		chain:    chain,
		issuer:   issuer,
		audience: audience,
	}
}

// Sign produces an HS256 JWT for the claims, signed with the chain's active key.
func (s *jwtSigner) Sign(claims *tokenDomain.Claims) (string, error) {
	active, ok := s.chain.Active()
	if !ok {
		return "", apperrors.New("no active signing key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   claims.SubjectID.String(),
			ID:        claims.TokenID.String(),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		SubjectRef: claims.SubjectRef,
		Roles:      claims.Roles,
		Kind:       string(claims.Kind),
	})
	token.Header["kid"] = active.ID

	signed, err := token.SignedString(active.Key)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Parse verifies the token and returns its claims.
func (s *jwtSigner) Parse(tokenString string) (*tokenDomain.Claims, error) {
	var claims jwtClaims

	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if apperrors.Is(err, jwt.ErrTokenExpired) {
			return nil, tokenDomain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", tokenDomain.ErrInvalidToken, err)
	}

	return s.toDomain(&claims)
}

// keyFunc selects the verification key from the "kid" header.
func (s *jwtSigner) keyFunc(token *jwt.Token) (any, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, apperrors.New("token has no kid header")
	}
	key, ok := s.chain.Get(kid)
	if !ok {
		return nil, fmt.Errorf("unknown signing key id %q", kid)
	}
	return key.Key, nil
}

// toDomain converts verified wire claims to the domain claim set, rejecting
// malformed identifiers and unknown kinds.
func (s *jwtSigner) toDomain(claims *jwtClaims) (*tokenDomain.Claims, error) {
	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject id", tokenDomain.ErrInvalidToken)
	}

	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed token id", tokenDomain.ErrInvalidToken)
	}

	kind := tokenDomain.Kind(claims.Kind)
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown token kind", tokenDomain.ErrInvalidToken)
	}

	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing time claims", tokenDomain.ErrInvalidToken)
	}

	return &tokenDomain.Claims{
		SubjectID:  subjectID,
		SubjectRef: claims.SubjectRef,
		Roles:      claims.Roles,
		Issuer:     s.issuer,
		Audience:   s.audience,
		TokenID:    tokenID,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
		Kind:       kind,
	}, nil
}
