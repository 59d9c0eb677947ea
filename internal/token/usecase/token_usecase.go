package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/config"
	"github.com/allisson/authcore/internal/database"
	apperrors "github.com/allisson/authcore/internal/errors"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
	tokenService "github.com/allisson/authcore/internal/token/service"
)

// tokenUseCase implements UseCase on a Signer and a revocation index.
type tokenUseCase struct {
	config         *config.Config
	signer         tokenService.Signer
	revocationRepo RevocationRepository
	txManager      database.TxManager
}

// NewTokenUseCase creates a new token UseCase.
func NewTokenUseCase(
	config *config.Config,
	signer tokenService.Signer,
	revocationRepo RevocationRepository,
	txManager database.TxManager,
) UseCase {
	return &tokenUseCase{
		config:         config,
		signer:         signer,
		revocationRepo: revocationRepo,
		txManager:      txManager,
	}
}

// ttl returns the configured lifetime for the token kind.
func (t *tokenUseCase) ttl(kind tokenDomain.Kind) time.Duration {
	if kind == tokenDomain.KindRefresh {
		return t.config.RefreshTokenTTL
	}
	return t.config.AccessTokenTTL
}

// Issue mints a single signed token of the given kind.
func (t *tokenUseCase) Issue(
	ctx context.Context,
	subjectID uuid.UUID,
	subjectRef string,
	roles []string,
	kind tokenDomain.Kind,
) (string, *tokenDomain.Claims, error) {
	if !kind.IsValid() {
		return "", nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown token kind %q", kind)
	}

	now := time.Now().UTC()
	claims := &tokenDomain.Claims{
		SubjectID:  subjectID,
		SubjectRef: subjectRef,
		Roles:      roles,
		Issuer:     t.config.TokenIssuer,
		Audience:   t.config.TokenAudience,
		TokenID:    uuid.Must(uuid.NewV7()),
		IssuedAt:   now,
		ExpiresAt:  now.Add(t.ttl(kind)),
		Kind:       kind,
	}

	signed, err := t.signer.Sign(claims)
	if err != nil {
		return "", nil, apperrors.Wrap(err, "failed to issue token")
	}
	return signed, claims, nil
}

// IssuePair mints an access+refresh pair for the subject.
func (t *tokenUseCase) IssuePair(
	ctx context.Context,
	subjectID uuid.UUID,
	subjectRef string,
	roles []string,
) (*tokenDomain.Pair, error) {
	accessToken, accessClaims, err := t.Issue(ctx, subjectID, subjectRef, roles, tokenDomain.KindAccess)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshClaims, err := t.Issue(ctx, subjectID, subjectRef, roles, tokenDomain.KindRefresh)
	if err != nil {
		return nil, err
	}

	return &tokenDomain.Pair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
		RefreshTokenID:   refreshClaims.TokenID,
	}, nil
}

// Parse checks signature, expiry and kind without the revocation index.
func (t *tokenUseCase) Parse(
	ctx context.Context,
	token string,
	kind tokenDomain.Kind,
) (*tokenDomain.Claims, error) {
	claims, err := t.signer.Parse(token)
	if err != nil {
		return nil, err
	}

	if claims.Kind != kind {
		return nil, tokenDomain.ErrInvalidToken
	}
	return claims, nil
}

// Verify checks the token and returns its claims.
func (t *tokenUseCase) Verify(
	ctx context.Context,
	token string,
	kind tokenDomain.Kind,
) (*tokenDomain.Claims, error) {
	claims, err := t.Parse(ctx, token, kind)
	if err != nil {
		return nil, err
	}

	// Only refresh tokens are revocable by identifier.
	if kind == tokenDomain.KindRefresh {
		revoked, err := t.revocationRepo.Contains(ctx, claims.TokenID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to check revocation index")
		}
		if revoked {
			return nil, tokenDomain.ErrTokenRevoked
		}
	}

	return claims, nil
}

// Rotate revokes the presented refresh token and mints a new pair.
func (t *tokenUseCase) Rotate(ctx context.Context, refreshToken string) (*tokenDomain.Pair, error) {
	claims, err := t.Verify(ctx, refreshToken, tokenDomain.KindRefresh)
	if err != nil {
		return nil, err
	}

	var pair *tokenDomain.Pair
	err = t.txManager.WithTx(ctx, func(ctx context.Context) error {
		// The insert is the linearization point: if another rotation of the
		// same token got here first, the identifier is already present and
		// this attempt must fail, never mint a second pair.
		inserted, err := t.revocationRepo.Insert(ctx, &tokenDomain.RevocationEntry{
			TokenID:   claims.TokenID,
			SubjectID: claims.SubjectID,
			ExpiresAt: claims.ExpiresAt,
			RevokedAt: time.Now().UTC(),
		})
		if err != nil {
			return apperrors.Wrap(err, "failed to revoke rotated token")
		}
		if !inserted {
			return tokenDomain.ErrTokenRevoked
		}

		pair, err = t.IssuePair(ctx, claims.SubjectID, claims.SubjectRef, claims.Roles)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Revoke adds the token identifier to the revocation index, idempotently.
func (t *tokenUseCase) Revoke(
	ctx context.Context,
	tokenID, subjectID uuid.UUID,
	expiresAt time.Time,
) error {
	_, err := t.revocationRepo.Insert(ctx, &tokenDomain.RevocationEntry{
		TokenID:   tokenID,
		SubjectID: subjectID,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now().UTC(),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}
	return nil
}

// Prune removes revocation entries whose natural expiry has passed.
func (t *tokenUseCase) Prune(ctx context.Context) (int64, error) {
	pruned, err := t.revocationRepo.Prune(ctx, time.Now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to prune revocation index")
	}
	return pruned, nil
}
