package usecase

import (
	"context"
	"log/slog"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/config"
	credentialUsecase "github.com/allisson/authcore/internal/credential/usecase"
	"github.com/allisson/authcore/internal/database"
	apperrors "github.com/allisson/authcore/internal/errors"
	"github.com/allisson/authcore/internal/session/domain"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
	tokenUsecase "github.com/allisson/authcore/internal/token/usecase"
	appValidation "github.com/allisson/authcore/internal/validation"
)

// sessionUseCase implements the session state machine.
type sessionUseCase struct {
	config       *config.Config
	txManager    database.TxManager
	sessionRepo  SessionRepository
	credentialUC credentialUsecase.UseCase
	tokenUC      tokenUsecase.UseCase
	subjectLocks *keyedMutex
	logger       *slog.Logger
}

// NewSessionUseCase creates a new session UseCase.
func NewSessionUseCase(
	config *config.Config,
	txManager database.TxManager,
	sessionRepo SessionRepository,
	credentialUC credentialUsecase.UseCase,
	tokenUC tokenUsecase.UseCase,
	logger *slog.Logger,
) UseCase {
	return &sessionUseCase{
		config:       config,
		txManager:    txManager,
		sessionRepo:  sessionRepo,
		credentialUC: credentialUC,
		tokenUC:      tokenUC,
		subjectLocks: newKeyedMutex(),
		logger:       logger,
	}
}

// getOrCreateSession loads the session row, creating an anonymous one on
// first contact with the subject.
func (s *sessionUseCase) getOrCreateSession(ctx context.Context, subjectID uuid.UUID) (*domain.Session, error) {
	session, err := s.sessionRepo.Get(ctx, subjectID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return domain.NewSession(subjectID), nil
		}
		return nil, err
	}
	return session, nil
}

// Login verifies the subject's secret and mints a token pair.
func (s *sessionUseCase) Login(ctx context.Context, input LoginInput) (*tokenDomain.Pair, error) {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.SubjectRef, validation.Required.Error("subject_ref is required")),
		validation.Field(&input.Secret, validation.Required.Error("secret is required")),
	)
	if err := appValidation.WrapValidationError(err); err != nil {
		return nil, err
	}

	credential, err := s.credentialUC.GetBySubjectRef(ctx, input.SubjectRef)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// Burn a comparable amount of hashing work so an unknown subject
			// costs the same as a wrong secret.
			s.credentialUC.VerifyDecoy(ctx, []byte(input.Secret))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	subjectID := credential.SubjectID

	// Lockout gate before any hashing. A locked-out subject gets the same
	// answer no matter what secret it sends.
	s.subjectLocks.Lock(subjectID)
	session, err := s.getOrCreateSession(ctx, subjectID)
	if err != nil {
		s.subjectLocks.Unlock(subjectID)
		return nil, err
	}
	now := time.Now().UTC()
	if session.IsLockedOut(now) {
		s.subjectLocks.Unlock(subjectID)
		return nil, domain.ErrLockedOut
	}
	s.subjectLocks.Unlock(subjectID)

	// The expensive Argon2id verification runs outside the subject lock so
	// logins for the same subject are not serialized behind hashing.
	ok, err := s.credentialUC.VerifySecret(ctx, credential, []byte(input.Secret))
	if err != nil {
		return nil, err
	}

	s.subjectLocks.Lock(subjectID)
	defer s.subjectLocks.Unlock(subjectID)

	// Reload under the lock: failures or a concurrent login may have changed
	// the session while hashing was in flight.
	session, err = s.getOrCreateSession(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	now = time.Now().UTC()
	if session.IsLockedOut(now) {
		return nil, domain.ErrLockedOut
	}
	session.ClearExpiredLockout(now)

	if !ok {
		session.RecordFailure(now, s.config.LockoutMaxAttempts, s.config.LockoutDuration)
		err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
			return s.sessionRepo.Upsert(ctx, session)
		})
		if err != nil {
			return nil, err
		}
		s.logger.WarnContext(ctx, "login failed",
			slog.String("subject_id", subjectID.String()),
			slog.Int("failed_attempts", session.FailedAttempts),
			slog.Bool("locked_out", session.IsLockedOut(now)),
		)
		return nil, domain.ErrInvalidCredentials
	}

	var pair *tokenDomain.Pair
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		// A new login supersedes the previous chain: at most one live
		// refresh-token identifier per session.
		if session.CurrentTokenID != nil {
			err := s.tokenUC.Revoke(ctx, *session.CurrentTokenID, subjectID, now.Add(s.config.RefreshTokenTTL))
			if err != nil {
				return err
			}
		}

		var err error
		pair, err = s.tokenUC.IssuePair(ctx, subjectID, credential.SubjectRef, credential.Roles)
		if err != nil {
			return err
		}

		session.RecordLogin(now, pair.RefreshTokenID)
		return s.sessionRepo.Upsert(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Refresh rotates the presented refresh token into a new pair.
func (s *sessionUseCase) Refresh(ctx context.Context, refreshToken string) (*tokenDomain.Pair, error) {
	claims, err := s.tokenUC.Parse(ctx, refreshToken, tokenDomain.KindRefresh)
	if err != nil {
		return nil, err
	}

	s.subjectLocks.Lock(claims.SubjectID)
	defer s.subjectLocks.Unlock(claims.SubjectID)

	session, err := s.sessionRepo.Get(ctx, claims.SubjectID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, tokenDomain.ErrInvalidToken
		}
		return nil, err
	}

	now := time.Now().UTC()
	if !session.Active || session.CurrentTokenID == nil || *session.CurrentTokenID != claims.TokenID {
		// An authentic but superseded refresh token: someone is replaying a
		// stale chain link. Revoke everything for this subject and force a
		// fresh login.
		err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
			if err := s.tokenUC.Revoke(ctx, claims.TokenID, claims.SubjectID, claims.ExpiresAt); err != nil {
				return err
			}
			if session.CurrentTokenID != nil {
				err := s.tokenUC.Revoke(ctx, *session.CurrentTokenID, claims.SubjectID, now.Add(s.config.RefreshTokenTTL))
				if err != nil {
					return err
				}
			}
			session.Deactivate(now)
			return s.sessionRepo.Upsert(ctx, session)
		})
		if err != nil {
			return nil, err
		}

		s.logger.WarnContext(ctx, "refresh token replay detected, chain revoked",
			slog.String("subject_id", claims.SubjectID.String()),
			slog.String("token_id", claims.TokenID.String()),
		)
		return nil, domain.ErrReplayDetected
	}

	var pair *tokenDomain.Pair
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		pair, err = s.tokenUC.Rotate(ctx, refreshToken)
		if err != nil {
			return err
		}
		session.RecordRotation(now, pair.RefreshTokenID)
		return s.sessionRepo.Upsert(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes the presented refresh token and clears the session.
func (s *sessionUseCase) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokenUC.Parse(ctx, refreshToken, tokenDomain.KindRefresh)
	if err != nil {
		return err
	}

	s.subjectLocks.Lock(claims.SubjectID)
	defer s.subjectLocks.Unlock(claims.SubjectID)

	session, err := s.sessionRepo.Get(ctx, claims.SubjectID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	return s.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := s.tokenUC.Revoke(ctx, claims.TokenID, claims.SubjectID, claims.ExpiresAt); err != nil {
			return err
		}
		if session != nil && session.CurrentTokenID != nil && *session.CurrentTokenID == claims.TokenID {
			session.Deactivate(now)
			return s.sessionRepo.Upsert(ctx, session)
		}
		return nil
	})
}

// VerifyAccess verifies an access token and returns its claims.
func (s *sessionUseCase) VerifyAccess(ctx context.Context, accessToken string) (*tokenDomain.Claims, error) {
	return s.tokenUC.Verify(ctx, accessToken, tokenDomain.KindAccess)
}
