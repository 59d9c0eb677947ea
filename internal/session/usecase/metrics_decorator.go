package usecase

import (
	"context"
	"time"

	apperrors "github.com/allisson/authcore/internal/errors"
	"github.com/allisson/authcore/internal/metrics"
	"github.com/allisson/authcore/internal/session/domain"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// sessionUseCaseWithMetrics decorates UseCase with metrics instrumentation,
// including security event counters for failed logins, lockouts and replays.
type sessionUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewSessionUseCaseWithMetrics wraps a session UseCase with metrics recording.
func NewSessionUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &sessionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *sessionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "session", operation, status)
	s.metrics.RecordDuration(ctx, "session", operation, time.Since(start), status)
}

// Login records login metrics and counts credential failures and lockouts.
func (s *sessionUseCaseWithMetrics) Login(ctx context.Context, input LoginInput) (*tokenDomain.Pair, error) {
	start := time.Now()
	pair, err := s.next.Login(ctx, input)
	s.record(ctx, "login", start, err)

	switch {
	case apperrors.Is(err, domain.ErrLockedOut):
		s.metrics.RecordSecurityEvent(ctx, metrics.EventLockout)
	case apperrors.Is(err, domain.ErrInvalidCredentials):
		s.metrics.RecordSecurityEvent(ctx, metrics.EventLoginFailure)
	}

	return pair, err
}

// Refresh records refresh metrics and counts detected replays.
func (s *sessionUseCaseWithMetrics) Refresh(ctx context.Context, refreshToken string) (*tokenDomain.Pair, error) {
	start := time.Now()
	pair, err := s.next.Refresh(ctx, refreshToken)
	s.record(ctx, "refresh", start, err)

	if apperrors.Is(err, domain.ErrReplayDetected) {
		s.metrics.RecordSecurityEvent(ctx, metrics.EventReplayDetected)
	}

	return pair, err
}

// Logout records logout metrics.
func (s *sessionUseCaseWithMetrics) Logout(ctx context.Context, refreshToken string) error {
	start := time.Now()
	err := s.next.Logout(ctx, refreshToken)
	s.record(ctx, "logout", start, err)

	if err == nil {
		s.metrics.RecordSecurityEvent(ctx, metrics.EventTokenRevoked)
	}

	return err
}

// VerifyAccess records access verification metrics.
func (s *sessionUseCaseWithMetrics) VerifyAccess(ctx context.Context, accessToken string) (*tokenDomain.Claims, error) {
	start := time.Now()
	claims, err := s.next.VerifyAccess(ctx, accessToken)
	s.record(ctx, "verify_access", start, err)
	return claims, err
}
