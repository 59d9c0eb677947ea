// Package usecase implements the session state machine: login, refresh,
// logout and access verification, composing the credential vault and the
// token engine. This layer is the sole owner of the failed-attempt counter
// and the lockout window.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/session/domain"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// LoginInput contains the input data for a login attempt.
type LoginInput struct {
	SubjectRef string `json:"subject_ref"`
	Secret     string `json:"secret"`
}

// UseCase defines the interface for session business logic operations.
type UseCase interface {
	// Login verifies the subject's secret and mints a token pair. The
	// lockout window is checked before any hashing so a locked-out subject
	// learns nothing about the stored credential, and unknown subjects are
	// indistinguishable from wrong secrets. A successful login supersedes
	// and revokes the previous refresh-token chain.
	Login(ctx context.Context, input LoginInput) (*tokenDomain.Pair, error)

	// Refresh rotates the presented refresh token into a new pair. A stale
	// token that does not match the session's current identifier is treated
	// as replay: the whole chain is revoked and the session deactivated
	// before ErrReplayDetected is returned.
	Refresh(ctx context.Context, refreshToken string) (*tokenDomain.Pair, error)

	// Logout revokes the presented refresh token and clears the session's
	// current identifier.
	Logout(ctx context.Context, refreshToken string) error

	// VerifyAccess verifies an access token and returns its claims. Purely
	// stateless: no session or revocation lookup happens here.
	VerifyAccess(ctx context.Context, accessToken string) (*tokenDomain.Claims, error)
}

// SessionRepository interface defines session repository operations.
type SessionRepository interface {
	// Get retrieves the session row for the subject.
	Get(ctx context.Context, subjectID uuid.UUID) (*domain.Session, error)

	// Upsert inserts or replaces the session row for the subject.
	Upsert(ctx context.Context, session *domain.Session) error
}
