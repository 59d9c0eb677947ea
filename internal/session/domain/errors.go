package domain

import (
	"github.com/allisson/authcore/internal/errors"
)

// Session errors.
var (
	// ErrInvalidCredentials indicates the login failed. Deliberately covers
	// both unknown subject and wrong secret so callers cannot enumerate
	// registered subjects.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrLockedOut indicates the subject is inside an open lockout window.
	// Returned before the stored credential is even consulted, so lockout
	// state cannot be used as a password-guessing oracle.
	ErrLockedOut = errors.Wrap(errors.ErrLocked, "subject locked out")

	// ErrReplayDetected indicates a stale refresh token was presented.
	// Distinct from a generic revocation: it signals possible compromise and
	// triggers revocation of the subject's whole chain before returning.
	ErrReplayDetected = errors.Wrap(errors.ErrUnauthorized, "refresh token replay detected")

	// ErrSessionNotFound indicates no session row exists for the subject.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")
)
