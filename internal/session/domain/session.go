// Package domain defines the session domain model: the per-subject binding
// of a refresh-token chain to failed-attempt and lockout bookkeeping.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// State is the observable session state, derived from the session fields
// rather than stored.
type State string

const (
	// StateAnonymous means no live refresh-token chain exists for the subject.
	StateAnonymous State = "anonymous"

	// StateActive means the subject holds a live refresh-token chain.
	StateActive State = "active"

	// StateLockedOut means login is refused until the lockout window elapses.
	StateLockedOut State = "locked_out"
)

// Session binds a subject to its currently-valid refresh-token chain plus
// failed-attempt counters. A session is never physically deleted on logout,
// only cleared, so a reused stale refresh token is detectable as replay
// rather than rejected as generically invalid.
type Session struct {
	SubjectID      uuid.UUID
	CurrentTokenID *uuid.UUID
	FailedAttempts int
	LockedUntil    *time.Time
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSession creates an anonymous session for the subject.
func NewSession(subjectID uuid.UUID) *Session {
	now := time.Now().UTC()
	return &Session{
		SubjectID: subjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLockedOut reports whether the lockout window is still open at now.
func (s *Session) IsLockedOut(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// State derives the observable state at now. A lockout whose window has
// elapsed reads as anonymous; no explicit unlock action exists.
func (s *Session) State(now time.Time) State {
	switch {
	case s.IsLockedOut(now):
		return StateLockedOut
	case s.Active && s.CurrentTokenID != nil:
		return StateActive
	default:
		return StateAnonymous
	}
}

// ClearExpiredLockout resets the failed-attempt bookkeeping once the lockout
// window has elapsed.
func (s *Session) ClearExpiredLockout(now time.Time) {
	if s.LockedUntil != nil && !now.Before(*s.LockedUntil) {
		s.LockedUntil = nil
		s.FailedAttempts = 0
	}
}

// RecordFailure increments the failed-attempt counter and opens a lockout
// window when the configured threshold is reached.
func (s *Session) RecordFailure(now time.Time, maxAttempts int, lockout time.Duration) {
	s.FailedAttempts++
	if s.FailedAttempts >= maxAttempts {
		until := now.Add(lockout)
		s.LockedUntil = &until
	}
	s.UpdatedAt = now
}

// RecordLogin binds the session to a new refresh-token chain and resets the
// failed-attempt bookkeeping.
func (s *Session) RecordLogin(now time.Time, refreshTokenID uuid.UUID) {
	s.CurrentTokenID = &refreshTokenID
	s.FailedAttempts = 0
	s.LockedUntil = nil
	s.Active = true
	s.UpdatedAt = now
}

// RecordRotation supersedes the current refresh-token identifier.
func (s *Session) RecordRotation(now time.Time, refreshTokenID uuid.UUID) {
	s.CurrentTokenID = &refreshTokenID
	s.UpdatedAt = now
}

// Deactivate clears the current chain, marking the session anonymous while
// keeping the row for replay detection.
func (s *Session) Deactivate(now time.Time) {
	s.CurrentTokenID = nil
	s.Active = false
	s.UpdatedAt = now
}
