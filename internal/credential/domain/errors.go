package domain

import (
	"github.com/allisson/authcore/internal/errors"
)

// Credential errors.
var (
	// ErrWeakSecret indicates the submitted password is empty or below the
	// configured minimum length. Caller-fixable input problem.
	ErrWeakSecret = errors.Wrap(errors.ErrInvalidInput, "secret too weak")

	// ErrCorruptCredential indicates the stored credential data cannot be
	// parsed (corrupted algorithm tag or malformed hash). This is a data
	// integrity fault, never treated as a failed verification: masking it as
	// "wrong password" would hide data corruption.
	ErrCorruptCredential = errors.Wrap(errors.ErrUnavailable, "corrupt credential")

	// ErrCredentialNotFound indicates no credential exists for the subject.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrSubjectExists indicates a credential already exists for the subject reference.
	ErrSubjectExists = errors.Wrap(errors.ErrConflict, "subject already registered")

	// ErrSecretMismatch indicates the submitted secret does not verify
	// against the stored credential.
	ErrSecretMismatch = errors.Wrap(errors.ErrUnauthorized, "secret mismatch")
)
