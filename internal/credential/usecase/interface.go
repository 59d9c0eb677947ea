// Package usecase implements the credential vault business logic: subject
// registration, secret verification with lazy rehash, and secret changes.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/credential/domain"
)

// RegisterInput contains the input data for subject registration.
type RegisterInput struct {
	SubjectRef string   `json:"subject_ref"`
	Secret     string   `json:"secret"`
	Roles      []string `json:"roles"`
}

// ChangeSecretInput contains the input data for a secret change.
type ChangeSecretInput struct {
	SubjectRef    string `json:"subject_ref"`
	CurrentSecret string `json:"current_secret"`
	NewSecret     string `json:"new_secret"`
}

// UseCase defines the interface for credential business logic operations.
type UseCase interface {
	// Register creates a credential for a new subject. The plaintext secret
	// is hashed and dropped; it is never retained or returned.
	Register(ctx context.Context, input RegisterInput) (*domain.Credential, error)

	// ChangeSecret verifies the current secret and replaces the credential
	// with one derived from the new secret. The credential row is replaced,
	// never mutated in place.
	ChangeSecret(ctx context.Context, input ChangeSecretInput) error

	// VerifySecret checks the secret against the stored credential. On a
	// successful verification with cost parameters weaker than the
	// configured target, the credential is transparently rehashed at the
	// target cost. The secret slice is zeroed before returning.
	VerifySecret(ctx context.Context, credential *domain.Credential, secret []byte) (bool, error)

	// VerifyDecoy burns one full Argon2id verification against a fixed decoy
	// credential. Called on login attempts for unknown subjects so they cost
	// the same as a wrong secret for a registered one.
	VerifyDecoy(ctx context.Context, secret []byte)

	// GetBySubjectRef retrieves a credential by subject reference.
	GetBySubjectRef(ctx context.Context, subjectRef string) (*domain.Credential, error)

	// GetBySubjectID retrieves a credential by subject id.
	GetBySubjectID(ctx context.Context, subjectID uuid.UUID) (*domain.Credential, error)

	// Delete removes the credential of a deleted subject.
	Delete(ctx context.Context, subjectID uuid.UUID) error
}

// CredentialRepository interface defines credential repository operations.
type CredentialRepository interface {
	Create(ctx context.Context, credential *domain.Credential) error
	Update(ctx context.Context, credential *domain.Credential) error
	GetBySubjectRef(ctx context.Context, subjectRef string) (*domain.Credential, error)
	GetBySubjectID(ctx context.Context, subjectID uuid.UUID) (*domain.Credential, error)
	Delete(ctx context.Context, subjectID uuid.UUID) error
}
