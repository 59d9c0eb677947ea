package usecase

import (
	"bytes"
	"context"
	"crypto/rand"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/config"
	"github.com/allisson/authcore/internal/credential/domain"
	credentialService "github.com/allisson/authcore/internal/credential/service"
	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
	"github.com/allisson/authcore/internal/database"
	apperrors "github.com/allisson/authcore/internal/errors"
	appValidation "github.com/allisson/authcore/internal/validation"
)

// credentialUseCase handles credential-related business logic.
type credentialUseCase struct {
	config         *config.Config
	txManager      database.TxManager
	credentialRepo CredentialRepository
	hasher         credentialService.Hasher
	decoyHash      string
}

// NewCredentialUseCase creates a new credential UseCase.
func NewCredentialUseCase(
	config *config.Config,
	txManager database.TxManager,
	credentialRepo CredentialRepository,
	hasher credentialService.Hasher,
) UseCase {
	uc := &credentialUseCase{
		config:         config,
		txManager:      txManager,
		credentialRepo: credentialRepo,
		hasher:         hasher,
	}

	// Bake a decoy hash at the configured cost so VerifyDecoy does the same
	// amount of work as a real verification.
	decoySecret := make([]byte, 32)
	_, _ = rand.Read(decoySecret)
	uc.decoyHash, _ = hasher.Hash(decoySecret, uc.targetParams())

	return uc
}

// targetParams returns the currently configured Argon2id cost target.
func (c *credentialUseCase) targetParams() domain.Params {
	return domain.Params{
		Memory:      c.config.Argon2Memory,
		Time:        c.config.Argon2Time,
		Parallelism: c.config.Argon2Parallelism,
	}
}

// secretStrength is the password strength rule shared by registration and
// secret change.
func (c *credentialUseCase) secretStrength() appValidation.PasswordStrength {
	return appValidation.PasswordStrength{
		MinLength:     c.config.SecretMinLength,
		RequireLetter: true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// validateRegisterInput validates the registration input using jellydator/validation.
func (c *credentialUseCase) validateRegisterInput(input RegisterInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.SubjectRef,
			validation.Required.Error("subject_ref is required"),
			appValidation.NotBlank,
			appValidation.SubjectRef,
			validation.Length(3, 255).Error("subject_ref must be between 3 and 255 characters"),
		),
		validation.Field(&input.Secret,
			validation.Required.Error("secret is required"),
			validation.Length(c.config.SecretMinLength, 128).Error("secret length out of bounds"),
			c.secretStrength(),
		),
		validation.Field(&input.Roles,
			validation.Each(validation.Length(1, 64).Error("role must be between 1 and 64 characters")),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Register creates a credential for a new subject.
func (c *credentialUseCase) Register(ctx context.Context, input RegisterInput) (*domain.Credential, error) {
	if err := c.validateRegisterInput(input); err != nil {
		return nil, err
	}

	secretHash, err := c.hasher.Hash([]byte(input.Secret), c.targetParams())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	credential := &domain.Credential{
		SubjectID:  uuid.Must(uuid.NewV7()),
		SubjectRef: strings.TrimSpace(input.SubjectRef),
		SecretHash: secretHash,
		Roles:      input.Roles,
		CreatedAt:  now,
		ChangedAt:  now,
	}

	err = c.txManager.WithTx(ctx, func(ctx context.Context) error {
		return c.credentialRepo.Create(ctx, credential)
	})
	if err != nil {
		return nil, err
	}

	return credential, nil
}

// ChangeSecret verifies the current secret and replaces the credential.
func (c *credentialUseCase) ChangeSecret(ctx context.Context, input ChangeSecretInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.SubjectRef,
			validation.Required.Error("subject_ref is required"),
			appValidation.NotBlank,
		),
		validation.Field(&input.CurrentSecret,
			validation.Required.Error("current_secret is required"),
		),
		validation.Field(&input.NewSecret,
			validation.Required.Error("new_secret is required"),
			validation.Length(c.config.SecretMinLength, 128).Error("new_secret length out of bounds"),
			c.secretStrength(),
		),
	)
	if err := appValidation.WrapValidationError(err); err != nil {
		return err
	}

	credential, err := c.credentialRepo.GetBySubjectRef(ctx, strings.TrimSpace(input.SubjectRef))
	if err != nil {
		return err
	}

	ok, err := c.hasher.Verify([]byte(input.CurrentSecret), credential.SecretHash)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSecretMismatch
	}

	newHash, err := c.hasher.Hash([]byte(input.NewSecret), c.targetParams())
	if err != nil {
		return err
	}

	replacement := &domain.Credential{
		SubjectID:  credential.SubjectID,
		SubjectRef: credential.SubjectRef,
		SecretHash: newHash,
		Roles:      credential.Roles,
		CreatedAt:  credential.CreatedAt,
		ChangedAt:  time.Now().UTC(),
	}

	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		return c.credentialRepo.Update(ctx, replacement)
	})
}

// VerifySecret checks the secret against the stored credential, upgrading
// the hash when the stored cost parameters are weaker than the target.
func (c *credentialUseCase) VerifySecret(
	ctx context.Context,
	credential *domain.Credential,
	secret []byte,
) (bool, error) {
	defer cryptoDomain.Zero(secret)

	// Verify consumes (and zeroes) its copy of the secret; keep the original
	// intact in case a rehash is needed.
	ok, err := c.hasher.Verify(bytes.Clone(secret), credential.SecretHash)
	if err != nil || !ok {
		return false, err
	}

	needsRehash, err := c.hasher.NeedsRehash(credential.SecretHash, c.targetParams())
	if err != nil {
		return false, err
	}
	if !needsRehash {
		return true, nil
	}

	newHash, err := c.hasher.Hash(bytes.Clone(secret), c.targetParams())
	if err != nil {
		return false, apperrors.Wrap(err, "failed to rehash credential")
	}

	credential.SecretHash = newHash
	credential.ChangedAt = time.Now().UTC()

	err = c.txManager.WithTx(ctx, func(ctx context.Context) error {
		return c.credentialRepo.Update(ctx, credential)
	})
	if err != nil {
		return false, apperrors.Wrap(err, "failed to persist rehashed credential")
	}

	return true, nil
}

// VerifyDecoy burns one Argon2id verification against the decoy credential.
// The result is discarded; only the timing matters.
func (c *credentialUseCase) VerifyDecoy(ctx context.Context, secret []byte) {
	if c.decoyHash == "" {
		cryptoDomain.Zero(secret)
		return
	}
	_, _ = c.hasher.Verify(secret, c.decoyHash)
}

// GetBySubjectRef retrieves a credential by subject reference.
func (c *credentialUseCase) GetBySubjectRef(ctx context.Context, subjectRef string) (*domain.Credential, error) {
	return c.credentialRepo.GetBySubjectRef(ctx, strings.TrimSpace(subjectRef))
}

// GetBySubjectID retrieves a credential by subject id.
func (c *credentialUseCase) GetBySubjectID(ctx context.Context, subjectID uuid.UUID) (*domain.Credential, error) {
	return c.credentialRepo.GetBySubjectID(ctx, subjectID)
}

// Delete removes the credential of a deleted subject.
func (c *credentialUseCase) Delete(ctx context.Context, subjectID uuid.UUID) error {
	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		return c.credentialRepo.Delete(ctx, subjectID)
	})
}
