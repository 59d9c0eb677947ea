package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/authcore/internal/config"
	"github.com/allisson/authcore/internal/credential/domain"
	credentialService "github.com/allisson/authcore/internal/credential/service"
	apperrors "github.com/allisson/authcore/internal/errors"
)

// mockCredentialRepository is a mock implementation of CredentialRepository for testing.
type mockCredentialRepository struct {
	mock.Mock
}

func (m *mockCredentialRepository) Create(ctx context.Context, credential *domain.Credential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *mockCredentialRepository) Update(ctx context.Context, credential *domain.Credential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *mockCredentialRepository) GetBySubjectRef(ctx context.Context, subjectRef string) (*domain.Credential, error) {
	args := m.Called(ctx, subjectRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credential), args.Error(1)
}

func (m *mockCredentialRepository) GetBySubjectID(ctx context.Context, subjectID uuid.UUID) (*domain.Credential, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credential), args.Error(1)
}

func (m *mockCredentialRepository) Delete(ctx context.Context, subjectID uuid.UUID) error {
	args := m.Called(ctx, subjectID)
	return args.Error(0)
}

// fakeTxManager runs the function directly, without a database.
type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testConfig uses low Argon2id costs so hashing stays fast in tests.
func testConfig() *config.Config {
	return &config.Config{
		SecretMinLength:   8,
		Argon2Memory:      1024,
		Argon2Time:        1,
		Argon2Parallelism: 1,
	}
}

func newTestUseCase(repo CredentialRepository) UseCase {
	cfg := testConfig()
	return NewCredentialUseCase(cfg, &fakeTxManager{}, repo, credentialService.NewArgon2idHasher(cfg.SecretMinLength))
}

func TestCredentialUseCase_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := &mockCredentialRepository{}
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Credential")).Return(nil)
		uc := newTestUseCase(mockRepo)

		credential, err := uc.Register(ctx, RegisterInput{
			SubjectRef: "alice@example.com",
			Secret:     "correct-horse1",
			Roles:      []string{"user"},
		})
		assert.NoError(t, err)
		assert.Equal(t, "alice@example.com", credential.SubjectRef)
		assert.Equal(t, []string{"user"}, credential.Roles)
		assert.NotEqual(t, uuid.Nil, credential.SubjectID)

		// The stored hash is opaque PHC, never the plaintext.
		assert.Contains(t, credential.SecretHash, "$argon2id$")
		assert.NotContains(t, credential.SecretHash, "correct-horse1")

		mockRepo.AssertExpectations(t)
	})

	t.Run("Error_WeakSecret", func(t *testing.T) {
		uc := newTestUseCase(&mockCredentialRepository{})

		_, err := uc.Register(ctx, RegisterInput{SubjectRef: "alice", Secret: "short1!"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_SecretWithoutDigit", func(t *testing.T) {
		uc := newTestUseCase(&mockCredentialRepository{})

		_, err := uc.Register(ctx, RegisterInput{SubjectRef: "alice", Secret: "password-only!"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_MissingSubjectRef", func(t *testing.T) {
		uc := newTestUseCase(&mockCredentialRepository{})

		_, err := uc.Register(ctx, RegisterInput{Secret: "correct-horse1"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_SubjectAlreadyExists", func(t *testing.T) {
		mockRepo := &mockCredentialRepository{}
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrSubjectExists)
		uc := newTestUseCase(mockRepo)

		_, err := uc.Register(ctx, RegisterInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.ErrorIs(t, err, domain.ErrSubjectExists)
	})
}

func TestCredentialUseCase_ChangeSecret(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	hasher := credentialService.NewArgon2idHasher(cfg.SecretMinLength)

	storedHash, err := hasher.Hash([]byte("correct-horse1"), domain.Params{Memory: 1024, Time: 1, Parallelism: 1})
	assert.NoError(t, err)

	stored := func() *domain.Credential {
		return &domain.Credential{
			SubjectID:  uuid.Must(uuid.NewV7()),
			SubjectRef: "alice",
			SecretHash: storedHash,
			Roles:      []string{"user"},
		}
	}

	t.Run("Success_ReplacesCredential", func(t *testing.T) {
		credential := stored()
		mockRepo := &mockCredentialRepository{}
		mockRepo.On("GetBySubjectRef", mock.Anything, "alice").Return(credential, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Credential) bool {
			return c.SubjectID == credential.SubjectID &&
				c.SecretHash != storedHash &&
				!c.ChangedAt.IsZero()
		})).Return(nil)
		uc := newTestUseCase(mockRepo)

		err := uc.ChangeSecret(ctx, ChangeSecretInput{
			SubjectRef:    "alice",
			CurrentSecret: "correct-horse1",
			NewSecret:     "battery-staple2",
		})
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error_WrongCurrentSecret", func(t *testing.T) {
		mockRepo := &mockCredentialRepository{}
		mockRepo.On("GetBySubjectRef", mock.Anything, "alice").Return(stored(), nil)
		uc := newTestUseCase(mockRepo)

		err := uc.ChangeSecret(ctx, ChangeSecretInput{
			SubjectRef:    "alice",
			CurrentSecret: "wrong-pass9",
			NewSecret:     "battery-staple2",
		})
		assert.ErrorIs(t, err, domain.ErrSecretMismatch)
	})

	t.Run("Error_WeakNewSecret", func(t *testing.T) {
		uc := newTestUseCase(&mockCredentialRepository{})

		err := uc.ChangeSecret(ctx, ChangeSecretInput{
			SubjectRef:    "alice",
			CurrentSecret: "correct-horse1",
			NewSecret:     "weak",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestCredentialUseCase_VerifySecret(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	hasher := credentialService.NewArgon2idHasher(cfg.SecretMinLength)

	t.Run("Success_NoRehashNeeded", func(t *testing.T) {
		hash, err := hasher.Hash([]byte("correct-horse1"), domain.Params{Memory: 1024, Time: 1, Parallelism: 1})
		assert.NoError(t, err)

		mockRepo := &mockCredentialRepository{}
		uc := newTestUseCase(mockRepo)

		ok, err := uc.VerifySecret(ctx, &domain.Credential{SecretHash: hash}, []byte("correct-horse1"))
		assert.NoError(t, err)
		assert.True(t, ok)
		// No Update expectation: params already match the target.
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongSecret_ReturnsFalse", func(t *testing.T) {
		hash, err := hasher.Hash([]byte("correct-horse1"), domain.Params{Memory: 1024, Time: 1, Parallelism: 1})
		assert.NoError(t, err)

		uc := newTestUseCase(&mockCredentialRepository{})

		ok, err := uc.VerifySecret(ctx, &domain.Credential{SecretHash: hash}, []byte("wrong-pass9"))
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("LazyRehash_OnWeakerParams", func(t *testing.T) {
		// Hash with weaker-than-target time cost; memory already at target.
		weakHash, err := hasher.Hash([]byte("correct-horse1"), domain.Params{Memory: 512, Time: 1, Parallelism: 1})
		assert.NoError(t, err)

		credential := &domain.Credential{
			SubjectID:  uuid.Must(uuid.NewV7()),
			SubjectRef: "alice",
			SecretHash: weakHash,
		}

		mockRepo := &mockCredentialRepository{}
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Credential) bool {
			return c.SecretHash != weakHash
		})).Return(nil)
		uc := newTestUseCase(mockRepo)

		ok, err := uc.VerifySecret(ctx, credential, []byte("correct-horse1"))
		assert.NoError(t, err)
		assert.True(t, ok)

		// The upgraded hash verifies against the same secret.
		okAgain, err := hasher.Verify([]byte("correct-horse1"), credential.SecretHash)
		assert.NoError(t, err)
		assert.True(t, okAgain)

		mockRepo.AssertExpectations(t)
	})

	t.Run("Error_CorruptStoredHash", func(t *testing.T) {
		uc := newTestUseCase(&mockCredentialRepository{})

		_, err := uc.VerifySecret(ctx, &domain.Credential{SecretHash: "not-a-phc-hash"}, []byte("correct-horse1"))
		assert.ErrorIs(t, err, domain.ErrCorruptCredential)
	})
}

func TestCredentialUseCase_VerifyDecoy(t *testing.T) {
	// No observable result: just confirm it neither panics nor touches the
	// repository.
	uc := newTestUseCase(&mockCredentialRepository{})
	uc.VerifyDecoy(context.Background(), []byte("whatever-secret1"))
}

func TestCredentialUseCase_Delete(t *testing.T) {
	ctx := context.Background()

	mockRepo := &mockCredentialRepository{}
	subjectID := uuid.Must(uuid.NewV7())
	mockRepo.On("Delete", mock.Anything, subjectID).Return(nil)
	uc := newTestUseCase(mockRepo)

	assert.NoError(t, uc.Delete(ctx, subjectID))
	mockRepo.AssertExpectations(t)
}
