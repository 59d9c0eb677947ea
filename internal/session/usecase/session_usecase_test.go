package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/authcore/internal/config"
	appErrors "github.com/allisson/authcore/internal/errors"
	credentialDomain "github.com/allisson/authcore/internal/credential/domain"
	credentialService "github.com/allisson/authcore/internal/credential/service"
	credentialUsecase "github.com/allisson/authcore/internal/credential/usecase"
	"github.com/allisson/authcore/internal/session/domain"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
	tokenService "github.com/allisson/authcore/internal/token/service"
	tokenUsecase "github.com/allisson/authcore/internal/token/usecase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTxManager runs the function directly, without a database.
type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memCredentialRepo is an in-memory credential store.
type memCredentialRepo struct {
	mu    sync.Mutex
	byRef map[string]*credentialDomain.Credential
}

func newMemCredentialRepo() *memCredentialRepo {
	return &memCredentialRepo{byRef: map[string]*credentialDomain.Credential{}}
}

func (m *memCredentialRepo) Create(_ context.Context, credential *credentialDomain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[credential.SubjectRef]; ok {
		return credentialDomain.ErrSubjectExists
	}
	c := *credential
	m.byRef[credential.SubjectRef] = &c
	return nil
}

func (m *memCredentialRepo) Update(_ context.Context, credential *credentialDomain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ref, stored := range m.byRef {
		if stored.SubjectID == credential.SubjectID {
			c := *credential
			m.byRef[ref] = &c
			return nil
		}
	}
	return credentialDomain.ErrCredentialNotFound
}

func (m *memCredentialRepo) GetBySubjectRef(_ context.Context, subjectRef string) (*credentialDomain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.byRef[subjectRef]; ok {
		c := *stored
		return &c, nil
	}
	return nil, credentialDomain.ErrCredentialNotFound
}

func (m *memCredentialRepo) GetBySubjectID(_ context.Context, subjectID uuid.UUID) (*credentialDomain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stored := range m.byRef {
		if stored.SubjectID == subjectID {
			c := *stored
			return &c, nil
		}
	}
	return nil, credentialDomain.ErrCredentialNotFound
}

func (m *memCredentialRepo) Delete(_ context.Context, subjectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ref, stored := range m.byRef {
		if stored.SubjectID == subjectID {
			delete(m.byRef, ref)
			return nil
		}
	}
	return nil
}

// memSessionRepo is an in-memory session store with copy semantics, so
// mutations only become visible through Upsert as they would with a real
// database.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[uuid.UUID]*domain.Session{}}
}

func (m *memSessionRepo) Get(_ context.Context, subjectID uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[subjectID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s := *stored
	return &s, nil
}

func (m *memSessionRepo) Upsert(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *session
	m.sessions[session.SubjectID] = &s
	return nil
}

// memRevocationIndex is an in-memory revocation index.
type memRevocationIndex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*tokenDomain.RevocationEntry
}

func newMemRevocationIndex() *memRevocationIndex {
	return &memRevocationIndex{entries: map[uuid.UUID]*tokenDomain.RevocationEntry{}}
}

func (m *memRevocationIndex) Insert(_ context.Context, entry *tokenDomain.RevocationEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.TokenID]; ok {
		return false, nil
	}
	m.entries[entry.TokenID] = entry
	return true, nil
}

func (m *memRevocationIndex) Contains(_ context.Context, tokenID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[tokenID]
	return ok, nil
}

func (m *memRevocationIndex) Prune(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// testStack wires real use cases over in-memory stores with fast hashing.
type testStack struct {
	cfg          *config.Config
	credentialUC credentialUsecase.UseCase
	tokenUC      tokenUsecase.UseCase
	sessionUC    UseCase
	sessionRepo  *memSessionRepo
}

func newTestStack(t *testing.T, lockoutDuration time.Duration) *testStack {
	t.Helper()

	cfg := &config.Config{
		SecretMinLength:    8,
		Argon2Memory:       1024,
		Argon2Time:         1,
		Argon2Parallelism:  1,
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    168 * time.Hour,
		TokenIssuer:        "authcore",
		TokenAudience:      "authcore",
		LockoutMaxAttempts: 5,
		LockoutDuration:    lockoutDuration,
	}

	key := make([]byte, tokenDomain.MinSigningKeySize)
	for i := range key {
		key[i] = byte(i + 7)
	}
	chain, err := tokenDomain.NewSigningKeyChain("key-1", []tokenDomain.SigningKey{{ID: "key-1", Key: key}})
	require.NoError(t, err)

	txManager := &fakeTxManager{}
	hasher := credentialService.NewArgon2idHasher(cfg.SecretMinLength)
	credentialUC := credentialUsecase.NewCredentialUseCase(cfg, txManager, newMemCredentialRepo(), hasher)
	signer := tokenService.NewJWTSigner(chain, cfg.TokenIssuer, cfg.TokenAudience)
	tokenUC := tokenUsecase.NewTokenUseCase(cfg, signer, newMemRevocationIndex(), txManager)
	sessionRepo := newMemSessionRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessionUC := NewSessionUseCase(cfg, txManager, sessionRepo, credentialUC, tokenUC, logger)

	return &testStack{
		cfg:          cfg,
		credentialUC: credentialUC,
		tokenUC:      tokenUC,
		sessionUC:    sessionUC,
		sessionRepo:  sessionRepo,
	}
}

func (s *testStack) register(t *testing.T, subjectRef, secret string, roles ...string) *credentialDomain.Credential {
	t.Helper()
	credential, err := s.credentialUC.Register(context.Background(), credentialUsecase.RegisterInput{
		SubjectRef: subjectRef,
		Secret:     secret,
		Roles:      roles,
	})
	require.NoError(t, err)
	return credential
}

func TestSessionUseCase_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReturnsTokenPair", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1", "user")

		pair, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)

		claims, err := stack.sessionUC.VerifyAccess(ctx, pair.AccessToken)
		assert.NoError(t, err)
		assert.Equal(t, "alice", claims.SubjectRef)
		assert.Equal(t, []string{"user"}, claims.Roles)
	})

	t.Run("Error_WrongSecret", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1")

		_, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "wrong-pass"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Error_UnknownSubjectLooksLikeWrongSecret", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)

		_, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "nobody", Secret: "whatever-pass1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("NewLoginSupersedesPreviousChain", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1")

		first, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		_, err = stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		// The first refresh token was revoked by the second login.
		_, err = stack.tokenUC.Verify(ctx, first.RefreshToken, tokenDomain.KindRefresh)
		assert.ErrorIs(t, err, tokenDomain.ErrTokenRevoked)
	})
}

func TestSessionUseCase_Lockout(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario_FiveFailuresLockEvenTheCorrectSecret", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1")

		// Login with the correct secret works.
		_, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		// One wrong attempt, then four more: threshold is five.
		for range 5 {
			_, err = stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "wrong-pass"})
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		}

		// Even the correct secret is refused now.
		_, err = stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.ErrorIs(t, err, domain.ErrLockedOut)
	})

	t.Run("LockoutElapsesAndLoginSucceeds", func(t *testing.T) {
		stack := newTestStack(t, 50*time.Millisecond)
		stack.register(t, "alice", "correct-horse1")

		for range 5 {
			_, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "wrong-pass"})
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		}

		_, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.ErrorIs(t, err, domain.ErrLockedOut)

		time.Sleep(60 * time.Millisecond)

		_, err = stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)
	})

	t.Run("FailuresBelowThresholdDoNotLock", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1")

		for range 4 {
			_, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "wrong-pass"})
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		}

		_, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)
	})
}

func TestSessionUseCase_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RotatesPair", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1", "user")

		pair, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		rotated, err := stack.sessionUC.Refresh(ctx, pair.RefreshToken)
		assert.NoError(t, err)
		assert.NotEqual(t, pair.RefreshTokenID, rotated.RefreshTokenID)

		claims, err := stack.sessionUC.VerifyAccess(ctx, rotated.AccessToken)
		assert.NoError(t, err)
		assert.Equal(t, "alice", claims.SubjectRef)
	})

	t.Run("Scenario_StaleReuseRevokesWholeChain", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		credential := stack.register(t, "alice", "correct-horse1")

		pairA, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		pairB, err := stack.sessionUC.Refresh(ctx, pairA.RefreshToken)
		assert.NoError(t, err)

		// Reusing the stale pair-A token is replay.
		_, err = stack.sessionUC.Refresh(ctx, pairA.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrReplayDetected)

		// The replay revoked pair B too: the session is deactivated and the
		// chain is dead.
		_, err = stack.sessionUC.Refresh(ctx, pairB.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrReplayDetected)

		_, err = stack.tokenUC.Verify(ctx, pairB.RefreshToken, tokenDomain.KindRefresh)
		assert.ErrorIs(t, err, tokenDomain.ErrTokenRevoked)

		session, err := stack.sessionRepo.Get(ctx, credential.SubjectID)
		assert.NoError(t, err)
		assert.False(t, session.Active)
		assert.Nil(t, session.CurrentTokenID)
	})

	t.Run("Error_ForgedToken", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)

		_, err := stack.sessionUC.Refresh(ctx, "not.a.token")
		assert.ErrorIs(t, err, tokenDomain.ErrInvalidToken)
	})

	t.Run("Error_AccessTokenPresented", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1")

		pair, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		_, err = stack.sessionUC.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, tokenDomain.ErrInvalidToken)
	})
}

func TestSessionUseCase_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RevokesAndClears", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		credential := stack.register(t, "alice", "correct-horse1")

		pair, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		assert.NoError(t, stack.sessionUC.Logout(ctx, pair.RefreshToken))

		session, err := stack.sessionRepo.Get(ctx, credential.SubjectID)
		assert.NoError(t, err)
		assert.False(t, session.Active)
		assert.Nil(t, session.CurrentTokenID)

		// The refresh token is dead; reusing it reads as replay.
		_, err = stack.sessionUC.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrReplayDetected)
	})

	t.Run("AccessTokenStillValidUntilExpiry", func(t *testing.T) {
		// Access tokens are self-expiring by design; logout does not recall
		// them, it bounds them by the short access lifetime.
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1")

		pair, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		assert.NoError(t, err)

		assert.NoError(t, stack.sessionUC.Logout(ctx, pair.RefreshToken))

		_, err = stack.sessionUC.VerifyAccess(ctx, pair.AccessToken)
		assert.NoError(t, err)
	})
}

func TestSessionUseCase_ConcurrentRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("SameToken_OneWinnerRestReplayOrRevoked", func(t *testing.T) {
		stack := newTestStack(t, 15*time.Minute)
		stack.register(t, "alice", "correct-horse1")

		pair, err := stack.sessionUC.Login(ctx, LoginInput{SubjectRef: "alice", Secret: "correct-horse1"})
		require.NoError(t, err)

		const attempts = 8
		results := make(chan error, attempts)
		var wg sync.WaitGroup
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := stack.sessionUC.Refresh(ctx, pair.RefreshToken)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var wins int
		for err := range results {
			if err == nil {
				wins++
			} else {
				// Losers see either replay or a revoked token depending on
				// interleaving; both belong to the unauthorized family.
				assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
			}
		}
		assert.Equal(t, 1, wins)
	})
}
