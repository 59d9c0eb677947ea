package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authcore/internal/credential/domain"
	credentialUsecase "github.com/allisson/authcore/internal/credential/usecase"
	sessionHTTP "github.com/allisson/authcore/internal/session/http"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubCredentialUseCase returns canned results for handler tests.
type stubCredentialUseCase struct {
	credential      *domain.Credential
	registerErr     error
	changeSecretErr error

	changeSecretInput *credentialUsecase.ChangeSecretInput
}

func (s *stubCredentialUseCase) Register(_ context.Context, input credentialUsecase.RegisterInput) (*domain.Credential, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return s.credential, nil
}

func (s *stubCredentialUseCase) ChangeSecret(_ context.Context, input credentialUsecase.ChangeSecretInput) error {
	s.changeSecretInput = &input
	return s.changeSecretErr
}

func (s *stubCredentialUseCase) VerifySecret(context.Context, *domain.Credential, []byte) (bool, error) {
	return false, nil
}

func (s *stubCredentialUseCase) VerifyDecoy(context.Context, []byte) {}

func (s *stubCredentialUseCase) GetBySubjectRef(context.Context, string) (*domain.Credential, error) {
	return s.credential, nil
}

func (s *stubCredentialUseCase) GetBySubjectID(context.Context, uuid.UUID) (*domain.Credential, error) {
	return s.credential, nil
}

func (s *stubCredentialUseCase) Delete(context.Context, uuid.UUID) error {
	return nil
}

// claimsInjector stands in for the access-token middleware in tests.
func claimsInjector(claims *tokenDomain.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(sessionHTTP.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestRegisterHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(uc credentialUsecase.UseCase) *gin.Engine {
		router := gin.New()
		router.POST("/v1/subjects", NewCredentialHandler(uc, testLogger).RegisterHandler)
		return router
	}

	t.Run("Success_Returns201", func(t *testing.T) {
		credential := &domain.Credential{
			SubjectID:  uuid.Must(uuid.NewV7()),
			SubjectRef: "alice",
			SecretHash: "$argon2id$...",
			Roles:      []string{"user"},
			CreatedAt:  time.Now().UTC(),
		}
		router := newRouter(&stubCredentialUseCase{credential: credential})

		recorder := postJSON(t, router, "/v1/subjects", RegisterRequest{
			SubjectRef: "alice",
			Secret:     "correct-horse1",
			Roles:      []string{"user"},
		})

		require.Equal(t, http.StatusCreated, recorder.Code)
		var response RegisterResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, credential.SubjectID.String(), response.SubjectID)
		assert.Equal(t, "alice", response.SubjectRef)
		assert.NotContains(t, recorder.Body.String(), "argon2id")
	})

	t.Run("Error_DuplicateSubjectReturns409", func(t *testing.T) {
		router := newRouter(&stubCredentialUseCase{registerErr: domain.ErrSubjectExists})

		recorder := postJSON(t, router, "/v1/subjects", RegisterRequest{
			SubjectRef: "alice",
			Secret:     "correct-horse1",
		})

		assert.Equal(t, http.StatusConflict, recorder.Code)
	})

	t.Run("Error_WeakSecretReturns400", func(t *testing.T) {
		router := newRouter(&stubCredentialUseCase{registerErr: domain.ErrWeakSecret})

		recorder := postJSON(t, router, "/v1/subjects", RegisterRequest{
			SubjectRef: "alice",
			Secret:     "short",
		})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Error_BadSubjectRefReturns400", func(t *testing.T) {
		router := newRouter(&stubCredentialUseCase{})

		recorder := postJSON(t, router, "/v1/subjects", RegisterRequest{
			SubjectRef: "bad ref with spaces",
			Secret:     "correct-horse1",
		})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestChangeSecretHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	claims := &tokenDomain.Claims{
		SubjectID:  uuid.Must(uuid.NewV7()),
		SubjectRef: "alice",
		Kind:       tokenDomain.KindAccess,
	}

	newRouter := func(uc credentialUsecase.UseCase, authenticated bool) *gin.Engine {
		router := gin.New()
		handler := NewCredentialHandler(uc, testLogger)
		if authenticated {
			router.POST("/v1/password", claimsInjector(claims), handler.ChangeSecretHandler)
		} else {
			router.POST("/v1/password", handler.ChangeSecretHandler)
		}
		return router
	}

	t.Run("Success_Returns204AndUsesClaimsSubject", func(t *testing.T) {
		uc := &stubCredentialUseCase{}
		router := newRouter(uc, true)

		recorder := postJSON(t, router, "/v1/password", ChangeSecretRequest{
			CurrentSecret: "correct-horse1",
			NewSecret:     "better-horse2",
		})

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		require.NotNil(t, uc.changeSecretInput)
		assert.Equal(t, "alice", uc.changeSecretInput.SubjectRef)
	})

	t.Run("Error_NoClaimsReturns401", func(t *testing.T) {
		router := newRouter(&stubCredentialUseCase{}, false)

		recorder := postJSON(t, router, "/v1/password", ChangeSecretRequest{
			CurrentSecret: "correct-horse1",
			NewSecret:     "better-horse2",
		})

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Error_WrongCurrentSecretReturns401", func(t *testing.T) {
		router := newRouter(&stubCredentialUseCase{changeSecretErr: domain.ErrSecretMismatch}, true)

		recorder := postJSON(t, router, "/v1/password", ChangeSecretRequest{
			CurrentSecret: "wrong",
			NewSecret:     "better-horse2",
		})

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Error_MissingFieldsReturns400", func(t *testing.T) {
		router := newRouter(&stubCredentialUseCase{}, true)

		recorder := postJSON(t, router, "/v1/password", ChangeSecretRequest{NewSecret: "better-horse2"})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}
