// Package http provides HTTP handlers for subject registration and secret
// changes.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	credentialUsecase "github.com/allisson/authcore/internal/credential/usecase"
	apperrors "github.com/allisson/authcore/internal/errors"
	"github.com/allisson/authcore/internal/httputil"
	sessionHTTP "github.com/allisson/authcore/internal/session/http"
	customValidation "github.com/allisson/authcore/internal/validation"
)

// CredentialHandler handles HTTP requests for credential management.
type CredentialHandler struct {
	credentialUseCase credentialUsecase.UseCase
	logger            *slog.Logger
}

// NewCredentialHandler creates a new credential handler.
func NewCredentialHandler(credentialUseCase credentialUsecase.UseCase, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		credentialUseCase: credentialUseCase,
		logger:            logger,
	}
}

// RegisterRequest contains the parameters for registering a new subject.
type RegisterRequest struct {
	SubjectRef string   `json:"subject_ref"`
	Secret     string   `json:"secret"`
	Roles      []string `json:"roles"`
}

// Validate checks if the register request is valid. Secret strength is
// enforced by the use case, which owns the configured policy.
func (r *RegisterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SubjectRef,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
			customValidation.SubjectRef,
		),
		validation.Field(&r.Secret, validation.Required),
		validation.Field(&r.Roles,
			validation.Each(customValidation.NotBlank, validation.Length(1, 64)),
		),
	)
}

// RegisterResponse contains the created subject. The secret is never echoed.
type RegisterResponse struct {
	SubjectID  string    `json:"subject_id"`
	SubjectRef string    `json:"subject_ref"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChangeSecretRequest contains the parameters for a secret change. The
// subject comes from the authenticated access token, not the body, so a
// subject can only ever change its own secret.
type ChangeSecretRequest struct {
	CurrentSecret string `json:"current_secret"`
	NewSecret     string `json:"new_secret"`
}

// Validate checks if the change secret request is valid.
func (r *ChangeSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CurrentSecret, validation.Required),
		validation.Field(&r.NewSecret, validation.Required),
	)
}

// RegisterHandler registers a new subject with a secret and roles.
// POST /v1/subjects
func (h *CredentialHandler) RegisterHandler(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	credential, err := h.credentialUseCase.Register(c.Request.Context(), credentialUsecase.RegisterInput{
		SubjectRef: req.SubjectRef,
		Secret:     req.Secret,
		Roles:      req.Roles,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		SubjectID:  credential.SubjectID.String(),
		SubjectRef: credential.SubjectRef,
		Roles:      credential.Roles,
		CreatedAt:  credential.CreatedAt,
	})
}

// ChangeSecretHandler changes the authenticated subject's secret after
// verifying the current one.
// POST /v1/password - requires a valid access token.
func (h *CredentialHandler) ChangeSecretHandler(c *gin.Context) {
	claims, ok := sessionHTTP.GetClaims(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req ChangeSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err := h.credentialUseCase.ChangeSecret(c.Request.Context(), credentialUsecase.ChangeSecretInput{
		SubjectRef:    claims.SubjectRef,
		CurrentSecret: req.CurrentSecret,
		NewSecret:     req.NewSecret,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
