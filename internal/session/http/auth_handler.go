// Package http provides HTTP handlers for login, refresh, logout and access
// verification.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	"github.com/allisson/authcore/internal/httputil"
	sessionUsecase "github.com/allisson/authcore/internal/session/usecase"
	customValidation "github.com/allisson/authcore/internal/validation"
)

// AuthHandler handles HTTP requests for the session lifecycle.
type AuthHandler struct {
	sessionUseCase sessionUsecase.UseCase
	logger         *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessionUseCase sessionUsecase.UseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessionUseCase: sessionUseCase,
		logger:         logger,
	}
}

// LoginRequest contains the credentials presented at login.
type LoginRequest struct {
	SubjectRef string `json:"subject_ref"`
	Secret     string `json:"secret"`
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SubjectRef,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
			customValidation.SubjectRef,
		),
		validation.Field(&r.Secret, validation.Required),
	)
}

// RefreshRequest carries the refresh token to rotate or revoke.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate checks if the refresh request is valid.
func (r *RefreshRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// TokenPairResponse is the API shape of a minted token pair.
type TokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// VerifyResponse describes the claims of a valid access token.
type VerifyResponse struct {
	SubjectID  string    `json:"subject_id"`
	SubjectRef string    `json:"subject_ref"`
	Roles      []string  `json:"roles"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// LoginHandler authenticates a subject and mints a token pair.
// POST /v1/auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	pair, err := h.sessionUseCase.Login(c.Request.Context(), sessionUsecase.LoginInput{
		SubjectRef: req.SubjectRef,
		Secret:     req.Secret,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, TokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

// RefreshHandler rotates a refresh token into a new pair.
// POST /v1/auth/refresh
func (h *AuthHandler) RefreshHandler(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	pair, err := h.sessionUseCase.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, TokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

// LogoutHandler revokes a refresh token and clears the session.
// POST /v1/auth/logout
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.sessionUseCase.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// VerifyHandler returns the claims of the presented access token. The access
// token comes from the Authorization header via AccessTokenMiddleware.
// GET /v1/auth/verify
func (h *AuthHandler) VerifyHandler(c *gin.Context) {
	claims, ok := GetClaims(c.Request.Context())
	if !ok {
		// Middleware is mounted in front of this route; missing claims means
		// a wiring mistake, not a client error.
		h.logger.Error("verify handler reached without claims in context")
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{
		SubjectID:  claims.SubjectID.String(),
		SubjectRef: claims.SubjectRef,
		Roles:      claims.Roles,
		ExpiresAt:  claims.ExpiresAt,
	})
}
