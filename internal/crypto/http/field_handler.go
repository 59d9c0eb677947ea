// Package http provides HTTP handlers for field encryption and decryption.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
	cryptoService "github.com/allisson/authcore/internal/crypto/service"
	"github.com/allisson/authcore/internal/httputil"
	customValidation "github.com/allisson/authcore/internal/validation"
)

// FieldHandler handles HTTP requests for field encryption operations. The
// master keys never leave the server; clients exchange base64 payloads only.
type FieldHandler struct {
	fieldCipher cryptoService.FieldCipher
	logger      *slog.Logger
}

// NewFieldHandler creates a new field handler.
func NewFieldHandler(fieldCipher cryptoService.FieldCipher, logger *slog.Logger) *FieldHandler {
	return &FieldHandler{
		fieldCipher: fieldCipher,
		logger:      logger,
	}
}

// EncryptFieldRequest contains a base64 plaintext and optional base64 AAD.
type EncryptFieldRequest struct {
	Plaintext string `json:"plaintext"`
	AAD       string `json:"aad,omitempty"`
}

// Validate checks if the encrypt request is valid.
func (r *EncryptFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Plaintext, validation.Required, customValidation.Base64),
		validation.Field(&r.AAD, customValidation.Base64),
	)
}

// EncryptedFieldPayload is the API shape of an encrypted field. The same
// shape is presented back for decryption.
type EncryptedFieldPayload struct {
	KeyID      string `json:"key_id"`
	Algorithm  string `json:"algorithm"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// DecryptFieldRequest contains an encrypted field and the AAD it was bound to.
type DecryptFieldRequest struct {
	KeyID      string `json:"key_id"`
	Algorithm  string `json:"algorithm"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	AAD        string `json:"aad,omitempty"`
}

// Validate checks if the decrypt request is valid.
func (r *DecryptFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.KeyID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Algorithm, validation.Required),
		validation.Field(&r.Nonce, validation.Required, customValidation.Base64),
		validation.Field(&r.Ciphertext, validation.Required, customValidation.Base64),
		validation.Field(&r.AAD, customValidation.Base64),
	)
}

// DecryptFieldResponse contains the recovered base64 plaintext.
type DecryptFieldResponse struct {
	Plaintext string `json:"plaintext"`
}

// decodeAAD decodes the optional base64 AAD field; empty means no AAD.
func decodeAAD(aad string) ([]byte, error) {
	if aad == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(aad)
}

// EncryptFieldHandler encrypts a field under the active master key.
// POST /v1/field/encrypt - requires a valid access token.
func (h *FieldHandler) EncryptFieldHandler(c *gin.Context) {
	var req EncryptFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 plaintext: %w", err), h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	aad, err := decodeAAD(req.AAD)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 aad: %w", err), h.logger)
		return
	}

	field, err := h.fieldCipher.EncryptField(plaintext, aad)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, EncryptedFieldPayload{
		KeyID:      field.KeyID,
		Algorithm:  string(field.Algorithm),
		Nonce:      base64.StdEncoding.EncodeToString(field.Nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(field.Ciphertext),
	})
}

// DecryptFieldHandler decrypts a field, selecting the master key recorded in
// the payload. Tampered payloads fail closed with no plaintext.
// POST /v1/field/decrypt - requires a valid access token.
func (h *FieldHandler) DecryptFieldHandler(c *gin.Context) {
	var req DecryptFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	nonce, err := base64.StdEncoding.DecodeString(req.Nonce)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 nonce: %w", err), h.logger)
		return
	}
	ciphertext, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 ciphertext: %w", err), h.logger)
		return
	}
	aad, err := decodeAAD(req.AAD)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 aad: %w", err), h.logger)
		return
	}

	field := cryptoDomain.EncryptedField{
		KeyID:      req.KeyID,
		Algorithm:  cryptoDomain.Algorithm(req.Algorithm),
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}

	plaintext, err := h.fieldCipher.DecryptField(field, aad)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	c.JSON(http.StatusOK, DecryptFieldResponse{
		Plaintext: base64.StdEncoding.EncodeToString(plaintext),
	})
}
