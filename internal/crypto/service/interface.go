// Package service provides authenticated field encryption services.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and the field
// cipher that binds ciphertexts to the master key chain.
package service

import (
	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	// A fresh random nonce is generated inside every call; callers can never
	// supply one, which structurally prevents nonce reuse under a key.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// FieldCipher encrypts and decrypts individual sensitive fields with the
// master key chain. It is orthogonal to the login control flow: the
// persistence layer invokes it around sensitive attributes at write and
// read time.
type FieldCipher interface {
	// EncryptField encrypts plaintext under the active master key. The aad
	// (e.g. the owning record id) is authenticated but not encrypted, binding
	// the ciphertext to its context.
	EncryptField(plaintext, aad []byte) (cryptoDomain.EncryptedField, error)

	// DecryptField decrypts a field, selecting the master key recorded in the
	// field. Returns ErrAuthenticationFailed on any tag mismatch; plaintext
	// must be discarded by the caller as soon as the request scope ends.
	DecryptField(field cryptoDomain.EncryptedField, aad []byte) ([]byte, error)
}
