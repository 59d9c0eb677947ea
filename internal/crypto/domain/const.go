// Package domain defines cryptographic domain models for field encryption.
// Implements authenticated encryption of sensitive stored fields with a
// rotatable master key chain.
package domain

// Algorithm represents the AEAD algorithm used for field encryption.
//
// Both supported algorithms provide authenticated encryption: any tampering
// with the ciphertext, nonce or associated data is detected at decryption
// time via the 16-byte authentication tag.
type Algorithm string

const (
	// AESGCM is AES-256-GCM: 256-bit key, 12-byte nonce, 16-byte tag.
	// Preferred on CPUs with AES-NI hardware acceleration.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305: 256-bit key, 12-byte nonce, 16-byte tag.
	// Constant-time in software, preferred where AES-NI is unavailable.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the required key size in bytes for all supported algorithms.
const KeySize = 32
