package domain

// EncryptedField is the stored form of one sensitive attribute: the
// ciphertext (authentication tag appended), the nonce used for this single
// encryption, and the id of the master key that produced it so the field
// stays decryptable after key rotation.
//
// Decryption fails closed: a tag mismatch yields no plaintext, ever.
type EncryptedField struct {
	KeyID      string
	Algorithm  Algorithm
	Nonce      []byte
	Ciphertext []byte
}
