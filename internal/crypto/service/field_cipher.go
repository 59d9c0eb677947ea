package service

import (
	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
	apperrors "github.com/allisson/authcore/internal/errors"
)

// fieldCipher implements FieldCipher on top of the master key chain.
type fieldCipher struct {
	chain       *cryptoDomain.MasterKeyChain
	aeadManager AEADManager
	alg         cryptoDomain.Algorithm
}

// NewFieldCipher creates a FieldCipher that encrypts new fields with the
// chain's active master key using the given algorithm. Fields encrypted
// before a key rotation are decrypted with the key recorded in the field.
func NewFieldCipher(
	chain *cryptoDomain.MasterKeyChain,
	aeadManager AEADManager,
	alg cryptoDomain.Algorithm,
) FieldCipher {
	return &fieldCipher{
		chain:       chain,
		aeadManager: aeadManager,
		alg:         alg,
	}
}

// EncryptField encrypts plaintext under the active master key.
func (f *fieldCipher) EncryptField(plaintext, aad []byte) (cryptoDomain.EncryptedField, error) {
	masterKey, ok := f.chain.Active()
	if !ok {
		return cryptoDomain.EncryptedField{}, apperrors.Wrap(
			apperrors.ErrUnavailable,
			"no active master key",
		)
	}

	aead, err := f.aeadManager.CreateCipher(masterKey.Key, f.alg)
	if err != nil {
		return cryptoDomain.EncryptedField{}, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, aad)
	if err != nil {
		return cryptoDomain.EncryptedField{}, apperrors.Wrap(err, "failed to encrypt field")
	}

	return cryptoDomain.EncryptedField{
		KeyID:      masterKey.ID,
		Algorithm:  f.alg,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// DecryptField decrypts a field with the master key recorded in it.
// Any tag mismatch surfaces as ErrAuthenticationFailed with no plaintext;
// the caller must never attempt partial recovery.
func (f *fieldCipher) DecryptField(
	field cryptoDomain.EncryptedField,
	aad []byte,
) ([]byte, error) {
	masterKey, ok := f.chain.Get(field.KeyID)
	if !ok {
		return nil, cryptoDomain.ErrUnknownKeyID
	}

	aead, err := f.aeadManager.CreateCipher(masterKey.Key, field.Algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Decrypt(field.Ciphertext, field.Nonce, aad)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	return plaintext, nil
}
