package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
	cryptoService "github.com/allisson/authcore/internal/crypto/service"
)

// RunCreateMasterKey generates a 32-byte field-encryption master key and
// prints the environment variables to configure it.
//
// With a KMS provider the key is wrapped through gocloud.dev/secrets before
// output and goes into MASTER_KEYS_WRAPPED; plaintext key material never
// reaches the terminal. Without one the key is printed base64-encoded for
// MASTER_KEYS, which is only acceptable for local development.
//
// If keyID is empty a date-stamped ID is generated.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	out io.Writer,
	keyID, kmsProvider, kmsKeyURI string,
) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf("--kms-provider and --kms-key-uri must be set together")
	}

	if keyID == "" {
		keyID = fmt.Sprintf("master-key-%s", time.Now().Format("2006-01-02"))
	}

	masterKey := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	if kmsProvider == "" {
		fmt.Fprintln(out, "# Master Key Configuration (plaintext mode, local development only)")
		fmt.Fprintln(out, "# For production, re-run with --kms-provider and --kms-key-uri.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "MASTER_KEYS=%q\n", fmt.Sprintf("%s:%s", keyID, base64.StdEncoding.EncodeToString(masterKey)))
		fmt.Fprintf(out, "ACTIVE_MASTER_KEY_ID=%q\n", keyID)
		return nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			fmt.Fprintf(out, "# Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	encrypter, ok := keeper.(interface {
		Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	})
	if !ok {
		return fmt.Errorf("KMS keeper does not support encryption")
	}

	wrapped, err := encrypter.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to wrap master key with KMS: %w", err)
	}

	fmt.Fprintln(out, "# Master Key Configuration (KMS mode)")
	fmt.Fprintln(out, "# Copy these environment variables to your .env file or secrets manager.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "KMS_PROVIDER=%q\n", kmsProvider)
	fmt.Fprintf(out, "KMS_KEY_URI=%q\n", kmsKeyURI)
	fmt.Fprintf(out, "MASTER_KEYS_WRAPPED=%q\n", fmt.Sprintf("%s:%s", keyID, base64.StdEncoding.EncodeToString(wrapped)))
	fmt.Fprintf(out, "ACTIVE_MASTER_KEY_ID=%q\n", keyID)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "# For key rotation, wrap the new key with the same KMS key and append it:")
	fmt.Fprintf(out, "# MASTER_KEYS_WRAPPED=\"%s:...,new-key:...\"\n", keyID)
	fmt.Fprintln(out, "# ACTIVE_MASTER_KEY_ID=\"new-key\"")

	return nil
}
