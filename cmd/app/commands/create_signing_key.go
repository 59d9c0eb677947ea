package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// RunCreateSigningKey generates a random HMAC token-signing key and prints
// the environment variables to configure it. If keyID is empty a date-stamped
// ID is generated.
func RunCreateSigningKey(out io.Writer, keyID string) error {
	if keyID == "" {
		keyID = fmt.Sprintf("signing-key-%s", time.Now().Format("2006-01-02"))
	}

	key := make([]byte, tokenDomain.MinSigningKeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}
	defer cryptoDomain.Zero(key)

	fmt.Fprintln(out, "# Token Signing Key Configuration")
	fmt.Fprintln(out, "# Copy these environment variables to your .env file or secrets manager.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "SIGNING_KEYS=%q\n", fmt.Sprintf("%s:%s", keyID, base64.StdEncoding.EncodeToString(key)))
	fmt.Fprintf(out, "ACTIVE_SIGNING_KEY_ID=%q\n", keyID)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "# For key rotation, append the new key and move ACTIVE_SIGNING_KEY_ID to it.")
	fmt.Fprintln(out, "# Keep the old key in SIGNING_KEYS until every token signed with it has expired.")

	return nil
}
