package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/authcore/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSKeeper abstracts the subset of *secrets.Keeper used to unwrap keys.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens a secrets keeper for the configured KMS provider and
// unwraps master keys provisioned as wrapped blobs.
type KMSService interface {
	// OpenKeeper opens a secrets.Keeper for the configured KMS provider.
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)

	// LoadWrappedMasterKeyChain builds a MasterKeyChain by unwrapping the
	// entries of the MASTER_KEYS_WRAPPED environment variable
	// ("id:base64(wrapped)" entries, comma separated) through the keeper.
	// ACTIVE_MASTER_KEY_ID selects the active key.
	LoadWrappedMasterKeyChain(ctx context.Context, keeper KMSKeeper) (*cryptoDomain.MasterKeyChain, error)
}

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens a secrets.Keeper for the configured KMS provider using the keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// LoadWrappedMasterKeyChain unwraps each configured master key through the
// keeper and assembles the chain. Unwrapped key bytes are zeroed after being
// copied into the chain.
func (k *kmsService) LoadWrappedMasterKeyChain(
	ctx context.Context,
	keeper KMSKeeper,
) (*cryptoDomain.MasterKeyChain, error) {
	raw := os.Getenv("MASTER_KEYS_WRAPPED")
	if raw == "" {
		return nil, cryptoDomain.ErrMasterKeysNotSet
	}

	active := os.Getenv("ACTIVE_MASTER_KEY_ID")
	if active == "" {
		return nil, cryptoDomain.ErrActiveMasterKeyIDNotSet
	}

	var keys []cryptoDomain.MasterKey
	defer func() {
		for i := range keys {
			cryptoDomain.Zero(keys[i].Key)
		}
	}()

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: %q", cryptoDomain.ErrInvalidMasterKeysFormat, part)
		}

		wrapped, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", cryptoDomain.ErrInvalidMasterKeyBase64, p[0], err)
		}

		key, err := keeper.Decrypt(ctx, wrapped)
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap master key %s: %w", p[0], err)
		}

		keys = append(keys, cryptoDomain.MasterKey{ID: p[0], Key: key})
	}

	return cryptoDomain.NewMasterKeyChain(active, keys)
}
