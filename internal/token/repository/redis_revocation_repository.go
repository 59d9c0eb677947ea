package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/authcore/internal/errors"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// revokedKeyPrefix namespaces revocation keys in Redis.
const revokedKeyPrefix = "revoked_tokens:"

// RedisRevocationRepository implements the revocation index on Redis. Each
// entry is a key that expires with the token's natural expiry, so pruning is
// handled by Redis itself and Prune is a no-op.
//
// Unlike the SQL implementations this backend does not participate in
// database transactions; rotation atomicity rests entirely on SET NX, which
// still guarantees a single winner for concurrent inserts of the same
// identifier.
type RedisRevocationRepository struct {
	client *redis.Client
}

// NewRedisRevocationRepository creates a new RedisRevocationRepository.
func NewRedisRevocationRepository(client *redis.Client) *RedisRevocationRepository {
	return &RedisRevocationRepository{
		client: client,
	}
}

// Insert adds a revocation entry with a TTL matching the token's remaining
// lifetime. Returns false when the identifier is already present.
func (r *RedisRevocationRepository) Insert(
	ctx context.Context,
	entry *tokenDomain.RevocationEntry,
) (bool, error) {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		// Already past natural expiry: the token fails the expiry check on
		// its own, storing an entry would only create an immediately-expired
		// key. Report it as already revoked.
		return false, nil
	}

	inserted, err := r.client.SetNX(ctx, revokedKeyPrefix+entry.TokenID.String(), entry.SubjectID.String(), ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to insert revocation entry")
	}
	return inserted, nil
}

// Contains reports whether the token identifier is in the index.
func (r *RedisRevocationRepository) Contains(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	exists, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID.String()).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check revocation entry")
	}
	return exists > 0, nil
}

// Prune is a no-op: Redis expires entries through per-key TTLs.
func (r *RedisRevocationRepository) Prune(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
