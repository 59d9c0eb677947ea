// Package repository provides revocation index persistence. The index stores
// revoked refresh-token identifiers until their natural expiry; inserts are
// atomic so concurrent rotations of the same token resolve to a single winner.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/database"
	apperrors "github.com/allisson/authcore/internal/errors"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

// PostgreSQLRevocationRepository implements the revocation index for
// PostgreSQL. Uses native UUID types with transaction support via
// database.GetTx().
type PostgreSQLRevocationRepository struct {
	db *sql.DB
}

// NewPostgreSQLRevocationRepository creates a new PostgreSQLRevocationRepository.
func NewPostgreSQLRevocationRepository(db *sql.DB) *PostgreSQLRevocationRepository {
	return &PostgreSQLRevocationRepository{
		db: db,
	}
}

// Insert adds a revocation entry. Returns false when the identifier is
// already present; the primary key on token_id makes concurrent inserts
// resolve to exactly one winner.
func (r *PostgreSQLRevocationRepository) Insert(
	ctx context.Context,
	entry *tokenDomain.RevocationEntry,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO revoked_tokens (token_id, subject_id, expires_at, revoked_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (token_id) DO NOTHING`

	result, err := querier.ExecContext(ctx, query, entry.TokenID, entry.SubjectID, entry.ExpiresAt, entry.RevokedAt)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to insert revocation entry")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected == 1, nil
}

// Contains reports whether the token identifier is in the index.
func (r *PostgreSQLRevocationRepository) Contains(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = $1)`

	var revoked bool
	if err := querier.QueryRowContext(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, apperrors.Wrap(err, "failed to check revocation entry")
	}
	return revoked, nil
}

// Prune deletes entries whose expiry is at or before now.
func (r *PostgreSQLRevocationRepository) Prune(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM revoked_tokens WHERE expires_at <= $1`

	result, err := querier.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to prune revocation entries")
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read affected rows")
	}
	return pruned, nil
}
