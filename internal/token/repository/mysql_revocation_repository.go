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

// MySQLRevocationRepository implements the revocation index for MySQL.
// UUIDs are stored as CHAR(36) strings with transaction support via
// database.GetTx().
type MySQLRevocationRepository struct {
	db *sql.DB
}

// NewMySQLRevocationRepository creates a new MySQLRevocationRepository.
func NewMySQLRevocationRepository(db *sql.DB) *MySQLRevocationRepository {
	return &MySQLRevocationRepository{
		db: db,
	}
}

// Insert adds a revocation entry. Returns false when the identifier is
// already present; INSERT IGNORE against the primary key makes concurrent
// inserts resolve to exactly one winner.
func (r *MySQLRevocationRepository) Insert(
	ctx context.Context,
	entry *tokenDomain.RevocationEntry,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT IGNORE INTO revoked_tokens (token_id, subject_id, expires_at, revoked_at)
			  VALUES (?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		entry.TokenID.String(),
		entry.SubjectID.String(),
		entry.ExpiresAt,
		entry.RevokedAt,
	)
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
func (r *MySQLRevocationRepository) Contains(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = ?)`

	var revoked bool
	if err := querier.QueryRowContext(ctx, query, tokenID.String()).Scan(&revoked); err != nil {
		return false, apperrors.Wrap(err, "failed to check revocation entry")
	}
	return revoked, nil
}

// Prune deletes entries whose expiry is at or before now.
func (r *MySQLRevocationRepository) Prune(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM revoked_tokens WHERE expires_at <= ?`

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
