// Package repository provides session persistence for PostgreSQL and MySQL.
// Session rows are upserted as a whole under the caller's transaction, giving
// the state machine atomic read-modify-write per subject.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/database"
	apperrors "github.com/allisson/authcore/internal/errors"
	"github.com/allisson/authcore/internal/session/domain"
)

// PostgreSQLSessionRepository handles session persistence for PostgreSQL.
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSessionRepository creates a new PostgreSQLSessionRepository.
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{
		db: db,
	}
}

// Get retrieves the session row for the subject.
func (r *PostgreSQLSessionRepository) Get(ctx context.Context, subjectID uuid.UUID) (*domain.Session, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT subject_id, current_token_id, failed_attempts, locked_until, active, created_at, updated_at
			  FROM sessions WHERE subject_id = $1`

	var session domain.Session
	var currentTokenID uuid.NullUUID
	var lockedUntil sql.NullTime

	err := querier.QueryRowContext(ctx, query, subjectID).Scan(
		&session.SubjectID,
		&currentTokenID,
		&session.FailedAttempts,
		&lockedUntil,
		&session.Active,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	if currentTokenID.Valid {
		session.CurrentTokenID = &currentTokenID.UUID
	}
	if lockedUntil.Valid {
		session.LockedUntil = &lockedUntil.Time
	}

	return &session, nil
}

// Upsert inserts or replaces the session row for the subject.
func (r *PostgreSQLSessionRepository) Upsert(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, r.db)

	var currentTokenID uuid.NullUUID
	if session.CurrentTokenID != nil {
		currentTokenID = uuid.NullUUID{UUID: *session.CurrentTokenID, Valid: true}
	}
	var lockedUntil sql.NullTime
	if session.LockedUntil != nil {
		lockedUntil = sql.NullTime{Time: *session.LockedUntil, Valid: true}
	}

	query := `INSERT INTO sessions (subject_id, current_token_id, failed_attempts, locked_until, active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (subject_id) DO UPDATE SET
				  current_token_id = EXCLUDED.current_token_id,
				  failed_attempts = EXCLUDED.failed_attempts,
				  locked_until = EXCLUDED.locked_until,
				  active = EXCLUDED.active,
				  updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		session.SubjectID,
		currentTokenID,
		session.FailedAttempts,
		lockedUntil,
		session.Active,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert session")
	}
	return nil
}
