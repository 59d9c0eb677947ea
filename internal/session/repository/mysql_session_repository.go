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

// MySQLSessionRepository handles session persistence for MySQL. UUIDs are
// stored as CHAR(36) strings.
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a new MySQLSessionRepository.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{
		db: db,
	}
}

// Get retrieves the session row for the subject.
func (r *MySQLSessionRepository) Get(ctx context.Context, subjectID uuid.UUID) (*domain.Session, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT subject_id, current_token_id, failed_attempts, locked_until, active, created_at, updated_at
			  FROM sessions WHERE subject_id = ?`

	var session domain.Session
	var subjectIDStr string
	var currentTokenID sql.NullString
	var lockedUntil sql.NullTime

	err := querier.QueryRowContext(ctx, query, subjectID.String()).Scan(
		&subjectIDStr,
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

	session.SubjectID, err = uuid.Parse(subjectIDStr)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse subject id")
	}

	if currentTokenID.Valid {
		tokenID, err := uuid.Parse(currentTokenID.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse current token id")
		}
		session.CurrentTokenID = &tokenID
	}
	if lockedUntil.Valid {
		session.LockedUntil = &lockedUntil.Time
	}

	return &session, nil
}

// Upsert inserts or replaces the session row for the subject.
func (r *MySQLSessionRepository) Upsert(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, r.db)

	var currentTokenID sql.NullString
	if session.CurrentTokenID != nil {
		currentTokenID = sql.NullString{String: session.CurrentTokenID.String(), Valid: true}
	}
	var lockedUntil sql.NullTime
	if session.LockedUntil != nil {
		lockedUntil = sql.NullTime{Time: *session.LockedUntil, Valid: true}
	}

	query := `INSERT INTO sessions (subject_id, current_token_id, failed_attempts, locked_until, active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  current_token_id = VALUES(current_token_id),
				  failed_attempts = VALUES(failed_attempts),
				  locked_until = VALUES(locked_until),
				  active = VALUES(active),
				  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		session.SubjectID.String(),
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
