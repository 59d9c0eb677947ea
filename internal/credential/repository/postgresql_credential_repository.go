// Package repository provides credential persistence for PostgreSQL and
// MySQL. Roles are stored as a JSON array so both backends share one shape.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/credential/domain"
	"github.com/allisson/authcore/internal/database"
	apperrors "github.com/allisson/authcore/internal/errors"
)

// PostgreSQLCredentialRepository handles credential persistence for PostgreSQL.
type PostgreSQLCredentialRepository struct {
	db *sql.DB
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQLCredentialRepository.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{
		db: db,
	}
}

// Create inserts a new credential.
func (r *PostgreSQLCredentialRepository) Create(ctx context.Context, credential *domain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	roles, err := marshalRoles(credential.Roles)
	if err != nil {
		return err
	}

	query := `INSERT INTO credentials (subject_id, subject_ref, secret_hash, roles, created_at, changed_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = querier.ExecContext(
		ctx,
		query,
		credential.SubjectID,
		credential.SubjectRef,
		credential.SecretHash,
		roles,
		credential.CreatedAt,
		credential.ChangedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrSubjectExists
		}
		return apperrors.Wrap(err, "failed to create credential")
	}
	return nil
}

// Update replaces the stored hash, roles and changed timestamp for the subject.
func (r *PostgreSQLCredentialRepository) Update(ctx context.Context, credential *domain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	roles, err := marshalRoles(credential.Roles)
	if err != nil {
		return err
	}

	query := `UPDATE credentials
			  SET secret_hash = $1,
				  roles = $2,
				  changed_at = $3
			  WHERE subject_id = $4`

	result, err := querier.ExecContext(
		ctx,
		query,
		credential.SecretHash,
		roles,
		credential.ChangedAt,
		credential.SubjectID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update credential")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

// GetBySubjectRef retrieves a credential by subject reference.
func (r *PostgreSQLCredentialRepository) GetBySubjectRef(
	ctx context.Context,
	subjectRef string,
) (*domain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT subject_id, subject_ref, secret_hash, roles, created_at, changed_at
			  FROM credentials WHERE subject_ref = $1`

	return scanCredential(querier.QueryRowContext(ctx, query, subjectRef))
}

// GetBySubjectID retrieves a credential by subject id.
func (r *PostgreSQLCredentialRepository) GetBySubjectID(
	ctx context.Context,
	subjectID uuid.UUID,
) (*domain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT subject_id, subject_ref, secret_hash, roles, created_at, changed_at
			  FROM credentials WHERE subject_id = $1`

	return scanCredential(querier.QueryRowContext(ctx, query, subjectID))
}

// Delete removes the credential of a deleted subject.
func (r *PostgreSQLCredentialRepository) Delete(ctx context.Context, subjectID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM credentials WHERE subject_id = $1`

	_, err := querier.ExecContext(ctx, query, subjectID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return nil
}

// scanCredential scans one credential row, decoding the roles JSON.
func scanCredential(row *sql.Row) (*domain.Credential, error) {
	var credential domain.Credential
	var roles []byte

	err := row.Scan(
		&credential.SubjectID,
		&credential.SubjectRef,
		&credential.SecretHash,
		&roles,
		&credential.CreatedAt,
		&credential.ChangedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential")
	}

	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &credential.Roles); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode credential roles")
		}
	}

	return &credential, nil
}

// marshalRoles encodes the roles slice as a JSON array, never null.
func marshalRoles(roles []string) ([]byte, error) {
	if roles == nil {
		roles = []string{}
	}
	encoded, err := json.Marshal(roles)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode credential roles")
	}
	return encoded, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
