package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/authcore/internal/credential/domain"
	"github.com/allisson/authcore/internal/database"
	apperrors "github.com/allisson/authcore/internal/errors"
)

// MySQLCredentialRepository handles credential persistence for MySQL.
// UUIDs are stored as CHAR(36) strings.
type MySQLCredentialRepository struct {
	db *sql.DB
}

// NewMySQLCredentialRepository creates a new MySQLCredentialRepository.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{
		db: db,
	}
}

// Create inserts a new credential.
func (r *MySQLCredentialRepository) Create(ctx context.Context, credential *domain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	roles, err := marshalRoles(credential.Roles)
	if err != nil {
		return err
	}

	query := `INSERT INTO credentials (subject_id, subject_ref, secret_hash, roles, created_at, changed_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		credential.SubjectID.String(),
		credential.SubjectRef,
		credential.SecretHash,
		roles,
		credential.CreatedAt,
		credential.ChangedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return domain.ErrSubjectExists
		}
		return apperrors.Wrap(err, "failed to create credential")
	}
	return nil
}

// Update replaces the stored hash, roles and changed timestamp for the subject.
func (r *MySQLCredentialRepository) Update(ctx context.Context, credential *domain.Credential) error {
	querier := database.GetTx(ctx, r.db)

	roles, err := marshalRoles(credential.Roles)
	if err != nil {
		return err
	}

	query := `UPDATE credentials
			  SET secret_hash = ?,
				  roles = ?,
				  changed_at = ?
			  WHERE subject_id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		credential.SecretHash,
		roles,
		credential.ChangedAt,
		credential.SubjectID.String(),
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
func (r *MySQLCredentialRepository) GetBySubjectRef(
	ctx context.Context,
	subjectRef string,
) (*domain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT subject_id, subject_ref, secret_hash, roles, created_at, changed_at
			  FROM credentials WHERE subject_ref = ?`

	return scanMySQLCredential(querier.QueryRowContext(ctx, query, subjectRef))
}

// GetBySubjectID retrieves a credential by subject id.
func (r *MySQLCredentialRepository) GetBySubjectID(
	ctx context.Context,
	subjectID uuid.UUID,
) (*domain.Credential, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT subject_id, subject_ref, secret_hash, roles, created_at, changed_at
			  FROM credentials WHERE subject_id = ?`

	return scanMySQLCredential(querier.QueryRowContext(ctx, query, subjectID.String()))
}

// Delete removes the credential of a deleted subject.
func (r *MySQLCredentialRepository) Delete(ctx context.Context, subjectID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM credentials WHERE subject_id = ?`

	_, err := querier.ExecContext(ctx, query, subjectID.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return nil
}

// scanMySQLCredential scans one credential row, parsing the CHAR(36) subject id.
func scanMySQLCredential(row *sql.Row) (*domain.Credential, error) {
	var credential domain.Credential
	var subjectID string
	var roles []byte

	err := row.Scan(
		&subjectID,
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

	credential.SubjectID, err = uuid.Parse(subjectID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse subject id")
	}

	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &credential.Roles); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode credential roles")
		}
	}

	return &credential, nil
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
