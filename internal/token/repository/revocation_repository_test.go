package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

func testEntry() *tokenDomain.RevocationEntry {
	now := time.Now().UTC()
	return &tokenDomain.RevocationEntry{
		TokenID:   uuid.Must(uuid.NewV7()),
		SubjectID: uuid.Must(uuid.NewV7()),
		ExpiresAt: now.Add(time.Hour),
		RevokedAt: now,
	}
}

func TestPostgreSQLRevocationRepository_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_NewEntry", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		entry := testEntry()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revoked_tokens")).
			WithArgs(entry.TokenID, entry.SubjectID, entry.ExpiresAt, entry.RevokedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLRevocationRepository(db)
		inserted, err := repo.Insert(ctx, entry)
		assert.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyPresent_ReturnsFalse", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		entry := testEntry()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revoked_tokens")).
			WithArgs(entry.TokenID, entry.SubjectID, entry.ExpiresAt, entry.RevokedAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPostgreSQLRevocationRepository(db)
		inserted, err := repo.Insert(ctx, entry)
		assert.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("Error_DatabaseFailure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		entry := testEntry()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revoked_tokens")).
			WillReturnError(assert.AnError)

		repo := NewPostgreSQLRevocationRepository(db)
		_, err = repo.Insert(ctx, entry)
		assert.Error(t, err)
	})
}

func TestPostgreSQLRevocationRepository_Contains(t *testing.T) {
	ctx := context.Background()

	t.Run("Revoked", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		tokenID := uuid.Must(uuid.NewV7())
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = $1)")).
			WithArgs(tokenID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		repo := NewPostgreSQLRevocationRepository(db)
		revoked, err := repo.Contains(ctx, tokenID)
		assert.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("NotRevoked", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		tokenID := uuid.Must(uuid.NewV7())
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = $1)")).
			WithArgs(tokenID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		repo := NewPostgreSQLRevocationRepository(db)
		revoked, err := repo.Contains(ctx, tokenID)
		assert.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestPostgreSQLRevocationRepository_Prune(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM revoked_tokens WHERE expires_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewPostgreSQLRevocationRepository(db)
	pruned, err := repo.Prune(ctx, now)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), pruned)
}

func TestMySQLRevocationRepository_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_NewEntry", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		entry := testEntry()
		mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO revoked_tokens")).
			WithArgs(entry.TokenID.String(), entry.SubjectID.String(), entry.ExpiresAt, entry.RevokedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewMySQLRevocationRepository(db)
		inserted, err := repo.Insert(ctx, entry)
		assert.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("AlreadyPresent_ReturnsFalse", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		entry := testEntry()
		mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO revoked_tokens")).
			WithArgs(entry.TokenID.String(), entry.SubjectID.String(), entry.ExpiresAt, entry.RevokedAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewMySQLRevocationRepository(db)
		inserted, err := repo.Insert(ctx, entry)
		assert.NoError(t, err)
		assert.False(t, inserted)
	})
}

func TestMySQLRevocationRepository_Contains(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tokenID := uuid.Must(uuid.NewV7())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = ?)")).
		WithArgs(tokenID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewMySQLRevocationRepository(db)
	revoked, err := repo.Contains(ctx, tokenID)
	assert.NoError(t, err)
	assert.True(t, revoked)
}

func TestMySQLRevocationRepository_Prune(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM revoked_tokens WHERE expires_at <= ?")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewMySQLRevocationRepository(db)
	pruned, err := repo.Prune(ctx, now)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), pruned)
}
