package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJobTest(t *testing.T) (*ImportJobRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewImportJobRepo(db), mock
}

func TestImportJobStart(t *testing.T) {
	repo, mock := setupJobTest(t)

	mock.ExpectExec("INSERT INTO lead_import_jobs").
		WithArgs(sqlmock.AnyArg(), "acct-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	runID, err := repo.Start(context.Background(), "acct-1", 2)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobComplete(t *testing.T) {
	repo, mock := setupJobTest(t)

	mock.ExpectExec("UPDATE lead_import_jobs").
		WithArgs(150, 100, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete(context.Background(), "run-1", 150, 100)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobGet(t *testing.T) {
	repo, mock := setupJobTest(t)

	started := time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC)
	completed := started.Add(time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "account_id", "file_count", "imported_count", "error_count",
		"status", "started_at", "completed_at",
	}).AddRow("run-1", "acct-1", 1, 150, 100, "completed", started, &completed)

	mock.ExpectQuery("SELECT (.+) FROM lead_import_jobs").
		WithArgs("run-1", "acct-1").
		WillReturnRows(rows)

	job, err := repo.Get(context.Background(), "acct-1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", job.ID)
	assert.Equal(t, 150, job.ImportedCount)
	assert.Equal(t, "completed", job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobGetNotFound(t *testing.T) {
	repo, mock := setupJobTest(t)

	mock.ExpectQuery("SELECT (.+) FROM lead_import_jobs").
		WithArgs("missing", "acct-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "acct-1", "missing")
	assert.Equal(t, ErrJobNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
