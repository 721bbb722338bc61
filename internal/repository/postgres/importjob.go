package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/lead-console/internal/domain"
)

// ErrJobNotFound is returned when an import job doesn't exist for the
// account. Callers never see a bare sql.ErrNoRows.
var ErrJobNotFound = errors.New("import job not found")

// ImportJobRepo records bulk import runs in lead_import_jobs for auditing.
type ImportJobRepo struct{ db *sql.DB }

// NewImportJobRepo creates a Postgres-backed import job log.
func NewImportJobRepo(db *sql.DB) *ImportJobRepo { return &ImportJobRepo{db: db} }

// Start inserts a processing job row and returns its ID. The ID doubles as
// the import run ID used for progress tracking.
func (r *ImportJobRepo) Start(ctx context.Context, accountID string, fileCount int) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lead_import_jobs (id, account_id, file_count, status, started_at)
		VALUES ($1, $2, $3, 'processing', NOW())
	`, id, accountID, fileCount)
	if err != nil {
		return "", fmt.Errorf("start import job: %w", err)
	}
	return id, nil
}

// Complete stores the final counts for a finished run.
func (r *ImportJobRepo) Complete(ctx context.Context, id string, importedCount, errorCount int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE lead_import_jobs
		SET status = 'completed', imported_count = $1, error_count = $2, completed_at = NOW()
		WHERE id = $3
	`, importedCount, errorCount, id)
	if err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}
	return nil
}

// Get returns one import job row.
func (r *ImportJobRepo) Get(ctx context.Context, accountID, id string) (*domain.ImportJob, error) {
	j := &domain.ImportJob{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, file_count, imported_count, error_count, status, started_at, completed_at
		FROM lead_import_jobs
		WHERE id = $1 AND account_id = $2
	`, id, accountID).Scan(
		&j.ID, &j.AccountID, &j.FileCount, &j.ImportedCount, &j.ErrorCount,
		&j.Status, &j.StartedAt, &j.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return j, nil
}
