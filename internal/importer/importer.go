package importer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ignite/lead-console/internal/domain"
)

// DefaultChunkSize is the number of leads submitted per bulk-insert call.
const DefaultChunkSize = 100

// BulkInserter is the persistence collaborator. A returned error means the
// whole chunk is treated as not persisted, even if the backend partially
// committed. Implementations must be injected explicitly; the importer never
// resolves a client from ambient state.
type BulkInserter interface {
	InsertLeads(ctx context.Context, leads []domain.Lead) ([]domain.Lead, error)
}

// ProgressSink receives run-level progress events. There is deliberately no
// per-chunk callback on this path: the result log is the incremental record.
type ProgressSink interface {
	RunStarted(ctx context.Context, runID string, fileCount int)
	RunCompleted(ctx context.Context, runID string, result *ImportBatchResult)
}

// NopProgress discards progress events. Used by the CLI importer.
type NopProgress struct{}

func (NopProgress) RunStarted(context.Context, string, int)                  {}
func (NopProgress) RunCompleted(context.Context, string, *ImportBatchResult) {}

// ImportBatchResult accumulates the outcome of one import run. It lives for
// the duration of the run only; durable records are the leads themselves and
// the import job row written by the caller.
type ImportBatchResult struct {
	ImportedCount int      `json:"imported_count"`
	ErrorCount    int      `json:"error_count"`
	Log           []string `json:"log"`
}

func (r *ImportBatchResult) logf(format string, args ...interface{}) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

// BatchImporter orchestrates normalization and persistence of spreadsheet
// rows in bounded-size chunks. Files and chunks are processed strictly
// sequentially: the log stays ordered and the backend is never hit with
// concurrent bulk inserts from the same run.
type BatchImporter struct {
	inserter  BulkInserter
	progress  ProgressSink
	chunkSize int
}

// NewBatchImporter creates an importer. chunkSize <= 0 selects the default.
func NewBatchImporter(inserter BulkInserter, progress ProgressSink, chunkSize int) *BatchImporter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if progress == nil {
		progress = NopProgress{}
	}
	return &BatchImporter{inserter: inserter, progress: progress, chunkSize: chunkSize}
}

// Run imports every file in order and returns the accumulated result. It is
// best-effort by policy: a failed chunk or an unreadable file is counted and
// logged, never propagated. Run itself returns no error; the caller always
// gets a complete result with counts and a full log.
//
// ImportedAt is stamped once here and is identical on every lead of the run.
// CreatedAt is parsed per record and may be nil without affecting the batch.
func (imp *BatchImporter) Run(ctx context.Context, runID, accountID string, files []RowSource) *ImportBatchResult {
	result := &ImportBatchResult{}
	importedAt := time.Now().UTC()

	imp.progress.RunStarted(ctx, runID, len(files))
	log.Printf("[importer] run %s: starting, %d file(s)", runID, len(files))

	for _, file := range files {
		imp.importFile(ctx, file, accountID, importedAt, result)
	}

	result.logf("run complete: %d imported, %d errors", result.ImportedCount, result.ErrorCount)
	imp.progress.RunCompleted(ctx, runID, result)
	log.Printf("[importer] run %s: complete, imported=%d errors=%d", runID, result.ImportedCount, result.ErrorCount)
	return result
}

func (imp *BatchImporter) importFile(ctx context.Context, file RowSource, accountID string, importedAt time.Time, result *ImportBatchResult) {
	rows, err := file.Rows(ctx)
	if err != nil {
		// A bad file contributes zero rows; the run continues.
		result.logf("%s: parse failed: %v", file.Name(), err)
		return
	}
	if len(rows) == 0 {
		result.logf("%s: no rows", file.Name())
		return
	}

	defaultFormName := DefaultFormName(rows[0])

	// Leads without a name are not persisted: filtered before chunking,
	// counted neither as imported nor as errored.
	leads := make([]domain.Lead, 0, len(rows))
	for _, row := range rows {
		lead := MapRow(row, defaultFormName, importedAt)
		if lead.Name == "" {
			continue
		}
		lead.AccountID = accountID
		leads = append(leads, lead)
	}

	fileImported, fileErrors := 0, 0
	chunks := (len(leads) + imp.chunkSize - 1) / imp.chunkSize
	for i, n := 0, 1; i < len(leads); i, n = i+imp.chunkSize, n+1 {
		end := i + imp.chunkSize
		if end > len(leads) {
			end = len(leads)
		}
		chunk := leads[i:end]

		inserted, err := imp.inserter.InsertLeads(ctx, chunk)
		if err != nil {
			// Whole chunk presumed failed; no partial-record retry.
			fileErrors += len(chunk)
			result.ErrorCount += len(chunk)
			result.logf("%s: chunk %d/%d failed (%d records): %v", file.Name(), n, chunks, len(chunk), err)
			continue
		}
		fileImported += len(inserted)
		result.ImportedCount += len(inserted)
		result.logf("%s: chunk %d/%d imported %d records", file.Name(), n, chunks, len(inserted))
	}

	result.logf("%s: done, %d imported, %d errors", file.Name(), fileImported, fileErrors)
}
