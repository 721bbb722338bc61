package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lead-console/internal/importer"
	"github.com/ignite/lead-console/internal/pkg/httputil"
	"github.com/ignite/lead-console/internal/repository/postgres"
)

// maxImportBodySize caps one multipart upload. Bulk spreadsheets from ad
// platforms run a few MB; this leaves generous headroom.
const maxImportBodySize = 256 << 20 // 256MB

// ImportLeads runs a bulk import over one or more uploaded CSV files.
// POST /api/accounts/{accountID}/leads/import  (multipart, field "files")
//
// The run executes to completion before responding and always answers 200
// with counts and the full log, even when every chunk failed. Callers can
// poll the progress endpoint with the returned run ID while the request is
// in flight.
func (h *Handlers) ImportLeads(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodySize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		httputil.BadRequest(w, "no files uploaded (use multipart field 'files')")
		return
	}

	var sources []importer.RowSource
	var open []interface{ Close() error }
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			httputil.BadRequest(w, "cannot read uploaded file "+fh.Filename)
			return
		}
		open = append(open, f)
		sources = append(sources, importer.NewCSVFile(fh.Filename, f))
	}
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()

	runID, err := h.jobs.Start(r.Context(), accountID, len(sources))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	result := h.importer.Run(r.Context(), runID, accountID, sources)

	if err := h.jobs.Complete(r.Context(), runID, result.ImportedCount, result.ErrorCount); err != nil {
		log.Printf("[api] complete import job %s: %v", runID, err)
	}

	httputil.OK(w, map[string]interface{}{
		"run_id":         runID,
		"imported_count": result.ImportedCount,
		"error_count":    result.ErrorCount,
		"log":            result.Log,
	})
}

// GetImportJob returns the audit record of one finished or running import.
// Unlike progress, this survives the Redis TTL.
// GET /api/accounts/{accountID}/imports/{runID}
func (h *Handlers) GetImportJob(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	runID := chi.URLParam(r, "runID")

	job, err := h.jobs.Get(r.Context(), accountID, runID)
	if err == postgres.ErrJobNotFound {
		httputil.NotFound(w, "import job not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, job)
}

// GetImportProgress returns the live progress of an import run.
// GET /api/imports/{runID}/progress
func (h *Handlers) GetImportProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	prog, err := h.progress.Get(r.Context(), runID)
	if err == importer.ErrRunNotFound {
		httputil.NotFound(w, "import run not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, prog)
}
