package api

import (
	"net/http"
	"time"

	"github.com/ignite/lead-console/internal/importer"
	"github.com/ignite/lead-console/internal/pkg/httputil"
	"github.com/ignite/lead-console/internal/repository/postgres"
	"github.com/ignite/lead-console/internal/service/lead"
)

// DropFolderStatus is the view of the S3 watcher the API needs: health for
// the health endpoint and a manual trigger for operators.
type DropFolderStatus interface {
	IsHealthy() bool
	IsRunning() bool
	LastRunAt() time.Time
	ManualTrigger()
}

// Handlers bundles the dependencies shared by all HTTP handlers.
type Handlers struct {
	leads      *lead.Service
	importer   *importer.BatchImporter
	progress   *importer.RedisProgress
	jobs       *postgres.ImportJobRepo
	dropFolder DropFolderStatus

	startedAt time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(leads *lead.Service, imp *importer.BatchImporter, progress *importer.RedisProgress, jobs *postgres.ImportJobRepo) *Handlers {
	return &Handlers{
		leads:     leads,
		importer:  imp,
		progress:  progress,
		jobs:      jobs,
		startedAt: time.Now(),
	}
}

// SetDropFolder attaches the drop-folder watcher. Called before SetupRoutes
// when the watcher is configured; without it the health payload omits the
// drop_folder section and the trigger endpoint answers 404.
func (h *Handlers) SetDropFolder(df DropFolderStatus) {
	h.dropFolder = df
}

// HealthCheck reports service liveness, uptime, and drop-folder state.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}
	if h.dropFolder != nil {
		df := map[string]interface{}{
			"healthy": h.dropFolder.IsHealthy(),
			"running": h.dropFolder.IsRunning(),
		}
		if last := h.dropFolder.LastRunAt(); !last.IsZero() {
			df["last_run_at"] = last.UTC().Format(time.RFC3339)
		}
		payload["drop_folder"] = df
	}
	httputil.OK(w, payload)
}

// TriggerDropFolder kicks off one drop-folder cycle immediately instead of
// waiting for the next tick. The cycle runs in the background; 202 means
// accepted, not finished.
// POST /api/dropfolder/run
func (h *Handlers) TriggerDropFolder(w http.ResponseWriter, r *http.Request) {
	if h.dropFolder == nil {
		httputil.NotFound(w, "drop folder not configured")
		return
	}
	h.dropFolder.ManualTrigger()
	httputil.Accepted(w, map[string]string{"status": "triggered"})
}
