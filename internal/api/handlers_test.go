package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-console/internal/domain"
	"github.com/ignite/lead-console/internal/importer"
	"github.com/ignite/lead-console/internal/repository/postgres"
	"github.com/ignite/lead-console/internal/service/lead"
)

// memLeadRepo is a minimal in-memory repository for handler tests.
type memLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*domain.Lead
}

func newMemLeadRepo() *memLeadRepo {
	return &memLeadRepo{leads: make(map[string]*domain.Lead)}
}

func (m *memLeadRepo) Get(_ context.Context, accountID, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.AccountID != accountID {
		return nil, lead.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLeadRepo) List(_ context.Context, accountID string, _ lead.ListFilter) ([]domain.Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Lead
	for _, l := range m.leads {
		if l.AccountID == accountID {
			out = append(out, *l)
		}
	}
	return out, len(out), nil
}

func (m *memLeadRepo) Create(_ context.Context, l *domain.Lead) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.leads[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memLeadRepo) Update(_ context.Context, accountID, id string, _ lead.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leads[id]; !ok || l.AccountID != accountID {
		return lead.ErrNotFound
	}
	return nil
}

func (m *memLeadRepo) Delete(_ context.Context, accountID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leads[id]; !ok || l.AccountID != accountID {
		return lead.ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

// memInserter collects bulk-inserted leads.
type memInserter struct {
	mu    sync.Mutex
	leads []domain.Lead
}

func (m *memInserter) InsertLeads(_ context.Context, leads []domain.Lead) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = append(m.leads, leads...)
	return leads, nil
}

// fakeDropFolder stands in for the S3 watcher in handler tests.
type fakeDropFolder struct {
	healthy   bool
	running   bool
	lastRunAt time.Time
	triggers  int
}

func (f *fakeDropFolder) IsHealthy() bool      { return f.healthy }
func (f *fakeDropFolder) IsRunning() bool      { return f.running }
func (f *fakeDropFolder) LastRunAt() time.Time { return f.lastRunAt }
func (f *fakeDropFolder) ManualTrigger()       { f.triggers++ }

func newTestRouter(t *testing.T) (http.Handler, *Handlers, sqlmock.Sqlmock, *memInserter, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	ins := &memInserter{}
	progress := importer.NewRedisProgress(redisClient)
	imp := importer.NewBatchImporter(ins, progress, 100)

	h := NewHandlers(
		lead.NewService(newMemLeadRepo()),
		imp,
		progress,
		postgres.NewImportJobRepo(db),
	)
	router := SetupRoutes(h, []string{"http://localhost:5173"})

	cleanup := func() {
		db.Close()
		redisClient.Close()
		mr.Close()
	}
	return router, h, mock, ins, cleanup
}

func TestHealthCheck(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateLeadAppliesStageDefault(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	body := strings.NewReader(`{"name":"Maria","email":"maria@example.com"}`)
	req := httptest.NewRequest("POST", "/api/accounts/acct-1/leads", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.DefaultManualStage, created.Stage)
	assert.NotEmpty(t, created.ID)
}

func TestCreateLeadRequiresName(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest("POST", "/api/accounts/acct-1/leads", strings.NewReader(`{"email":"x@y.com"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLeadNotFound(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/accounts/acct-1/leads/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportLeadsEndToEnd(t *testing.T) {
	router, _, mock, ins, cleanup := newTestRouter(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO lead_import_jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE lead_import_jobs").WillReturnResult(sqlmock.NewResult(0, 1))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "leads.csv")
	require.NoError(t, err)
	part.Write([]byte("Nome,Email,Criado em\nAna,ana@example.com,13/05/2024 08:25\n,sem-nome@example.com,\nBruno,bruno@example.com,\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/accounts/acct-1/leads/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RunID         string   `json:"run_id"`
		ImportedCount int      `json:"imported_count"`
		ErrorCount    int      `json:"error_count"`
		Log           []string `json:"log"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// The empty-name row is silently filtered: 2 imported, 0 errors.
	assert.Equal(t, 2, resp.ImportedCount)
	assert.Equal(t, 0, resp.ErrorCount)
	assert.NotEmpty(t, resp.RunID)
	assert.NotEmpty(t, resp.Log)

	require.Len(t, ins.leads, 2)
	assert.Equal(t, "acct-1", ins.leads[0].AccountID)
	require.NotNil(t, ins.leads[0].CreatedAt)

	// Progress endpoint serves the completed run.
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, httptest.NewRequest("GET", "/api/imports/"+resp.RunID+"/progress", nil))
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Contains(t, rec2.Body.String(), `"status":"completed"`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportLeadsRejectsEmptyUpload(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/accounts/acct-1/leads/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthIncludesDropFolderStatus(t *testing.T) {
	router, h, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	h.SetDropFolder(&fakeDropFolder{
		healthy:   true,
		lastRunAt: time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"drop_folder"`)
	assert.Contains(t, rec.Body.String(), `"healthy":true`)
	assert.Contains(t, rec.Body.String(), `"last_run_at":"2024-05-13T08:00:00Z"`)
}

func TestHealthWithoutDropFolder(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "drop_folder")
}

func TestTriggerDropFolder(t *testing.T) {
	router, h, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	df := &fakeDropFolder{healthy: true}
	h.SetDropFolder(df)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/dropfolder/run", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, df.triggers)
}

func TestTriggerDropFolderNotConfigured(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/dropfolder/run", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetImportJob(t *testing.T) {
	router, _, mock, _, cleanup := newTestRouter(t)
	defer cleanup()

	started := time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "account_id", "file_count", "imported_count", "error_count",
		"status", "started_at", "completed_at",
	}).AddRow("run-1", "acct-1", 1, 150, 100, "completed", started, nil)
	mock.ExpectQuery("SELECT (.+) FROM lead_import_jobs").
		WithArgs("run-1", "acct-1").
		WillReturnRows(rows)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/accounts/acct-1/imports/run-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var job domain.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "run-1", job.ID)
	assert.Equal(t, 150, job.ImportedCount)
	assert.Equal(t, 100, job.ErrorCount)
	assert.Nil(t, job.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetImportJobNotFound(t *testing.T) {
	router, _, mock, _, cleanup := newTestRouter(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM lead_import_jobs").
		WithArgs("missing", "acct-1").
		WillReturnError(sql.ErrNoRows)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/accounts/acct-1/imports/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportProgressNotFound(t *testing.T) {
	router, _, _, _, cleanup := newTestRouter(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/imports/unknown/progress", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
