package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRunNotFound is returned when no progress exists for a run ID.
var ErrRunNotFound = errors.New("import run not found")

// progressTTL keeps finished runs visible long enough for the UI to poll
// and for an operator to review the log afterwards.
const progressTTL = 24 * time.Hour

// RunProgress is the externally visible state of one import run.
type RunProgress struct {
	RunID         string    `json:"run_id"`
	Status        string    `json:"status"` // starting, completed
	FileCount     int       `json:"file_count"`
	ImportedCount int       `json:"imported_count"`
	ErrorCount    int       `json:"error_count"`
	Log           []string  `json:"log,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RedisProgress stores run progress in Redis so the API can serve polling
// requests without holding anything in process memory.
type RedisProgress struct {
	rdb *redis.Client
}

// NewRedisProgress creates a progress sink backed by the given client.
func NewRedisProgress(rdb *redis.Client) *RedisProgress {
	return &RedisProgress{rdb: rdb}
}

func progressKey(runID string) string {
	return fmt.Sprintf("leadimport:progress:%s", runID)
}

// RunStarted records the "starting" event before any file is read.
func (p *RedisProgress) RunStarted(ctx context.Context, runID string, fileCount int) {
	now := time.Now().UTC()
	p.set(ctx, &RunProgress{
		RunID:     runID,
		Status:    "starting",
		FileCount: fileCount,
		StartedAt: now,
		UpdatedAt: now,
	})
}

// RunCompleted stores the final counts and the full log.
func (p *RedisProgress) RunCompleted(ctx context.Context, runID string, result *ImportBatchResult) {
	prev, err := p.Get(ctx, runID)
	startedAt := time.Now().UTC()
	if err == nil {
		startedAt = prev.StartedAt
	}
	var fileCount int
	if err == nil {
		fileCount = prev.FileCount
	}
	p.set(ctx, &RunProgress{
		RunID:         runID,
		Status:        "completed",
		FileCount:     fileCount,
		ImportedCount: result.ImportedCount,
		ErrorCount:    result.ErrorCount,
		Log:           result.Log,
		StartedAt:     startedAt,
		UpdatedAt:     time.Now().UTC(),
	})
}

// Get retrieves the progress of a run. Returns ErrRunNotFound for unknown or
// expired run IDs.
func (p *RedisProgress) Get(ctx context.Context, runID string) (*RunProgress, error) {
	data, err := p.rdb.Get(ctx, progressKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	var prog RunProgress
	if err := json.Unmarshal(data, &prog); err != nil {
		return nil, err
	}
	return &prog, nil
}

func (p *RedisProgress) set(ctx context.Context, prog *RunProgress) {
	data, _ := json.Marshal(prog)
	p.rdb.Set(ctx, progressKey(prog.RunID), data, progressTTL)
}
