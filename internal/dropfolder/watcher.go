package dropfolder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-console/internal/importer"
	"github.com/ignite/lead-console/internal/pkg/distlock"
	"github.com/ignite/lead-console/internal/repository/postgres"
)

// Config holds drop-folder settings, loaded from config.yaml.
type Config struct {
	Bucket     string
	Region     string
	AWSProfile string
	AccountID  string
	Interval   time.Duration
}

// Watcher polls an S3 bucket for lead spreadsheets dropped by ad platforms
// and operators, imports each one through the batch importer, and archives
// processed files under processed/. Files are tracked in lead_import_files
// so a restart never re-imports or loses a file.
type Watcher struct {
	s3Client  *s3.Client
	db        *sql.DB
	importer  *importer.BatchImporter
	jobs      *postgres.ImportJobRepo
	lock      distlock.DistLock
	bucket    string
	accountID string
	interval  time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	running int32

	// mu guards the status fields below; they are written by the polling
	// goroutine and read by the health endpoint.
	mu        sync.Mutex
	healthy   bool
	lastRunAt time.Time
}

// NewWatcher loads AWS configuration and creates a drop-folder watcher.
// redisClient may be nil; the cycle lock then falls back to a Postgres
// advisory lock.
func NewWatcher(db *sql.DB, redisClient *redis.Client, imp *importer.BatchImporter, jobs *postgres.ImportJobRepo, cfg Config) (*Watcher, error) {
	ctx := context.Background()

	var awsCfg aws.Config
	var err error
	if cfg.AWSProfile != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.AWSProfile),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Watcher{
		s3Client:  s3.NewFromConfig(awsCfg),
		db:        db,
		importer:  imp,
		jobs:      jobs,
		lock:      distlock.NewLock(redisClient, db, "dropfolder:cycle", 30*time.Minute),
		bucket:    cfg.Bucket,
		accountID: cfg.AccountID,
		interval:  interval,
		healthy:   true,
	}, nil
}

// Start launches the polling loop in the background.
func (w *Watcher) Start() {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.ensureSchema()
	go func() {
		w.resumeStuck()
		w.runOnce()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runOnce()
			}
		}
	}()
}

// Stop cancels the polling loop. A file import already in flight finishes;
// the importer itself has no mid-run cancellation.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// IsHealthy reports whether the last poll cycle completed without S3 errors.
func (w *Watcher) IsHealthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.healthy
}

// LastRunAt returns when the last poll cycle started. Zero before the first
// cycle.
func (w *Watcher) LastRunAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRunAt
}

// IsRunning reports whether a cycle is executing right now.
func (w *Watcher) IsRunning() bool { return atomic.LoadInt32(&w.running) == 1 }

func (w *Watcher) setHealthy(v bool) {
	w.mu.Lock()
	w.healthy = v
	w.mu.Unlock()
}

// runOnce executes one cycle: discover new files, then import pending ones.
func (w *Watcher) runOnce() {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&w.running, 0)

	// One cycle across the whole deployment. A second server instance
	// polling the same bucket skips its cycle instead of racing on claims.
	acquired, err := w.lock.Acquire(w.ctx)
	if err != nil {
		log.Printf("[dropfolder] acquire cycle lock: %v", err)
		return
	}
	if !acquired {
		return
	}
	defer w.lock.Release(w.ctx)

	w.mu.Lock()
	w.lastRunAt = time.Now()
	w.healthy = true
	w.mu.Unlock()

	w.discoverFiles(w.ctx)
	w.processPending(w.ctx)
}

// ManualTrigger runs a single cycle immediately.
func (w *Watcher) ManualTrigger() {
	go w.runOnce()
}

// discoverFiles scans the bucket and inserts every new CSV as a pending
// entry in lead_import_files. Already-known keys are skipped via ON CONFLICT.
func (w *Watcher) discoverFiles(ctx context.Context) {
	paginator := s3.NewListObjectsV2Paginator(w.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(w.bucket),
	})

	discovered := 0
	for paginator.HasMorePages() {
		if ctx.Err() != nil {
			return
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Printf("[dropfolder] list S3 objects error: %v", err)
			w.setHealthy(false)
			return
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !isImportableKey(key) || obj.Size == nil || *obj.Size == 0 {
				continue
			}

			res, err := w.db.ExecContext(ctx,
				`INSERT INTO lead_import_files (original_key, status)
				 VALUES ($1, 'pending')
				 ON CONFLICT (original_key) DO NOTHING`,
				key,
			)
			if err != nil {
				log.Printf("[dropfolder] insert pending %s: %v", key, err)
				continue
			}
			if rows, _ := res.RowsAffected(); rows > 0 {
				discovered++
			}
		}
	}

	if discovered > 0 {
		log.Printf("[dropfolder] discovered %d new files", discovered)
	}
}

// isImportableKey filters for spreadsheet drops outside the archive prefix.
func isImportableKey(key string) bool {
	if strings.HasPrefix(key, "processed/") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(key), ".csv")
}

// processPending imports pending files one at a time, oldest first. Strictly
// sequential: the import log stays ordered and the database never sees
// concurrent bulk inserts from the drop folder.
func (w *Watcher) processPending(ctx context.Context) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT original_key FROM lead_import_files
		 WHERE status = 'pending'
		 ORDER BY created_at ASC
		 LIMIT 10`)
	if err != nil {
		log.Printf("[dropfolder] query pending: %v", err)
		return
	}

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err == nil {
			keys = append(keys, k)
		}
	}
	rows.Close()

	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		if err := w.processFile(ctx, key); err != nil {
			log.Printf("[dropfolder] process %s: %v", key, err)
		}
	}
}

// processFile claims one pending file, downloads it, runs it through the
// batch importer as its own run, and archives it under processed/.
func (w *Watcher) processFile(ctx context.Context, key string) error {
	res, err := w.db.ExecContext(ctx,
		`UPDATE lead_import_files SET status = 'processing', started_at = NOW()
		 WHERE original_key = $1 AND status = 'pending'`, key)
	if err != nil {
		return fmt.Errorf("claim file: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil
	}

	log.Printf("[dropfolder] importing %s", key)

	obj, err := w.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		w.markFailed(ctx, key, fmt.Sprintf("get S3 object: %v", err))
		return fmt.Errorf("get S3 object: %w", err)
	}
	defer obj.Body.Close()

	runID, err := w.jobs.Start(ctx, w.accountID, 1)
	if err != nil {
		w.markFailed(ctx, key, err.Error())
		return err
	}

	result := w.importer.Run(ctx, runID, w.accountID, []importer.RowSource{
		importer.NewCSVFile(key, obj.Body),
	})

	if err := w.jobs.Complete(ctx, runID, result.ImportedCount, result.ErrorCount); err != nil {
		log.Printf("[dropfolder] complete job %s: %v", runID, err)
	}

	w.db.ExecContext(ctx,
		`UPDATE lead_import_files
		 SET status = 'completed', job_id = $1, record_count = $2, error_count = $3, processed_at = NOW()
		 WHERE original_key = $4`,
		runID, result.ImportedCount, result.ErrorCount, key,
	)

	archivedKey := "processed/" + key
	_, copyErr := w.s3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(w.bucket),
		CopySource: aws.String(w.bucket + "/" + key),
		Key:        aws.String(archivedKey),
	})
	if copyErr != nil {
		log.Printf("[dropfolder] archive %s failed: %v", key, copyErr)
	} else {
		if _, delErr := w.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(key),
		}); delErr != nil {
			log.Printf("[dropfolder] delete original %s failed: %v", key, delErr)
		}
	}

	log.Printf("[dropfolder] completed %s: imported=%d errors=%d",
		key, result.ImportedCount, result.ErrorCount)
	return nil
}

func (w *Watcher) markFailed(ctx context.Context, key, errMsg string) {
	w.db.ExecContext(ctx,
		`UPDATE lead_import_files SET status = 'failed', error_message = $1 WHERE original_key = $2`,
		errMsg, key,
	)
}

// resumeStuck resets files left in 'processing' by a prior crash back to
// 'pending' so the next cycle picks them up.
func (w *Watcher) resumeStuck() {
	w.db.ExecContext(w.ctx,
		`UPDATE lead_import_files SET status = 'pending'
		 WHERE status = 'processing'`)
}

// ensureSchema creates the tracking table when it doesn't exist yet.
func (w *Watcher) ensureSchema() {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS lead_import_files (
			original_key  TEXT PRIMARY KEY,
			status        TEXT NOT NULL DEFAULT 'pending'
			              CHECK (status IN ('pending','processing','completed','failed')),
			job_id        UUID,
			record_count  INTEGER DEFAULT 0,
			error_count   INTEGER DEFAULT 0,
			error_message TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at    TIMESTAMPTZ,
			processed_at  TIMESTAMPTZ
		)`)
	if err != nil {
		log.Printf("[dropfolder] ensure schema (non-fatal): %v", err)
	}
}
