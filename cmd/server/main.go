package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/lead-console/internal/api"
	"github.com/ignite/lead-console/internal/config"
	"github.com/ignite/lead-console/internal/dropfolder"
	"github.com/ignite/lead-console/internal/importer"
	"github.com/ignite/lead-console/internal/repository/postgres"
	"github.com/ignite/lead-console/internal/service/lead"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale/stub processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("Lead Console server starting (cmd/server/main.go)")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Connect to PostgreSQL with sane timeouts
	dbURL := cfg.Database.URL
	if dbURL == "" {
		log.Fatal("database.url is required (or set DATABASE_URL)")
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	if !strings.Contains(dbURL, "connect_timeout") {
		dbURL += sep + "connect_timeout=5"
	}
	log.Printf("DB URL host portion: ...@%s/...", extractHost(dbURL))

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	pingCancel()
	if err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	// Connect to Redis for import progress tracking
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to ping Redis at %s: %v", cfg.Redis.Addr, err)
	}
	log.Printf("Connected to Redis at %s", cfg.Redis.Addr)

	// Wire repositories and services
	leadRepo := postgres.NewLeadRepo(db)
	jobRepo := postgres.NewImportJobRepo(db)
	leadService := lead.NewService(leadRepo)
	progress := importer.NewRedisProgress(redisClient)
	batchImporter := importer.NewBatchImporter(leadRepo, progress, cfg.Import.ChunkSize)

	// Start the S3 drop folder watcher if configured
	var watcher *dropfolder.Watcher
	if cfg.DropFolder.Enabled && cfg.DropFolder.S3Bucket != "" {
		if cfg.DropFolder.AccountID == "" {
			cfg.DropFolder.AccountID = cfg.Import.DefaultAccount
		}
		watcher, err = dropfolder.NewWatcher(db, redisClient, batchImporter, jobRepo, dropfolder.Config{
			Bucket:     cfg.DropFolder.S3Bucket,
			Region:     cfg.DropFolder.S3Region,
			AWSProfile: cfg.DropFolder.GetAWSProfile(),
			AccountID:  cfg.DropFolder.AccountID,
			Interval:   cfg.DropFolder.Interval(),
		})
		if err != nil {
			log.Fatalf("Failed to initialize drop folder watcher: %v", err)
		}
		watcher.Start()
		log.Printf("Drop folder watcher started: bucket=%s interval=%s",
			cfg.DropFolder.S3Bucket, cfg.DropFolder.Interval())
	} else {
		log.Println("Drop folder watcher disabled")
	}

	handlers := api.NewHandlers(leadService, batchImporter, progress, jobRepo)
	if watcher != nil {
		handlers.SetDropFolder(watcher)
	}
	router := api.SetupRoutes(handlers, cfg.CORS.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // bulk uploads can be large
		WriteTimeout: 10 * time.Minute,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized, server is ready")

	<-done
	log.Println("Shutting down...")

	if watcher != nil {
		watcher.Stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	db.Close()
	redisClient.Close()

	log.Println("Server stopped")
}
