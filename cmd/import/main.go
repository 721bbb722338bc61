package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"

	"github.com/ignite/lead-console/internal/importer"
	"github.com/ignite/lead-console/internal/repository/postgres"
)

// One-shot bulk import of local CSV files, for operators loading historical
// exports without going through the API. Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/import -account acct-1 leads1.csv leads2.csv
func main() {
	account := flag.String("account", "", "account ID to import leads into (required)")
	chunk := flag.Int("chunk", importer.DefaultChunkSize, "rows per insert chunk")
	flag.Parse()

	if *account == "" {
		log.Fatal("-account is required")
	}
	if flag.NArg() == 0 {
		log.Fatal("no CSV files given")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	ctx := context.Background()

	var sources []importer.RowSource
	var open []*os.File
	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("open %s: %v", path, err)
		}
		open = append(open, f)
		sources = append(sources, importer.NewCSVFile(filepath.Base(path), f))
	}
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()

	jobs := postgres.NewImportJobRepo(db)
	runID, err := jobs.Start(ctx, *account, len(sources))
	if err != nil {
		log.Fatalf("start import job: %v", err)
	}

	imp := importer.NewBatchImporter(postgres.NewLeadRepo(db), importer.NopProgress{}, *chunk)
	result := imp.Run(ctx, runID, *account, sources)

	if err := jobs.Complete(ctx, runID, result.ImportedCount, result.ErrorCount); err != nil {
		log.Printf("complete import job: %v", err)
	}

	for _, line := range result.Log {
		fmt.Println(" ", line)
	}
	log.Printf("Done: run=%s imported=%d errors=%d", runID, result.ImportedCount, result.ErrorCount)
	if result.ErrorCount > 0 {
		os.Exit(1)
	}
}
