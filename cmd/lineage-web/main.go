// Command lineage-web runs the Lineage relationship inference API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lineagekit/lineage/internal/config"
	"github.com/lineagekit/lineage/internal/importer"
	"github.com/lineagekit/lineage/internal/server"
	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/internal/storage/postgres"
	"github.com/lineagekit/lineage/internal/storage/sqlite"
)

func main() {
	// Parse command line flags
	importPath := flag.String("import", "", "YAML tree file or directory to import at startup")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Re-read owner settings now that the settings store is available;
	// persisted values take precedence over the environment.
	cfg, err = config.LoadConfigFromDB(context.Background(), store)
	if err != nil {
		log.Fatalf("Failed to load persisted config: %v", err)
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional one-shot import before the server starts serving inference
	// requests.
	if *importPath != "" {
		runImport(ctx, store, *importPath)
	}

	// Start server
	addr, _ := server.Start(ctx, cfg, store)
	log.Printf("Lineage API running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore builds the configured storage backend.
func openStore(cfg *config.Config) (storage.TreeStore, error) {
	if cfg.Storage.StorageEngine == "postgres" {
		return postgres.NewTreeStore(cfg.Storage.PostgresDSN, postgres.DefaultBreakerConfig())
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, err
	}
	return sqlite.NewTreeStore(cfg.Storage.DataPath + "/lineage.db")
}

// runImport imports the given YAML path synchronously and logs the outcome.
func runImport(ctx context.Context, store storage.TreeStore, path string) {
	imp := importer.NewTreeImporter(store)
	jobID, err := imp.StartImport(ctx, path)
	if err != nil {
		log.Fatalf("Failed to start import of %s: %v", path, err)
	}

	for {
		progress, ok := imp.GetJobProgress(jobID)
		if !ok {
			log.Fatalf("Import job %s disappeared", jobID)
		}
		if progress.Status == "complete" || progress.Status == "failed" {
			result := imp.GetJobResult(jobID)
			log.Printf("Import %s: %d trees, %d members, %d edges, %d marriages (%d files failed)",
				progress.Status, result.TreesCreated, result.MembersCreated,
				result.EdgesCreated, result.MarriagesCreated, result.FilesFailed)
			if progress.Status == "failed" {
				for _, e := range result.Errors {
					log.Printf("Import error: %s", e)
				}
				os.Exit(1)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}
