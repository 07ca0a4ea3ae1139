// Command migrate imports legacy per-post JSON webmention mappings into
// the SQLite store. Legacy files are named {post_id}.json and contain
// the source URL plus the targets that already received a webmention.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/debemdeboas/posse/internal/db"
	"github.com/debemdeboas/posse/internal/model"
	"github.com/debemdeboas/posse/internal/store"
	"github.com/debemdeboas/posse/internal/util/compression"
)

type legacyMapping struct {
	SourceURL string   `json:"source_url"`
	Targets   []string `json:"targets"`
	SentAt    string   `json:"sent_at"`
}

// main is the entry point of the script, parsing flags and orchestrating the migration.
func main() {
	// Define command-line flags
	path := flag.String("path", "", "Path to the directory containing legacy .json mapping files")
	dbPath := flag.String("db", "./posse.db", "Path to the SQLite database")
	flag.Parse()

	if *path == "" {
		log.Fatal("The --path flag is required")
	}

	// Initialize the SQLite database and ensure tables exist
	sqlite := db.NewSQLite(*dbPath)
	if err := sqlite.InitDB(); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer sqlite.Close()

	st := store.NewSQLiteStore(sqlite, compression.ZstdCompressor{})

	files, err := os.ReadDir(*path)
	if err != nil {
		log.Fatalf("Error reading directory %s: %v", *path, err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		if err := processFile(*path, file.Name(), st); err != nil {
			log.Printf("Error processing file %s: %v", file.Name(), err)
			continue
		}
		log.Printf("Successfully migrated mapping file: %s", file.Name())
	}
}

// processFile imports a single legacy mapping file.
func processFile(dirPath, name string, st store.Store) error {
	data, err := os.ReadFile(filepath.Join(dirPath, name))
	if err != nil {
		return err
	}

	var mapping legacyMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return err
	}

	postID := model.PostID(strings.TrimSuffix(name, ".json"))

	sentAt := time.Now().UTC()
	if mapping.SentAt != "" {
		if ts, err := time.Parse(time.RFC3339, mapping.SentAt); err == nil {
			sentAt = ts
		}
	}

	for _, target := range mapping.Targets {
		if err := st.Record(postID, target, mapping.SourceURL, sentAt); err != nil {
			return err
		}
	}
	return nil
}
