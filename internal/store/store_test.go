package store

import (
	"errors"
	"testing"
	"time"

	"github.com/debemdeboas/posse/internal/db"
	"github.com/debemdeboas/posse/internal/model"
	"github.com/debemdeboas/posse/internal/util/compression"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	sqlite := db.NewSQLite(":memory:")
	if err := sqlite.InitDB(); err != nil {
		t.Fatalf("Failed to initialize in-memory database: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return NewSQLiteStore(sqlite, compression.ZstdCompressor{})
}

// Both backends must satisfy the same contract, so the suite runs twice.
func TestStoreBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newSQLiteTestStore(t) },
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("Record and query", func(t *testing.T) {
				st := newStore(t)
				sentAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

				if err := st.Record("post-1", "https://a.example/page", "https://blog.example/post-1", sentAt); err != nil {
					t.Fatalf("Record failed: %v", err)
				}

				records, err := st.Query("post-1")
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if len(records) != 1 {
					t.Fatalf("Expected 1 record, got %d", len(records))
				}
				rec := records[0]
				if rec.Target != "https://a.example/page" {
					t.Errorf("Expected target https://a.example/page, got %s", rec.Target)
				}
				if rec.Source != "https://blog.example/post-1" {
					t.Errorf("Expected source https://blog.example/post-1, got %s", rec.Source)
				}
				if rec.Status != model.WebmentionConfirmed {
					t.Errorf("Expected status %s, got %s", model.WebmentionConfirmed, rec.Status)
				}
			})

			t.Run("Record is idempotent", func(t *testing.T) {
				st := newStore(t)
				sentAt := time.Now().UTC()

				for i := 0; i < 3; i++ {
					if err := st.Record("post-1", "https://a.example/page", "https://blog.example/post-1", sentAt); err != nil {
						t.Fatalf("Record failed: %v", err)
					}
				}

				records, err := st.Query("post-1")
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if len(records) != 1 {
					t.Errorf("Expected 1 record after repeated upserts, got %d", len(records))
				}
			})

			t.Run("Posts are isolated", func(t *testing.T) {
				st := newStore(t)
				now := time.Now().UTC()
				st.Record("post-1", "https://a.example", "https://blog.example/post-1", now)
				st.Record("post-2", "https://b.example", "https://blog.example/post-2", now)

				records, err := st.Query("post-1")
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if len(records) != 1 || records[0].Target != "https://a.example" {
					t.Errorf("Expected only post-1's record, got %v", records)
				}
			})

			t.Run("Query unknown post is empty", func(t *testing.T) {
				st := newStore(t)
				records, err := st.Query("nope")
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if len(records) != 0 {
					t.Errorf("Expected no records, got %v", records)
				}
			})

			t.Run("MarkRetracted hides record", func(t *testing.T) {
				st := newStore(t)
				now := time.Now().UTC()
				st.Record("post-1", "https://a.example", "https://blog.example/post-1", now)
				st.Record("post-1", "https://b.example", "https://blog.example/post-1", now)

				if err := st.MarkRetracted("post-1", "https://a.example"); err != nil {
					t.Fatalf("MarkRetracted failed: %v", err)
				}

				records, err := st.Query("post-1")
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if len(records) != 1 || records[0].Target != "https://b.example" {
					t.Errorf("Expected only the unretracted record, got %v", records)
				}
			})

			t.Run("MarkRetracted on missing record is a no-op", func(t *testing.T) {
				st := newStore(t)
				if err := st.MarkRetracted("post-1", "https://never.example"); err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
			})

			t.Run("Re-record after retraction revives", func(t *testing.T) {
				st := newStore(t)
				now := time.Now().UTC()
				st.Record("post-1", "https://a.example", "https://blog.example/post-1", now)
				st.MarkRetracted("post-1", "https://a.example")
				st.Record("post-1", "https://a.example", "https://blog.example/post-1", now)

				records, err := st.Query("post-1")
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if len(records) != 1 || records[0].Status != model.WebmentionConfirmed {
					t.Errorf("Expected revived confirmed record, got %v", records)
				}
			})

			t.Run("DeleteAll retracts and returns affected", func(t *testing.T) {
				st := newStore(t)
				now := time.Now().UTC()
				st.Record("post-1", "https://a.example", "https://blog.example/post-1", now)
				st.Record("post-1", "https://b.example", "https://blog.example/post-1", now)

				affected, err := st.DeleteAll("post-1")
				if err != nil {
					t.Fatalf("DeleteAll failed: %v", err)
				}
				if len(affected) != 2 {
					t.Errorf("Expected 2 affected records, got %d", len(affected))
				}

				records, err := st.Query("post-1")
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if len(records) != 0 {
					t.Errorf("Expected no records after DeleteAll, got %v", records)
				}

				// A second delete sees nothing left to retract.
				affected, err = st.DeleteAll("post-1")
				if err != nil {
					t.Fatalf("DeleteAll failed: %v", err)
				}
				if len(affected) != 0 {
					t.Errorf("Expected no affected records on repeat, got %v", affected)
				}
			})

			t.Run("Snapshot hash lifecycle", func(t *testing.T) {
				st := newStore(t)

				if _, err := st.SnapshotHash("post-1"); !errors.Is(err, ErrSnapshotNotFound) {
					t.Fatalf("Expected ErrSnapshotNotFound, got %v", err)
				}

				if err := st.SaveSnapshot("post-1", []byte("<p>hello</p>"), "hash-1"); err != nil {
					t.Fatalf("SaveSnapshot failed: %v", err)
				}
				hash, err := st.SnapshotHash("post-1")
				if err != nil {
					t.Fatalf("SnapshotHash failed: %v", err)
				}
				if hash != "hash-1" {
					t.Errorf("Expected hash-1, got %s", hash)
				}

				if err := st.SaveSnapshot("post-1", []byte("<p>updated</p>"), "hash-2"); err != nil {
					t.Fatalf("SaveSnapshot failed: %v", err)
				}
				hash, _ = st.SnapshotHash("post-1")
				if hash != "hash-2" {
					t.Errorf("Expected hash-2 after overwrite, got %s", hash)
				}

				if err := st.DeleteSnapshot("post-1"); err != nil {
					t.Fatalf("DeleteSnapshot failed: %v", err)
				}
				if _, err := st.SnapshotHash("post-1"); !errors.Is(err, ErrSnapshotNotFound) {
					t.Errorf("Expected ErrSnapshotNotFound after delete, got %v", err)
				}
			})

			t.Run("RecordSyndication upserts", func(t *testing.T) {
				st := newStore(t)
				if err := st.RecordSyndication("post-1", "mastodon", "main", "https://fosstodon.org/@me/1"); err != nil {
					t.Fatalf("RecordSyndication failed: %v", err)
				}
				if err := st.RecordSyndication("post-1", "mastodon", "main", "https://fosstodon.org/@me/2"); err != nil {
					t.Fatalf("RecordSyndication upsert failed: %v", err)
				}
			})
		})
	}
}

func TestSQLiteStore_SnapshotRoundTrip(t *testing.T) {
	compressors := []compression.Compressor{
		compression.ZstdCompressor{},
		compression.GzipCompressor{},
	}

	for _, c := range compressors {
		t.Run(c.Name(), func(t *testing.T) {
			sqlite := db.NewSQLite(":memory:")
			if err := sqlite.InitDB(); err != nil {
				t.Fatalf("Failed to initialize in-memory database: %v", err)
			}
			defer sqlite.Close()
			st := NewSQLiteStore(sqlite, c)

			body := []byte(`<p>Some post body with a <a href="https://a.example">link</a>.</p>`)
			if err := st.SaveSnapshot("post-1", body, "hash-1"); err != nil {
				t.Fatalf("SaveSnapshot failed: %v", err)
			}

			got, err := st.Snapshot("post-1")
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			if string(got) != string(body) {
				t.Errorf("Expected round-tripped body %q, got %q", body, got)
			}
		})
	}
}
