package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	path string
	conn *sql.DB
}

func NewSQLite(path string) *SQLite {
	return &SQLite{
		path: path,
		conn: nil,
	}
}

func (s *SQLite) InitDB() error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.path)
	if err != nil {
		return err
	}

	// A single connection serializes writes, which keeps store upserts
	// safe when webhooks for the same post arrive in quick succession.
	s.conn.SetMaxOpenConns(1)

	res, err := s.conn.Exec(`
PRAGMA foreign_keys = ON;
PRAGMA journal_mode = WAL;

CREATE TABLE IF NOT EXISTS sent_webmentions (
    post_id TEXT NOT NULL,
    target_url TEXT NOT NULL,
    source_url TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'confirmed',
    sent_at DATETIME NOT NULL,
    retracted_at DATETIME,
    PRIMARY KEY (post_id, target_url)
);

CREATE INDEX IF NOT EXISTS idx_sent_webmentions_status
    ON sent_webmentions(post_id, status);

CREATE TABLE IF NOT EXISTS post_snapshots (
    post_id TEXT PRIMARY KEY,
    body BLOB,
    body_hash TEXT NOT NULL,
    codec TEXT NOT NULL DEFAULT 'zstd',
    synced_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS syndications (
    post_id TEXT NOT NULL,
    platform TEXT NOT NULL,
    account TEXT NOT NULL,
    remote_url TEXT,
    syndicated_at DATETIME NOT NULL,
    PRIMARY KEY (post_id, platform, account)
);`)

	dbLogger.Info().Any("db_result", res).Msg("Database initialized")
	return err
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Query(query string, args ...interface{}) (*sql.Rows, error) {
	dbLogger.Debug().Str("query", query).Msg("Query")
	return s.conn.Query(query, args...)
}

func (s *SQLite) Exec(query string, args ...interface{}) (sql.Result, error) {
	dbLogger.Debug().Str("query", query).Msg("Exec")
	return s.conn.Exec(query, args...)
}
