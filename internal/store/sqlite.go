package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/debemdeboas/posse/internal/db"
	"github.com/debemdeboas/posse/internal/model"
	"github.com/debemdeboas/posse/internal/util/compression"
)

type SQLiteStore struct { // implements Store
	db         db.DB
	compressor compression.Compressor
}

func NewSQLiteStore(db db.DB, compressor compression.Compressor) *SQLiteStore {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &SQLiteStore{
		db:         db,
		compressor: compressor,
	}
}

func (s *SQLiteStore) Record(postID model.PostID, target, source string, sentAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO sent_webmentions (post_id, target_url, source_url, status, sent_at, retracted_at)
		 VALUES (?, ?, ?, ?, ?, NULL)
		 ON CONFLICT(post_id, target_url) DO UPDATE SET
		     source_url = excluded.source_url,
		     status = excluded.status,
		     sent_at = excluded.sent_at,
		     retracted_at = NULL`,
		postID, target, source, model.WebmentionConfirmed, sentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error recording sent webmention: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Query(postID model.PostID) ([]model.SentWebmention, error) {
	rows, err := s.db.Query(
		`SELECT post_id, target_url, source_url, status, sent_at
		 FROM sent_webmentions
		 WHERE post_id = ? AND status != ?`,
		postID, model.WebmentionRetracted,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying sent webmentions: %w", err)
	}
	defer rows.Close()

	var records []model.SentWebmention
	for rows.Next() {
		var rec model.SentWebmention
		if err := rows.Scan(&rec.PostID, &rec.Target, &rec.Source, &rec.Status, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("error scanning sent webmention: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) MarkRetracted(postID model.PostID, target string) error {
	_, err := s.db.Exec(
		`UPDATE sent_webmentions
		 SET status = ?, retracted_at = ?
		 WHERE post_id = ? AND target_url = ?`,
		model.WebmentionRetracted, time.Now().UTC(), postID, target,
	)
	if err != nil {
		return fmt.Errorf("error retracting webmention: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAll(postID model.PostID) ([]model.SentWebmention, error) {
	records, err := s.Query(postID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE sent_webmentions
		 SET status = ?, retracted_at = ?
		 WHERE post_id = ? AND status != ?`,
		model.WebmentionRetracted, time.Now().UTC(), postID, model.WebmentionRetracted,
	)
	if err != nil {
		return nil, fmt.Errorf("error retracting webmentions for post %s: %w", postID, err)
	}
	return records, nil
}

func (s *SQLiteStore) SaveSnapshot(postID model.PostID, body []byte, bodyHash string) error {
	compressed, err := s.compressor.Compress(body)
	if err != nil {
		return fmt.Errorf("error compressing snapshot: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO post_snapshots (post_id, body, body_hash, codec, synced_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(post_id) DO UPDATE SET
		     body = excluded.body,
		     body_hash = excluded.body_hash,
		     codec = excluded.codec,
		     synced_at = excluded.synced_at`,
		postID, compressed, bodyHash, s.compressor.Name(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving post snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SnapshotHash(postID model.PostID) (string, error) {
	row := s.db.Get().QueryRow(
		`SELECT body_hash FROM post_snapshots WHERE post_id = ?`, postID,
	)

	var hash string
	if err := row.Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrSnapshotNotFound
		}
		return "", fmt.Errorf("error reading snapshot hash: %w", err)
	}
	return hash, nil
}

// Snapshot returns the decompressed last-synced body of a post.
func (s *SQLiteStore) Snapshot(postID model.PostID) ([]byte, error) {
	row := s.db.Get().QueryRow(
		`SELECT body, codec FROM post_snapshots WHERE post_id = ?`, postID,
	)

	var compressed []byte
	var codec string
	if err := row.Scan(&compressed, &codec); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	body, err := compression.ForName(codec).Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing snapshot: %w", err)
	}
	return body, nil
}

func (s *SQLiteStore) DeleteSnapshot(postID model.PostID) error {
	_, err := s.db.Exec(`DELETE FROM post_snapshots WHERE post_id = ?`, postID)
	if err != nil {
		return fmt.Errorf("error deleting post snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordSyndication(postID model.PostID, platform, account, remoteURL string) error {
	_, err := s.db.Exec(
		`INSERT INTO syndications (post_id, platform, account, remote_url, syndicated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(post_id, platform, account) DO UPDATE SET
		     remote_url = excluded.remote_url,
		     syndicated_at = excluded.syndicated_at`,
		postID, platform, account, remoteURL, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error recording syndication: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
