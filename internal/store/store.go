// Package store persists which webmentions have been sent per post, so
// that link removals and post deletions can be retracted later.
package store

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/posse/internal/model"
)

var storeLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storeLogger = l
}

var ErrSnapshotNotFound = errors.New("post snapshot not found")

// Store is a keyed store over (post ID, target URL). All operations are
// idempotent so the orchestrator can safely retry after a partial
// failure in the network send step.
type Store interface {
	// Record upserts a confirmed SentWebmention. Repeated identical
	// calls leave the store unchanged.
	Record(postID model.PostID, target, source string, sentAt time.Time) error

	// Query returns all non-retracted records for a post.
	Query(postID model.PostID) ([]model.SentWebmention, error)

	// MarkRetracted transitions a record to retracted. A missing
	// record is a no-op, not an error.
	MarkRetracted(postID model.PostID, target string) error

	// DeleteAll retracts every record of a post and returns the
	// affected records so retraction sends can be issued.
	DeleteAll(postID model.PostID) ([]model.SentWebmention, error)

	// SaveSnapshot stores the post's last-synced body hash. Backends
	// may also keep the body itself; only the hash is contractual,
	// since change detection needs nothing else.
	SaveSnapshot(postID model.PostID, body []byte, bodyHash string) error

	// SnapshotHash returns the stored body hash, or
	// ErrSnapshotNotFound when the post has never been synced.
	SnapshotHash(postID model.PostID) (string, error)

	DeleteSnapshot(postID model.PostID) error

	// RecordSyndication upserts the remote URL a post was syndicated
	// to on a given platform account.
	RecordSyndication(postID model.PostID, platform, account, remoteURL string) error

	Close() error
}
