package model

import "time"

type WebmentionStatus string

// A record is created confirmed, after the send succeeded, and only
// ever transitions to retracted.
const (
	WebmentionConfirmed WebmentionStatus = "confirmed"
	WebmentionRetracted WebmentionStatus = "retracted"
)

// SentWebmention records a webmention that was delivered for a post.
// Keyed by (PostID, Target); a record transitions to retracted when the
// link disappears from the post or the post is deleted. Records are
// never hard-deleted outside of explicit cleanup.
type SentWebmention struct {
	PostID PostID
	Target string
	Source string

	Status WebmentionStatus
	SentAt time.Time
}
