// Package social syndicates posts to third-party social networks.
// Publishers are explicit, constructed collaborators; there is no
// package-level client state.
package social

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/posse/internal/model"
)

var socialLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	socialLogger = l
}

// StatusResult describes the remote status a post was syndicated to.
type StatusResult struct {
	ID  string
	URL string
}

type Publisher interface {
	// Name identifies the configured account.
	Name() string

	// Platform is the network identifier, e.g. "mastodon".
	Platform() string

	// Matches reports whether this account's filters accept the post.
	Matches(post *model.Post) bool

	Publish(ctx context.Context, post *model.Post) (*StatusResult, error)
}

// ComposeStatus builds the syndicated status text: title, blank line,
// canonical URL. The title is truncated on a rune boundary so the whole
// status fits the platform limit; the URL is never cut.
func ComposeStatus(title, url string, limit int) string {
	status := title + "\n\n" + url
	if limit <= 0 || utf8.RuneCountInString(status) <= limit {
		return status
	}

	const ellipsis = "…"
	overhead := utf8.RuneCountInString("\n\n"+url) + utf8.RuneCountInString(ellipsis)
	budget := limit - overhead
	if budget < 1 {
		return url
	}

	runes := []rune(title)
	if len(runes) > budget {
		runes = runes[:budget]
	}
	return strings.TrimSpace(string(runes)) + ellipsis + "\n\n" + url
}
