package social

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/debemdeboas/posse/internal/config"
	"github.com/debemdeboas/posse/internal/model"
)

const blueskyStatusLimit = 300

type Bluesky struct { // implements Publisher
	name    string
	host    string
	handle  string
	appPass string
	filters Filters

	http *resty.Client
}

func NewBluesky(cfg config.BlueskyAccount, timeout time.Duration) *Bluesky {
	return &Bluesky{
		name:    cfg.Name,
		host:    cfg.Host,
		handle:  cfg.Handle,
		appPass: cfg.AppPassword,
		filters: NewFilters(cfg.Filters),

		http: resty.New().
			SetBaseURL(cfg.Host).
			SetTimeout(timeout),
	}
}

func (b *Bluesky) Name() string     { return b.name }
func (b *Bluesky) Platform() string { return "bluesky" }

func (b *Bluesky) Matches(post *model.Post) bool {
	return b.filters.Match(post)
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
}

type blueskyRecordRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// createSession authenticates with an app password. Sessions are not
// reused across publishes; syndication volume is a handful of posts per
// day at most.
func (b *Bluesky) createSession(ctx context.Context) (*blueskySession, error) {
	var session blueskySession
	resp, err := b.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"identifier": b.handle,
			"password":   b.appPass,
		}).
		SetResult(&session).
		Post("/xrpc/com.atproto.server.createSession")
	if err != nil {
		return nil, fmt.Errorf("error creating bluesky session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bluesky session returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return &session, nil
}

func (b *Bluesky) Publish(ctx context.Context, post *model.Post) (*StatusResult, error) {
	session, err := b.createSession(ctx)
	if err != nil {
		return nil, err
	}

	text := ComposeStatus(post.Title, post.URL, blueskyStatusLimit)

	// The canonical URL rides along as an external embed so clients
	// render a link card instead of bare text.
	record := map[string]any{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"embed": map[string]any{
			"$type": "app.bsky.embed.external",
			"external": map[string]any{
				"uri":         post.URL,
				"title":       post.Title,
				"description": "",
			},
		},
	}

	var ref blueskyRecordRef
	resp, err := b.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+session.AccessJwt).
		SetHeader(config.HCType, config.CTypeJSON).
		SetBody(map[string]any{
			"repo":       session.DID,
			"collection": "app.bsky.feed.post",
			"record":     record,
		}).
		SetResult(&ref).
		Post("/xrpc/com.atproto.repo.createRecord")
	if err != nil {
		return nil, fmt.Errorf("error creating bluesky record: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bluesky returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	url := b.postURL(ref.URI)
	socialLogger.Info().
		Str("account", b.name).
		Str("status_url", url).
		Msg("Posted status to Bluesky")

	return &StatusResult{ID: ref.URI, URL: url}, nil
}

// postURL converts an at:// record URI into the public web URL.
func (b *Bluesky) postURL(atURI string) string {
	// at://did:plc:xyz/app.bsky.feed.post/rkey
	parts := strings.Split(atURI, "/")
	if len(parts) == 0 {
		return atURI
	}
	rkey := parts[len(parts)-1]
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", b.handle, rkey)
}
