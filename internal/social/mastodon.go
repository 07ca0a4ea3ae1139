package social

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/debemdeboas/posse/internal/config"
	"github.com/debemdeboas/posse/internal/model"
)

// Most Mastodon instances cap statuses at 500 characters.
const mastodonStatusLimit = 500

type Mastodon struct { // implements Publisher
	name       string
	server     string
	visibility string
	filters    Filters

	http *resty.Client
}

func NewMastodon(cfg config.MastodonAccount, timeout time.Duration) *Mastodon {
	return &Mastodon{
		name:       cfg.Name,
		server:     cfg.Server,
		visibility: cfg.Visibility,
		filters:    NewFilters(cfg.Filters),

		http: resty.New().
			SetBaseURL(cfg.Server).
			SetTimeout(timeout).
			SetAuthToken(cfg.AccessToken),
	}
}

func (m *Mastodon) Name() string     { return m.name }
func (m *Mastodon) Platform() string { return "mastodon" }

func (m *Mastodon) Matches(post *model.Post) bool {
	return m.filters.Match(post)
}

type mastodonStatus struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (m *Mastodon) Publish(ctx context.Context, post *model.Post) (*StatusResult, error) {
	status := ComposeStatus(post.Title, post.URL, mastodonStatusLimit)

	var created mastodonStatus
	resp, err := m.http.R().
		SetContext(ctx).
		// The post ID keys the idempotency header so a retried webhook
		// cannot double-post the same status.
		SetHeader(config.HIdempotency, uuid.NewSHA1(uuid.NameSpaceURL, []byte(post.URL+string(post.ID))).String()).
		SetFormData(map[string]string{
			"status":     status,
			"visibility": m.visibility,
		}).
		SetResult(&created).
		Post("/api/v1/statuses")
	if err != nil {
		return nil, fmt.Errorf("error posting status to %s: %w", m.server, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mastodon returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	socialLogger.Info().
		Str("account", m.name).
		Str("status_url", created.URL).
		Msg("Posted status to Mastodon")

	return &StatusResult{ID: created.ID, URL: created.URL}, nil
}
