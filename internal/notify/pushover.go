// Package notify sends push notifications to the blog operator about
// webhook processing. Sends are best-effort: a failed notification is
// logged and never fails the event that triggered it.
package notify

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/posse/internal/config"
)

var notifyLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	notifyLogger = l
}

const pushoverAPIURL = "https://api.pushover.net/1/messages.json"

// Pushover field length limits, per its API documentation.
const (
	maxTitleLength    = 250
	maxMessageLength  = 1024
	maxURLLength      = 512
	maxURLTitleLength = 100
)

type Pushover struct {
	appToken string
	userKey  string
	enabled  bool

	apiURL string
	http   *resty.Client
}

type Option func(*Pushover)

// WithAPIURL overrides the Pushover API endpoint. Only set from tests.
func WithAPIURL(url string) Option {
	return func(p *Pushover) { p.apiURL = url }
}

// NewPushover builds a notifier from config. Notifications stay
// disabled unless enabled in config with both credentials present.
func NewPushover(cfg config.PushoverConfig, opts ...Option) *Pushover {
	enabled := cfg.Enabled && cfg.AppToken != "" && cfg.UserKey != ""
	if cfg.Enabled && !enabled {
		notifyLogger.Warn().Msg("Pushover notifications disabled: missing credentials")
	}

	p := &Pushover{
		appToken: cfg.AppToken,
		userKey:  cfg.UserKey,
		enabled:  enabled,
		apiURL:   pushoverAPIURL,
		http:     resty.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pushover) Enabled() bool { return p.enabled }

// PostReceived fires after a webhook event is parsed and validated.
func (p *Pushover) PostReceived(title, postID string) {
	p.send("Post received", "Post event received and validated:\n"+title, "", "")
}

// PostProcessed fires after the event was synced successfully.
func (p *Pushover) PostProcessed(title, url string) {
	p.send("Post processed", "Post processed for syndication:\n"+title, url, "View post")
}

// ProcessingError fires when an event fails validation or sync.
func (p *Pushover) ProcessingError(details string) {
	p.send("Processing error", "Failed to process post event:\n"+details, "", "")
}

func (p *Pushover) send(title, message, url, urlTitle string) {
	if !p.enabled {
		return
	}

	form := map[string]string{
		"token":   p.appToken,
		"user":    p.userKey,
		"title":   truncate(title, maxTitleLength),
		"message": truncate(message, maxMessageLength),
	}
	if url != "" {
		form["url"] = truncate(url, maxURLLength)
		if urlTitle != "" {
			form["url_title"] = truncate(urlTitle, maxURLTitleLength)
		}
	}

	resp, err := p.http.R().
		SetContext(context.Background()).
		SetFormData(form).
		Post(p.apiURL)
	if err != nil {
		notifyLogger.Error().Err(err).Str("title", title).Msg("Failed to send Pushover notification")
		return
	}
	if resp.IsError() {
		notifyLogger.Error().
			Int("status_code", resp.StatusCode()).
			Str("title", title).
			Msg("Pushover rejected notification")
		return
	}

	notifyLogger.Info().Str("title", title).Msg("Pushover notification sent")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
