// Package webhook receives Ghost-style post event webhooks and drives
// the sync orchestrator.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/posse/internal/config"
	"github.com/debemdeboas/posse/internal/model"
	"github.com/debemdeboas/posse/internal/posse"
	"github.com/debemdeboas/posse/internal/routes"
)

var webhookLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	webhookLogger = l
}

// maxBodyBytes caps webhook payload size. Post bodies above the link
// extraction cap would be truncated anyway.
const maxBodyBytes = 8 * 1024 * 1024

// Syncer is the orchestrator surface the handler needs.
type Syncer interface {
	HandlePublish(ctx context.Context, post *model.Post) (*posse.Report, error)
	HandleUpdate(ctx context.Context, post *model.Post) (*posse.Report, error)
	HandleDelete(ctx context.Context, postID model.PostID) (*posse.Report, error)
}

// Notifier pushes operator notifications about event processing. All
// methods are fire-and-forget. A nil Notifier disables notifications.
type Notifier interface {
	PostReceived(title, postID string)
	PostProcessed(title, url string)
	ProcessingError(details string)
}

type Handler struct {
	syncer   Syncer
	notifier Notifier
	secret   string
	maxSkew  time.Duration
}

func NewHandler(syncer Syncer, notifier Notifier, secret string, maxSkew time.Duration) *Handler {
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}
	return &Handler{
		syncer:   syncer,
		notifier: notifier,
		secret:   secret,
		maxSkew:  maxSkew,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(routes.WebhookGhost, h.ServeGhostWebhook)
	mux.HandleFunc(routes.Health, h.ServeHealth)
}

// ghostPayload mirrors the nested Ghost webhook structure:
// {"post": {"current": {...}, "previous": {...}}}.
type ghostPayload struct {
	Post struct {
		Current  ghostPost `json:"current"`
		Previous ghostPost `json:"previous"`
	} `json:"post"`
}

type ghostPost struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	HTML       string `json:"html"`
	Markdown   string `json:"markdown"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Visibility string `json:"visibility"`
	Featured   bool   `json:"featured"`
	Tags       []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"tags"`
	PublishedAt string `json:"published_at"`
	UpdatedAt   string `json:"updated_at"`
}

type webhookResponse struct {
	Status     string              `json:"status"`
	Message    string              `json:"message"`
	PostID     string              `json:"post_id,omitempty"`
	Skipped    bool                `json:"skipped,omitempty"`
	Failures   []posse.LinkOutcome `json:"failures,omitempty"`
	Syndicated []string            `json:"syndicated,omitempty"`
}

func (h *Handler) ServeGhostWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	deliveryID := uuid.New().String()
	l := webhookLogger.With().Str("delivery_id", deliveryID).Logger()

	if ct := r.Header.Get(config.HCType); !strings.HasPrefix(ct, config.CTypeJSON) {
		l.Error().Str("content_type", ct).Msg("Received non-JSON webhook payload")
		writeJSON(w, http.StatusBadRequest, webhookResponse{
			Status:  "error",
			Message: "Content-Type must be application/json",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		l.Error().Err(err).Msg("Failed to read webhook body")
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: config.ErrInvalidPayload})
		return
	}

	if h.secret != "" {
		if err := h.verifySignature(body, r.Header.Get(config.HGhostSignature), time.Now()); err != nil {
			l.Warn().Err(err).Msg("Webhook signature verification failed")
			writeJSON(w, http.StatusUnauthorized, webhookResponse{Status: "error", Message: err.Error()})
			return
		}
	}

	var payload ghostPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		l.Error().Err(err).Msg("Failed to parse webhook payload")
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: config.ErrInvalidPayload})
		return
	}

	event := r.Header.Get(config.HGhostEvent)
	kind := eventKind(event, &payload)

	post, postID, err := postFromPayload(&payload, kind)
	if err != nil {
		l.Error().Err(err).Str("event", event).Msg("Webhook payload validation failed")
		if h.notifier != nil {
			h.notifier.ProcessingError(err.Error())
		}
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: err.Error()})
		return
	}

	l.Info().
		Str("event", event).
		Str("kind", string(kind)).
		Str("post_id", string(postID)).
		Msg("Received post webhook")

	if h.notifier != nil {
		h.notifier.PostReceived(post.Title, string(postID))
	}

	var report *posse.Report
	switch kind {
	case kindPublish:
		report, err = h.syncer.HandlePublish(r.Context(), post)
	case kindUpdate:
		report, err = h.syncer.HandleUpdate(r.Context(), post)
	case kindDelete:
		report, err = h.syncer.HandleDelete(r.Context(), postID)
	}
	if err != nil {
		l.Error().Err(err).Str("post_id", string(postID)).Msg("Sync failed")
		if h.notifier != nil {
			h.notifier.ProcessingError(err.Error())
		}
		writeJSON(w, http.StatusInternalServerError, webhookResponse{
			Status:  "error",
			Message: config.ErrInternalServerError,
			PostID:  string(postID),
		})
		return
	}

	if h.notifier != nil {
		h.notifier.PostProcessed(post.Title, post.URL)
	}

	// Individual send failures are reported but do not fail the
	// delivery; the blog should not retry the whole event for them.
	writeJSON(w, http.StatusOK, webhookResponse{
		Status:     "success",
		Message:    "Post event processed",
		PostID:     string(postID),
		Skipped:    report.Skipped,
		Failures:   report.Failures(),
		Syndicated: report.Syndicated,
	})
}

func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// verifySignature checks the Ghost-style signature header
// "sha256=<hex>, t=<unix-ms>". The MAC covers the body concatenated
// with the timestamp, so a replayed body cannot be re-signed with a
// fresh timestamp by anyone without the secret.
func (h *Handler) verifySignature(body []byte, header string, now time.Time) error {
	if header == "" {
		return errors.New(config.ErrSignatureRequired)
	}

	var sigHex, tsStr string
	for _, part := range strings.Split(header, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "sha256":
			sigHex = val
		case "t":
			tsStr = val
		}
	}
	if sigHex == "" || tsStr == "" {
		return errors.New(config.ErrInvalidSignatureFormat)
	}

	tsMillis, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return errors.New(config.ErrInvalidSignatureFormat)
	}
	ts := time.UnixMilli(tsMillis)
	if now.Sub(ts) > h.maxSkew || ts.Sub(now) > h.maxSkew {
		return errors.New(config.ErrStaleSignature)
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return errors.New(config.ErrInvalidSignatureFormat)
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	mac.Write([]byte(tsStr))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return errors.New(config.ErrInvalidSignature)
	}
	return nil
}

type eventKindT string

const (
	kindPublish eventKindT = "publish"
	kindUpdate  eventKindT = "update"
	kindDelete  eventKindT = "delete"
)

// eventKind maps the X-Ghost-Event header to a sync action, falling
// back to payload shape when the header is absent: a payload without a
// current post can only be a deletion.
func eventKind(event string, payload *ghostPayload) eventKindT {
	switch event {
	case "post.published", "post.added":
		return kindPublish
	case "post.deleted", "post.unpublished":
		return kindDelete
	case "post.updated", "post.edited", "post.published.edited":
		return kindUpdate
	}

	if payload.Post.Current.ID == "" && payload.Post.Previous.ID != "" {
		return kindDelete
	}
	return kindUpdate
}

func postFromPayload(payload *ghostPayload, kind eventKindT) (*model.Post, model.PostID, error) {
	src := payload.Post.Current
	if kind == kindDelete && src.ID == "" {
		src = payload.Post.Previous
	}

	if src.ID == "" {
		return nil, "", errors.New("missing post id")
	}
	// An empty body is valid; it diffs as "every prior link removed".
	if kind != kindDelete && src.URL == "" {
		return nil, "", errors.New("missing post url")
	}

	post := &model.Post{
		ID:         model.PostID(src.ID),
		Title:      src.Title,
		Slug:       src.Slug,
		URL:        src.URL,
		HTML:       src.HTML,
		Visibility: src.Visibility,
		Featured:   src.Featured,
		Status:     src.Status,
	}
	if src.Markdown != "" {
		post.Markdown = []byte(src.Markdown)
	}
	for _, t := range src.Tags {
		post.Tags = append(post.Tags, model.Tag{Name: t.Name, Slug: t.Slug})
	}
	if ts, err := time.Parse(time.RFC3339, src.PublishedAt); err == nil {
		post.PublishedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, src.UpdatedAt); err == nil {
		post.UpdatedAt = ts
	}

	return post, post.ID, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		webhookLogger.Error().Err(err).Msg("Failed to encode response")
	}
}
