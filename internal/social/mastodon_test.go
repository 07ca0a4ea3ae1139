package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/posse/internal/config"
)

func TestMastodonPublish(t *testing.T) {
	post := taggedPost("go")

	t.Run("Posts status and returns its URL", func(t *testing.T) {
		var gotAuth, gotIdem, gotStatus, gotVisibility string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/statuses" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			gotAuth = r.Header.Get("Authorization")
			gotIdem = r.Header.Get("Idempotency-Key")
			r.ParseForm()
			gotStatus = r.PostFormValue("status")
			gotVisibility = r.PostFormValue("visibility")

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"42","url":"https://mastodon.example/@me/42"}`))
		}))
		defer srv.Close()

		m := NewMastodon(config.MastodonAccount{
			Name:        "main",
			Server:      srv.URL,
			AccessToken: "token-123",
			Visibility:  "public",
		}, 5*time.Second)

		result, err := m.Publish(context.Background(), post)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if result.ID != "42" || result.URL != "https://mastodon.example/@me/42" {
			t.Errorf("Unexpected result: %+v", result)
		}
		if gotAuth != "Bearer token-123" {
			t.Errorf("Expected bearer token, got %q", gotAuth)
		}
		if gotIdem == "" {
			t.Error("Expected an idempotency key header")
		}
		if !strings.Contains(gotStatus, post.Title) || !strings.Contains(gotStatus, post.URL) {
			t.Errorf("Expected status with title and URL, got %q", gotStatus)
		}
		if gotVisibility != "public" {
			t.Errorf("Expected public visibility, got %q", gotVisibility)
		}
	})

	t.Run("Idempotency key is stable per post", func(t *testing.T) {
		var keys []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keys = append(keys, r.Header.Get("Idempotency-Key"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"1","url":"https://mastodon.example/@me/1"}`))
		}))
		defer srv.Close()

		m := NewMastodon(config.MastodonAccount{Name: "main", Server: srv.URL}, 5*time.Second)
		m.Publish(context.Background(), post)
		m.Publish(context.Background(), post)

		if len(keys) != 2 || keys[0] != keys[1] {
			t.Errorf("Expected identical idempotency keys for a retried post, got %v", keys)
		}
	})

	t.Run("API error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		m := NewMastodon(config.MastodonAccount{Name: "main", Server: srv.URL}, 5*time.Second)
		if _, err := m.Publish(context.Background(), post); err == nil {
			t.Error("Expected an error for a rejected status")
		}
	})
}

func TestBlueskyPublish(t *testing.T) {
	post := taggedPost("go")

	t.Run("Creates session then record", func(t *testing.T) {
		var sessionBody, recordAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/xrpc/com.atproto.server.createSession":
				buf := make([]byte, 1024)
				n, _ := r.Body.Read(buf)
				sessionBody = string(buf[:n])
				w.Write([]byte(`{"accessJwt":"jwt-1","did":"did:plc:abc"}`))
			case "/xrpc/com.atproto.repo.createRecord":
				recordAuth = r.Header.Get("Authorization")
				w.Write([]byte(`{"uri":"at://did:plc:abc/app.bsky.feed.post/rkey123","cid":"cid1"}`))
			default:
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		b := NewBluesky(config.BlueskyAccount{
			Name:        "main",
			Host:        srv.URL,
			Handle:      "me.bsky.social",
			AppPassword: "app-pass",
		}, 5*time.Second)

		result, err := b.Publish(context.Background(), post)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if !strings.Contains(sessionBody, "me.bsky.social") {
			t.Errorf("Expected handle in session request, got %q", sessionBody)
		}
		if recordAuth != "Bearer jwt-1" {
			t.Errorf("Expected session JWT on record creation, got %q", recordAuth)
		}
		if result.URL != "https://bsky.app/profile/me.bsky.social/post/rkey123" {
			t.Errorf("Unexpected public URL %q", result.URL)
		}
	})

	t.Run("Failed session aborts publish", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"AuthFactorTokenRequired"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		b := NewBluesky(config.BlueskyAccount{Name: "main", Host: srv.URL, Handle: "me"}, 5*time.Second)
		if _, err := b.Publish(context.Background(), post); err == nil {
			t.Error("Expected an error when authentication fails")
		}
	})
}
