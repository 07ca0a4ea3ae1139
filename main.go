package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/posse/internal/config"
	"github.com/debemdeboas/posse/internal/db"
	"github.com/debemdeboas/posse/internal/links"
	"github.com/debemdeboas/posse/internal/logger"
	"github.com/debemdeboas/posse/internal/notify"
	"github.com/debemdeboas/posse/internal/posse"
	"github.com/debemdeboas/posse/internal/social"
	"github.com/debemdeboas/posse/internal/store"
	"github.com/debemdeboas/posse/internal/util/compression"
	"github.com/debemdeboas/posse/internal/webhook"
	"github.com/debemdeboas/posse/internal/webmention"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine; config and env vars still apply.
		os.Stderr.WriteString("No .env file loaded\n")
	}

	configPath := "config.yaml"
	if env := os.Getenv("POSSE_CONFIG"); env != "" {
		configPath = env
	}
	if err := config.LoadConfig(configPath); err != nil {
		fmt.Fprintf(os.Stderr, config.ErrLoadConfigFmt+"\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	l := logger.New(cfg.Logging.Level)
	setLoggers(l)

	st := newStore(l, cfg)
	defer st.Close()

	var sender webmention.Sender
	if cfg.Webmention.Enabled {
		sender = webmention.NewClient(
			time.Duration(cfg.Webmention.TimeoutSeconds)*time.Second,
			cfg.Webmention.UserAgent,
		)
	} else {
		l.Warn().Msg("Webmention sending disabled by config")
	}

	extractor := links.NewExtractor(cfg.Site.Origin, cfg.Webmention.MaxHTMLBytes)

	publishers := newPublishers(cfg)
	l.Info().Int("publishers", len(publishers)).Msg("Syndication accounts configured")

	orchestrator := posse.New(st, extractor, sender, publishers, cfg.Webmention.Concurrency)

	var notifier webhook.Notifier
	if p := notify.NewPushover(cfg.Pushover); p.Enabled() {
		notifier = p
	}

	handler := webhook.NewHandler(
		orchestrator,
		notifier,
		cfg.Webhook.Secret,
		time.Duration(cfg.Webhook.MaxSkewSeconds)*time.Second,
	)

	mux := http.NewServeMux()
	handler.Register(mux)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	l.Info().Str("addr", addr).Msg("Starting webhook server")
	l.Fatal().Err(http.ListenAndServe(addr, secureHeaders(mux))).Msg("Server stopped")
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l)
	db.SetLogger(l)
	store.SetLogger(l)
	links.SetLogger(l)
	notify.SetLogger(l)
	webmention.SetLogger(l)
	social.SetLogger(l)
	posse.SetLogger(l)
	webhook.SetLogger(l)
}

func newStore(l zerolog.Logger, cfg *config.Config) store.Store {
	switch cfg.Storage.Backend {
	case "memory":
		return store.NewMemoryStore()
	case "s3":
		return store.NewS3Store(
			os.Getenv("S3_ACCESS_KEY_ID"),
			os.Getenv("S3_ACCESS_KEY_SECRET"),
			cfg.Storage.S3.Endpoint,
			cfg.Storage.S3.Region,
			cfg.Storage.S3.Bucket,
			cfg.Storage.S3.Prefix,
		)
	default:
		sqlite := db.NewSQLite(cfg.Storage.SQLitePath)
		if err := sqlite.InitDB(); err != nil {
			l.Fatal().Msgf(config.ErrInitializeDatabaseFmt, err)
		}
		return store.NewSQLiteStore(sqlite, compression.ForName(cfg.Storage.Compression))
	}
}

func newPublishers(cfg *config.Config) []social.Publisher {
	timeout := time.Duration(cfg.Webmention.TimeoutSeconds) * time.Second

	var publishers []social.Publisher
	for _, account := range cfg.Syndication.Mastodon {
		publishers = append(publishers, social.NewMastodon(account, timeout))
	}
	for _, account := range cfg.Syndication.Bluesky {
		publishers = append(publishers, social.NewBluesky(account, timeout))
	}
	return publishers
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		next.ServeHTTP(w, r)
	})
}
