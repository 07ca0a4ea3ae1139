package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Server      ServerConfig      `yaml:"server"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Storage     StorageConfig     `yaml:"storage"`
	Webmention  WebmentionConfig  `yaml:"webmention"`
	Syndication SyndicationConfig `yaml:"syndication"`
	Pushover    PushoverConfig    `yaml:"pushover"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// PushoverConfig enables push notifications to the blog operator.
// Credentials may reference environment variables as ${VAR_NAME}.
type PushoverConfig struct {
	Enabled  bool   `yaml:"enabled" default:"false"`
	AppToken string `yaml:"app_token"`
	UserKey  string `yaml:"user_key"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name string `yaml:"name" default:"My Blog"`

	// Origin is the scheme://host of the blog itself. Links pointing
	// back at this origin are treated as self-references and never
	// receive webmentions. Empty means no self-reference filtering.
	Origin string `yaml:"origin" default:""`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12700"`
}

type WebhookConfig struct {
	// Secret is the shared HMAC secret the blog signs webhook bodies
	// with. Empty disables signature verification.
	Secret string `yaml:"secret" default:""`

	// MaxSkewSeconds bounds how old a signed webhook timestamp may be.
	MaxSkewSeconds int `yaml:"max_skew_seconds" default:"300"`
}

type StorageConfig struct {
	// Backend selects the webmention store: sqlite, memory or s3.
	Backend string `yaml:"backend" default:"sqlite"`

	SQLitePath string `yaml:"sqlite_path" default:"./posse.db"`

	// Compression codec for stored post body snapshots: zstd or gzip.
	Compression string `yaml:"compression" default:"zstd"`

	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket" default:""`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
	Prefix   string `yaml:"prefix" default:"webmentions"`
}

type WebmentionConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`

	TimeoutSeconds int `yaml:"timeout_seconds" default:"30"`

	// Concurrency bounds parallel sends across distinct targets of a
	// single diff. Sends for the same target are never parallelized.
	Concurrency int `yaml:"concurrency" default:"4"`

	MaxHTMLBytes int    `yaml:"max_html_bytes" default:"5242880"`
	UserAgent    string `yaml:"user_agent" default:"posse-webmention/1.0"`
}

type SyndicationConfig struct {
	Mastodon []MastodonAccount `yaml:"mastodon"`
	Bluesky  []BlueskyAccount  `yaml:"bluesky"`
}

type MastodonAccount struct {
	Name        string        `yaml:"name"`
	Server      string        `yaml:"server"`
	AccessToken string        `yaml:"access_token"`
	Visibility  string        `yaml:"visibility" default:"public"`
	Filters     FiltersConfig `yaml:"filters"`
}

type BlueskyAccount struct {
	Name        string        `yaml:"name"`
	Host        string        `yaml:"host" default:"https://bsky.social"`
	Handle      string        `yaml:"handle"`
	AppPassword string        `yaml:"app_password"`
	Filters     FiltersConfig `yaml:"filters"`
}

// FiltersConfig narrows which posts an account syndicates. Empty filters
// match every post; exclude_tags wins over tags.
type FiltersConfig struct {
	Tags        []string `yaml:"tags"`
	ExcludeTags []string `yaml:"exclude_tags"`
	Visibility  []string `yaml:"visibility"`
	Featured    *bool    `yaml:"featured"`
	Status      []string `yaml:"status"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	// Credentials may be referenced as ${ENV_VAR} in the file.
	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Account entries are appended by yaml after defaults ran, so their
	// tagged defaults have to be applied per element.
	for i := range config.Syndication.Mastodon {
		applyDefaults(&config.Syndication.Mastodon[i])
	}
	for i := range config.Syndication.Bluesky {
		applyDefaults(&config.Syndication.Bluesky[i])
	}

	AppConfig = config
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if field.String() == "" {
				field.SetString(defaultValue)
			}
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if field.Int() == 0 {
				if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
					field.SetInt(val)
				}
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
