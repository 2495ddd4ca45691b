// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are tried in order when PathEnvVar is unset.
var DefaultPaths = []string{"marquee.yaml", "marquee.yml", "/etc/marquee/marquee.yaml"}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Neo4j    Neo4jConfig    `koanf:"neo4j"`
	NLU      NLUConfig      `koanf:"nlu"`
	Encoder  EncoderConfig  `koanf:"encoder"`
	Qdrant   QdrantConfig   `koanf:"qdrant"`
	NATS     NATSConfig     `koanf:"nats"`
	Dispatch DispatchConfig `koanf:"dispatch"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// RequestsPerMinute is the per-client limit; 0 disables it.
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"min=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type CatalogConfig struct {
	Source string `koanf:"source" validate:"oneof=file neo4j"`
	Path   string `koanf:"path" validate:"required_if=Source file"`
}

type Neo4jConfig struct {
	URL      string `koanf:"url"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	Page     int    `koanf:"page" validate:"min=1"`
}

type NLUConfig struct {
	Mode            string        `koanf:"mode" validate:"oneof=rasa rules"`
	URL             string        `koanf:"url" validate:"required_if=Mode rasa"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=0"`
	CacheTTL        time.Duration `koanf:"cache_ttl" validate:"min=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"min=0"`
	// Rate is requests per second; 0 means unlimited.
	Rate  float64 `koanf:"rate" validate:"min=0"`
	Burst int     `koanf:"burst" validate:"min=0"`
}

type EncoderConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"required_if=Enabled true"`
	Model   string `koanf:"model" validate:"required_if=Enabled true"`
}

type QdrantConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Addr       string `koanf:"addr" validate:"required_if=Enabled true"`
	Collection string `koanf:"collection" validate:"required_if=Enabled true"`
}

type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"required_if=Enabled true"`
	Subject string `koanf:"subject" validate:"required_if=Enabled true"`
	Queue   string `koanf:"queue"`
}

type DispatchConfig struct {
	Format     string `koanf:"format" validate:"oneof=html markdown text"`
	K          int    `koanf:"k" validate:"min=1,max=100"`
	GenreLimit int    `koanf:"genre_limit" validate:"min=1,max=100"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RequestsPerMinute: 120,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Catalog: CatalogConfig{Source: "file", Path: "movies_with_embeddings.json"},
		Neo4j:   Neo4jConfig{URL: "bolt://localhost:7687", User: "neo4j", Page: 500},
		NLU: NLUConfig{
			Mode:            "rules",
			URL:             "http://localhost:5005",
			Timeout:         5 * time.Second,
			CacheTTL:        10 * time.Minute,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			Rate:            20,
			Burst:           40,
		},
		Encoder:  EncoderConfig{URL: "http://localhost:11434", Model: "nomic-embed-text"},
		Qdrant:   QdrantConfig{Addr: "localhost:6334", Collection: "movies"},
		NATS:     NATSConfig{URL: "nats://localhost:4222", Subject: "marquee.ask", Queue: "marquee"},
		Dispatch: DispatchConfig{Format: "html", K: 5, GenreLimit: 5},
	}
}

// envKeys maps environment variables (lowercased) to koanf paths.
var envKeys = map[string]string{
	"port":                  "server.port",
	"read_timeout":          "server.read_timeout",
	"write_timeout":         "server.write_timeout",
	"shutdown_timeout":      "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"requests_per_minute":   "server.requests_per_minute",
	"log_level":             "log.level",
	"log_format":            "log.format",
	"catalog_source":        "catalog.source",
	"snapshot_path":         "catalog.path",
	"neo4j_url":             "neo4j.url",
	"neo4j_user":            "neo4j.user",
	"neo4j_password":        "neo4j.password",
	"neo4j_database":        "neo4j.database",
	"nlu_mode":              "nlu.mode",
	"nlu_url":               "nlu.url",
	"nlu_timeout":           "nlu.timeout",
	"nlu_cache_ttl":         "nlu.cache_ttl",
	"nlu_breaker_failures":  "nlu.breaker_failures",
	"nlu_breaker_timeout":   "nlu.breaker_timeout",
	"nlu_rate":              "nlu.rate",
	"nlu_burst":             "nlu.burst",
	"encoder_enabled":       "encoder.enabled",
	"ollama_url":            "encoder.url",
	"embed_model":           "encoder.model",
	"qdrant_enabled":        "qdrant.enabled",
	"qdrant_url":            "qdrant.addr",
	"qdrant_collection":     "qdrant.collection",
	"nats_enabled":          "nats.enabled",
	"nats_url":              "nats.url",
	"nats_subject":          "nats.subject",
	"nats_queue":            "nats.queue",
	"details_format":        "dispatch.format",
	"recommend_k":           "dispatch.k",
	"genre_limit":           "dispatch.genre_limit",
}

// sliceKeys hold comma-separated lists when set from the environment.
var sliceKeys = []string{"server.cors_origins"}

func envKey(key string) string {
	return envKeys[strings.ToLower(key)]
}

// Load builds the configuration. A file named by CONFIG_PATH must exist;
// the default paths are optional.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	path, err := findFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	if err := splitLists(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile() (string, error) {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config: %s: %w", PathEnvVar, err)
		}
		return p, nil
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func splitLists(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("config: set %s: %w", path, err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and the cross-section rules tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Catalog.Source == "neo4j" && c.Neo4j.URL == "" {
		return errors.New("config: neo4j.url is required when catalog.source is neo4j")
	}
	return nil
}

// Addr is the HTTP listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

// SlogLevel parses the log level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Logger builds the process logger described by l.
func (l LogConfig) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
