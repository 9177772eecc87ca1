// Package config provides configuration loading for roomgate.
//
// Settings come from defaults, then an optional YAML file, then ROOMGATE_*
// environment variables, and are validated once after merging.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/roomgate/internal/category"
	"github.com/fyrsmithlabs/roomgate/internal/secrets"
)

// Config holds the complete roomgate configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Category   CategoryConfig   `koanf:"category"`
	Store      StoreConfig      `koanf:"store"`
	Corpus     CorpusConfig     `koanf:"corpus"`
	Secrets    secrets.Config   `koanf:"secrets"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit   float64  `koanf:"rate_limit"`
	RateBurst   int      `koanf:"rate_burst"`
	CORSOrigins []string `koanf:"cors_origins"`
	BodyLimit   string   `koanf:"body_limit"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	CacheDir  string `koanf:"cache_dir"`
	Dimension int    `koanf:"dimension"`
}

// ClassifierConfig controls the gate model.
type ClassifierConfig struct {
	ModelPath     string  `koanf:"model_path"`
	Threshold     float64 `koanf:"threshold"`
	C             float64 `koanf:"c"`
	MaxIterations int     `koanf:"max_iterations"`
	// Watch reloads the model when the artifact is rewritten.
	Watch bool `koanf:"watch"`
}

// CategoryConfig holds the tagger rules in priority order.
type CategoryConfig struct {
	Rules []category.Rule `koanf:"rules"`
}

// StoreConfig locates the memory document.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// CorpusConfig points at a training corpus. Empty uses the built-in corpus.
type CorpusConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds the user-facing logging knobs.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
	OTEL     bool   `koanf:"otel"`
	Stderr   bool   `koanf:"stderr"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool              `koanf:"enabled"`
	Endpoint    string            `koanf:"endpoint"`
	Protocol    string            `koanf:"protocol"`
	Insecure    bool              `koanf:"insecure"`
	ServiceName string            `koanf:"service_name"`
	SampleRate  float64           `koanf:"sample_rate"`
	Headers     map[string]Secret `koanf:"headers"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            5000,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
			CORSOrigins:     []string{"*"},
			BodyLimit:       "64K",
		},
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    "sentence-transformers/all-MiniLM-L6-v2",
		},
		Classifier: ClassifierConfig{
			ModelPath:     "~/.local/share/roomgate/classifier.json",
			Threshold:     0.5,
			C:             1.0,
			MaxIterations: 1000,
			Watch:         true,
		},
		Category: CategoryConfig{
			Rules: category.DefaultRules(),
		},
		Store: StoreConfig{
			Path: "~/.local/share/roomgate/room2.json",
		},
		Secrets: secrets.DefaultConfig(),
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Sampling: true,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "roomgate",
			SampleRate:  1.0,
		},
	}
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be >= 0"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("server.rate_burst must be >= 1 when rate limiting"))
	}

	switch c.Embeddings.Provider {
	case "fastembed", "hashing":
	case "tei":
		if _, err := url.ParseRequestURI(c.Embeddings.BaseURL); err != nil || c.Embeddings.BaseURL == "" {
			errs = append(errs, fmt.Errorf("embeddings.base_url must be a valid URL for the tei provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("embeddings.provider must be fastembed, tei or hashing, got %q", c.Embeddings.Provider))
	}
	if c.Embeddings.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embeddings.dimension must be >= 0"))
	}

	if !(c.Classifier.Threshold > 0 && c.Classifier.Threshold < 1) {
		errs = append(errs, fmt.Errorf("classifier.threshold must be in (0, 1), got %v", c.Classifier.Threshold))
	}
	if c.Classifier.C <= 0 {
		errs = append(errs, fmt.Errorf("classifier.c must be > 0"))
	}
	if c.Classifier.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("classifier.max_iterations must be >= 1"))
	}

	if err := category.ValidateRules(c.Category.Rules); err != nil {
		errs = append(errs, fmt.Errorf("category.rules: %w", err))
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
			errs = append(errs, fmt.Errorf("telemetry.protocol must be grpc or http, got %q", c.Telemetry.Protocol))
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1"))
		}
	}

	return errors.Join(errs...)
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
