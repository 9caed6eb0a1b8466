// Package config loads settings from defaults, an optional TOML file, a
// .env file and the environment, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/rcliao/mazlo-memory/internal/embedding"
	"github.com/rcliao/mazlo-memory/internal/llm"
	"github.com/rcliao/mazlo-memory/internal/store"
)

type Config struct {
	DBPath      string            `toml:"db"`
	OwnerID     string            `toml:"owner"`
	LogMode     string            `toml:"log_mode"`
	LLM         LLMConfig         `toml:"llm"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Intake      IntakeConfig      `toml:"intake"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type LLMConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	MaxRetries int    `toml:"max_retries"`
	Timeout    string `toml:"timeout"`
}

type EmbeddingConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

type RetrievalConfig struct {
	MaxTokens     int    `toml:"max_tokens"`
	QueryCacheTTL string `toml:"query_cache_ttl"`
}

type IntakeConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type MaintenanceConfig struct {
	Schedule             string  `toml:"schedule"`
	DecayRate            float64 `toml:"decay_rate"`
	ArchiveAfter         string  `toml:"archive_after"`
	ArchiveBelow         float64 `toml:"archive_below"`
	SummarizeMinMessages int     `toml:"summarize_min_messages"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath:  filepath.Join(home, ".mazlo", "memory.db"),
		OwnerID: "default",
		LogMode: "dev",
		LLM: LLMConfig{
			Provider:   "openai",
			MaxRetries: 2,
			Timeout:    "60s",
		},
		Retrieval: RetrievalConfig{
			MaxTokens:     1024,
			QueryCacheTTL: "10m",
		},
		Intake: IntakeConfig{
			Workers:   2,
			QueueSize: 64,
		},
		Maintenance: MaintenanceConfig{
			Schedule:             "0 3 * * *",
			DecayRate:            0.05,
			ArchiveAfter:         "30d",
			ArchiveBelow:         0.3,
			SummarizeMinMessages: 100,
		},
	}
}

// DefaultPath is where Load looks for a config file when none is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mazlo", "config.toml")
}

// Load builds the configuration. An explicit path must exist; the default
// path is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DBPath, "MAZLO_DB")
	setString(&c.OwnerID, "MAZLO_OWNER")
	setString(&c.LogMode, "MAZLO_LOG_MODE")
	setString(&c.LLM.Provider, "MAZLO_LLM_PROVIDER")
	setString(&c.LLM.Model, "MAZLO_LLM_MODEL")
	setString(&c.LLM.BaseURL, "MAZLO_LLM_BASE_URL")
	setString(&c.Embedding.Provider, "MAZLO_EMBED_PROVIDER")
	setString(&c.Embedding.Model, "MAZLO_EMBED_MODEL")
	setString(&c.Embedding.BaseURL, "MAZLO_EMBED_URL")

	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects unknown providers and out-of-range values.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case "", "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.OwnerID == "" {
		return fmt.Errorf("owner is required")
	}
	if c.Retrieval.MaxTokens < 0 {
		return fmt.Errorf("retrieval.max_tokens must be >= 0")
	}
	if c.Intake.Workers < 1 || c.Intake.QueueSize < 1 {
		return fmt.Errorf("intake.workers and intake.queue_size must be >= 1")
	}
	if c.Maintenance.DecayRate < 0 {
		return fmt.Errorf("maintenance.decay_rate must be >= 0")
	}
	if c.Maintenance.ArchiveBelow < 0 || c.Maintenance.ArchiveBelow > 1 {
		return fmt.Errorf("maintenance.archive_below must be within [0,1]")
	}
	for name, v := range map[string]string{
		"llm.timeout":               c.LLM.Timeout,
		"retrieval.query_cache_ttl": c.Retrieval.QueryCacheTTL,
		"maintenance.archive_after": c.Maintenance.ArchiveAfter,
	} {
		if _, err := store.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// LLMClient converts to the client configuration.
func (c *Config) LLMClient() llm.Config {
	return llm.Config{
		Provider:   c.LLM.Provider,
		Model:      c.LLM.Model,
		APIKey:     c.LLM.APIKey,
		BaseURL:    c.LLM.BaseURL,
		MaxRetries: c.LLM.MaxRetries,
		Timeout:    mustDuration(c.LLM.Timeout),
	}
}

// EmbeddingClient converts to the embedder configuration.
func (c *Config) EmbeddingClient() embedding.Config {
	return embedding.Config{
		Provider: c.Embedding.Provider,
		Model:    c.Embedding.Model,
		BaseURL:  c.Embedding.BaseURL,
		APIKey:   c.Embedding.APIKey,
	}
}

func (c *Config) QueryCacheTTL() time.Duration { return mustDuration(c.Retrieval.QueryCacheTTL) }
func (c *Config) ArchiveAfter() time.Duration  { return mustDuration(c.Maintenance.ArchiveAfter) }

// mustDuration is only called on values Validate has accepted.
func mustDuration(s string) time.Duration {
	d, _ := store.ParseDuration(s)
	return d
}
