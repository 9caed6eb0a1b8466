package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MAZLO_DB", "MAZLO_OWNER", "MAZLO_LOG_MODE", "MAZLO_LLM_PROVIDER", "MAZLO_LLM_MODEL",
		"MAZLO_LLM_BASE_URL", "MAZLO_EMBED_PROVIDER", "MAZLO_EMBED_MODEL", "MAZLO_EMBED_URL",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Retrieval.MaxTokens != 1024 {
		t.Errorf("expected default budget 1024, got %d", cfg.Retrieval.MaxTokens)
	}
	if cfg.ArchiveAfter() != 30*24*time.Hour {
		t.Errorf("expected 30d archive window, got %v", cfg.ArchiveAfter())
	}
	if cfg.QueryCacheTTL() != 10*time.Minute {
		t.Errorf("expected 10m cache ttl, got %v", cfg.QueryCacheTTL())
	}
	if cfg.Embedding.Provider != "" {
		t.Errorf("expected embeddings disabled by default, got %q", cfg.Embedding.Provider)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
owner = "alice"

[llm]
provider = "anthropic"
model = "claude-test"
timeout = "30s"

[embedding]
provider = "openai"

[retrieval]
max_tokens = 512

[maintenance]
archive_after = "14d"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANTHROPIC_API_KEY", "ak")
	t.Setenv("OPENAI_API_KEY", "ok")
	t.Setenv("MAZLO_OWNER", "bob")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OwnerID != "bob" {
		t.Errorf("expected env to override owner, got %q", cfg.OwnerID)
	}
	lc := cfg.LLMClient()
	if lc.Provider != "anthropic" || lc.APIKey != "ak" || lc.Model != "claude-test" || lc.Timeout != 30*time.Second {
		t.Errorf("unexpected llm config %+v", lc)
	}
	if ec := cfg.EmbeddingClient(); ec.APIKey != "ok" {
		t.Errorf("expected openai key for embeddings, got %+v", ec)
	}
	if cfg.Retrieval.MaxTokens != 512 {
		t.Errorf("expected 512, got %d", cfg.Retrieval.MaxTokens)
	}
	if cfg.ArchiveAfter() != 14*24*time.Hour {
		t.Errorf("expected 14d, got %v", cfg.ArchiveAfter())
	}
	if cfg.Intake.Workers != 2 {
		t.Errorf("expected unset fields to keep defaults, got %d workers", cfg.Intake.Workers)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad llm provider", func(c *Config) { c.LLM.Provider = "cohere" }},
		{"bad embed provider", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"negative budget", func(c *Config) { c.Retrieval.MaxTokens = -1 }},
		{"zero workers", func(c *Config) { c.Intake.Workers = 0 }},
		{"archive below out of range", func(c *Config) { c.Maintenance.ArchiveBelow = 2 }},
		{"bad duration", func(c *Config) { c.Maintenance.ArchiveAfter = "a month" }},
		{"empty owner", func(c *Config) { c.OwnerID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
