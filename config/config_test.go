package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"server":{"address":":9000"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("expected address from file, got %q", cfg.Server.Address)
	}
	if cfg.Cache.ListingMaxAge != 24*time.Hour {
		t.Fatalf("expected 24h listing max age, got %s", cfg.Cache.ListingMaxAge)
	}
	if cfg.Cache.NarrationHorizon != 30*24*time.Hour {
		t.Fatalf("expected 30d narration horizon, got %s", cfg.Cache.NarrationHorizon)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.OpenAI.Model == "" {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.Sources.ArticleTimeout != 15*time.Second || cfg.Sources.ListingTimeout != 10*time.Second {
		t.Fatalf("unexpected source timeouts: %+v", cfg.Sources)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Fatalf("expected default feeds")
	}
	if cfg.Storage.Backend != "file" {
		t.Fatalf("expected file backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadConfigReadsFeeds(t *testing.T) {
	path := writeConfig(t, `{
		"sources": {"name": "local", "feeds": [{"name": "top", "url": "http://localhost/rss", "category": "top"}]},
		"cache": {"listing_max_age": "2h"}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Sources.Feeds) != 1 || cfg.Sources.Feeds[0].Category != "top" {
		t.Fatalf("unexpected feeds: %+v", cfg.Sources.Feeds)
	}
	if cfg.Cache.ListingMaxAge != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", cfg.Cache.ListingMaxAge)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("NARRATOR_LLM_PROVIDER", "gemini")
	path := writeConfig(t, `{}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Fatalf("expected env override, got %q", cfg.LLM.Provider)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `{"storage":{"backend":"s3"}}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestRedisConfigValidate(t *testing.T) {
	if err := (RedisConfig{Port: "6379"}).Validate(); err == nil {
		t.Fatalf("expected host error")
	}
	if err := (RedisConfig{Host: "localhost", Port: "6379"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
