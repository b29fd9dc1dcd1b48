package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if cfg.Processing.Concurrency != 5 {
		t.Errorf("expected concurrency 5, got %d", cfg.Processing.Concurrency)
	}
	if cfg.Processing.DedupThreshold != 0.85 {
		t.Errorf("expected dedup threshold 0.85, got %v", cfg.Processing.DedupThreshold)
	}
	if cfg.LLM.RequestsPerMinute != 30 {
		t.Errorf("expected 30 requests per minute, got %d", cfg.LLM.RequestsPerMinute)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
llm:
  provider: deepseek
  model: deepseek-chat
processing:
  concurrency: 2
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.LLM.Provider != "deepseek" {
		t.Errorf("expected provider 'deepseek', got %q", cfg.LLM.Provider)
	}
	if cfg.Processing.Concurrency != 2 {
		t.Errorf("expected concurrency 2, got %d", cfg.Processing.Concurrency)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Processing.CacheMaxSize != 1000 {
		t.Errorf("expected default cache size 1000, got %d", cfg.Processing.CacheMaxSize)
	}
	if cfg.Processing.CacheThreshold != 0.6 {
		t.Errorf("expected default cache threshold 0.6, got %v", cfg.Processing.CacheThreshold)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.GetOutputDir() != filepath.Join("/custom/path", "briefings") {
		t.Errorf("unexpected output dir %q", cfg.GetOutputDir())
	}
	if cfg.CachePath() != filepath.Join("/custom/path", "classification_cache.json") {
		t.Errorf("unexpected cache path %q", cfg.CachePath())
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
