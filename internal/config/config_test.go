package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, ws, content string) {
	t.Helper()
	dir := filepath.Join(ws, ".agcodex")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load with no file should succeed: %v", err)
	}
	if cfg.Orchestrator.MaxConcurrency != 8 {
		t.Errorf("default max_concurrency = %d, want 8", cfg.Orchestrator.MaxConcurrency)
	}
	if cfg.Mode.ReviewWriteLimit != 10000 {
		t.Errorf("default review_write_limit = %d, want 10000", cfg.Mode.ReviewWriteLimit)
	}
	if cfg.Mode.CycleKey != "Shift+Tab" {
		t.Errorf("default cycle_key = %q", cfg.Mode.CycleKey)
	}
}

func TestLoadFile(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
orchestrator:
  max_concurrency: 2
  agent_timeout: 90s
index:
  parse_cache_size: 16
mode:
  default: build
`)

	cfg, err := Load(ws)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Orchestrator.MaxConcurrency != 2 {
		t.Errorf("max_concurrency = %d, want 2", cfg.Orchestrator.MaxConcurrency)
	}
	d, err := cfg.AgentTimeout()
	if err != nil {
		t.Fatal(err)
	}
	if d != 90*time.Second {
		t.Errorf("agent timeout = %v, want 90s", d)
	}
	if cfg.Index.ParseCacheSize != 16 {
		t.Errorf("parse_cache_size = %d, want 16", cfg.Index.ParseCacheSize)
	}
	// Untouched section keeps defaults.
	if cfg.Mode.ReviewWriteLimit != 10000 {
		t.Errorf("review_write_limit = %d, want default 10000", cfg.Mode.ReviewWriteLimit)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGCODEX_MAX_CONCURRENCY", "3")
	t.Setenv("AGCODEX_MODE", "review")
	t.Setenv("AGCODEX_DEBUG", "true")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Orchestrator.MaxConcurrency != 3 {
		t.Errorf("max_concurrency = %d, want 3 from env", cfg.Orchestrator.MaxConcurrency)
	}
	if cfg.Mode.Default != "review" {
		t.Errorf("mode = %q, want review from env", cfg.Mode.Default)
	}
	if !cfg.Logging.DebugMode {
		t.Error("debug mode should be on from env")
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "orchestrator:\n  retry_backoff: nonsense\n")
	if _, err := Load(ws); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidateRejectsZeroCache(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "index:\n  parse_cache_size: 0\n")
	if _, err := Load(ws); err == nil {
		t.Fatal("expected error for zero cache size")
	}
}
