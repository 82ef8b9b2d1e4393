package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Root != "." {
		t.Errorf("Root = %q, want .", cfg.Root)
	}
	if cfg.Concurrency <= 0 {
		t.Errorf("Concurrency = %d, want > 0", cfg.Concurrency)
	}
	if cfg.Output.Dir != ".migr8" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}

	excluded := func(pattern string) bool {
		for _, p := range cfg.Exclude {
			if p == pattern {
				return true
			}
		}
		return false
	}
	for _, want := range []string{"node_modules/**", "dist/**", ".git/**"} {
		if !excluded(want) {
			t.Errorf("default excludes missing %s", want)
		}
	}
}

func TestLoad_MergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migr8.yaml")
	content := `
root: ./web
rules: migrations/buttons.yaml
concurrency: 3
exclude:
  - vendor/**
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "./web" || cfg.Rules != "migrations/buttons.yaml" || cfg.Concurrency != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "vendor/**" {
		t.Errorf("Exclude = %v, want the file's own list", cfg.Exclude)
	}

	// Unset fields fall back to defaults.
	if cfg.MemoryCeilingMB <= 0 || cfg.MaxFileBytes <= 0 || cfg.CacheSize <= 0 {
		t.Errorf("defaults not merged: %+v", cfg)
	}
	if cfg.Output.Dir != ".migr8" {
		t.Errorf("Output.Dir = %q, want default", cfg.Output.Dir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of a missing file returned nil error")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("root: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load of malformed YAML returned nil error")
	}
}

func TestFileTimeout(t *testing.T) {
	cfg := &Config{FileTimeoutSec: 5}
	if got := cfg.FileTimeout(); got != 5*time.Second {
		t.Errorf("FileTimeout = %v, want 5s", got)
	}
}
