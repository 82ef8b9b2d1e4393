package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the migr8.yaml configuration.
type Config struct {
	Root    string   `yaml:"root"`
	Exclude []string `yaml:"exclude"`
	Include []string `yaml:"include"`
	Rules   string   `yaml:"rules"`

	Concurrency     int   `yaml:"concurrency"`
	MemoryCeilingMB int   `yaml:"memory_ceiling_mb"`
	MaxFileBytes    int64 `yaml:"max_file_bytes"`
	FileTimeoutSec  int   `yaml:"file_timeout_seconds"`
	CacheSize       int   `yaml:"cache_size"`

	Output OutputConfig `yaml:"output"`
}

// OutputConfig controls where report artifacts and backups are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a Config with sensible defaults. The exclusion list
// mirrors what component-bearing JS/TS projects conventionally skip.
func Default() *Config {
	return &Config{
		Root: ".",
		Exclude: []string{
			"node_modules/**",
			".git/**",
			"dist/**",
			"build/**",
			"coverage/**",
			".next/**",
			"**/*.test.*",
			"**/*.spec.*",
			"**/*.stories.*",
			".migr8/**",
		},
		Include: []string{
			"**/*.tsx",
			"**/*.ts",
			"**/*.jsx",
			"**/*.js",
		},
		Rules:           "migr8.rules.yaml",
		Concurrency:     runtime.NumCPU(),
		MemoryCeilingMB: 1024,
		MaxFileBytes:    2 << 20, // larger files degrade to skip-with-warning
		FileTimeoutSec:  30,
		CacheSize:       4096,
		Output: OutputConfig{
			Dir: ".migr8",
		},
	}
}

// FileTimeout returns the per-file processing timeout.
func (c *Config) FileTimeout() time.Duration {
	return time.Duration(c.FileTimeoutSec) * time.Second
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Ensure required defaults
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.MemoryCeilingMB <= 0 {
		cfg.MemoryCeilingMB = 1024
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 2 << 20
	}
	if cfg.FileTimeoutSec <= 0 {
		cfg.FileTimeoutSec = 30
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 4096
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = ".migr8"
	}

	return cfg, nil
}
