// Package config implements process configuration for the archivectl
// CLI, grounded directly on the teacher's pkg/config/config.go: a nested
// *Config struct with JSON tags, a DefaultConfig/LoadConfigOrDefault pair,
// and environment-variable/common-path discovery, narrowed here from the
// teacher's SQL-server config to an archive-engine config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level archivectl configuration.
type Config struct {
	Archive      ArchiveConfig      `json:"archive"`
	ExternalSort ExternalSortConfig `json:"external_sort"`
	Log          LogConfig          `json:"log"`
}

// ArchiveConfig controls where and how archives are persisted.
type ArchiveConfig struct {
	RootDir         string `json:"root_dir"`
	StoreKind       string `json:"store_kind"` // "volatile" or "badger"
	CompressRows    bool   `json:"compress_rows"`
	CheckoutCacheSz int64  `json:"checkout_cache_size"`
}

// ExternalSortConfig bounds the split-phase memory of a commit's sort
// stage.
type ExternalSortConfig struct {
	BufferSizeBytes int64  `json:"buffer_size_bytes"`
	TempDir         string `json:"temp_dir"`
}

// LogConfig controls archivectl's log verbosity and format, mirroring the
// teacher's LogConfig shape.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "json" or "text"
}

// DefaultConfig returns the configuration used when no config file is
// found.
func DefaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			RootDir:         "./histore-data",
			StoreKind:       "badger",
			CompressRows:    true,
			CheckoutCacheSz: 256,
		},
		ExternalSort: ExternalSortConfig{
			BufferSizeBytes: 16 * 1024 * 1024,
			TempDir:         os.TempDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads and validates a config file at path. An empty path
// returns DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file does not exist: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault tries HISTORE_CONFIG and a few common locations
// before falling back to DefaultConfig, mirroring the teacher's
// LoadConfigOrDefault discovery order.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("HISTORE_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}
	for _, candidate := range []string{"histore.json", "./config/histore.json", "/etc/histore/histore.json"} {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if cfg, err := LoadConfig(abs); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

func validate(cfg *Config) error {
	if cfg.ExternalSort.BufferSizeBytes <= 0 {
		return fmt.Errorf("config: external_sort.buffer_size_bytes must be positive")
	}
	switch cfg.Archive.StoreKind {
	case "volatile", "badger":
	default:
		return fmt.Errorf("config: archive.store_kind must be \"volatile\" or \"badger\", got %q", cfg.Archive.StoreKind)
	}
	return nil
}
