// Package config loads the storybible.yaml project configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version int           `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Limits  LimitsConfig  `yaml:"limits"`
}

type StorageConfig struct {
	// Backend selects the persistence adapter: file, sqlite, postgres,
	// badger, or memory.
	Backend string `yaml:"backend"`
	// Path is the data directory for the file and badger backends.
	Path string `yaml:"path"`
	// DSN is the connection string for the sqlite and postgres backends.
	DSN string `yaml:"dsn"`
}

type LimitsConfig struct {
	MaxEntities int `yaml:"max_entities"`
	MaxThreads  int `yaml:"max_threads"`
}

var backends = []string{"file", "sqlite", "postgres", "badger", "memory"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", cfg.Version)
	}

	backend := strings.TrimSpace(cfg.Storage.Backend)
	known := false
	for _, b := range backends {
		if backend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown storage backend %q (expected one of %s)",
			cfg.Storage.Backend, strings.Join(backends, ", "))
	}

	switch backend {
	case "file", "badger":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage path is required for the %s backend", backend)
		}
	case "sqlite", "postgres":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage dsn is required for the %s backend", backend)
		}
	}

	if cfg.Limits.MaxEntities < 0 || cfg.Limits.MaxThreads < 0 {
		return fmt.Errorf("limits must not be negative")
	}

	return nil
}

// Default returns the configuration written by `storybible init`.
func Default() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Backend: "file",
			Path:    ".storybible",
		},
	}
}
