// Package config loads the markdownkeeper TOML configuration file described
// in the external interfaces section of the design: a [watch]/[storage]/[api]
// schema where a missing file, a missing section, or an empty file all fall
// back to documented defaults, merged section-wise.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// WatchConfig controls the filesystem roots the watcher scans.
type WatchConfig struct {
	Roots      []string `toml:"roots"`
	Extensions []string `toml:"extensions"`
	DebounceMs int      `toml:"debounce_ms"`
}

// NewWatchConfig returns the documented watch defaults.
func NewWatchConfig() WatchConfig {
	return WatchConfig{
		Roots:      []string{"."},
		Extensions: []string{".md", ".markdown"},
		DebounceMs: 500,
	}
}

// StorageConfig locates the on-disk index file.
type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
}

// NewStorageConfig returns the documented storage defaults.
func NewStorageConfig() StorageConfig {
	return StorageConfig{DatabasePath: ".markdownkeeper/index.db"}
}

// APIConfig controls the RPC transport's bind address.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// NewAPIConfig returns the documented API defaults.
func NewAPIConfig() APIConfig {
	return APIConfig{Host: "127.0.0.1", Port: 8765}
}

// AppConfig is the fully-resolved configuration, defaults merged with any
// file and environment overrides.
type AppConfig struct {
	Watch   WatchConfig   `toml:"watch"`
	Storage StorageConfig `toml:"storage"`
	API     APIConfig     `toml:"api"`
}

// NewAppConfig returns the complete set of documented defaults.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Watch:   NewWatchConfig(),
		Storage: NewStorageConfig(),
		API:     NewAPIConfig(),
	}
}

// rawConfig mirrors AppConfig with plain value fields. When merging onto
// defaults, a zero value (empty string, empty list, 0) counts as unset and
// the default is kept, so a field explicitly set to its zero value cannot
// be told apart from an omitted one.
type rawConfig struct {
	Watch struct {
		Roots      []string `toml:"roots"`
		Extensions []string `toml:"extensions"`
		DebounceMs int      `toml:"debounce_ms"`
	} `toml:"watch"`
	Storage struct {
		DatabasePath string `toml:"database_path"`
	} `toml:"storage"`
	API struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"api"`
}

// Load reads the TOML file at path and merges it onto the documented
// defaults. A missing file or an empty file both yield plain defaults;
// a present section overrides only the fields it sets.
func Load(path string) (*AppConfig, error) {
	cfg := NewAppConfig()

	if _, err := os.Stat(path); err == nil {
		var raw rawConfig
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		mergeRaw(cfg, &raw)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func mergeRaw(cfg *AppConfig, raw *rawConfig) {
	if len(raw.Watch.Roots) > 0 {
		cfg.Watch.Roots = raw.Watch.Roots
	}
	if len(raw.Watch.Extensions) > 0 {
		cfg.Watch.Extensions = raw.Watch.Extensions
	}
	if raw.Watch.DebounceMs != 0 {
		cfg.Watch.DebounceMs = raw.Watch.DebounceMs
	}
	if raw.Storage.DatabasePath != "" {
		cfg.Storage.DatabasePath = raw.Storage.DatabasePath
	}
	if raw.API.Host != "" {
		cfg.API.Host = raw.API.Host
	}
	if raw.API.Port != 0 {
		cfg.API.Port = raw.API.Port
	}
}

// applyEnvOverrides applies the highest-precedence overrides, matching the
// env-var escape hatch used throughout the rest of this codebase's config
// loaders (MARKDOWNKEEPER_* prefix).
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("MARKDOWNKEEPER_DATABASE_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("MARKDOWNKEEPER_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MARKDOWNKEEPER_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("MARKDOWNKEEPER_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Watch.DebounceMs = ms
		}
	}
}

// Validate checks the resolved configuration for values the rest of the
// system cannot tolerate.
func (c *AppConfig) Validate() error {
	if len(c.Watch.Roots) == 0 {
		return fmt.Errorf("watch.roots must not be empty")
	}
	if len(c.Watch.Extensions) == 0 {
		return fmt.Errorf("watch.extensions must not be empty")
	}
	if c.Watch.DebounceMs <= 0 {
		return fmt.Errorf("watch.debounce_ms must be positive, got %d", c.Watch.DebounceMs)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path must not be empty")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}
