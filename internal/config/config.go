// Package config provides configuration loading and structs for a viewing session.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a viewing session.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Storage    StorageConfig    `yaml:"storage"`
	Paging     PagingConfig     `yaml:"paging"`
	Thumbnails ThumbnailsConfig `yaml:"thumbnails"`
	Render     RenderConfig     `yaml:"render"`
	Features   FeaturesConfig   `yaml:"features"`
	Watch      WatchConfig      `yaml:"watch"`
}

// StorageConfig holds the sandbox root and where document archives live.
type StorageConfig struct {
	SandboxRoot string `yaml:"sandbox_root"`
	SupportPath string `yaml:"support_path"`
	// LibraryPath is the recents database; "-" disables it.
	LibraryPath string `yaml:"library_path"`
}

// LibraryEnabled reports whether the recents database is configured.
func (s *StorageConfig) LibraryEnabled() bool {
	return s.LibraryPath != "" && s.LibraryPath != "-"
}

// PagingConfig holds the page window buffer.
type PagingConfig struct {
	// Buffer is the number of pages kept resident on each side of the current page.
	Buffer int `yaml:"buffer"`
}

// ThumbnailsConfig holds bitmap cache settings.
type ThumbnailsConfig struct {
	BudgetBytes    int64 `yaml:"budget_bytes"`
	PreviewSize    int   `yaml:"preview_size"`
	FullSize       int   `yaml:"full_size"`
	PreviewEnabled *bool `yaml:"preview_enabled"`
}

// PreviewEnabledOrDefault returns whether preview bitmaps are rendered; defaults to true when unset.
func (t *ThumbnailsConfig) PreviewEnabledOrDefault() bool {
	if t.PreviewEnabled != nil {
		return *t.PreviewEnabled
	}
	return true
}

// RenderConfig holds rendering worker settings.
type RenderConfig struct {
	Workers int `yaml:"workers"`
}

// FeaturesConfig holds optional viewer features.
type FeaturesConfig struct {
	BookmarksEnabled *bool `yaml:"bookmarks_enabled"`
}

// BookmarksEnabledOrDefault returns whether bookmarks can be toggled; defaults to true when unset.
func (f *FeaturesConfig) BookmarksEnabledOrDefault() bool {
	if f.BookmarksEnabled != nil {
		return *f.BookmarksEnabled
	}
	return true
}

// WatchConfig holds source file watch settings.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled"`
	DebounceMS int   `yaml:"debounce_ms"`
}

// EnabledOrDefault returns whether the open document is watched; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand before defaults so the library path can be derived from an expanded support path.
	configDir := filepath.Dir(path)
	if cfg.Storage.SandboxRoot != "" {
		cfg.Storage.SandboxRoot = expandPath(cfg.Storage.SandboxRoot, configDir)
	}
	if cfg.Storage.SupportPath != "" {
		cfg.Storage.SupportPath = expandPath(cfg.Storage.SupportPath, configDir)
	}
	if cfg.Storage.LibraryEnabled() {
		cfg.Storage.LibraryPath = expandPath(cfg.Storage.LibraryPath, configDir)
	}

	ApplyDefaults(&cfg)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
