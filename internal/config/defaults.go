package config

import (
	"os"
	"path/filepath"
)

const (
	defaultPagingBuffer    = 1
	defaultThumbnailBudget = 32 << 20
	defaultPreviewSize     = 256
	defaultFullSize        = 1024
	defaultRenderWorkers   = 2
	defaultWatchDebounceMS = 400
	libraryFileName        = "library.db"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	if cfg.Storage.SandboxRoot == "" {
		cfg.Storage.SandboxRoot = home
	}
	if cfg.Storage.SupportPath == "" {
		cfg.Storage.SupportPath = filepath.Join(home, "Library", "Application Support", "folio")
	}
	if cfg.Storage.LibraryPath == "" {
		cfg.Storage.LibraryPath = filepath.Join(cfg.Storage.SupportPath, libraryFileName)
	}
	if cfg.Paging.Buffer <= 0 {
		cfg.Paging.Buffer = defaultPagingBuffer
	}
	if cfg.Thumbnails.BudgetBytes <= 0 {
		cfg.Thumbnails.BudgetBytes = defaultThumbnailBudget
	}
	if cfg.Thumbnails.PreviewSize <= 0 {
		cfg.Thumbnails.PreviewSize = defaultPreviewSize
	}
	if cfg.Thumbnails.FullSize <= 0 {
		cfg.Thumbnails.FullSize = defaultFullSize
	}
	if cfg.Render.Workers <= 0 {
		cfg.Render.Workers = defaultRenderWorkers
	}
	if cfg.Watch.DebounceMS <= 0 {
		cfg.Watch.DebounceMS = defaultWatchDebounceMS
	}
}
