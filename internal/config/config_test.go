package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
paging:
  buffer: 2
thumbnails:
  budget_bytes: 1048576
storage:
  support_path: "/tmp/folio-support"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paging.Buffer != 2 {
		t.Errorf("unexpected paging config: %+v", cfg.Paging)
	}
	if cfg.Thumbnails.BudgetBytes != 1048576 {
		t.Errorf("budget_bytes = %d", cfg.Thumbnails.BudgetBytes)
	}
	if cfg.Storage.SupportPath != "/tmp/folio-support" {
		t.Errorf("support_path = %s", cfg.Storage.SupportPath)
	}
	if cfg.Storage.LibraryPath != filepath.Join("/tmp/folio-support", "library.db") {
		t.Errorf("library_path should default under support_path, got %s", cfg.Storage.LibraryPath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  sandbox_root: "./sandbox"
  support_path: "./sandbox/support"
  library_path: "-"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "sandbox"); cfg.Storage.SandboxRoot != want {
		t.Errorf("sandbox_root = %s, want %s", cfg.Storage.SandboxRoot, want)
	}
	if want := filepath.Join(dir, "sandbox", "support"); cfg.Storage.SupportPath != want {
		t.Errorf("support_path = %s, want %s", cfg.Storage.SupportPath, want)
	}
	if cfg.Storage.LibraryEnabled() {
		t.Errorf("library should be disabled by \"-\", got %q", cfg.Storage.LibraryPath)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Paging.Buffer != 1 {
		t.Errorf("default paging: buffer %d", cfg.Paging.Buffer)
	}
	if cfg.Thumbnails.BudgetBytes != 32<<20 {
		t.Errorf("default budget: got %d", cfg.Thumbnails.BudgetBytes)
	}
	if cfg.Thumbnails.PreviewSize != 256 || cfg.Thumbnails.FullSize != 1024 {
		t.Errorf("default sizes: preview %d full %d", cfg.Thumbnails.PreviewSize, cfg.Thumbnails.FullSize)
	}
	if cfg.Render.Workers != 2 {
		t.Errorf("default workers: got %d", cfg.Render.Workers)
	}
	if cfg.Watch.DebounceMS != 400 {
		t.Errorf("default debounce: got %d", cfg.Watch.DebounceMS)
	}
	if cfg.Storage.SandboxRoot == "" || cfg.Storage.SupportPath == "" || !cfg.Storage.LibraryEnabled() {
		t.Errorf("storage defaults not applied: %+v", cfg.Storage)
	}
}

func TestOptionalBoolDefaults(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		cfg := Default()
		if !cfg.Thumbnails.PreviewEnabledOrDefault() || !cfg.Features.BookmarksEnabledOrDefault() || !cfg.Watch.EnabledOrDefault() {
			t.Error("unset optional booleans should default to true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		cfg := &Config{
			Thumbnails: ThumbnailsConfig{PreviewEnabled: &f},
			Features:   FeaturesConfig{BookmarksEnabled: &f},
			Watch:      WatchConfig{Enabled: &f},
		}
		if cfg.Thumbnails.PreviewEnabledOrDefault() || cfg.Features.BookmarksEnabledOrDefault() || cfg.Watch.EnabledOrDefault() {
			t.Error("explicit false should be honoured")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Paging:  PagingConfig{Buffer: 3},
		Storage: StorageConfig{SupportPath: "/tmp/support", LibraryPath: "-"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Paging.Buffer != 3 {
		t.Errorf("loaded buffer: got %d", loaded.Paging.Buffer)
	}
}
