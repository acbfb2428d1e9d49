package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/folio/internal/config"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after file are moved first",
			args:     []string{"manual.pdf", "-page", "5"},
			expected: []string{"-page", "5", "manual.pdf"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-page", "5", "manual.pdf"},
			expected: []string{"-page", "5", "manual.pdf"},
		},
		{
			name:     "file only returns unchanged",
			args:     []string{"manual.pdf"},
			expected: []string{"manual.pdf"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIntList(t *testing.T) {
	var l intList
	if err := l.Set("3"); err != nil {
		t.Fatal(err)
	}
	if err := l.Set("7, 9"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual([]int(l), []int{3, 7, 9}) {
		t.Errorf("intList = %v", l)
	}
	if l.String() != "3,7,9" {
		t.Errorf("String() = %q", l.String())
	}
	if err := l.Set("x"); err == nil {
		t.Error("expected error for non-numeric page")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
paging:
  buffer: 3
storage:
  support_path: "./support"
  library_path: "-"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Paging.Buffer != 3 || cfg.Storage.SupportPath != filepath.Join(dir, "support") {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Storage.LibraryEnabled() {
		t.Error("library should be disabled")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := initConfig(path, false); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paging.Buffer != config.Default().Paging.Buffer {
		t.Errorf("buffer = %d", cfg.Paging.Buffer)
	}
	if err := initConfig(path, false); err == nil {
		t.Error("expected error when file exists")
	}
	if err := initConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}
