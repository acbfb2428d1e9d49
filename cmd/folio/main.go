// Package main is the folio CLI: it opens documents through the same store and
// session an embedding application uses, and inspects saved state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/cli"
	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/pkg/reader"
	"github.com/hyperjump/folio/pkg/utils"
)

var version = "dev"

// defaultConfigPath is the per-user config file.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "folio", "config.yaml")
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). A missing default file
// yields the built-in defaults. Returns the config and the path that was loaded,
// or "" when defaults were used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath() {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "open":
		runOpen()
	case "recent":
		runRecent()
	case "usage":
		runUsage()
	case "init-config":
		runInitConfig()
	case "version", "--version", "-v":
		fmt.Printf("folio version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// intList is a repeatable integer flag.
type intList []int

func (l *intList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid page %q", part)
		}
		*l = append(*l, v)
	}
	return nil
}

// argsReorder moves any flags (and their values) that appear after the file
// argument to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// setup loads config, builds the logger and opens a viewer.
func setup(configPath string, debug bool) (*reader.Viewer, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	// The CLI is short-lived; nothing changes under it while it runs.
	off := false
	cfg.Watch.Enabled = &off
	viewer, err := reader.NewViewer(cfg, nil, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return viewer, logger, nil
}

func outputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runOpen() {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	password := fs.String("password", "", "document password")
	page := fs.Int("page", 0, "move to this page before saving (0 = keep)")
	output := fs.String("output", "text", "output format: text or json")
	var toggles intList
	fs.Var(&toggles, "bookmark", "toggle the bookmark on a page (repeatable, or comma-separated)")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: folio open [flags] <file.pdf>")
		os.Exit(1)
	}
	format := outputFormat(*output)

	viewer, logger, err := setup(*configPath, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer viewer.Close()

	s, err := viewer.Open(fs.Arg(0), *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Open failed: %v\n", err)
		os.Exit(1)
	}
	fail := func(msg string, err error) {
		_ = s.Close(context.Background())
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
	if *page != 0 {
		if err := s.SetCurrentPage(*page); err != nil {
			fail("Page change failed", err)
		}
	}
	for _, p := range toggles {
		if _, err := s.ToggleBookmark(p); err != nil {
			fail("Bookmark failed", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDocument(os.Stdout, cli.NewDocumentInfo(s.Record()), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRecent() {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	limit := fs.Int("limit", 20, "maximum number of documents")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	viewer, logger, err := setup(*configPath, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer viewer.Close()

	entries, err := viewer.Recent(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Listing recent documents failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecent(os.Stdout, entries, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runUsage() {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	viewer, logger, err := setup(*configPath, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer viewer.Close()

	u, err := viewer.Usage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteUsage(os.Stdout, u, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runInitConfig() {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])
	path := defaultConfigPath()
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := initConfig(path, *force); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

// initConfig writes the default config to path, creating parent directories.
func initConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return config.Save(path, config.Default())
}

func printUsage() {
	fmt.Println(`folio - PDF reading state: positions, bookmarks and page windows

Usage:
  folio open [flags] <file.pdf>   Open a document, optionally move/bookmark, save and print it
  folio recent [flags]            List recently opened documents
  folio usage [flags]             Show what the support directory holds
  folio init-config [path]        Write a config file with every default
  folio version                   Show version
  folio help                      Show this help

Open Flags:
  --config string     Config file path (default: <user config dir>/folio/config.yaml)
  --password string   Document password
  --page int          Move to this page before saving
  --bookmark pages    Toggle bookmarks (repeatable or comma-separated)
  --output string     Output format: text or json (default: text)
  --debug             Enable debug logging

Recent Flags:
  --limit int         Maximum number of documents (default: 20)
  --output string     Output format: text or json

Examples:
  folio open ~/Documents/manual.pdf
  folio open --page 42 --bookmark 42 manual.pdf
  folio open manual.pdf --output json
  folio recent --limit 5
  folio usage`)
}
