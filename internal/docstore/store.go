// Package docstore locates, loads and persists document records.
//
// A record is archived under the support directory at a path derived from the
// document's file name (see fileid.ArchiveName). Archives never hold the password.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/fileid"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/pkg/utils"
)

const libraryTimeout = 5 * time.Second

// Store loads and saves document records.
type Store struct {
	sandboxRoot string
	supportPath string
	library     *Library
	logger      *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for store events (archive written, corrupt archive, etc.).
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = utils.ComponentLogger(l, "docstore") }
}

// NewStore creates the support directory and, when configured, opens the library.
func NewStore(cfg *config.StorageConfig, opts ...StoreOption) (*Store, error) {
	s := &Store{
		sandboxRoot: filepath.Clean(cfg.SandboxRoot),
		supportPath: filepath.Clean(cfg.SupportPath),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(s.supportPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create support directory: %w", err)
	}
	if cfg.LibraryEnabled() {
		lib, err := OpenLibrary(cfg.LibraryPath)
		if err != nil {
			return nil, err
		}
		s.library = lib
	}
	return s, nil
}

// Library returns the recents index, or nil when disabled.
func (s *Store) Library() *Library {
	return s.library
}

// Close releases the library.
func (s *Store) Close() error {
	if s.library == nil {
		return nil
	}
	return s.library.Close()
}

// Load builds a fresh record for the PDF at filePath: page 1, no bookmarks, new GUID.
func (s *Store) Load(filePath, password string) (*models.DocumentRecord, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnreadable, err)
	}
	info, pageCount, err := s.inspect(abs, password)
	if err != nil {
		return nil, err
	}
	rec := models.NewDocumentRecord(NewGUID(), filepath.Base(abs), abs, info.ModTime(), info.Size(), password, pageCount)
	s.logger.Debug("document loaded",
		zap.String("guid", rec.GUID),
		zap.String("file", rec.FileName),
		zap.Int("page_count", pageCount),
	)
	return rec, nil
}

// Restore returns the archived record for fileName, re-validated against the
// source. A bare file name ("book.pdf") is located through the archive: a
// sandbox-relative location is joined onto the current sandbox root, so a moved
// sandbox still resolves. Anything carrying a directory ("./book.pdf",
// "/docs/book.pdf") names the source explicitly and overrides the archived
// location. Without an archive it behaves as Load. A stale archive (the source's
// size or page count changed) is replaced by a fresh record. An archive that
// exists but cannot be decoded yields ErrCorruptArchive; callers fall back to Load.
func (s *Store) Restore(fileName, password string) (*models.DocumentRecord, error) {
	data, err := os.ReadFile(s.ArchivePath(fileName))
	if errors.Is(err, fs.ErrNotExist) {
		return s.Load(fileName, password)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read archive: %w", models.ErrCorruptArchive, err)
	}
	arc, err := decodeArchive(data)
	if err != nil {
		return nil, err
	}

	path, err := s.sourcePath(fileName, arc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnreadable, err)
	}
	info, pageCount, err := s.inspect(path, password)
	if err != nil {
		return nil, err
	}
	if info.Size() != arc.FileSize || pageCount != arc.PageCount {
		s.logger.Info("archive is stale, starting fresh",
			zap.String("file", arc.FileName),
			zap.Int64("archived_size", arc.FileSize),
			zap.Int64("size", info.Size()),
		)
		rec := models.NewDocumentRecord(NewGUID(), filepath.Base(path), path, info.ModTime(), info.Size(), password, pageCount)
		return rec, nil
	}
	rec := arc.toRecord(path, password)
	s.logger.Debug("document restored",
		zap.String("guid", rec.GUID),
		zap.String("file", rec.FileName),
		zap.String("path", path),
		zap.Int("page", rec.PageNumber),
	)
	return rec, nil
}

// sourcePath picks the file a restore inspects: fileName itself when it names a
// path, otherwise the location recorded in the archive.
func (s *Store) sourcePath(fileName string, arc *archiveRecord) (string, error) {
	if fileName != filepath.Base(fileName) {
		return filepath.Abs(fileName)
	}
	if arc.Relative {
		return s.ResolvePath(arc.Location), nil
	}
	return arc.Location, nil
}

// Open restores the record for filePath, falling back to Load when the archive is corrupt.
func (s *Store) Open(filePath, password string) (*models.DocumentRecord, error) {
	rec, err := s.Restore(filePath, password)
	if errors.Is(err, models.ErrCorruptArchive) {
		s.logger.Warn("corrupt archive, loading fresh", zap.String("path", filePath), zap.Error(err))
		return s.Load(filePath, password)
	}
	return rec, err
}

// Save archives rec. The record is encoded before any I/O, so the written archive is
// the state at call time. Repeated saves overwrite atomically.
func (s *Store) Save(rec *models.DocumentRecord) error {
	location, relative := rec.FilePath, false
	if rel, err := s.RelativePath(rec.FilePath); err == nil {
		location, relative = rel, true
	}
	data, err := encodeArchive(rec, location, relative)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrWriteFailed, err)
	}
	path := s.ArchivePath(rec.FileName)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", models.ErrWriteFailed, err)
	}
	s.logger.Debug("archive written", zap.String("guid", rec.GUID), zap.String("path", path))

	if s.library != nil {
		ctx, cancel := context.WithTimeout(context.Background(), libraryTimeout)
		defer cancel()
		if err := s.library.Upsert(ctx, rec, location); err != nil {
			s.logger.Warn("library update failed", zap.String("guid", rec.GUID), zap.Error(err))
		}
	}
	return nil
}

// ArchivePath returns where the record for fileName is archived.
func (s *Store) ArchivePath(fileName string) string {
	return filepath.Join(s.supportPath, fileid.ArchiveName(fileName))
}

// RelativePath strips the sandbox root from fullPath. It performs no I/O.
func (s *Store) RelativePath(fullPath string) (string, error) {
	root := s.sandboxRoot
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	clean := filepath.Clean(fullPath)
	if !strings.HasPrefix(clean, root) {
		return "", fmt.Errorf("%w: %s", models.ErrPathNotFound, fullPath)
	}
	return strings.TrimPrefix(clean, root), nil
}

// ResolvePath joins a sandbox-relative path back onto the sandbox root.
func (s *Store) ResolvePath(relPath string) string {
	return filepath.Join(s.sandboxRoot, relPath)
}

// Usage reports what the support directory holds.
func (s *Store) Usage() (Usage, error) {
	return diskUsage(s.supportPath, fileid.ArchiveExt)
}

// inspect opens the source, checks its signature and probes page count and password.
func (s *Store) inspect(path, password string) (os.FileInfo, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", models.ErrUnreadable, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", models.ErrUnreadable, err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%w: %s is a directory", models.ErrUnreadable, path)
	}
	ok, err := hasPDFSignature(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", models.ErrUnreadable, err)
	}
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", models.ErrNotAPDF, path)
	}
	pageCount, err := probePDF(f, info.Size(), password)
	if err != nil {
		return nil, 0, err
	}
	return info, pageCount, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".archive-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
