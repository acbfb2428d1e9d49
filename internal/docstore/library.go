package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/folio/internal/models"
)

// LibraryEntry is one row of the recently opened documents index.
type LibraryEntry struct {
	GUID       string
	FileName   string
	Location   string
	PageCount  int
	PageNumber int
	Bookmarks  int
	LastOpen   time.Time
	UpdatedAt  time.Time
}

// Library indexes saved documents in SQLite so a shelf of recent documents can be
// listed without decoding every archive.
type Library struct {
	db *sql.DB
}

// OpenLibrary opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func OpenLibrary(dbPath string) (*Library, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create library directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initLibrarySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Library{db: db}, nil
}

func initLibrarySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		guid TEXT PRIMARY KEY,
		file_name TEXT NOT NULL UNIQUE,
		location TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		page_number INTEGER NOT NULL,
		bookmarks INTEGER NOT NULL DEFAULT 0,
		last_open TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_last_open ON documents(last_open);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert records rec. Archives are keyed by file name, so a row for the same file
// name under an older GUID is replaced.
func (l *Library) Upsert(ctx context.Context, rec *models.DocumentRecord, location string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents
		 (guid, file_name, location, page_count, page_number, bookmarks, last_open, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.GUID, rec.FileName, location, rec.PageCount, rec.PageNumber,
		len(rec.Bookmarks()), rec.LastOpen.UTC(), time.Now().UTC(),
	)
	return err
}

// Get returns the entry for guid.
func (l *Library) Get(ctx context.Context, guid string) (*LibraryEntry, error) {
	var e LibraryEntry
	err := l.db.QueryRowContext(ctx,
		`SELECT guid, file_name, location, page_count, page_number, bookmarks, last_open, updated_at
		 FROM documents WHERE guid = ?`, guid,
	).Scan(&e.GUID, &e.FileName, &e.Location, &e.PageCount, &e.PageNumber, &e.Bookmarks, &e.LastOpen, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library entry not found: %s", guid)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Recent returns up to limit entries, most recently opened first.
func (l *Library) Recent(ctx context.Context, limit int) ([]*LibraryEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT guid, file_name, location, page_count, page_number, bookmarks, last_open, updated_at
		 FROM documents ORDER BY last_open DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LibraryEntry
	for rows.Next() {
		var e LibraryEntry
		if err := rows.Scan(&e.GUID, &e.FileName, &e.Location, &e.PageCount, &e.PageNumber, &e.Bookmarks, &e.LastOpen, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Delete removes the entry for guid.
func (l *Library) Delete(ctx context.Context, guid string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM documents WHERE guid = ?`, guid)
	return err
}

// Count returns the number of indexed documents.
func (l *Library) Count(ctx context.Context) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (l *Library) Close() error {
	return l.db.Close()
}
