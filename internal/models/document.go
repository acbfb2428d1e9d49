// Package models defines the document record, thumbnail tiers and the error taxonomy
// shared by the store, the caches and the session.
package models

import (
	"fmt"
	"sort"
	"time"
)

// DocumentRecord describes one opened PDF. Identity fields are fixed at creation;
// Bookmarks, PageNumber and LastOpen change while the document is viewed.
// A record is not safe for concurrent use; the session serializes access to it.
type DocumentRecord struct {
	GUID     string    `json:"guid"`
	FileName string    `json:"file_name"`
	FileDate time.Time `json:"file_date"`
	FilePath string    `json:"file_path"`
	FileSize int64     `json:"file_size"`
	Password string    `json:"-"`

	PageCount  int       `json:"page_count"`
	PageNumber int       `json:"page_number"`
	LastOpen   time.Time `json:"last_open"`

	bookmarks map[int]struct{}
}

// NewDocumentRecord returns a fresh record positioned on page 1 with no bookmarks.
func NewDocumentRecord(guid, fileName, filePath string, fileDate time.Time, fileSize int64, password string, pageCount int) *DocumentRecord {
	return &DocumentRecord{
		GUID:       guid,
		FileName:   fileName,
		FileDate:   fileDate,
		FilePath:   filePath,
		FileSize:   fileSize,
		Password:   password,
		PageCount:  pageCount,
		PageNumber: 1,
		bookmarks:  make(map[int]struct{}),
	}
}

// Bookmarks returns the bookmarked pages in ascending order.
func (d *DocumentRecord) Bookmarks() []int {
	pages := make([]int, 0, len(d.bookmarks))
	for p := range d.bookmarks {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// IsBookmarked reports whether page is bookmarked.
func (d *DocumentRecord) IsBookmarked(page int) bool {
	_, ok := d.bookmarks[page]
	return ok
}

// ToggleBookmark flips the bookmark on page and returns the new state.
func (d *DocumentRecord) ToggleBookmark(page int) (bool, error) {
	if err := d.CheckPage(page); err != nil {
		return false, err
	}
	if d.bookmarks == nil {
		d.bookmarks = make(map[int]struct{})
	}
	if _, ok := d.bookmarks[page]; ok {
		delete(d.bookmarks, page)
		return false, nil
	}
	d.bookmarks[page] = struct{}{}
	return true, nil
}

// SetBookmarks replaces the bookmark set. Pages outside [1, PageCount] are dropped.
func (d *DocumentRecord) SetBookmarks(pages []int) {
	d.bookmarks = make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if d.CheckPage(p) == nil {
			d.bookmarks[p] = struct{}{}
		}
	}
}

// SetPageNumber moves the current page.
func (d *DocumentRecord) SetPageNumber(page int) error {
	if err := d.CheckPage(page); err != nil {
		return err
	}
	d.PageNumber = page
	return nil
}

// CheckPage returns ErrOutOfRange unless 1 <= page <= PageCount.
func (d *DocumentRecord) CheckPage(page int) error {
	if page < 1 || page > d.PageCount {
		return fmt.Errorf("page %d not in [1, %d]: %w", page, d.PageCount, ErrOutOfRange)
	}
	return nil
}

// Touch sets LastOpen.
func (d *DocumentRecord) Touch(now time.Time) {
	d.LastOpen = now
}

// Snapshot returns a deep copy, used to serialize a consistent state off the session lock.
func (d *DocumentRecord) Snapshot() *DocumentRecord {
	cp := *d
	cp.bookmarks = make(map[int]struct{}, len(d.bookmarks))
	for p := range d.bookmarks {
		cp.bookmarks[p] = struct{}{}
	}
	return &cp
}
