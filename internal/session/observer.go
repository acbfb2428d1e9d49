package session

import (
	"image"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/pagebar"
)

// Observer receives session events. Methods are called without any session lock
// held, possibly from render goroutines, so implementations may call back into
// the session.
type Observer interface {
	PageWindowChanged(WindowChange)
	ThumbnailReady(ThumbnailEvent)
}

// SourceObserver is implemented by observers that want to hear about the source
// file changing on disk.
type SourceObserver interface {
	SourceChanged(path string, removed bool)
}

// WindowChange reports a recomputed page window.
type WindowChange struct {
	GUID    string
	Current int
	First   int
	Last    int
	// Assigned pages received a slot and are being materialized.
	Assigned []int
	// Released pages lost their slot.
	Released []int
	Pagebar  pagebar.State
}

// ThumbnailEvent reports a bitmap that became available, or a render that failed.
type ThumbnailEvent struct {
	Key   models.PageKey
	Image image.Image
	// Resident is true when the page occupies a window slot.
	Resident bool
	Err      error
}
