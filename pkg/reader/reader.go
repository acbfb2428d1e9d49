// Package reader is the embedding API: open a PDF, get a session that keeps a
// window of rendered pages around the current one, and have its reading position
// and bookmarks restored the next time it is opened.
package reader

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/docstore"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/render"
	"github.com/hyperjump/folio/internal/session"
	"github.com/hyperjump/folio/pkg/utils"
)

type (
	Config         = config.Config
	Record         = models.DocumentRecord
	Tier           = models.Tier
	PageKey        = models.PageKey
	Session        = session.Session
	Option         = session.Option
	Observer       = session.Observer
	SourceObserver = session.SourceObserver
	WindowChange   = session.WindowChange
	ThumbnailEvent = session.ThumbnailEvent
	Renderer       = render.Renderer
	RendererFunc   = render.RendererFunc
	RenderRequest  = render.Request
	RecentEntry    = docstore.LibraryEntry
	Usage          = docstore.Usage
)

const (
	TierPreview = models.TierPreview
	TierFull    = models.TierFull
)

var (
	ErrNotAPDF        = models.ErrNotAPDF
	ErrUnreadable     = models.ErrUnreadable
	ErrNeedsPassword  = models.ErrNeedsPassword
	ErrCorruptArchive = models.ErrCorruptArchive
	ErrWriteFailed    = models.ErrWriteFailed
	ErrPathNotFound   = models.ErrPathNotFound
	ErrOutOfRange     = models.ErrOutOfRange
	ErrRenderFailed   = models.ErrRenderFailed
	ErrClosed         = session.ErrClosed
)

var (
	WithObserver = session.WithObserver
	WithClock    = session.WithClock
)

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Viewer opens documents against one document store.
type Viewer struct {
	cfg      *Config
	store    *docstore.Store
	renderer Renderer
	logger   *zap.Logger
}

// NewViewer creates the support directory and opens the recents library. A nil
// renderer draws blank pages of the right proportions; a nil logger logs nothing.
func NewViewer(cfg *Config, renderer Renderer, logger *zap.Logger) (*Viewer, error) {
	if renderer == nil {
		renderer = render.Blank{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := docstore.NewStore(&cfg.Storage, docstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Viewer{cfg: cfg, store: store, renderer: renderer, logger: utils.ComponentLogger(logger, "reader")}, nil
}

// Open restores the document at path, or loads it fresh when it was never saved or
// its archive is unusable, and starts a session on it.
func (v *Viewer) Open(path, password string, opts ...Option) (*Session, error) {
	rec, err := v.store.Open(path, password)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{session.WithLogger(v.logger)}, opts...)
	return session.New(v.cfg, v.store, v.renderer, rec, opts...)
}

// IsPDF reports whether path carries a PDF signature.
func (v *Viewer) IsPDF(path string) (bool, error) {
	return docstore.IsPDF(path)
}

// Recent lists up to limit saved documents, most recently opened first. It returns
// nothing when the library is disabled.
func (v *Viewer) Recent(ctx context.Context, limit int) ([]*RecentEntry, error) {
	lib := v.store.Library()
	if lib == nil {
		return nil, nil
	}
	return lib.Recent(ctx, limit)
}

// Usage reports what the support directory holds.
func (v *Viewer) Usage() (Usage, error) {
	return v.store.Usage()
}

// Close releases the store. Sessions must be closed first.
func (v *Viewer) Close() error {
	return v.store.Close()
}
