// Package session runs one open document: the page window, the bitmap cache, the
// render workers and persistence of the document record.
//
// A single mutex serializes every change to the record, the window and the slot
// views. Render results are applied under it; observers are called after it is
// released.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/pagebar"
	"github.com/hyperjump/folio/internal/pagewindow"
	"github.com/hyperjump/folio/internal/render"
	"github.com/hyperjump/folio/internal/thumbcache"
	"github.com/hyperjump/folio/internal/watcher"
	"github.com/hyperjump/folio/pkg/utils"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Saver persists document records.
type Saver interface {
	Save(rec *models.DocumentRecord) error
}

// Session is the inbound surface for one open document.
type Session struct {
	cfg        *config.Config
	saver      Saver
	record     *models.DocumentRecord
	window     *pagewindow.Cache
	thumbs     *thumbcache.Cache
	dispatcher *render.Dispatcher
	bar        *pagebar.Model
	watcher    *watcher.Watcher
	observers  []Observer
	now        func() time.Time
	base       *zap.Logger
	logger     *zap.Logger

	// pending holds keys submitted to the dispatcher; true marks a thumbnail grid
	// request, which is not abandoned when its page leaves the window.
	pending    map[models.PageKey]bool
	generation int
	closed     bool

	saves     sync.WaitGroup
	saveSeq   uint64
	savedSeq  uint64
	saveMu    sync.Mutex
	stopWatch context.CancelFunc

	mu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger; components log under named children.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.base = l }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithClock overrides the time source used to stamp LastOpen.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New opens a session on rec and materializes the window around rec.PageNumber.
// The session owns rec until Close.
func New(cfg *config.Config, saver Saver, renderer render.Renderer, rec *models.DocumentRecord, opts ...Option) (*Session, error) {
	if rec == nil || rec.PageCount < 1 {
		return nil, fmt.Errorf("%w: record has no pages", models.ErrUnreadable)
	}
	s := &Session{
		cfg:     cfg,
		saver:   saver,
		record:  rec,
		now:     time.Now,
		pending: make(map[models.PageKey]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.ComponentLogger(s.base, "session")

	window, err := pagewindow.New(rec.PageCount, cfg.Paging.Buffer, pagewindow.WithLogger(s.base))
	if err != nil {
		return nil, err
	}
	s.window = window
	s.thumbs = thumbcache.New(cfg.Thumbnails.BudgetBytes, thumbcache.WithLogger(s.base))
	s.thumbs.Open(rec.GUID)
	s.dispatcher = render.NewDispatcher(renderer, cfg.Render.Workers, render.WithLogger(s.base))
	s.bar = pagebar.NewModel(s)
	rec.Touch(s.now())

	if cfg.Watch.EnabledOrDefault() {
		s.startWatcher()
	}

	s.logger.Info("session opened",
		zap.String("guid", rec.GUID),
		zap.String("file", rec.FileName),
		zap.Int("page_count", rec.PageCount),
		zap.Int("page", rec.PageNumber),
	)
	if err := s.SetCurrentPage(utils.Clamp(rec.PageNumber, 1, rec.PageCount)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) startWatcher() {
	w := watcher.NewWatcher(s.sourceChanged, s.sourceRemoved,
		watcher.WithDebounce(time.Duration(s.cfg.Watch.DebounceMS)*time.Millisecond),
		watcher.WithLogger(s.base),
	)
	if err := w.Add(s.record.FilePath); err != nil {
		s.logger.Warn("cannot watch source", zap.String("path", s.record.FilePath), zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		s.logger.Warn("cannot watch source", zap.String("path", s.record.FilePath), zap.Error(err))
		return
	}
	s.watcher, s.stopWatch = w, cancel
}

// GUID returns the document identity.
func (s *Session) GUID() string {
	return s.record.GUID
}

// PageCount returns the number of pages.
func (s *Session) PageCount() int {
	return s.record.PageCount
}

// CurrentPage returns the current page.
func (s *Session) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.PageNumber
}

// Record returns a copy of the document record.
func (s *Session) Record() *models.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Snapshot()
}

// SetCurrentPage moves to page. Pages outside [1, PageCount] yield ErrOutOfRange
// and change nothing.
func (s *Session) SetCurrentPage(page int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	change, err := s.window.SetCurrentPage(page)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.record.SetPageNumber(page); err != nil {
		s.mu.Unlock()
		return err
	}
	events := s.applyLocked(change)
	wc := s.windowChangeLocked(change)
	s.mu.Unlock()

	s.notifyWindow(wc)
	s.notifyThumbnails(events)
	return nil
}

// GotoPage moves to page clamped to [1, PageCount]. It is the pagebar's navigator.
func (s *Session) GotoPage(page int) error {
	return s.SetCurrentPage(utils.Clamp(page, 1, s.record.PageCount))
}

// OnScrub moves to the page nearest to a scrubber fraction and returns it.
func (s *Session) OnScrub(fraction float64) (int, error) {
	return s.bar.OnScrub(fraction, s.record.PageCount)
}

// Pagebar returns the pagebar state for the current page.
func (s *Session) Pagebar() pagebar.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pagebar.StateFor(s.record.PageNumber, s.record.PageCount)
}

// ToggleBookmark flips the bookmark on page and returns the new state. With
// bookmarks disabled it does nothing and reports false.
func (s *Session) ToggleBookmark(page int) (bool, error) {
	if !s.cfg.Features.BookmarksEnabledOrDefault() {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	on, err := s.record.ToggleBookmark(page)
	if err != nil {
		return false, err
	}
	s.logger.Debug("bookmark toggled", zap.Int("page", page), zap.Bool("bookmarked", on))
	return on, nil
}

// Bookmarks returns the bookmarked pages in ascending order.
func (s *Session) Bookmarks() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Bookmarks()
}

// Slot returns the window slot of page. ok is false when the page is not resident.
func (s *Session) Slot(page int) (pagewindow.Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.SlotFor(page)
}

// Resident returns the resident pages in ascending order.
func (s *Session) Resident() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Resident()
}

// ThumbnailStats returns the bitmap cache counters.
func (s *Session) ThumbnailStats() thumbcache.Stats {
	return s.thumbs.Stats()
}

// RequestThumbnail makes a bitmap of any page available without making the page
// resident, for a thumbnail grid. A cached bitmap is reported at once; otherwise
// the render is reported through ThumbnailReady when done.
func (s *Session) RequestThumbnail(page int, tier models.Tier) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := s.record.CheckPage(page); err != nil {
		s.mu.Unlock()
		return err
	}
	key := s.key(page, tier)
	if img, ok := s.thumbs.Get(key); ok {
		_, resident := s.window.SlotFor(page)
		s.mu.Unlock()
		s.notifyThumbnails([]ThumbnailEvent{{Key: key, Image: img, Resident: resident}})
		return nil
	}
	s.submitLocked(key, true)
	s.mu.Unlock()
	return nil
}

// Save writes a snapshot of the record on a background goroutine. A failed write
// is logged; the next Save or Close writes again.
func (s *Session) Save() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snap, seq := s.snapshotLocked()
	s.saves.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.saves.Done()
		_ = s.write(snap, seq)
	}()
}

// Close releases every slot, stops watching and rendering, and saves the record.
// It returns the final save error, if any, joined with a shutdown timeout.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	released := s.window.ReleaseAll()
	snap, seq := s.snapshotLocked()
	clear(s.pending)
	s.mu.Unlock()

	if s.watcher != nil {
		s.watcher.Stop()
		s.stopWatch()
	}
	closeErr := s.dispatcher.Close(ctx)
	s.saves.Wait()
	saveErr := s.write(snap, seq)
	s.thumbs.DropDocument(s.record.GUID)

	s.notifyWindow(WindowChange{GUID: s.record.GUID, Released: released})
	s.logger.Info("session closed", zap.String("guid", s.record.GUID), zap.Int("page", snap.PageNumber))
	return errors.Join(closeErr, saveErr)
}

func (s *Session) snapshotLocked() (*models.DocumentRecord, uint64) {
	s.saveSeq++
	return s.record.Snapshot(), s.saveSeq
}

// write saves snap unless a newer snapshot has already been written.
func (s *Session) write(snap *models.DocumentRecord, seq uint64) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if seq <= s.savedSeq {
		return nil
	}
	if err := s.saver.Save(snap); err != nil {
		s.logger.Warn("save failed, will retry on next save", zap.String("guid", snap.GUID), zap.Error(err))
		return err
	}
	s.savedSeq = seq
	return nil
}

func (s *Session) key(page int, tier models.Tier) models.PageKey {
	return models.PageKey{GUID: s.record.GUID, Page: page, Tier: tier}
}

func (s *Session) windowChangeLocked(c pagewindow.Change) WindowChange {
	return WindowChange{
		GUID:     s.record.GUID,
		Current:  c.Current,
		First:    c.First,
		Last:     c.Last,
		Assigned: c.Assigned,
		Released: c.Released,
		Pagebar:  pagebar.StateFor(c.Current, s.record.PageCount),
	}
}

func (s *Session) notifyWindow(wc WindowChange) {
	for _, o := range s.observers {
		o.PageWindowChanged(wc)
	}
}

func (s *Session) notifyThumbnails(events []ThumbnailEvent) {
	for _, ev := range events {
		for _, o := range s.observers {
			o.ThumbnailReady(ev)
		}
	}
}
