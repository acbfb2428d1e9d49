package session

import (
	"image"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/pagewindow"
	"github.com/hyperjump/folio/internal/render"
)

// applyLocked abandons renders for released pages, materializes assigned pages and
// retries resident pages whose last full render failed. It returns events for
// bitmaps served from the cache.
func (s *Session) applyLocked(c pagewindow.Change) []ThumbnailEvent {
	for _, page := range c.Released {
		s.abandonLocked(page)
	}
	assigned := make(map[int]bool, len(c.Assigned))
	var events []ThumbnailEvent
	for _, page := range c.Assigned {
		assigned[page] = true
		events = append(events, s.materializeLocked(page)...)
	}
	for _, page := range s.window.Resident() {
		if assigned[page] {
			continue
		}
		if slot, ok := s.window.SlotFor(page); ok && slot.View.Failed {
			s.logger.Debug("retrying failed page", zap.Int("page", page))
			s.submitLocked(s.key(page, models.TierFull), false)
		}
	}
	return events
}

// materializeLocked fills a freshly assigned slot from the cache, showing the best
// bitmap available, and requests what is missing.
func (s *Session) materializeLocked(page int) []ThumbnailEvent {
	full := s.key(page, models.TierFull)
	if img, ok := s.thumbs.Get(full); ok {
		s.window.SetView(page, pagewindow.View{Image: img, Tier: models.TierFull})
		return []ThumbnailEvent{{Key: full, Image: img, Resident: true}}
	}

	var events []ThumbnailEvent
	if s.cfg.Thumbnails.PreviewEnabledOrDefault() {
		preview := s.key(page, models.TierPreview)
		if img, ok := s.thumbs.Get(preview); ok {
			s.window.SetView(page, pagewindow.View{Image: img, Tier: models.TierPreview})
			events = append(events, ThumbnailEvent{Key: preview, Image: img, Resident: true})
		} else {
			s.submitLocked(preview, false)
		}
	}
	s.submitLocked(full, false)
	return events
}

func (s *Session) submitLocked(key models.PageKey, pinned bool) {
	if was, ok := s.pending[key]; ok {
		s.pending[key] = was || pinned
		return
	}
	size := s.cfg.Thumbnails.FullSize
	if key.Tier == models.TierPreview {
		size = s.cfg.Thumbnails.PreviewSize
	}
	req := render.Request{
		Key:        key,
		FilePath:   s.record.FilePath,
		Password:   s.record.Password,
		TargetSize: size,
	}
	gen := s.generation
	if err := s.dispatcher.Submit(req, func(res render.Result) { s.rendered(gen, res) }); err != nil {
		s.logger.Debug("render not submitted", zap.Stringer("key", key), zap.Error(err))
		return
	}
	s.pending[key] = pinned
}

// abandonLocked cancels window renders for page. Thumbnail grid requests keep running.
func (s *Session) abandonLocked(page int) {
	for _, tier := range []models.Tier{models.TierPreview, models.TierFull} {
		key := s.key(page, tier)
		if pinned, ok := s.pending[key]; ok && !pinned {
			delete(s.pending, key)
			s.dispatcher.Abandon(key)
		}
	}
}

// rendered applies a render result at the serialization point.
func (s *Session) rendered(gen int, res render.Result) {
	if res.Abandoned() {
		return
	}
	key := res.Key

	// A full bitmap also yields the preview when none was rendered yet.
	previewKey := s.key(key.Page, models.TierPreview)
	var derived image.Image
	if res.Err == nil && key.Tier == models.TierFull && s.cfg.Thumbnails.PreviewEnabledOrDefault() {
		if !s.thumbs.Contains(previewKey) {
			if img, err := render.Downscale(res.Image, s.cfg.Thumbnails.PreviewSize); err == nil {
				derived = img
			}
		}
	}

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	slot, resident := s.window.SlotFor(key.Page)

	if res.Err != nil {
		s.logger.Warn("render failed", zap.Stringer("key", key), zap.Error(res.Err))
		if resident && key.Tier == models.TierFull {
			v := slot.View
			v.Failed = true
			s.window.SetView(key.Page, v)
		}
		s.mu.Unlock()
		s.notifyThumbnails([]ThumbnailEvent{{Key: key, Resident: resident, Err: res.Err}})
		return
	}

	s.thumbs.Put(key, res.Image)
	if derived != nil {
		s.thumbs.Put(previewKey, derived)
	}
	if resident {
		switch {
		case key.Tier == models.TierFull:
			s.window.SetView(key.Page, pagewindow.View{Image: res.Image, Tier: models.TierFull})
		case !slot.View.Ready():
			s.window.SetView(key.Page, pagewindow.View{Image: res.Image, Tier: models.TierPreview, Failed: slot.View.Failed})
		}
	}
	s.mu.Unlock()

	s.notifyThumbnails([]ThumbnailEvent{{Key: key, Image: res.Image, Resident: resident}})
}

// sourceChanged drops every bitmap of the document and materializes the window again.
func (s *Session) sourceChanged(path string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	for key := range s.pending {
		s.dispatcher.Abandon(key)
	}
	clear(s.pending)
	dropped := s.thumbs.DropDocument(s.record.GUID)
	var events []ThumbnailEvent
	for _, page := range s.window.Resident() {
		s.window.SetView(page, pagewindow.View{})
		events = append(events, s.materializeLocked(page)...)
	}
	s.mu.Unlock()

	s.logger.Info("source changed, bitmaps invalidated", zap.String("path", path), zap.Int("dropped", dropped))
	s.notifyThumbnails(events)
	s.notifySource(path, false)
}

func (s *Session) sourceRemoved(path string) {
	s.logger.Warn("source removed", zap.String("path", path))
	s.notifySource(path, true)
}

func (s *Session) notifySource(path string, removed bool) {
	for _, o := range s.observers {
		if so, ok := o.(SourceObserver); ok {
			so.SourceChanged(path, removed)
		}
	}
}
