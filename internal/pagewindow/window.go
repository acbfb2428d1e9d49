// Package pagewindow keeps a bounded window of live page slots around the current page.
//
// Slots form a fixed arena indexed by position. Moving the current page reassigns
// slots by value: a slot whose page left the window is recycled for a page that
// entered it, so no more than WindowSize pages are ever resident.
package pagewindow

import (
	"fmt"
	"image"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/pkg/utils"
)

// View is the live state of a resident page.
type View struct {
	Image  image.Image
	Tier   models.Tier
	Failed bool
}

// Ready reports whether the view shows the full-resolution bitmap.
func (v View) Ready() bool {
	return v.Image != nil && v.Tier == models.TierFull
}

// Slot is one arena position. Page is 0 while the slot is empty.
type Slot struct {
	Position int
	Page     int
	View     View
}

// Change describes one window recomputation.
type Change struct {
	Current int
	First   int
	Last    int
	// Assigned lists pages that received a slot, nearest to Current first.
	// Each needs materialization before display.
	Assigned []int
	// Released lists pages whose slot was recycled, ascending.
	Released []int
}

// Cache is the page window. It is not safe for concurrent use.
type Cache struct {
	pageCount int
	buffer    int
	current   int
	slots     []Slot
	byPage    map[int]int
	logger    *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets a logger for debug output (window recomputed, slot recycled).
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = utils.ComponentLogger(l, "pagewindow") }
}

// New creates a window over pageCount pages keeping buffer pages on each side of
// the current page. No page is resident until the first SetCurrentPage.
func New(pageCount, buffer int, opts ...Option) (*Cache, error) {
	if pageCount < 1 {
		return nil, fmt.Errorf("page count must be positive, got %d", pageCount)
	}
	if buffer < 0 {
		return nil, fmt.Errorf("buffer must not be negative, got %d", buffer)
	}
	size := 2*buffer + 1
	if size > pageCount {
		size = pageCount
	}
	c := &Cache{
		pageCount: pageCount,
		buffer:    buffer,
		slots:     make([]Slot, size),
		byPage:    make(map[int]int, size),
		logger:    zap.NewNop(),
	}
	for i := range c.slots {
		c.slots[i].Position = i
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WindowSize returns the arena capacity.
func (c *Cache) WindowSize() int {
	return len(c.slots)
}

// PageCount returns the number of pages the window ranges over.
func (c *Cache) PageCount() int {
	return c.pageCount
}

// Current returns the current page, or 0 before the first SetCurrentPage.
func (c *Cache) Current() int {
	return c.current
}

// Window returns the target window for page, clipped to [1, PageCount].
func (c *Cache) Window(page int) (first, last int) {
	return utils.Clamp(page-c.buffer, 1, c.pageCount), utils.Clamp(page+c.buffer, 1, c.pageCount)
}

// SetCurrentPage re-centers the window on page. Pages in the new window that are not
// resident take over slots whose pages fell outside it, farthest page first; the
// remaining out-of-window slots are emptied.
func (c *Cache) SetCurrentPage(page int) (Change, error) {
	if page < 1 || page > c.pageCount {
		return Change{}, fmt.Errorf("page %d not in [1, %d]: %w", page, c.pageCount, models.ErrOutOfRange)
	}
	first, last := c.Window(page)
	inWindow := func(p int) bool { return p >= first && p <= last }
	distance := func(p int) int {
		if p == 0 {
			return math.MaxInt
		}
		return utils.Abs(p - page)
	}

	var free []int
	for pos, s := range c.slots {
		if s.Page == 0 || !inWindow(s.Page) {
			free = append(free, pos)
		}
	}
	sort.SliceStable(free, func(i, j int) bool {
		return distance(c.slots[free[i]].Page) > distance(c.slots[free[j]].Page)
	})

	var need []int
	for p := first; p <= last; p++ {
		if _, ok := c.byPage[p]; !ok {
			need = append(need, p)
		}
	}
	sort.SliceStable(need, func(i, j int) bool {
		return utils.Abs(need[i]-page) < utils.Abs(need[j]-page)
	})

	change := Change{Current: page, First: first, Last: last}
	for i, p := range need {
		pos := free[i]
		if old := c.slots[pos].Page; old != 0 {
			delete(c.byPage, old)
			change.Released = append(change.Released, old)
			c.logger.Debug("slot recycled", zap.Int("position", pos), zap.Int("from", old), zap.Int("to", p))
		}
		c.slots[pos] = Slot{Position: pos, Page: p}
		c.byPage[p] = pos
		change.Assigned = append(change.Assigned, p)
	}
	for _, pos := range free[len(need):] {
		if old := c.slots[pos].Page; old != 0 {
			delete(c.byPage, old)
			change.Released = append(change.Released, old)
			c.slots[pos] = Slot{Position: pos}
		}
	}
	sort.Ints(change.Released)
	c.current = page

	c.logger.Debug("window recomputed",
		zap.Int("current", page),
		zap.Int("first", first),
		zap.Int("last", last),
		zap.Ints("assigned", change.Assigned),
		zap.Ints("released", change.Released),
	)
	return change, nil
}

// SlotFor returns the slot holding page. ok is false when the page is not resident
// and must be materialized before display.
func (c *Cache) SlotFor(page int) (slot Slot, ok bool) {
	pos, ok := c.byPage[page]
	if !ok {
		return Slot{}, false
	}
	return c.slots[pos], true
}

// SetView replaces the view of a resident page. It reports false when page is not resident.
func (c *Cache) SetView(page int, v View) bool {
	pos, ok := c.byPage[page]
	if !ok {
		return false
	}
	c.slots[pos].View = v
	return true
}

// Resident returns the resident pages in ascending order.
func (c *Cache) Resident() []int {
	pages := make([]int, 0, len(c.byPage))
	for p := range c.byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// ReleaseAll empties every slot and returns the pages that were resident.
func (c *Cache) ReleaseAll() []int {
	released := c.Resident()
	for pos := range c.slots {
		c.slots[pos] = Slot{Position: pos}
	}
	clear(c.byPage)
	c.current = 0
	return released
}
