// Package thumbcache holds rendered page bitmaps for the open document under a byte budget.
package thumbcache

import (
	"container/list"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/pkg/utils"
)

// Cache is an LRU bitmap cache with two tiers. Full-tier entries are evicted first,
// least recently accessed first; preview entries go only when no full entry is left.
// Entries belong to one document GUID at a time.
type Cache struct {
	budget  int64
	guid    string
	bytes   int64
	entries map[models.PageKey]*list.Element
	tiers   [2]*list.List
	now     func() time.Time
	logger  *zap.Logger

	hits      uint64
	misses    uint64
	evictions uint64

	mu sync.Mutex
}

type cacheEntry struct {
	key        models.PageKey
	img        image.Image
	size       int64
	lastAccess time.Time
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	GUID      string
	Previews  int
	Fulls     int
	Bytes     int64
	Budget    int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets a logger for eviction and namespace events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = utils.ComponentLogger(l, "thumbcache") }
}

// WithClock overrides the time source for last-access stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache holding at most budget bytes of bitmaps.
func New(budget int64, opts ...Option) *Cache {
	c := &Cache{
		budget:  budget,
		entries: make(map[models.PageKey]*list.Element),
		tiers:   [2]*list.List{list.New(), list.New()},
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open scopes the cache to guid. Entries of any other document are dropped.
func (c *Cache) Open(guid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchTo(guid)
}

// Get returns the bitmap for key and refreshes its last-access time. Keys of a
// document other than the open one always miss.
func (c *Cache) Get(key models.PageKey) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	e := elem.Value.(*cacheEntry)
	e.lastAccess = c.now()
	c.tierList(key.Tier).MoveToFront(elem)
	c.hits++
	return e.img, true
}

// Contains reports whether key is cached without counting a hit or miss or
// refreshing its last-access time.
func (c *Cache) Contains(key models.PageKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Put stores img under key and evicts until the budget holds. A key of another
// document switches the cache to that document first. Put reports false when the
// bitmap is not kept: it is larger than the whole budget, or it is a full bitmap
// that only fits by evicting previews.
func (c *Cache) Put(key models.PageKey, img image.Image) bool {
	if img == nil {
		return false
	}
	size := bitmapBytes(img)

	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.budget {
		c.logger.Debug("bitmap exceeds budget, not cached",
			zap.Stringer("key", key), zap.Int64("bytes", size), zap.Int64("budget", c.budget))
		return false
	}
	if key.GUID != c.guid {
		c.switchTo(key.GUID)
	}

	lst := c.tierList(key.Tier)
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*cacheEntry)
		c.bytes += size - e.size
		e.img, e.size, e.lastAccess = img, size, c.now()
		lst.MoveToFront(elem)
		return c.evict(elem)
	}

	elem := lst.PushFront(&cacheEntry{key: key, img: img, size: size, lastAccess: c.now()})
	c.entries[key] = elem
	c.bytes += size
	return c.evict(elem)
}

// Remove drops key. It reports whether the key was cached.
func (c *Cache) Remove(key models.PageKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// DropDocument removes every entry of guid and returns how many were removed.
func (c *Cache) DropDocument(guid string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if guid != c.guid {
		return 0
	}
	return c.clear()
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		GUID:      c.guid,
		Previews:  c.tiers[models.TierPreview].Len(),
		Fulls:     c.tiers[models.TierFull].Len(),
		Bytes:     c.bytes,
		Budget:    c.budget,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *Cache) tierList(t models.Tier) *list.List {
	if t == models.TierPreview {
		return c.tiers[models.TierPreview]
	}
	return c.tiers[models.TierFull]
}

func (c *Cache) switchTo(guid string) {
	if guid == c.guid {
		return
	}
	if n := c.clear(); n > 0 {
		c.logger.Debug("dropped previous document", zap.String("guid", c.guid), zap.Int("entries", n))
	}
	c.guid = guid
}

func (c *Cache) clear() int {
	n := len(c.entries)
	clear(c.entries)
	c.tiers[models.TierPreview].Init()
	c.tiers[models.TierFull].Init()
	c.bytes = 0
	return n
}

// evict removes least recently used entries until the budget holds and reports
// whether keep survived. Full-tier entries go first; previews are evicted only for
// a preview insert once no full entry is left, so a preview always outlives the
// full bitmap of its page. A full entry that still does not fit is dropped itself.
func (c *Cache) evict(keep *list.Element) bool {
	tiers := []models.Tier{models.TierFull, models.TierPreview}
	if keep.Value.(*cacheEntry).key.Tier == models.TierFull {
		tiers = tiers[:1]
	}
	for _, t := range tiers {
		lst := c.tiers[t]
		for c.bytes > c.budget {
			victim := lst.Back()
			if victim == keep {
				victim = victim.Prev()
			}
			if victim == nil {
				break
			}
			c.evictElement(victim)
		}
	}
	if c.bytes > c.budget {
		c.evictElement(keep)
		return false
	}
	return true
}

func (c *Cache) evictElement(elem *list.Element) {
	e := elem.Value.(*cacheEntry)
	c.removeElement(elem)
	c.evictions++
	c.logger.Debug("thumbnail evicted",
		zap.Stringer("key", e.key),
		zap.Int64("bytes", e.size),
		zap.Duration("idle", c.now().Sub(e.lastAccess)),
	)
}

func (c *Cache) removeElement(elem *list.Element) {
	e := elem.Value.(*cacheEntry)
	c.tierList(e.key.Tier).Remove(elem)
	delete(c.entries, e.key)
	c.bytes -= e.size
}

// bitmapBytes approximates the memory held by img.
func bitmapBytes(img image.Image) int64 {
	switch m := img.(type) {
	case *image.RGBA:
		return int64(len(m.Pix))
	case *image.NRGBA:
		return int64(len(m.Pix))
	case *image.Gray:
		return int64(len(m.Pix))
	case *image.YCbCr:
		return int64(len(m.Y) + len(m.Cb) + len(m.Cr))
	}
	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}
