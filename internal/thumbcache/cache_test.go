package thumbcache

import (
	"image"
	"testing"
	"time"

	"github.com/hyperjump/folio/internal/models"
)

// bitmap returns a 4x4 RGBA image: 64 bytes.
func bitmap() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func key(page int, tier models.Tier) models.PageKey {
	return models.PageKey{GUID: "doc-a", Page: page, Tier: tier}
}

func TestCache_PutGet(t *testing.T) {
	c := New(1 << 10)
	if _, ok := c.Get(key(1, models.TierFull)); ok {
		t.Fatal("expected miss")
	}
	img := bitmap()
	if !c.Put(key(1, models.TierFull), img) {
		t.Fatal("Put reported not stored")
	}
	for i := 0; i < 3; i++ {
		got, ok := c.Get(key(1, models.TierFull))
		if !ok || got != img {
			t.Fatalf("Get #%d: got %v, %v", i, got, ok)
		}
	}
	if _, ok := c.Get(key(1, models.TierPreview)); ok {
		t.Error("preview tier must be a distinct key")
	}
	st := c.Stats()
	if st.Hits != 3 || st.Misses != 2 || st.Fulls != 1 || st.Bytes != 64 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	c := New(1 << 10)
	c.Put(key(1, models.TierFull), bitmap())
	big := image.NewRGBA(image.Rect(0, 0, 8, 8))
	c.Put(key(1, models.TierFull), big)
	got, _ := c.Get(key(1, models.TierFull))
	if got != big {
		t.Error("overwrite not visible")
	}
	if st := c.Stats(); st.Bytes != 256 || st.Fulls != 1 {
		t.Errorf("Stats = %+v, want one 256-byte entry", st)
	}
}

func TestCache_EvictsFullTierBeforePreview(t *testing.T) {
	// Room for four 64-byte bitmaps.
	c := New(256)
	c.Put(key(1, models.TierPreview), bitmap())
	c.Put(key(2, models.TierPreview), bitmap())
	c.Put(key(1, models.TierFull), bitmap())
	c.Put(key(2, models.TierFull), bitmap())

	// Touch 1 so 2 is least recently accessed in the full tier.
	c.Get(key(1, models.TierFull))
	c.Put(key(3, models.TierFull), bitmap())

	if _, ok := c.Get(key(2, models.TierFull)); ok {
		t.Error("least recently used full entry should be evicted")
	}
	for _, k := range []models.PageKey{key(1, models.TierFull), key(3, models.TierFull), key(1, models.TierPreview), key(2, models.TierPreview)} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s evicted, want resident", k)
		}
	}

	// Filling with full entries only ever displaces full entries.
	for page := 4; page < 10; page++ {
		c.Put(key(page, models.TierFull), bitmap())
	}
	st := c.Stats()
	if st.Previews != 2 {
		t.Errorf("previews = %d, want 2", st.Previews)
	}
	if st.Bytes > st.Budget {
		t.Errorf("bytes %d over budget %d", st.Bytes, st.Budget)
	}
}

func TestCache_EvictsPreviewWhenNoFullLeft(t *testing.T) {
	c := New(128)
	c.Put(key(1, models.TierPreview), bitmap())
	c.Put(key(2, models.TierPreview), bitmap())
	c.Put(key(3, models.TierPreview), bitmap())

	if _, ok := c.Get(key(1, models.TierPreview)); ok {
		t.Error("oldest preview should be evicted")
	}
	if st := c.Stats(); st.Previews != 2 || st.Evictions != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCache_FullEntryNeverDisplacesPreviews(t *testing.T) {
	tests := []struct {
		name      string
		budget    int64
		previews  []int
		fullPages []int
		wantFulls int
		lastKept  bool
	}{
		{name: "preview of same page kept", budget: 128, previews: []int{1, 2}, fullPages: []int{1}, wantFulls: 0, lastKept: false},
		{name: "only preview in cache", budget: 64, previews: []int{1}, fullPages: []int{1}, wantFulls: 0, lastKept: false},
		{name: "older full evicted instead", budget: 192, previews: []int{1}, fullPages: []int{1, 2, 3}, wantFulls: 2, lastKept: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.budget)
			for _, page := range tt.previews {
				c.Put(key(page, models.TierPreview), bitmap())
			}
			var kept bool
			for _, page := range tt.fullPages {
				kept = c.Put(key(page, models.TierFull), bitmap())
			}
			if kept != tt.lastKept {
				t.Errorf("last Put = %v, want %v", kept, tt.lastKept)
			}
			for _, page := range tt.previews {
				if !c.Contains(key(page, models.TierPreview)) {
					t.Errorf("preview %d evicted by a full insert", page)
				}
			}
			st := c.Stats()
			if st.Fulls != tt.wantFulls || st.Previews != len(tt.previews) {
				t.Errorf("Stats = %+v, want %d fulls", st, tt.wantFulls)
			}
			if st.Bytes > st.Budget {
				t.Errorf("bytes %d over budget %d", st.Bytes, st.Budget)
			}
		})
	}
}

func TestCache_ContainsDoesNotTouchStats(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(1<<10, WithClock(func() time.Time { return now }))
	c.Put(key(1, models.TierPreview), bitmap())

	now = now.Add(time.Minute)
	if !c.Contains(key(1, models.TierPreview)) {
		t.Error("Contains missed a cached key")
	}
	if c.Contains(key(2, models.TierPreview)) {
		t.Error("Contains found an absent key")
	}
	if st := c.Stats(); st.Hits != 0 || st.Misses != 0 {
		t.Errorf("Stats = %+v, want no hits or misses", st)
	}
	e := c.entries[key(1, models.TierPreview)].Value.(*cacheEntry)
	if !e.lastAccess.Equal(now.Add(-time.Minute)) {
		t.Errorf("lastAccess = %v, want unchanged", e.lastAccess)
	}
}

func TestCache_OversizedBitmapRejected(t *testing.T) {
	c := New(32)
	if c.Put(key(1, models.TierFull), bitmap()) {
		t.Error("Put stored a bitmap larger than the budget")
	}
	if st := c.Stats(); st.Bytes != 0 {
		t.Errorf("bytes = %d, want 0", st.Bytes)
	}
}

func TestCache_Namespacing(t *testing.T) {
	c := New(1 << 10)
	c.Open("doc-a")
	c.Put(key(1, models.TierFull), bitmap())
	c.Put(key(2, models.TierPreview), bitmap())

	other := models.PageKey{GUID: "doc-b", Page: 1, Tier: models.TierFull}
	if _, ok := c.Get(other); ok {
		t.Error("other document must miss")
	}

	c.Open("doc-b")
	if st := c.Stats(); st.GUID != "doc-b" || st.Fulls+st.Previews != 0 {
		t.Errorf("Stats after switch = %+v", st)
	}
	if _, ok := c.Get(key(1, models.TierFull)); ok {
		t.Error("previous document entries must be dropped")
	}

	// Put for another document switches too.
	c.Put(other, bitmap())
	c.Put(key(5, models.TierFull), bitmap())
	if _, ok := c.Get(other); ok {
		t.Error("doc-b entry survived switch to doc-a")
	}
}

func TestCache_DropDocumentAndRemove(t *testing.T) {
	c := New(1 << 10)
	c.Put(key(1, models.TierFull), bitmap())
	c.Put(key(2, models.TierFull), bitmap())

	if !c.Remove(key(1, models.TierFull)) {
		t.Error("Remove reported missing key")
	}
	if c.Remove(key(1, models.TierFull)) {
		t.Error("second Remove reported present")
	}
	if n := c.DropDocument("doc-b"); n != 0 {
		t.Errorf("DropDocument(other) = %d, want 0", n)
	}
	if n := c.DropDocument("doc-a"); n != 1 {
		t.Errorf("DropDocument = %d, want 1", n)
	}
	if st := c.Stats(); st.Bytes != 0 {
		t.Errorf("bytes = %d after drop", st.Bytes)
	}
}

func TestCache_LastAccessUpdatedOnHit(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(1<<10, WithClock(func() time.Time { return now }))
	c.Put(key(1, models.TierFull), bitmap())

	now = now.Add(time.Minute)
	c.Get(key(1, models.TierFull))

	e := c.entries[key(1, models.TierFull)].Value.(*cacheEntry)
	if !e.lastAccess.Equal(now) {
		t.Errorf("lastAccess = %v, want %v", e.lastAccess, now)
	}
}

func TestBitmapBytes(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want int64
	}{
		{"rgba", image.NewRGBA(image.Rect(0, 0, 10, 10)), 400},
		{"gray", image.NewGray(image.Rect(0, 0, 10, 10)), 100},
		{"ycbcr 420", image.NewYCbCr(image.Rect(0, 0, 10, 10), image.YCbCrSubsampleRatio420), 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bitmapBytes(tt.img); got != tt.want {
				t.Errorf("bitmapBytes = %d, want %d", got, tt.want)
			}
		})
	}
}
