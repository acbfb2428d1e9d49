package pagewindow

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/hyperjump/folio/internal/models"
)

func newCache(t *testing.T, pages, buffer int) *Cache {
	t.Helper()
	c, err := New(pages, buffer, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(0, 2); err == nil {
		t.Error("expected error for zero pages")
	}
	if _, err := New(10, -1); err == nil {
		t.Error("expected error for negative buffer")
	}
}

func TestNew_WindowSizeCappedByPageCount(t *testing.T) {
	if got := newCache(t, 100, 2).WindowSize(); got != 5 {
		t.Errorf("WindowSize = %d, want 5", got)
	}
	if got := newCache(t, 3, 2).WindowSize(); got != 3 {
		t.Errorf("WindowSize = %d, want 3", got)
	}
}

func TestSetCurrentPage_JumpRecyclesWholeWindow(t *testing.T) {
	c := newCache(t, 100, 2)

	ch, err := c.SetCurrentPage(50)
	if err != nil {
		t.Fatalf("SetCurrentPage(50): %v", err)
	}
	if diff := cmp.Diff([]int{48, 49, 50, 51, 52}, c.Resident()); diff != "" {
		t.Errorf("resident mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{50, 49, 51, 48, 52}, ch.Assigned); diff != "" {
		t.Errorf("assigned order mismatch (-want +got):\n%s", diff)
	}
	if len(ch.Released) != 0 {
		t.Errorf("released = %v, want none", ch.Released)
	}

	ch, err = c.SetCurrentPage(3)
	if err != nil {
		t.Fatalf("SetCurrentPage(3): %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, c.Resident()); diff != "" {
		t.Errorf("resident mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{48, 49, 50, 51, 52}, ch.Released); diff != "" {
		t.Errorf("released mismatch (-want +got):\n%s", diff)
	}
	if ch.First != 1 || ch.Last != 5 {
		t.Errorf("window = [%d, %d], want [1, 5]", ch.First, ch.Last)
	}
}

func TestSetCurrentPage_StepKeepsOverlap(t *testing.T) {
	c := newCache(t, 100, 2)
	if _, err := c.SetCurrentPage(10); err != nil {
		t.Fatal(err)
	}
	before, _ := c.SlotFor(11)

	ch, err := c.SetCurrentPage(11)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{13}, ch.Assigned); diff != "" {
		t.Errorf("assigned mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{8}, ch.Released); diff != "" {
		t.Errorf("released mismatch (-want +got):\n%s", diff)
	}
	after, ok := c.SlotFor(11)
	if !ok || after.Position != before.Position {
		t.Errorf("page 11 moved from slot %d to %d", before.Position, after.Position)
	}
}

func TestSetCurrentPage_ClipsAtEdges(t *testing.T) {
	tests := []struct {
		name  string
		pages int
		page  int
		want  []int
	}{
		{"first page", 100, 1, []int{1, 2, 3}},
		{"second page", 100, 2, []int{1, 2, 3, 4}},
		{"last page", 100, 100, []int{98, 99, 100}},
		{"short document", 2, 1, []int{1, 2}},
		{"single page", 1, 1, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCache(t, tt.pages, 2)
			if _, err := c.SetCurrentPage(tt.page); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, c.Resident()); diff != "" {
				t.Errorf("resident mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetCurrentPage_OutOfRange(t *testing.T) {
	c := newCache(t, 10, 1)
	if _, err := c.SetCurrentPage(4); err != nil {
		t.Fatal(err)
	}
	for _, page := range []int{0, -1, 11} {
		if _, err := c.SetCurrentPage(page); !errors.Is(err, models.ErrOutOfRange) {
			t.Errorf("SetCurrentPage(%d) = %v, want ErrOutOfRange", page, err)
		}
	}
	if c.Current() != 4 {
		t.Errorf("Current = %d after rejected moves, want 4", c.Current())
	}
	if diff := cmp.Diff([]int{3, 4, 5}, c.Resident()); diff != "" {
		t.Errorf("resident changed (-want +got):\n%s", diff)
	}
}

func TestSetCurrentPage_NeverExceedsWindow(t *testing.T) {
	c := newCache(t, 40, 3)
	walk := []int{1, 40, 20, 21, 19, 5, 6, 7, 38, 2, 2, 39}
	for _, page := range walk {
		if _, err := c.SetCurrentPage(page); err != nil {
			t.Fatalf("SetCurrentPage(%d): %v", page, err)
		}
		resident := c.Resident()
		if len(resident) > c.WindowSize() {
			t.Fatalf("page %d: %d resident, window %d", page, len(resident), c.WindowSize())
		}
		first, last := c.Window(page)
		if len(resident) != last-first+1 {
			t.Errorf("page %d: resident %v, want all of [%d, %d]", page, resident, first, last)
		}
		seen := make(map[int]bool)
		for pos := 0; pos < c.WindowSize(); pos++ {
			s := c.slots[pos]
			if s.Page == 0 {
				continue
			}
			if seen[s.Page] {
				t.Fatalf("page %d held by two slots", s.Page)
			}
			seen[s.Page] = true
		}
	}
}

func TestSetView(t *testing.T) {
	c := newCache(t, 10, 1)
	if _, err := c.SetCurrentPage(5); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if !c.SetView(5, View{Image: img, Tier: models.TierFull}) {
		t.Fatal("SetView on resident page returned false")
	}
	if c.SetView(9, View{Image: img}) {
		t.Error("SetView on non-resident page returned true")
	}
	s, ok := c.SlotFor(5)
	if !ok || !s.View.Ready() {
		t.Errorf("slot for 5 = %+v, want ready view", s)
	}

	// A recycled slot starts with an empty view.
	if _, err := c.SetCurrentPage(9); err != nil {
		t.Fatal(err)
	}
	s, _ = c.SlotFor(10)
	if s.View.Image != nil {
		t.Error("recycled slot kept the previous page's image")
	}
}

func TestReleaseAll(t *testing.T) {
	c := newCache(t, 10, 1)
	if _, err := c.SetCurrentPage(5); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 5, 6}, c.ReleaseAll()); diff != "" {
		t.Errorf("released mismatch (-want +got):\n%s", diff)
	}
	if len(c.Resident()) != 0 {
		t.Errorf("resident after ReleaseAll = %v", c.Resident())
	}
	if _, ok := c.SlotFor(5); ok {
		t.Error("SlotFor(5) still resident")
	}
}
