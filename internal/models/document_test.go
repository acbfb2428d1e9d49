package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestRecord(pages int) *DocumentRecord {
	return NewDocumentRecord("guid-1", "book.pdf", "/docs/book.pdf", time.Unix(0, 0), 1024, "", pages)
}

func TestNewDocumentRecord(t *testing.T) {
	rec := newTestRecord(10)
	if rec.PageNumber != 1 {
		t.Errorf("PageNumber = %d, want 1", rec.PageNumber)
	}
	if len(rec.Bookmarks()) != 0 {
		t.Errorf("Bookmarks = %v, want empty", rec.Bookmarks())
	}
}

func TestDocumentRecord_ToggleBookmark(t *testing.T) {
	rec := newTestRecord(10)
	for _, p := range []int{7, 2, 9} {
		on, err := rec.ToggleBookmark(p)
		if err != nil || !on {
			t.Fatalf("ToggleBookmark(%d) = %v, %v", p, on, err)
		}
	}
	if diff := cmp.Diff([]int{2, 7, 9}, rec.Bookmarks()); diff != "" {
		t.Errorf("Bookmarks mismatch (-want +got):\n%s", diff)
	}
	on, err := rec.ToggleBookmark(7)
	if err != nil || on {
		t.Fatalf("second ToggleBookmark(7) = %v, %v", on, err)
	}
	if rec.IsBookmarked(7) {
		t.Error("page 7 should no longer be bookmarked")
	}
	if _, err := rec.ToggleBookmark(11); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("ToggleBookmark(11) err = %v, want ErrOutOfRange", err)
	}
}

func TestDocumentRecord_SetPageNumber(t *testing.T) {
	rec := newTestRecord(5)
	tests := []struct {
		page    int
		wantErr bool
	}{
		{1, false},
		{5, false},
		{0, true},
		{6, true},
		{-1, true},
	}
	for _, tt := range tests {
		err := rec.SetPageNumber(tt.page)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetPageNumber(%d) err = %v, wantErr %v", tt.page, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetPageNumber(%d) err = %v, want ErrOutOfRange", tt.page, err)
		}
	}
	if rec.PageNumber != 5 {
		t.Errorf("PageNumber = %d, want 5 (last valid)", rec.PageNumber)
	}
}

func TestDocumentRecord_SetBookmarksDropsInvalid(t *testing.T) {
	rec := newTestRecord(5)
	rec.SetBookmarks([]int{0, 3, 3, 6, 1})
	if diff := cmp.Diff([]int{1, 3}, rec.Bookmarks()); diff != "" {
		t.Errorf("Bookmarks mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentRecord_SnapshotIsIndependent(t *testing.T) {
	rec := newTestRecord(5)
	_, _ = rec.ToggleBookmark(2)
	snap := rec.Snapshot()
	_, _ = rec.ToggleBookmark(4)
	_ = rec.SetPageNumber(3)
	if diff := cmp.Diff([]int{2}, snap.Bookmarks()); diff != "" {
		t.Errorf("snapshot bookmarks changed (-want +got):\n%s", diff)
	}
	if snap.PageNumber != 1 {
		t.Errorf("snapshot PageNumber = %d, want 1", snap.PageNumber)
	}
}

func TestTierString(t *testing.T) {
	if TierPreview.String() != "preview" || TierFull.String() != "full" {
		t.Errorf("unexpected tier names: %s, %s", TierPreview, TierFull)
	}
	key := PageKey{GUID: "g", Page: 3, Tier: TierFull}
	if key.String() != "g/3/full" {
		t.Errorf("PageKey.String() = %q", key.String())
	}
}
