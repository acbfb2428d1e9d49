package models

import "fmt"

// Tier is the resolution class of a cached page bitmap.
type Tier int

const (
	// TierPreview is the cheap low-resolution bitmap shown while the full render is pending.
	TierPreview Tier = iota
	// TierFull is the high-resolution bitmap.
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierPreview:
		return "preview"
	case TierFull:
		return "full"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// PageKey identifies one bitmap of one page of one document.
type PageKey struct {
	GUID string
	Page int
	Tier Tier
}

func (k PageKey) String() string {
	return fmt.Sprintf("%s/%d/%s", k.GUID, k.Page, k.Tier)
}
