// Package pagebar maps between scrubber positions and page numbers.
//
// Positions are fractions in [0, 1]: page 1 sits at 0 and the last page at 1.
// The two mappings are exact inverses over valid pages, so dragging the scrubber
// back to where a page put it never lands on a neighbour.
package pagebar

import (
	"fmt"
	"math"

	"github.com/hyperjump/folio/pkg/utils"
)

// Navigator receives page-change intents.
type Navigator interface {
	GotoPage(page int) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(page int) error

// GotoPage calls f(page).
func (f NavigatorFunc) GotoPage(page int) error { return f(page) }

// PositionFor returns the scrubber position of page. A document of at most one
// page always sits at 0. Pages outside [1, pageCount] are clamped.
func PositionFor(page, pageCount int) float64 {
	if pageCount <= 1 {
		return 0
	}
	page = utils.Clamp(page, 1, pageCount)
	return float64(page-1) / float64(pageCount-1)
}

// PageForPosition returns the page nearest to fraction, clamped to [1, pageCount].
// It returns 0 only when pageCount < 1.
func PageForPosition(fraction float64, pageCount int) int {
	if pageCount < 1 {
		return 0
	}
	if math.IsNaN(fraction) || pageCount == 1 {
		return 1
	}
	fraction = math.Max(0, math.Min(1, fraction))
	page := int(math.Round(fraction*float64(pageCount-1))) + 1
	return utils.Clamp(page, 1, pageCount)
}

// Label is the pagebar caption, "N of M".
func Label(page, pageCount int) string {
	return fmt.Sprintf("%d of %d", page, pageCount)
}

// State is what the pagebar shows for the current page.
type State struct {
	Page      int
	PageCount int
	Position  float64
	Label     string
}

// StateFor derives the pagebar state for page.
func StateFor(page, pageCount int) State {
	return State{
		Page:      page,
		PageCount: pageCount,
		Position:  PositionFor(page, pageCount),
		Label:     Label(page, pageCount),
	}
}

// Model turns scrub gestures into navigation intents. It holds no page state;
// the navigator applies the intent and owns the current page.
type Model struct {
	nav Navigator
}

// NewModel returns a Model that sends intents to nav.
func NewModel(nav Navigator) *Model {
	return &Model{nav: nav}
}

// OnScrub resolves fraction to a page and asks the navigator to go there.
// It returns the target page.
func (m *Model) OnScrub(fraction float64, pageCount int) (int, error) {
	page := PageForPosition(fraction, pageCount)
	if page == 0 {
		return 0, fmt.Errorf("cannot scrub an empty document")
	}
	if err := m.nav.GotoPage(page); err != nil {
		return page, err
	}
	return page, nil
}

// Preview returns the page whose small thumbnail is shown while the scrubber is
// held at fraction.
func (m *Model) Preview(fraction float64, pageCount int) int {
	return PageForPosition(fraction, pageCount)
}
