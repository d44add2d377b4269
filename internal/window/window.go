// Package window resolves live OS window handles by title substring.
package window

import (
	"strings"

	apperr "github.com/gamewatch/gamewatch/internal/errors"
)

// ErrNotFound means no visible top-level window matched the title. This is an
// expected outcome (the game may not be running yet); callers retry next cycle.
var ErrNotFound = apperr.New(apperr.KindResolution, "no matching window")

// Rect is a window's bounding rectangle in screen coordinates.
type Rect struct {
	X, Y, W, H int
}

// Handle is a resolved reference to a top-level window. It is a snapshot:
// validity must be re-checked with Locator.IsValid before reuse.
type Handle struct {
	ID        uintptr
	Title     string
	Process   string
	Rect      Rect
	Visible   bool
	Minimized bool
	Cloaked   bool
}

// Locator finds and validates window handles.
type Locator interface {
	// Resolve performs a case-insensitive substring search over visible
	// top-level windows. Returns ErrNotFound when nothing matches.
	Resolve(titleSubstring string) (*Handle, error)

	// IsValid reports whether a previously resolved handle still refers to
	// a live window with a non-empty title.
	IsValid(h *Handle) bool
}

// selectBest picks the winner among candidate windows: exact title match
// first, then largest client area, then non-minimized over minimized.
func selectBest(candidates []*Handle, title string) *Handle {
	if len(candidates) == 0 {
		return nil
	}
	lower := strings.ToLower(title)

	var best *Handle
	for _, c := range candidates {
		if strings.ToLower(c.Title) == lower {
			return c
		}
		if best == nil {
			best = c
			continue
		}
		cArea := c.Rect.W * c.Rect.H
		bArea := best.Rect.W * best.Rect.H
		switch {
		case cArea > bArea:
			best = c
		case cArea == bArea && best.Minimized && !c.Minimized:
			best = c
		}
	}
	return best
}

// matchesTitle reports whether a window title contains the query, ignoring case.
func matchesTitle(windowTitle, query string) bool {
	return strings.Contains(strings.ToLower(windowTitle), strings.ToLower(query))
}
