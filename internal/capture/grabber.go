package capture

import (
	"github.com/gamewatch/gamewatch/internal/imaging"
	"github.com/gamewatch/gamewatch/internal/window"
)

// Grabber captures a window's pixels using one specific method. Failures are
// returned as errors, never panics: an invalid handle, a zero-sized window,
// or a primitive reporting failure all come back as a nil frame plus one of
// the package error kinds.
type Grabber interface {
	Capture(h *window.Handle, m Method) (*imaging.Frame, error)
}

// validDims checks that a handle has a usable rectangle.
func validDims(h *window.Handle) bool {
	return h != nil && h.Rect.W > 0 && h.Rect.H > 0
}
