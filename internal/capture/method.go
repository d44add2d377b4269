// Package capture grabs window pixel content with multiple strategies and
// self-tuning fallback across them.
package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/gamewatch/gamewatch/internal/imaging"
)

// Method identifies one capture strategy.
type Method int

const (
	// FullContentPrint asks the compositor to render the full window
	// content off-screen. Works for minimized and occluded windows;
	// the default preference for game windows.
	FullContentPrint Method = iota
	// BasicPrint is the same primitive without the full-content flag.
	// Faster, but GPU-accelerated windows may come back blank.
	BasicPrint
	// BlockCopy is a direct device-context bit copy. Fastest; fails for
	// occluded or minimized windows.
	BlockCopy
	// ScreenRegion captures the screen at the window's rectangle.
	// Only valid when the window is actually visible and unoccluded.
	ScreenRegion
	// LibraryGrab is the generic screen-grab fallback. Same visibility
	// constraint as ScreenRegion, slowest.
	LibraryGrab

	methodCount
)

func (m Method) String() string {
	switch m {
	case FullContentPrint:
		return "full-content-print"
	case BasicPrint:
		return "basic-print"
	case BlockCopy:
		return "block-copy"
	case ScreenRegion:
		return "screen-region"
	case LibraryGrab:
		return "library-grab"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod maps a config string to a Method.
func ParseMethod(s string) (Method, error) {
	for m := Method(0); m < methodCount; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("capture: unknown method %q", s)
}

// fallbackOrder is the fixed probe order when no method is remembered.
var fallbackOrder = []Method{FullContentPrint, BlockCopy, ScreenRegion, LibraryGrab}

// Capture failure kinds. All are recoverable; none crosses a cycle boundary.
var (
	ErrUnsupported   = errors.New("capture: method not supported on this platform")
	ErrInvalidHandle = errors.New("capture: invalid window handle")
	ErrEmptyFrame    = errors.New("capture: primitive returned no pixels")
	ErrNotVisible    = errors.New("capture: window not visible on screen")
)

// Result is one successful capture: the frame plus how it was obtained.
type Result struct {
	Frame    *imaging.Frame
	Method   Method
	Duration time.Duration
}
