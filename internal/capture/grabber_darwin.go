//go:build darwin

package capture

import (
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/gamewatch/gamewatch/internal/imaging"
	"github.com/gamewatch/gamewatch/internal/window"
)

// screencaptureGrabber uses the system screencapture utility with a region
// argument. Off-screen window rendering is not reachable from a shell tool,
// so only the screen-based methods are supported.
type screencaptureGrabber struct{}

// NewGrabber creates the macOS frame grabber.
func NewGrabber() Grabber { return &screencaptureGrabber{} }

func (g *screencaptureGrabber) Capture(h *window.Handle, m Method) (*imaging.Frame, error) {
	switch m {
	case ScreenRegion, LibraryGrab:
	default:
		return nil, ErrUnsupported
	}
	if !validDims(h) {
		return nil, ErrInvalidHandle
	}
	if h.Minimized {
		return nil, ErrNotVisible
	}

	dir, err := os.MkdirTemp("", "gamewatch-grab")
	if err != nil {
		return nil, fmt.Errorf("capture: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "window.png")

	rect := strconv.Itoa(h.Rect.X) + "," + strconv.Itoa(h.Rect.Y) + "," +
		strconv.Itoa(h.Rect.W) + "," + strconv.Itoa(h.Rect.H)
	if err := exec.Command("screencapture", "-x", "-R", rect, out).Run(); err != nil {
		return nil, fmt.Errorf("capture: screencapture: %w", err)
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, ErrEmptyFrame
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("capture: decode screenshot: %w", err)
	}
	frame := imaging.FromImage(img)
	// Retina captures come back at 2x; scale down to window coordinates.
	if frame.W != h.Rect.W && frame.W > 0 && h.Rect.W > 0 {
		frame = frame.Resize(h.Rect.W, h.Rect.H)
	}
	return frame, nil
}
