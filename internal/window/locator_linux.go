//go:build linux

package window

import (
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// x11Locator resolves windows through xdotool, the same shell-out style the
// capture backends use for screenshots.
type x11Locator struct{}

// New creates the X11 window locator.
func New() Locator {
	if _, err := exec.LookPath("xdotool"); err != nil {
		slog.Warn("xdotool not found, window resolution will fail until installed")
	}
	return &x11Locator{}
}

func (l *x11Locator) Resolve(titleSubstring string) (*Handle, error) {
	out, err := exec.Command("xdotool", "search", "--onlyvisible", "--name", ".").Output()
	if err != nil {
		return nil, ErrNotFound
	}

	var candidates []*Handle
	for _, line := range strings.Fields(string(out)) {
		id, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			continue
		}
		title := windowName(id)
		if title == "" || !matchesTitle(title, titleSubstring) {
			continue
		}
		h := &Handle{ID: uintptr(id), Title: title, Visible: true}
		h.Rect = windowGeometry(id)
		// X11 has no iconified query via xdotool; an off-screen or
		// zero-sized window is treated as minimized.
		h.Minimized = h.Rect.W < 10 || h.Rect.H < 10
		candidates = append(candidates, h)
	}

	best := selectBest(candidates, titleSubstring)
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (l *x11Locator) IsValid(h *Handle) bool {
	if h == nil || h.ID == 0 {
		return false
	}
	return windowName(uint64(h.ID)) != ""
}

func windowName(id uint64) string {
	out, err := exec.Command("xdotool", "getwindowname", strconv.FormatUint(id, 10)).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func windowGeometry(id uint64) Rect {
	out, err := exec.Command("xdotool", "getwindowgeometry", "--shell", strconv.FormatUint(id, 10)).Output()
	if err != nil {
		return Rect{}
	}
	var r Rect
	for _, line := range strings.Split(string(out), "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch k {
		case "X":
			r.X = n
		case "Y":
			r.Y = n
		case "WIDTH":
			r.W = n
		case "HEIGHT":
			r.H = n
		}
	}
	return r
}
