//go:build darwin

package window

import (
	"os/exec"
	"strconv"
	"strings"
)

// macLocator enumerates windows through System Events, the same osascript
// route the capture backend uses.
type macLocator struct{}

// New creates the macOS window locator.
func New() Locator { return &macLocator{} }

const enumScript = `tell application "System Events"
	set out to ""
	repeat with proc in (every process whose background only is false)
		repeat with win in (every window of proc)
			set {x, y} to position of win
			set {w, h} to size of win
			set out to out & (name of proc) & "|" & (name of win) & "|" & x & "|" & y & "|" & w & "|" & h & linefeed
		end repeat
	end repeat
	return out
end tell`

func (l *macLocator) Resolve(titleSubstring string) (*Handle, error) {
	out, err := exec.Command("osascript", "-e", enumScript).Output()
	if err != nil {
		return nil, ErrNotFound
	}

	var candidates []*Handle
	for i, line := range strings.Split(string(out), "\n") {
		parts := strings.SplitN(line, "|", 6)
		if len(parts) != 6 {
			continue
		}
		title := parts[1]
		if title == "" || !matchesTitle(title, titleSubstring) {
			continue
		}
		h := &Handle{
			// System Events has no stable numeric id; the line index plus
			// title is enough since handles are re-validated by title.
			ID:      uintptr(i + 1),
			Title:   title,
			Process: parts[0],
			Visible: true,
		}
		h.Rect.X = atoi(parts[2])
		h.Rect.Y = atoi(parts[3])
		h.Rect.W = atoi(parts[4])
		h.Rect.H = atoi(parts[5])
		candidates = append(candidates, h)
	}

	best := selectBest(candidates, titleSubstring)
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (l *macLocator) IsValid(h *Handle) bool {
	if h == nil || h.Title == "" {
		return false
	}
	found, err := l.Resolve(h.Title)
	return err == nil && found.Title == h.Title
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
