package monitor

import (
	"time"

	"github.com/corona10/goimagehash"

	"github.com/gamewatch/gamewatch/internal/alert"
	"github.com/gamewatch/gamewatch/internal/imaging"
)

// DetectionRecord is one history entry for the dashboard.
type DetectionRecord struct {
	Alert      string    `json:"alert"`
	Confidence float64   `json:"confidence"`
	Fired      bool      `json:"fired"`
	Time       time.Time `json:"time"`
}

// sourceState is the per-source runtime state owned by the monitor loop.
type sourceState struct {
	lastFrame   *imaging.Frame
	lastCapture time.Time
	lastMethod  string
	failures    int
	windowFound bool
	degenerate  bool

	lastHash       *goimagehash.ImageHash
	lastDegenNote  time.Time
	lastDetections map[string]alert.Detection

	history []DetectionRecord
}

func (s *sourceState) record(rec DetectionRecord) {
	s.history = append(s.history, rec)
	if len(s.history) > HistoryLen {
		s.history = s.history[len(s.history)-HistoryLen:]
	}
}

// WindowSnapshot describes the resolved window backing a source.
type WindowSnapshot struct {
	Title     string `json:"title"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	W         int    `json:"w"`
	H         int    `json:"h"`
	Minimized bool   `json:"minimized"`
}

// SourceSnapshot is the dashboard view of one source.
type SourceSnapshot struct {
	ID          string            `json:"id"`
	WindowTitle string            `json:"window_title"`
	WindowFound bool              `json:"window_found"`
	Window      *WindowSnapshot   `json:"window,omitempty"`
	Degenerate  bool              `json:"degenerate"`
	Failures    int               `json:"consecutive_failures"`
	LastCapture time.Time         `json:"last_capture,omitzero"`
	LastMethod  string            `json:"last_method,omitempty"`
	History     []DetectionRecord `json:"history,omitempty"`
}

// lastMatch keeps the most recent clearing match per alert so user feedback
// can be attached to the pixels that triggered it.
type lastMatch struct {
	confidence float64
	region     *imaging.Frame
}
