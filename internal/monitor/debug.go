package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gamewatch/gamewatch/internal/alert"
	"github.com/gamewatch/gamewatch/internal/imaging"
)

// debugSidecar is the JSON metadata written next to each debug capture.
type debugSidecar struct {
	Source     string    `json:"source"`
	Alert      string    `json:"alert"`
	Time       time.Time `json:"time"`
	Confidence float64   `json:"confidence"`
	Template   string    `json:"template"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	W          int       `json:"w"`
	H          int       `json:"h"`
	Scale      float64   `json:"scale"`
}

// dumpDebug writes the fired frame as PNG plus a JSON sidecar. A failure
// here only logs; debug output never affects detection.
func (m *Monitor) dumpDebug(dir, sourceID, alertName string, frame *imaging.Frame, det alert.Detection) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("debug dir unavailable", "dir", dir, "error", err)
		return
	}

	now := time.Now()
	base := filepath.Join(dir, fmt.Sprintf("%s_%s_%s", sourceID, alertName, now.Format("20060102_150405.000")))

	f, err := os.Create(base + ".png")
	if err != nil {
		slog.Warn("debug frame not written", "error", err)
		return
	}
	encErr := frame.EncodePNG(f)
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		slog.Warn("debug frame not written", "encode", encErr, "close", closeErr)
		return
	}

	meta := debugSidecar{
		Source:     sourceID,
		Alert:      alertName,
		Time:       now,
		Confidence: det.Confidence,
		Template:   det.Template,
		X:          det.X, Y: det.Y, W: det.W, H: det.H,
		Scale: det.Scale,
	}
	blob, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(base+".json", blob, 0o644); err != nil {
		slog.Warn("debug sidecar not written", "error", err)
	}
}
