// Package monitor runs the capture/detect cycle across all configured
// sources and feeds results into the alert pipeline.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/gamewatch/gamewatch/internal/alert"
	"github.com/gamewatch/gamewatch/internal/capture"
	"github.com/gamewatch/gamewatch/internal/config"
	"github.com/gamewatch/gamewatch/internal/imaging"
	"github.com/gamewatch/gamewatch/internal/learn"
	"github.com/gamewatch/gamewatch/internal/match"
	"github.com/gamewatch/gamewatch/internal/notify"
	"github.com/gamewatch/gamewatch/internal/syncx"
	"github.com/gamewatch/gamewatch/internal/template"
	"github.com/gamewatch/gamewatch/internal/trace"
)

// Monitor owns one detection context: the template store, the learning
// filter, and per-source runtime state. Everything is passed in explicitly;
// nothing lives in package globals.
type Monitor struct {
	cfg      *syncx.RWGuard[*config.Config]
	orch     *capture.Orchestrator
	engine   *match.Engine
	store    *template.Store
	filter   *learn.Filter
	pipeline *alert.Pipeline
	queue    *notify.Queue

	mu      sync.Mutex
	states  map[string]*sourceState
	matches map[string]*lastMatch
	cycles  int64
}

// New wires a monitor from its collaborators and registers the initial
// config's sources.
func New(cfg *config.Config, orch *capture.Orchestrator, store *template.Store,
	engine *match.Engine, filter *learn.Filter, pipeline *alert.Pipeline,
	queue *notify.Queue) *Monitor {

	m := &Monitor{
		cfg:      syncx.NewGuard(cfg),
		orch:     orch,
		engine:   engine,
		store:    store,
		filter:   filter,
		pipeline: pipeline,
		queue:    queue,
		states:   make(map[string]*sourceState),
		matches:  make(map[string]*lastMatch),
	}
	m.syncSources(cfg)
	return m
}

// UpdateConfig swaps in a new config snapshot (hot reload). Sources are
// added and removed in place; running state for surviving sources is kept.
func (m *Monitor) UpdateConfig(cfg *config.Config) {
	m.cfg.Set(cfg)
	m.syncSources(cfg)
}

func (m *Monitor) syncSources(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[string]bool, len(cfg.Sources))
	for _, src := range cfg.Sources {
		want[src.ID] = true
		m.orch.AddSource(src.ID, src.WindowTitle)
		if src.MethodHint != "" {
			if hint, err := capture.ParseMethod(src.MethodHint); err == nil {
				m.orch.SetMethodHint(src.ID, hint)
			} else {
				slog.Warn("ignoring bad method hint", "source", src.ID, "hint", src.MethodHint)
			}
		}
		if _, ok := m.states[src.ID]; !ok {
			m.states[src.ID] = &sourceState{lastDetections: make(map[string]alert.Detection)}
		}
	}
	for id := range m.states {
		if !want[id] {
			delete(m.states, id)
			m.orch.RemoveSource(id)
		}
	}
}

// Run executes capture/detect cycles until the context is cancelled. The
// sleep between cycles shrinks as cycles get slower but never below MinSleep.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("monitor started")
	for {
		start := time.Now()
		m.runCycle()

		sleep := m.cfg.Get().PollInterval() - time.Since(start)
		if sleep < MinSleep {
			sleep = MinSleep
		}
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return
		case <-time.After(sleep):
		}
	}
}

func (m *Monitor) runCycle() {
	cfg := m.cfg.Get()
	for _, src := range cfg.Sources {
		m.processSource(cfg, src)
	}

	m.mu.Lock()
	m.cycles++
	cycles := m.cycles
	m.mu.Unlock()
	if cycles%StatsReportCycles == 0 {
		var keep []string
		for _, a := range cfg.Alerts {
			keep = append(keep, a.Templates...)
		}
		if dropped := m.store.Prune(keep); dropped > 0 {
			slog.Info("template cache pruned", "dropped", dropped)
		}
		snap := m.orch.Stats().Snapshot()
		slog.Info("cycle statistics",
			"cycles", cycles,
			"captures", snap.SuccessfulCaptures,
			"capture_success_rate", fmt.Sprintf("%.1f%%", snap.SuccessRate),
			"cached_templates", m.store.Len())
	}
}

// processSource runs one source's capture and detection. A panic in one
// source is contained so the others keep running.
func (m *Monitor) processSource(cfg *config.Config, src config.SourceConfig) {
	_, span := trace.StartSpan(context.Background(), "source_cycle")
	span.SetAttr("source", src.ID)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("source cycle panicked", "source", src.ID, "panic", r)
		}
		span.End()
		slog.Debug("source cycle complete", "span", span)
	}()

	st := m.state(src.ID)
	res, ok := m.orch.CaptureSource(src.ID)
	if !ok {
		m.mu.Lock()
		st.windowFound = false
		st.failures++
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	st.windowFound = true
	st.failures = 0
	st.lastFrame = res.Frame
	st.lastCapture = time.Now()
	st.lastMethod = res.Method.String()
	m.mu.Unlock()

	if res.Frame.IsDegenerate() {
		m.handleDegenerate(src.ID, st)
		return
	}
	m.mu.Lock()
	st.degenerate = false
	m.mu.Unlock()

	unchanged := m.frameUnchanged(st, res.Frame)
	for _, a := range cfg.Alerts {
		if !a.IsEnabled() {
			continue
		}
		var det alert.Detection
		if unchanged {
			det = st.lastDetections[a.Name]
		} else {
			det = m.detect(src.ID, res.Frame, a)
			m.mu.Lock()
			st.lastDetections[a.Name] = det
			m.mu.Unlock()
		}
		fired := m.pipeline.Observe(src.ID, a.Name, det, a.Cooldown())
		if det.Hit || fired {
			m.mu.Lock()
			st.record(DetectionRecord{Alert: a.Name, Confidence: det.Confidence, Fired: fired, Time: time.Now()})
			m.mu.Unlock()
		}
		if fired {
			m.queue.Enqueue(notify.Notification{
				Title:    "gamewatch: " + a.Name,
				Message:  fmt.Sprintf("detected in %s (%.0f%% confidence)", src.ID, det.Confidence*100),
				Duration: 8 * time.Second,
			})
			m.dumpDebug(cfg.DebugDir, src.ID, a.Name, res.Frame, det)
		}
	}
}

// detect matches one alert's templates against the frame and applies
// threshold adjustment plus false-positive suppression.
func (m *Monitor) detect(sourceID string, frame *imaging.Frame, a config.AlertConfig) alert.Detection {
	strategy, err := match.ParseStrategy(a.Strategy)
	if err != nil {
		strategy = match.Best
	}
	threshold := m.filter.AdjustedThreshold(a.Name, a.Threshold)

	res, ok := m.engine.Match(frame, a.Templates, threshold, strategy)
	if !ok {
		return alert.Detection{}
	}

	best := res.Best
	conf := best.Confidence
	region := frame.SubRegion(best.X, best.Y, best.W, best.H)
	if region != nil && m.filter.ShouldSuppress(a.Name, region) {
		conf *= learn.SuppressionFactor
		slog.Info("detection suppressed as likely false positive",
			"source", sourceID, "alert", a.Name,
			"raw_confidence", best.Confidence, "effective", conf)
	}
	if conf < threshold {
		return alert.Detection{}
	}

	m.mu.Lock()
	m.matches[a.Name] = &lastMatch{confidence: conf, region: region}
	m.mu.Unlock()

	return alert.Detection{
		Hit:        true,
		Confidence: conf,
		Template:   best.TemplatePath,
		X:          best.X, Y: best.Y, W: best.W, H: best.H,
		Scale: best.Scale,
	}
}

// frameUnchanged compares the frame's perception hash against the previous
// cycle. Near-identical frames skip the matching scan entirely; the previous
// cycle's detections are replayed so alert state keeps advancing.
func (m *Monitor) frameUnchanged(st *sourceState, frame *imaging.Frame) bool {
	hash, err := goimagehash.PerceptionHash(frame.ToImage())
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	prev := st.lastHash
	if prev == nil {
		st.lastHash = hash
		return false
	}
	dist, err := prev.Distance(hash)
	if err != nil || dist > MaxHashDistance {
		st.lastHash = hash
		return false
	}
	return true
}

// handleDegenerate notes an all-black/flat capture and notifies the user at
// most once per DegenerateNotifyInterval per source.
func (m *Monitor) handleDegenerate(sourceID string, st *sourceState) {
	m.mu.Lock()
	st.degenerate = true
	due := time.Since(st.lastDegenNote) >= DegenerateNotifyInterval
	if due {
		st.lastDegenNote = time.Now()
	}
	m.mu.Unlock()

	slog.Warn("captured frame is degenerate", "source", sourceID)
	if due {
		m.queue.Enqueue(notify.Notification{
			Title:    "gamewatch: capture problem",
			Message:  fmt.Sprintf("window %q captures as a black screen; try another capture method", sourceID),
			Duration: 10 * time.Second,
		})
	}
}

// RecordFeedback forwards a user's accept/reject decision for an alert's
// most recent match to the learning filter.
func (m *Monitor) RecordFeedback(alertName string, accepted bool) error {
	m.mu.Lock()
	lm := m.matches[alertName]
	m.mu.Unlock()
	if lm == nil {
		return fmt.Errorf("monitor: no recorded match for alert %q", alertName)
	}
	m.filter.RecordFeedback(alertName, lm.confidence, accepted, lm.region)
	return nil
}

// Frame returns the most recent captured frame for a source.
func (m *Monitor) Frame(sourceID string) (*imaging.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[sourceID]
	if !ok || st.lastFrame == nil {
		return nil, false
	}
	return st.lastFrame, true
}

// Snapshot lists every source's runtime state for the dashboard.
func (m *Monitor) Snapshot() []SourceSnapshot {
	cfg := m.cfg.Get()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SourceSnapshot, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		st, ok := m.states[src.ID]
		if !ok {
			continue
		}
		snap := SourceSnapshot{
			ID:          src.ID,
			WindowTitle: src.WindowTitle,
			WindowFound: st.windowFound,
			Degenerate:  st.degenerate,
			Failures:    st.failures,
			LastCapture: st.lastCapture,
			LastMethod:  st.lastMethod,
		}
		if h := m.orch.WindowInfo(src.ID); h != nil {
			snap.Window = &WindowSnapshot{
				Title:     h.Title,
				X:         h.Rect.X,
				Y:         h.Rect.Y,
				W:         h.Rect.W,
				H:         h.Rect.H,
				Minimized: h.Minimized,
			}
		}
		snap.History = append(snap.History, st.history...)
		out = append(out, snap)
	}
	return out
}

// ResetStats clears per-source failure counters and detection history along
// with the aggregate capture statistics.
func (m *Monitor) ResetStats() {
	m.orch.Stats().Reset()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.states {
		st.failures = 0
		st.history = nil
	}
}

// Config returns the current config snapshot.
func (m *Monitor) Config() *config.Config { return m.cfg.Get() }

func (m *Monitor) state(id string) *sourceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		st = &sourceState{lastDetections: make(map[string]alert.Detection)}
		m.states[id] = st
	}
	return st
}
