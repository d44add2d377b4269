package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gamewatch/gamewatch/internal/imaging"
	"github.com/gamewatch/gamewatch/internal/resilience"
	"github.com/gamewatch/gamewatch/internal/window"
)

// SlowCaptureWarn is the per-attempt latency above which a capture is logged
// as slow. Captures are never cancelled mid-flight; slowness is only recorded.
const SlowCaptureWarn = 5 * time.Second

// sourceState is the per-source capture memory. Its own mutex serializes one
// source's capture cycle against hint and registration updates from the
// config-reload goroutine; the orchestrator mutex only guards the map.
type sourceState struct {
	mu         sync.Mutex
	title      string
	handle     *window.Handle
	lastMethod Method
	hasLast    bool
	hint       Method
	hasHint    bool
	breaker    *resilience.Breaker
}

// Orchestrator owns one logical capture pipeline per source: handle
// resolution, method fallback, and the last-working-method hot path.
type Orchestrator struct {
	locator window.Locator
	grabber Grabber
	stats   *Stats

	mu      sync.Mutex
	sources map[string]*sourceState
}

// NewOrchestrator wires a locator and grabber into a capture orchestrator.
func NewOrchestrator(locator window.Locator, grabber Grabber) *Orchestrator {
	return &Orchestrator{
		locator: locator,
		grabber: grabber,
		stats:   NewStats(),
		sources: make(map[string]*sourceState),
	}
}

// AddSource registers a logical source watching the given window title.
func (o *Orchestrator) AddSource(id, windowTitle string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.sources[id]; !ok {
		o.sources[id] = &sourceState{
			title:   windowTitle,
			breaker: resilience.New(resilience.FastConfig()),
		}
		slog.Info("capture source registered", "source", id, "window", windowTitle)
	}
}

// SetMethodHint promotes a method to the front of the probe order for a
// source. Used for windows known to need off-screen composition.
func (o *Orchestrator) SetMethodHint(id string, m Method) {
	o.mu.Lock()
	st, ok := o.sources[id]
	o.mu.Unlock()
	if !ok {
		return
	}
	st.mu.Lock()
	st.hint = m
	st.hasHint = true
	st.mu.Unlock()
}

// RemoveSource drops a source registration (config hot-reload).
func (o *Orchestrator) RemoveSource(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sources, id)
}

// WindowInfo returns the cached handle for a source, if any.
func (o *Orchestrator) WindowInfo(id string) *window.Handle {
	o.mu.Lock()
	st, ok := o.sources[id]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.handle
}

// Stats exposes the aggregate capture statistics.
func (o *Orchestrator) Stats() *Stats { return o.stats }

// CaptureSource grabs one frame for a source. Returns (nil, false) when the
// window cannot be found or every method fails; both are expected outcomes.
//
// A remembered last-successful method is tried alone first. On its failure
// the memory is cleared and the full fallback order runs, so the orchestrator
// re-adapts when the window state changes (e.g. restored from minimized).
func (o *Orchestrator) CaptureSource(id string) (*Result, bool) {
	o.mu.Lock()
	st, ok := o.sources[id]
	o.mu.Unlock()
	if !ok {
		return nil, false
	}

	// The per-source lock is held across the whole cycle, including the
	// grab itself: a hint arriving mid-capture takes effect next cycle.
	st.mu.Lock()
	defer st.mu.Unlock()

	// Repeated total failures open the breaker and skip the OS round trips
	// entirely until the reset timeout. The window may be gone for hours.
	if err := st.breaker.Allow(); err != nil {
		slog.Debug("capture suspended by breaker", "source", id)
		return nil, false
	}

	if st.handle == nil || !o.locator.IsValid(st.handle) {
		h, err := o.locator.Resolve(st.title)
		if err != nil {
			slog.Debug("window not found", "source", id, "title", st.title)
			st.handle = nil
			st.breaker.Failure()
			return nil, false
		}
		st.handle = h
	}

	// Hot path: one attempt with the remembered method.
	if st.hasLast {
		if frame, d, err := o.attempt(st.handle, st.lastMethod); err == nil {
			st.breaker.Success()
			return &Result{Frame: frame, Method: st.lastMethod, Duration: d}, true
		}
		// Window state likely changed; forget and re-probe everything.
		st.hasLast = false
	}

	for _, m := range o.probeOrder(st) {
		frame, d, err := o.attempt(st.handle, m)
		if err != nil {
			continue
		}
		st.lastMethod = m
		st.hasLast = true
		st.breaker.Success()
		slog.Debug("capture method selected", "source", id, "method", m.String(), "duration", d)
		return &Result{Frame: frame, Method: m, Duration: d}, true
	}

	slog.Debug("all capture methods failed", "source", id)
	st.breaker.Failure()
	return nil, false
}

// attempt runs one grab and records statistics regardless of outcome.
func (o *Orchestrator) attempt(h *window.Handle, m Method) (frame *imaging.Frame, d time.Duration, err error) {
	start := time.Now()
	f, err := o.grabber.Capture(h, m)
	d = time.Since(start)
	o.stats.Record(m, err == nil && f != nil, d)
	if err != nil {
		return nil, d, err
	}
	if f == nil {
		return nil, d, ErrEmptyFrame
	}
	if d > SlowCaptureWarn {
		slog.Warn("slow capture", "method", m.String(), "duration", d)
	}
	return f, d, nil
}

// probeOrder is the fixed fallback order with the per-source hint promoted
// to the front when present.
func (o *Orchestrator) probeOrder(st *sourceState) []Method {
	if !st.hasHint {
		return fallbackOrder
	}
	order := make([]Method, 0, len(fallbackOrder)+1)
	order = append(order, st.hint)
	for _, m := range fallbackOrder {
		if m != st.hint {
			order = append(order, m)
		}
	}
	return order
}
