// Package alert decides when a detection becomes a user-visible alert.
package alert

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ConsecutiveRequired is how many back-to-back cycle detections confirm a
// re-trigger after cooldown. The very first sighting fires immediately.
const ConsecutiveRequired = 3

// State is the per-(source, alert) detection state.
type State int

const (
	// Idle means no recent detection.
	Idle State = iota
	// Candidate means detections observed but not yet confirmed.
	Candidate
	// Cooldown means an alert fired recently; detections update state but
	// do not re-emit until the cooldown elapses and stability returns.
	Cooldown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Candidate:
		return "candidate"
	case Cooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is one fired alert handed to the notification collaborator.
type Event struct {
	Source     string    `json:"source"`
	Alert      string    `json:"alert"`
	Confidence float64   `json:"confidence"`
	Template   string    `json:"template"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	W          int       `json:"w"`
	H          int       `json:"h"`
	Scale      float64   `json:"scale"`
	Time       time.Time `json:"time"`
}

// Detection is the match outcome for one (source, alert) in one cycle.
type Detection struct {
	Hit        bool
	Confidence float64
	Template   string
	X, Y, W, H int
	Scale      float64
}

type pairState struct {
	state       State
	consecutive int
	lastFired   time.Time
	lastSeen    Detection
	fireCount   int64
}

// PairSnapshot is the dashboard view of one (source, alert) pair.
type PairSnapshot struct {
	Source      string    `json:"source"`
	Alert       string    `json:"alert"`
	State       string    `json:"state"`
	Consecutive int       `json:"consecutive"`
	Confidence  float64   `json:"confidence"`
	LastFired   time.Time `json:"last_fired,omitzero"`
	FireCount   int64     `json:"fire_count"`
}

type pairKey struct{ source, alert string }

// Pipeline runs the Idle -> Candidate -> Firing -> Cooldown state machine
// for every (source, alert) pair. Firing is instantaneous: the emit callback
// runs and the pair lands in Cooldown within the same cycle.
type Pipeline struct {
	emit func(Event)
	now  func() time.Time

	mu     sync.Mutex
	pairs  map[pairKey]*pairState
	paused bool
}

// NewPipeline creates an alert pipeline that hands fired events to emit.
func NewPipeline(emit func(Event)) *Pipeline {
	return &Pipeline{
		emit:  emit,
		now:   time.Now,
		pairs: make(map[pairKey]*pairState),
	}
}

// Pause suspends new alert candidacy globally. Pairs already past Idle keep
// progressing so cooldowns drain naturally.
func (p *Pipeline) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	slog.Info("alerting paused")
}

// Resume lifts a pause.
func (p *Pipeline) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	slog.Info("alerting resumed")
}

// Paused reports the global pause flag.
func (p *Pipeline) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Observe feeds one cycle's detection outcome for a (source, alert) pair and
// returns whether an alert fired this cycle.
//
// The first sighting from Idle fires immediately; after that, a re-fire
// needs the cooldown elapsed plus ConsecutiveRequired back-to-back
// detections, so a flickering match cannot spam notifications.
func (p *Pipeline) Observe(source, alert string, det Detection, cooldown time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pairKey{source, alert}
	st, ok := p.pairs[key]
	if !ok {
		st = &pairState{}
		p.pairs[key] = st
	}
	if det.Hit {
		st.lastSeen = det
	}

	switch st.state {
	case Idle:
		if !det.Hit || p.paused {
			return false
		}
		st.consecutive = 1
		p.fire(source, alert, st, det)
		return true

	case Candidate:
		if !det.Hit {
			st.state = Idle
			st.consecutive = 0
			return false
		}
		st.consecutive++
		if st.consecutive >= ConsecutiveRequired {
			p.fire(source, alert, st, det)
			return true
		}
		return false

	case Cooldown:
		if det.Hit {
			st.consecutive++
		} else {
			st.consecutive = 0
		}
		if p.now().Sub(st.lastFired) < cooldown {
			return false
		}
		if !det.Hit {
			st.state = Idle
			return false
		}
		if st.consecutive >= ConsecutiveRequired {
			p.fire(source, alert, st, det)
			return true
		}
		st.state = Candidate
		return false
	}
	return false
}

// fire emits and moves the pair into Cooldown. Caller holds the lock.
func (p *Pipeline) fire(source, alert string, st *pairState, det Detection) {
	now := p.now()
	st.state = Cooldown
	st.lastFired = now
	st.fireCount++
	st.consecutive = 0
	slog.Info("alert fired",
		"source", source, "alert", alert,
		"confidence", det.Confidence, "template", det.Template)
	if p.emit != nil {
		p.emit(Event{
			Source:     source,
			Alert:      alert,
			Confidence: det.Confidence,
			Template:   det.Template,
			X:          det.X,
			Y:          det.Y,
			W:          det.W,
			H:          det.H,
			Scale:      det.Scale,
			Time:       now,
		})
	}
}

// StateOf returns the current state of a pair. Unknown pairs are Idle.
func (p *Pipeline) StateOf(source, alert string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.pairs[pairKey{source, alert}]; ok {
		return st.state
	}
	return Idle
}

// Snapshot lists every known pair for the dashboard.
func (p *Pipeline) Snapshot() []PairSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PairSnapshot, 0, len(p.pairs))
	for k, st := range p.pairs {
		out = append(out, PairSnapshot{
			Source:      k.source,
			Alert:       k.alert,
			State:       st.state.String(),
			Consecutive: st.consecutive,
			Confidence:  st.lastSeen.Confidence,
			LastFired:   st.lastFired,
			FireCount:   st.fireCount,
		})
	}
	return out
}

// Reset clears all pair state. Used when config hot-reload changes alerts.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pairs = make(map[pairKey]*pairState)
}
