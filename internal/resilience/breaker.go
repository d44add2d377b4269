// Package resilience implements the per-source failure backoff used by the
// capture loop. A window that is gone (game closed, machine locked) should
// not cost five failed OS round trips every poll cycle for hours.
package resilience

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the breaker's position in its closed/open/half-open cycle.
type State uint32

const (
	Closed   State = iota // normal operation
	Open                  // failing fast, attempts skipped
	HalfOpen              // probing for recovery
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen is returned by Allow while the breaker is failing fast.
var ErrOpen = errors.New("breaker open")

// Breaker trips after consecutive failures and fails fast until the reset
// timeout elapses, then lets a probe through. All state is atomic; callers
// may share one breaker across goroutines.
type Breaker struct {
	cfg         Config
	state       atomic.Uint32
	failures    atomic.Int32
	successes   atomic.Int32
	lastFailure atomic.Int64 // unix nano of the most recent Failure
}

// New creates a closed breaker. Zero config fields fall back to defaults.
func New(cfg Config) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults()}
	b.state.Store(uint32(Closed))
	return b
}

// Allow reports whether an attempt should proceed. While open it returns
// ErrOpen until the reset timeout passes, then moves to half-open and lets
// the attempt through as a probe.
func (b *Breaker) Allow() error {
	if State(b.state.Load()) != Open {
		return nil
	}
	if b.resetDue() {
		b.transition(HalfOpen)
		return nil
	}
	return ErrOpen
}

// Success records a successful attempt. Enough successes in half-open close
// the breaker; in closed state the failure streak resets.
func (b *Breaker) Success() {
	switch State(b.state.Load()) {
	case HalfOpen:
		if b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(Closed)
		}
	case Closed:
		b.failures.Store(0)
	}
}

// Failure records a failed attempt. A half-open probe failure reopens
// immediately; in closed state the breaker opens once the streak reaches
// the threshold.
func (b *Breaker) Failure() {
	b.lastFailure.Store(time.Now().UnixNano())
	streak := b.failures.Add(1)

	switch State(b.state.Load()) {
	case HalfOpen:
		b.transition(Open)
	case Closed:
		if streak >= int32(b.cfg.Threshold) {
			b.transition(Open)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// Reset forces the breaker closed. Used when the operator resumes monitoring
// after fixing whatever was failing.
func (b *Breaker) Reset() {
	b.transition(Closed)
}

func (b *Breaker) transition(to State) {
	from := State(b.state.Swap(uint32(to)))
	if from == to {
		return
	}

	switch to {
	case Closed:
		b.failures.Store(0)
		b.successes.Store(0)
		slog.Info("breaker closed")
	case Open:
		b.successes.Store(0)
		slog.Warn("breaker opened", "failures", b.failures.Load())
	case HalfOpen:
		b.successes.Store(0)
		slog.Info("breaker half-open")
	}
}

func (b *Breaker) resetDue() bool {
	last := b.lastFailure.Load()
	if last == 0 {
		return true
	}
	return time.Since(time.Unix(0, last)) > b.cfg.ResetTimeout
}
