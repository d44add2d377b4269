package capture

import (
	"sync"
	"time"
)

// MethodStats accumulates attempt/success/latency counters for one method.
type MethodStats struct {
	Attempts  int64         `json:"attempts"`
	Successes int64         `json:"successes"`
	TotalTime time.Duration `json:"-"`
	AvgTimeMs float64       `json:"avg_time_ms"`
}

// Stats tracks per-method and aggregate capture statistics. Every attempt is
// recorded regardless of outcome; average latency covers successes only.
type Stats struct {
	mu       sync.Mutex
	methods  [methodCount]MethodStats
	attempts int64
	captures int64
}

// NewStats creates an empty statistics tracker.
func NewStats() *Stats { return &Stats{} }

// Record notes one capture attempt with a method.
func (s *Stats) Record(m Method, success bool, d time.Duration) {
	if m < 0 || m >= methodCount {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	ms := &s.methods[m]
	ms.Attempts++
	if success {
		s.captures++
		ms.Successes++
		ms.TotalTime += d
		ms.AvgTimeMs = float64(ms.TotalTime.Milliseconds()) / float64(ms.Successes)
	}
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	TotalAttempts      int64                  `json:"total_attempts"`
	SuccessfulCaptures int64                  `json:"successful_captures"`
	SuccessRate        float64                `json:"success_rate"`
	Methods            map[string]MethodStats `json:"methods"`
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalAttempts:      s.attempts,
		SuccessfulCaptures: s.captures,
		Methods:            make(map[string]MethodStats, methodCount),
	}
	if s.attempts > 0 {
		snap.SuccessRate = float64(s.captures) / float64(s.attempts) * 100
	}
	for m := Method(0); m < methodCount; m++ {
		if s.methods[m].Attempts > 0 {
			snap.Methods[m.String()] = s.methods[m]
		}
	}
	return snap
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = [methodCount]MethodStats{}
	s.attempts = 0
	s.captures = 0
}
