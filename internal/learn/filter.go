// Package learn turns user accept/reject feedback into false-positive
// suppression and per-alert threshold tuning.
package learn

import (
	"log/slog"
	"math"
	"sync"

	"github.com/gamewatch/gamewatch/internal/imaging"
)

// sample is one accept/reject decision with its match confidence.
type sample struct {
	confidence float64
	accepted   bool
}

// Filter remembers what rejected detections looked like and suppresses new
// detections that look the same. Mutations happen only on explicit user
// feedback, so a plain mutex is enough.
type Filter struct {
	mu       sync.Mutex
	patterns map[string][]imaging.Signature
	samples  map[string][]sample
	store    *Store
}

// NewFilter creates a feedback filter. The store may be nil, in which case
// nothing persists across restarts.
func NewFilter(store *Store) *Filter {
	f := &Filter{
		patterns: make(map[string][]imaging.Signature),
		samples:  make(map[string][]sample),
		store:    store,
	}
	if store != nil {
		f.restore()
	}
	return f
}

func (f *Filter) restore() {
	patterns, err := f.store.LoadPatterns()
	if err != nil {
		slog.Warn("false-positive patterns not restored", "error", err)
	} else {
		f.patterns = patterns
	}
	validations, err := f.store.LoadValidations()
	if err != nil {
		slog.Warn("validation history not restored", "error", err)
		return
	}
	for alert, rows := range validations {
		for _, v := range rows {
			f.samples[alert] = append(f.samples[alert], sample{v.Confidence, v.Accepted})
		}
	}
}

// RecordFeedback notes one user decision about a detection. On rejection the
// region's signature joins the alert's false-positive patterns, bounded to
// the most recent MaxPatternsPerAlert.
func (f *Filter) RecordFeedback(alert string, confidence float64, accepted bool, region *imaging.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.samples[alert] = append(f.samples[alert], sample{confidence, accepted})
	if f.store != nil {
		if err := f.store.InsertValidation(alert, confidence, accepted); err != nil {
			slog.Warn("validation not persisted", "alert", alert, "error", err)
		}
	}
	if accepted || region == nil {
		return
	}

	sig := imaging.ComputeSignature(region)
	pats := append(f.patterns[alert], sig)
	if len(pats) > MaxPatternsPerAlert {
		pats = pats[len(pats)-MaxPatternsPerAlert:]
	}
	f.patterns[alert] = pats
	if f.store != nil {
		if err := f.store.InsertPattern(alert, sig); err != nil {
			slog.Warn("pattern not persisted", "alert", alert, "error", err)
		}
	}
	slog.Info("false-positive pattern learned", "alert", alert, "patterns", len(pats))
}

// ShouldSuppress reports whether a matched region resembles a previously
// rejected one. Callers scale confidence by SuppressionFactor on true.
func (f *Filter) ShouldSuppress(alert string, region *imaging.Frame) bool {
	if region == nil {
		return false
	}
	f.mu.Lock()
	pats := f.patterns[alert]
	f.mu.Unlock()
	if len(pats) == 0 {
		return false
	}

	sig := imaging.ComputeSignature(region)
	for _, p := range pats {
		if resembles(sig, p) {
			return true
		}
	}
	return false
}

func resembles(a, b imaging.Signature) bool {
	if imaging.HistCorrelation(a.Histogram, b.Histogram) <= SuppressHistCorrel {
		return false
	}
	if math.Abs(a.MeanBright-b.MeanBright)/255 >= SuppressDelta {
		return false
	}
	if math.Abs(a.StdBright-b.StdBright)/255 >= SuppressDelta {
		return false
	}
	return math.Abs(a.EdgeDensity-b.EdgeDensity) < SuppressDelta
}

// PatternCount reports how many rejected-region signatures an alert carries.
func (f *Filter) PatternCount(alert string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patterns[alert])
}

// SampleCount reports how many accept/reject decisions an alert has seen.
func (f *Filter) SampleCount(alert string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples[alert])
}
