package learn

import (
	"log/slog"
	"math"
)

// AdjustedThreshold blends an alert's default threshold toward a value
// suggested by its feedback history. Returns the default unchanged until at
// least MinSamplesForAdjust decisions exist.
//
// The suggestion is the midpoint between the lowest accepted and highest
// rejected confidence when those populations separate cleanly; when they
// overlap, 95% of the mean accepted confidence. The blend weight grows with
// separation quality and is capped at MaxBlend, so one batch of feedback can
// never move the threshold more than 30% of the way.
func (f *Filter) AdjustedThreshold(alert string, def float64) float64 {
	f.mu.Lock()
	samples := f.samples[alert]
	f.mu.Unlock()
	if len(samples) < MinSamplesForAdjust {
		return def
	}

	var (
		minAccepted = math.Inf(1)
		maxRejected = math.Inf(-1)
		sumAccepted float64
		nAccepted   int
	)
	for _, s := range samples {
		if s.accepted {
			nAccepted++
			sumAccepted += s.confidence
			if s.confidence < minAccepted {
				minAccepted = s.confidence
			}
		} else if s.confidence > maxRejected {
			maxRejected = s.confidence
		}
	}
	if nAccepted == 0 || nAccepted == len(samples) {
		// One-sided feedback carries no boundary information.
		return def
	}

	var suggested, weight float64
	if maxRejected < minAccepted {
		suggested = (minAccepted + maxRejected) / 2
		// Separation quality: a wide clean gap earns the full blend.
		weight = math.Min(MaxBlend, (minAccepted-maxRejected)*2)
	} else {
		suggested = 0.95 * (sumAccepted / float64(nAccepted))
		weight = MaxBlend / 2
	}

	adjusted := def + weight*(suggested-def)
	adjusted = math.Max(0.1, math.Min(0.99, adjusted))
	if f.store != nil && adjusted != def {
		if err := f.store.RecordAdjustment(alert, def, adjusted); err != nil {
			slog.Warn("threshold adjustment not persisted", "alert", alert, "error", err)
		}
	}
	return adjusted
}
