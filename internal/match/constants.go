package match

const (
	// Scale grid swept for every template.
	ScaleMin  = 0.80
	ScaleMax  = 1.20
	ScaleStep = 0.05

	// Optional aspect-ratio grid, applied to width only.
	AspectMin  = 0.85
	AspectMax  = 1.15
	AspectStep = 0.15

	// EarlyStopScore ends the scale sweep immediately. Scores above it are
	// effectively exact hits; the rest of the grid cannot beat them by a
	// margin that matters.
	EarlyStopScore = 0.95

	// Scaled-template dimension bounds relative to the frame.
	MinScaledDim     = 30
	MaxFrameFraction = 0.90

	// Secondary-signal validation of high-confidence candidates.
	SecondaryCheckMin = 0.70
	SecondaryBoostMax = 0.03
)
