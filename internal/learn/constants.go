package learn

const (
	// MaxPatternsPerAlert bounds stored rejected-region signatures.
	MaxPatternsPerAlert = 20

	// Suppression fires when histogram correlation clears this and every
	// brightness/edge delta stays below the tolerance.
	SuppressHistCorrel = 0.9
	SuppressDelta      = 0.1

	// SuppressionFactor scales a match's confidence when it resembles a
	// known false positive. Suppression softens, never hard-discards.
	SuppressionFactor = 0.5

	// Threshold adjustment parameters.
	MinSamplesForAdjust = 10
	MaxBlend            = 0.30
)
