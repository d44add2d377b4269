package imaging

// Tuning constants for preprocessing and similarity metrics.
const (
	// Black-screen detection bounds (mean and std over all channels).
	DegenerateMeanMax = 10.0
	DegenerateStdMax  = 5.0

	// CLAHE defaults, applied to the luminance channel.
	CLAHEClipLimit = 2.0
	CLAHETiles     = 8

	// Sobel gradient magnitude above which a pixel counts as an edge.
	EdgeMagnitudeThreshold = 100.0

	// Bin count for brightness histograms.
	HistogramBins = 16
)
