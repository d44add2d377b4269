package imaging

import "math"

// Histogram computes a normalized HistogramBins-bin brightness histogram.
func Histogram(g *Gray) []float64 {
	hist := make([]float64, HistogramBins)
	if g == nil || len(g.Pix) == 0 {
		return hist
	}
	binWidth := 256.0 / float64(HistogramBins)
	for _, v := range g.Pix {
		bin := int(float64(v) / binWidth)
		if bin >= HistogramBins {
			bin = HistogramBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		hist[bin]++
	}
	n := float64(len(g.Pix))
	for i := range hist {
		hist[i] /= n
	}
	return hist
}

// HistCorrelation is the Pearson correlation between two histograms,
// matching OpenCV's HISTCMP_CORREL semantics. Result in [-1, 1].
func HistCorrelation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var num, denA, denB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		denA += da * da
		denB += db * db
	}
	den := math.Sqrt(denA * denB)
	if den <= 1e-12 {
		return 0
	}
	return num / den
}

// MeanStd returns the mean and standard deviation of the luminance plane.
func (g *Gray) MeanStd() (mean, std float64) {
	if len(g.Pix) == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, v := range g.Pix {
		f := float64(v)
		sum += f
		sumSq += f * f
	}
	n := float64(len(g.Pix))
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// EdgeDensity is the fraction of pixels whose Sobel gradient magnitude
// exceeds EdgeMagnitudeThreshold. A cheap stand-in for Canny edge counting
// that behaves the same for signature comparison purposes.
func EdgeDensity(g *Gray) float64 {
	if g == nil || g.W < 3 || g.H < 3 {
		return 0
	}
	edges := 0
	for y := 1; y < g.H-1; y++ {
		for x := 1; x < g.W-1; x++ {
			gx := float64(g.At(x+1, y-1)) + 2*float64(g.At(x+1, y)) + float64(g.At(x+1, y+1)) -
				float64(g.At(x-1, y-1)) - 2*float64(g.At(x-1, y)) - float64(g.At(x-1, y+1))
			gy := float64(g.At(x-1, y+1)) + 2*float64(g.At(x, y+1)) + float64(g.At(x+1, y+1)) -
				float64(g.At(x-1, y-1)) - 2*float64(g.At(x, y-1)) - float64(g.At(x+1, y-1))
			if math.Sqrt(gx*gx+gy*gy) > EdgeMagnitudeThreshold {
				edges++
			}
		}
	}
	return float64(edges) / float64(g.W*g.H)
}

// Signature bundles the region features compared against known false positives.
type Signature struct {
	Histogram   []float64 `json:"histogram"`
	MeanBright  float64   `json:"mean_brightness"`
	StdBright   float64   `json:"std_brightness"`
	EdgeDensity float64   `json:"edge_density"`
}

// ComputeSignature extracts the feature signature of a frame region.
func ComputeSignature(region *Frame) Signature {
	g := region.Gray()
	mean, std := g.MeanStd()
	return Signature{
		Histogram:   Histogram(g),
		MeanBright:  mean,
		StdBright:   std,
		EdgeDensity: EdgeDensity(g),
	}
}
