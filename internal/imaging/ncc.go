package imaging

import "math"

// MatchTemplate slides tmpl over frame and returns the best normalized
// cross-correlation score (correlation-coefficient form, so both sides are
// zero-meaned) together with the top-left location of the best window.
// Scores are clamped to [0, 1]; negative correlation never beats zero.
// Returns ok=false when the template does not fit inside the frame or is flat.
func MatchTemplate(frame, tmpl *Gray) (score float64, x, y int, ok bool) {
	if frame == nil || tmpl == nil {
		return 0, 0, 0, false
	}
	if tmpl.W > frame.W || tmpl.H > frame.H || tmpl.W == 0 || tmpl.H == 0 {
		return 0, 0, 0, false
	}

	n := float64(tmpl.W * tmpl.H)

	// Zero-mean template and its energy, computed once.
	var tSum float64
	for _, v := range tmpl.Pix {
		tSum += float64(v)
	}
	tMean := tSum / n
	tz := make([]float64, len(tmpl.Pix))
	var tEnergy float64
	for i, v := range tmpl.Pix {
		d := float64(v) - tMean
		tz[i] = d
		tEnergy += d * d
	}
	if tEnergy <= 1e-9 {
		// Flat template correlates with everything and nothing.
		return 0, 0, 0, false
	}
	tNorm := math.Sqrt(tEnergy)

	// Integral images give each window's sum and sum of squares in O(1).
	sum, sumSq := integrals(frame)

	best := math.Inf(-1)
	bestX, bestY := 0, 0

	for oy := 0; oy <= frame.H-tmpl.H; oy++ {
		for ox := 0; ox <= frame.W-tmpl.W; ox++ {
			wSum := windowSum(sum, frame.W, ox, oy, tmpl.W, tmpl.H)
			wSumSq := windowSum(sumSq, frame.W, ox, oy, tmpl.W, tmpl.H)
			wVar := wSumSq - wSum*wSum/n
			if wVar <= 1e-9 {
				continue
			}

			// Numerator: Σ f·tz. The window-mean term vanishes because Σ tz = 0.
			var num float64
			for ty := 0; ty < tmpl.H; ty++ {
				fRow := (oy+ty)*frame.W + ox
				tRow := ty * tmpl.W
				for tx := 0; tx < tmpl.W; tx++ {
					num += float64(frame.Pix[fRow+tx]) * tz[tRow+tx]
				}
			}

			r := num / (tNorm * math.Sqrt(wVar))
			if r > best {
				best = r
				bestX, bestY = ox, oy
			}
		}
	}

	if math.IsInf(best, -1) {
		return 0, 0, 0, false
	}
	if best < 0 {
		best = 0
	}
	if best > 1 {
		best = 1
	}
	return best, bestX, bestY, true
}

// integrals returns summed-area tables of values and squared values,
// each sized (W+1)×(H+1) with a zero border.
func integrals(g *Gray) (sum, sumSq []float64) {
	w1 := g.W + 1
	sum = make([]float64, w1*(g.H+1))
	sumSq = make([]float64, w1*(g.H+1))
	for y := 0; y < g.H; y++ {
		var rowSum, rowSumSq float64
		for x := 0; x < g.W; x++ {
			v := float64(g.Pix[y*g.W+x])
			rowSum += v
			rowSumSq += v * v
			i := (y+1)*w1 + x + 1
			sum[i] = sum[i-w1] + rowSum
			sumSq[i] = sumSq[i-w1] + rowSumSq
		}
	}
	return sum, sumSq
}

func windowSum(table []float64, frameW, x, y, w, h int) float64 {
	w1 := frameW + 1
	return table[(y+h)*w1+x+w] - table[y*w1+x+w] - table[(y+h)*w1+x] + table[y*w1+x]
}
