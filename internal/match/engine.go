// Package match scans captured frames for template images across a scale
// grid and scores candidates with normalized cross-correlation.
package match

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gamewatch/gamewatch/internal/imaging"
	"github.com/gamewatch/gamewatch/internal/template"
)

// Strategy selects how candidates from multiple template variants of the
// same logical alert are aggregated.
type Strategy int

const (
	// Best returns the single highest-confidence candidate across variants.
	Best Strategy = iota
	// First returns the first variant clearing the threshold, in path order.
	First
	// All returns every clearing candidate. Used for diagnostics.
	All
)

func (s Strategy) String() string {
	switch s {
	case Best:
		return "best"
	case First:
		return "first"
	case All:
		return "all"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "best", "":
		return Best, nil
	case "first":
		return First, nil
	case "all":
		return All, nil
	}
	return 0, fmt.Errorf("match: unknown strategy %q", s)
}

// Candidate is one scored template placement inside a frame.
type Candidate struct {
	TemplatePath string  `json:"template"`
	Confidence   float64 `json:"confidence"`
	X            int     `json:"x"`
	Y            int     `json:"y"`
	W            int     `json:"w"`
	H            int     `json:"h"`
	Scale        float64 `json:"scale"`
	Aspect       float64 `json:"aspect"`
}

// Result aggregates candidates per the chosen strategy. Best is always the
// top candidate; All carries every clearing candidate under the All strategy.
type Result struct {
	Best  Candidate   `json:"best"`
	All   []Candidate `json:"all,omitempty"`
	Count int         `json:"count"`
}

// Engine matches templates against frames. Preprocessing (adaptive contrast
// equalization), the scale sweep, and secondary validation all live here; the
// pixel-level correlation is in the imaging package.
type Engine struct {
	store *template.Store

	// SweepAspect additionally sweeps an aspect-ratio grid. Off by default;
	// it triples the scan cost and matters only for non-uniform DPI scaling.
	SweepAspect bool
}

// NewEngine creates a match engine backed by a template store.
func NewEngine(store *template.Store) *Engine {
	return &Engine{store: store}
}

// Match scans every template path against the frame and aggregates results.
// Returns (nil, false) when no template clears the threshold; template decode
// failures are logged and treated as non-matches, never as hard errors.
func (e *Engine) Match(frame *imaging.Frame, paths []string, threshold float64, strategy Strategy) (*Result, bool) {
	if frame == nil || frame.W == 0 || frame.H == 0 || len(paths) == 0 {
		return nil, false
	}

	eq := imaging.CLAHE(frame, imaging.CLAHEClipLimit, imaging.CLAHETiles)
	frameGray := eq.Gray()

	var clearing []Candidate
	for _, p := range paths {
		tmpl, err := e.store.Load(p)
		if err != nil {
			slog.Warn("template unavailable", "path", p, "error", err)
			continue
		}
		cand, ok := e.scanTemplate(frame, frameGray, tmpl)
		if !ok || cand.Confidence < threshold {
			continue
		}
		clearing = append(clearing, cand)
		if strategy == First {
			break
		}
	}
	if len(clearing) == 0 {
		return nil, false
	}

	res := &Result{Best: clearing[0], Count: len(clearing)}
	for _, c := range clearing[1:] {
		if c.Confidence > res.Best.Confidence {
			res.Best = c
		}
	}
	if strategy == All {
		res.All = clearing
	}
	return res, true
}

// scanTemplate sweeps the scale (and optionally aspect) grid for one template
// and returns its best candidate.
func (e *Engine) scanTemplate(frame *imaging.Frame, frameGray *imaging.Gray, tmpl *template.Template) (Candidate, bool) {
	lo, hi, ok := scaleBounds(tmpl.Frame.W, tmpl.Frame.H, frame.W, frame.H)
	if !ok {
		return Candidate{}, false
	}

	eqTmpl := imaging.CLAHE(tmpl.Frame, imaging.CLAHEClipLimit, imaging.CLAHETiles)

	aspects := []float64{1.0}
	if e.SweepAspect {
		aspects = aspects[:0]
		for a := AspectMin; a <= AspectMax+1e-9; a += AspectStep {
			aspects = append(aspects, a)
		}
	}

	var best Candidate
	found := false
	for s := lo; s <= hi+1e-9; s += ScaleStep {
		for _, a := range aspects {
			w := int(math.Round(float64(eqTmpl.W) * s * a))
			h := int(math.Round(float64(eqTmpl.H) * s))
			if !dimsFit(w, h, frame.W, frame.H) {
				continue
			}
			scaled := eqTmpl.Resize(w, h)
			score, x, y, ok := imaging.MatchTemplate(frameGray, scaled.Gray())
			if !ok {
				continue
			}
			// Matched region must sit fully inside the frame.
			if x < 0 || y < 0 || x+w > frame.W || y+h > frame.H {
				continue
			}
			if !found || score > best.Confidence {
				found = true
				best = Candidate{
					TemplatePath: tmpl.Path,
					Confidence:   score,
					X:            x, Y: y, W: w, H: h,
					Scale:  s,
					Aspect: a,
				}
			}
			if score > EarlyStopScore {
				best.Confidence = e.validate(frame, tmpl, best)
				return best, true
			}
		}
	}
	if !found {
		return Candidate{}, false
	}
	best.Confidence = e.validate(frame, tmpl, best)
	return best, true
}

// validate cross-checks a candidate with cheap secondary signals and blends
// them into a small confidence boost. Correlation spikes on flat-color
// regions fail the histogram and edge checks and get no boost.
func (e *Engine) validate(frame *imaging.Frame, tmpl *template.Template, c Candidate) float64 {
	if c.Confidence < SecondaryCheckMin {
		return c.Confidence
	}
	region := frame.SubRegion(c.X, c.Y, c.W, c.H)
	if region == nil {
		return c.Confidence
	}

	regionSig := imaging.ComputeSignature(region)
	tmplSig := imaging.ComputeSignature(tmpl.Frame)

	histScore := imaging.HistCorrelation(regionSig.Histogram, tmplSig.Histogram)
	if histScore < 0 {
		histScore = 0
	}
	edgeDelta := math.Abs(regionSig.EdgeDensity - tmplSig.EdgeDensity)
	edgeScore := 1 - math.Min(edgeDelta*4, 1)

	boost := SecondaryBoostMax * (histScore + edgeScore) / 2
	return math.Min(1, c.Confidence+boost)
}

// scaleBounds narrows the default scale grid so scaled templates stay above
// the minimum useful size and below the frame. Widens downward when even the
// smallest default scale would not fit the frame.
func scaleBounds(tw, th, fw, fh int) (lo, hi float64, ok bool) {
	if tw <= 0 || th <= 0 {
		return 0, 0, false
	}
	maxFit := math.Min(MaxFrameFraction*float64(fw)/float64(tw), MaxFrameFraction*float64(fh)/float64(th))
	minUseful := float64(MinScaledDim) / float64(min(tw, th))
	if minUseful > 1 {
		// Template is already below the useful floor; scan it as-is
		// rather than upscaling noise.
		minUseful = 1
	}

	lo = math.Max(ScaleMin, minUseful)
	hi = math.Min(ScaleMax, maxFit)
	if lo > hi {
		// Oversized template relative to frame: slide the window down.
		if maxFit >= minUseful {
			return math.Max(minUseful, maxFit-(ScaleMax-ScaleMin)), maxFit, true
		}
		return 0, 0, false
	}
	return lo, hi, true
}

func dimsFit(w, h, fw, fh int) bool {
	if w < 1 || h < 1 {
		return false
	}
	return w <= fw && h <= fh
}
