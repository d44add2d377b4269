package imaging

import "github.com/nfnt/resize"

// Resize scales the frame to the given dimensions with bilinear filtering,
// matching the interpolation detection uses when sweeping the scale grid.
func (f *Frame) Resize(w, h int) *Frame {
	if w <= 0 || h <= 0 {
		return nil
	}
	if w == f.W && h == f.H {
		return f.Clone()
	}
	scaled := resize.Resize(uint(w), uint(h), f.ToImage(), resize.Bilinear)
	return FromImage(scaled)
}
