// Package imaging provides the pixel primitives shared by capture and detection:
// BGR frames, grayscale planes, contrast normalization, and similarity metrics.
package imaging

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// Frame is a BGR pixel buffer, row-major, 3 bytes per pixel.
// Capture produces frames in this layout and detection consumes them directly.
type Frame struct {
	W, H int
	Pix  []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(w, h int) *Frame {
	return &Frame{W: w, H: h, Pix: make([]byte, w*h*3)}
}

// BGR returns the pixel at (x, y).
func (f *Frame) BGR(x, y int) (b, g, r byte) {
	i := (y*f.W + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetBGR writes the pixel at (x, y).
func (f *Frame) SetBGR(x, y int, b, g, r byte) {
	i := (y*f.W + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := &Frame{W: f.W, H: f.H, Pix: make([]byte, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// SubRegion copies the rectangle (x, y, w, h), clamped to frame bounds.
// Returns nil when the clamped rectangle is empty.
func (f *Frame) SubRegion(x, y, w, h int) *Frame {
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if x+w > f.W {
		w = f.W - x
	}
	if y+h > f.H {
		h = f.H - y
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	sub := NewFrame(w, h)
	for row := 0; row < h; row++ {
		src := ((y+row)*f.W + x) * 3
		dst := row * w * 3
		copy(sub.Pix[dst:dst+w*3], f.Pix[src:src+w*3])
	}
	return sub
}

// FromImage converts any image.Image into a BGR frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.SetBGR(x, y, byte(bl>>8), byte(g>>8), byte(r>>8))
		}
	}
	return f
}

// ToImage converts the frame to an RGBA image for encoding or resizing.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			b, g, r := f.BGR(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// EncodePNG writes the frame as PNG.
func (f *Frame) EncodePNG(w io.Writer) error {
	return png.Encode(w, f.ToImage())
}

// Gray is a single-channel luminance plane with values in [0, 255].
type Gray struct {
	W, H int
	Pix  []float32
}

// NewGray allocates a zeroed plane.
func NewGray(w, h int) *Gray {
	return &Gray{W: w, H: h, Pix: make([]float32, w*h)}
}

// At returns the luminance at (x, y).
func (g *Gray) At(x, y int) float32 { return g.Pix[y*g.W+x] }

// Gray converts the frame to a luminance plane using BT.601 weights.
func (f *Frame) Gray() *Gray {
	g := NewGray(f.W, f.H)
	for i := 0; i < f.W*f.H; i++ {
		b := float32(f.Pix[i*3])
		gr := float32(f.Pix[i*3+1])
		r := float32(f.Pix[i*3+2])
		g.Pix[i] = 0.299*r + 0.587*gr + 0.114*b
	}
	return g
}

// MeanStd returns the mean and standard deviation over all channels.
func (f *Frame) MeanStd() (mean, std float64) {
	if len(f.Pix) == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, p := range f.Pix {
		v := float64(p)
		sum += v
		sumSq += v * v
	}
	n := float64(len(f.Pix))
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// IsDegenerate reports whether the frame is a near-uniform dark capture,
// the "black screen" condition a closed or cloaked window produces.
func (f *Frame) IsDegenerate() bool {
	mean, std := f.MeanStd()
	return mean < DegenerateMeanMax && std < DegenerateStdMax
}
