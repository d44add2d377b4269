package imaging

import (
	"bytes"
	"image/png"
	"math"
	"testing"
)

// textureFrame fills a frame with a deterministic pseudo-random texture so
// correlation scores are well defined.
func textureFrame(w, h int, seed uint32) *Frame {
	f := NewFrame(w, h)
	s := seed
	for i := range f.Pix {
		s = s*1664525 + 1013904223
		f.Pix[i] = byte(s >> 24)
	}
	return f
}

// embed copies src into dst at (x, y).
func embed(dst, src *Frame, x, y int) {
	for row := 0; row < src.H; row++ {
		d := ((y+row)*dst.W + x) * 3
		s := row * src.W * 3
		copy(dst.Pix[d:d+src.W*3], src.Pix[s:s+src.W*3])
	}
}

func TestIsDegenerateBlackFrame(t *testing.T) {
	f := NewFrame(100, 100)
	if !f.IsDegenerate() {
		t.Error("all-black frame should be degenerate")
	}
}

func TestIsDegenerateTexturedFrame(t *testing.T) {
	f := textureFrame(100, 100, 1)
	if f.IsDegenerate() {
		t.Error("textured frame should not be degenerate")
	}
}

func TestIsDegenerateDimUniform(t *testing.T) {
	f := NewFrame(50, 50)
	for i := range f.Pix {
		f.Pix[i] = 7
	}
	if !f.IsDegenerate() {
		t.Error("near-black uniform frame should be degenerate")
	}
}

func TestMatchTemplateExactEmbed(t *testing.T) {
	frame := textureFrame(200, 150, 42)
	tmpl := textureFrame(40, 40, 99)
	embed(frame, tmpl, 75, 60)

	score, x, y, ok := MatchTemplate(frame.Gray(), tmpl.Gray())
	if !ok {
		t.Fatal("match should succeed")
	}
	if score < 0.99 {
		t.Errorf("exact embed score = %.4f, want >= 0.99", score)
	}
	if x != 75 || y != 60 {
		t.Errorf("location = (%d, %d), want (75, 60)", x, y)
	}
}

func TestMatchTemplateTooLarge(t *testing.T) {
	frame := textureFrame(30, 30, 1)
	tmpl := textureFrame(40, 40, 2)
	if _, _, _, ok := MatchTemplate(frame.Gray(), tmpl.Gray()); ok {
		t.Error("oversized template must not match")
	}
}

func TestMatchTemplateFlatTemplate(t *testing.T) {
	frame := textureFrame(100, 100, 1)
	flat := NewFrame(20, 20)
	if _, _, _, ok := MatchTemplate(frame.Gray(), flat.Gray()); ok {
		t.Error("flat template must be rejected")
	}
}

func TestHistCorrelationIdentical(t *testing.T) {
	g := textureFrame(64, 64, 7).Gray()
	h := Histogram(g)
	if c := HistCorrelation(h, h); c < 0.999 {
		t.Errorf("self correlation = %.4f, want ~1.0", c)
	}
}

func TestHistCorrelationDisjoint(t *testing.T) {
	dark := NewFrame(32, 32)
	bright := NewFrame(32, 32)
	for i := range bright.Pix {
		bright.Pix[i] = 250
	}
	c := HistCorrelation(Histogram(dark.Gray()), Histogram(bright.Gray()))
	if c > 0.5 {
		t.Errorf("dark vs bright correlation = %.4f, want low", c)
	}
}

func TestHistogramNormalized(t *testing.T) {
	h := Histogram(textureFrame(64, 64, 3).Gray())
	var sum float64
	for _, v := range h {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("histogram sum = %f, want 1.0", sum)
	}
}

func TestEdgeDensityBounds(t *testing.T) {
	flat := NewFrame(50, 50)
	if d := EdgeDensity(flat.Gray()); d != 0 {
		t.Errorf("flat edge density = %f, want 0", d)
	}

	// Checkerboard has an edge at every cell boundary.
	board := NewFrame(50, 50)
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			if (x/5+y/5)%2 == 0 {
				board.SetBGR(x, y, 255, 255, 255)
			}
		}
	}
	if d := EdgeDensity(board.Gray()); d <= 0 {
		t.Error("checkerboard edge density should be positive")
	}
}

func TestCLAHEPreservesDimensions(t *testing.T) {
	f := textureFrame(120, 80, 5)
	out := CLAHE(f, CLAHEClipLimit, CLAHETiles)
	if out.W != f.W || out.H != f.H {
		t.Errorf("dimensions changed: %dx%d -> %dx%d", f.W, f.H, out.W, out.H)
	}
}

func TestCLAHEBoostsLowContrast(t *testing.T) {
	// Narrow brightness band around 100..110.
	f := NewFrame(80, 80)
	s := uint32(11)
	for i := range f.Pix {
		s = s*1664525 + 1013904223
		f.Pix[i] = byte(100 + (s>>24)%10)
	}
	_, stdBefore := f.MeanStd()
	_, stdAfter := CLAHE(f, CLAHEClipLimit, CLAHETiles).MeanStd()
	if stdAfter <= stdBefore {
		t.Errorf("contrast not boosted: std %.2f -> %.2f", stdBefore, stdAfter)
	}
}

func TestSubRegionClamping(t *testing.T) {
	f := textureFrame(60, 40, 9)

	sub := f.SubRegion(50, 30, 20, 20)
	if sub == nil || sub.W != 10 || sub.H != 10 {
		t.Fatalf("clamped region = %+v, want 10x10", sub)
	}

	if f.SubRegion(70, 50, 10, 10) != nil {
		t.Error("out-of-bounds region should be nil")
	}

	full := f.SubRegion(0, 0, 60, 40)
	if !bytes.Equal(full.Pix, f.Pix) {
		t.Error("full-frame region should be pixel-identical")
	}
}

func TestResizeRoundTrip(t *testing.T) {
	f := textureFrame(40, 40, 13)
	up := f.Resize(80, 80)
	if up.W != 80 || up.H != 80 {
		t.Fatalf("resize dims = %dx%d, want 80x80", up.W, up.H)
	}
	if f.Resize(0, 10) != nil {
		t.Error("zero-width resize should return nil")
	}
}

func TestEncodePNGRoundTrip(t *testing.T) {
	f := textureFrame(16, 16, 21)
	var buf bytes.Buffer
	if err := f.EncodePNG(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	back := FromImage(img)
	if !bytes.Equal(back.Pix, f.Pix) {
		t.Error("PNG round trip should be lossless")
	}
}

func TestComputeSignatureFields(t *testing.T) {
	sig := ComputeSignature(textureFrame(48, 48, 17))
	if len(sig.Histogram) != HistogramBins {
		t.Errorf("histogram bins = %d, want %d", len(sig.Histogram), HistogramBins)
	}
	if sig.MeanBright <= 0 || sig.StdBright <= 0 {
		t.Error("textured region should have positive mean and std")
	}
}
