package learn

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/gamewatch/gamewatch/internal/imaging"
)

func textureRegion(w, h int, seed uint32) *imaging.Frame {
	f := imaging.NewFrame(w, h)
	s := seed
	for i := range f.Pix {
		s = s*1664525 + 1013904223
		f.Pix[i] = byte(s >> 24)
	}
	return f
}

func flatRegion(w, h int, v byte) *imaging.Frame {
	f := imaging.NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestSuppressMatchesRejectedRegion(t *testing.T) {
	f := NewFilter(nil)
	region := textureRegion(40, 40, 7)

	f.RecordFeedback("rally", 0.85, false, region)
	if !f.ShouldSuppress("rally", region.Clone()) {
		t.Fatal("identical region should be suppressed")
	}
	if f.ShouldSuppress("rally", flatRegion(40, 40, 200)) {
		t.Fatal("dissimilar region should not be suppressed")
	}
	if f.ShouldSuppress("other", region) {
		t.Fatal("patterns must be scoped per alert")
	}
}

func TestAcceptedFeedbackStoresNoPattern(t *testing.T) {
	f := NewFilter(nil)
	f.RecordFeedback("rally", 0.9, true, textureRegion(40, 40, 3))
	if f.PatternCount("rally") != 0 {
		t.Fatal("accepted feedback must not add patterns")
	}
	if f.SampleCount("rally") != 1 {
		t.Fatal("accepted feedback must still count as a sample")
	}
}

func TestPatternRetentionBound(t *testing.T) {
	f := NewFilter(nil)
	for i := 0; i < MaxPatternsPerAlert+10; i++ {
		f.RecordFeedback("rally", 0.8, false, textureRegion(30, 30, uint32(i+1)))
	}
	if n := f.PatternCount("rally"); n != MaxPatternsPerAlert {
		t.Fatalf("patterns = %d, want %d", n, MaxPatternsPerAlert)
	}
}

func TestAdjustedThresholdNeedsSamples(t *testing.T) {
	f := NewFilter(nil)
	for i := 0; i < MinSamplesForAdjust-1; i++ {
		f.RecordFeedback("rally", 0.9, i%2 == 0, nil)
	}
	if got := f.AdjustedThreshold("rally", 0.8); got != 0.8 {
		t.Fatalf("threshold = %v, want default with few samples", got)
	}
}

func TestAdjustedThresholdCleanSeparation(t *testing.T) {
	f := NewFilter(nil)
	// Accepted cluster at 0.90+, rejected cluster at 0.60-.
	for i := 0; i < 6; i++ {
		f.RecordFeedback("rally", 0.90+float64(i)*0.01, true, nil)
	}
	for i := 0; i < 6; i++ {
		f.RecordFeedback("rally", 0.60-float64(i)*0.01, false, nil)
	}

	def := 0.80
	got := f.AdjustedThreshold("rally", def)
	suggested := (0.90 + 0.60) / 2
	if got == def {
		t.Fatal("expected an adjustment with clean separation")
	}
	// Movement toward the suggestion, never past the blend cap.
	maxMove := MaxBlend * math.Abs(suggested-def)
	if math.Abs(got-def) > maxMove+1e-9 {
		t.Fatalf("moved %.4f, cap is %.4f", math.Abs(got-def), maxMove)
	}
	if (suggested-def)*(got-def) < 0 {
		t.Fatalf("adjustment moved away from suggestion: def=%v got=%v suggested=%v", def, got, suggested)
	}
}

func TestAdjustedThresholdOverlappingPopulations(t *testing.T) {
	f := NewFilter(nil)
	// Overlap: some rejections above some acceptances.
	for i := 0; i < 6; i++ {
		f.RecordFeedback("rally", 0.80, true, nil)
	}
	for i := 0; i < 6; i++ {
		f.RecordFeedback("rally", 0.85, false, nil)
	}

	def := 0.70
	got := f.AdjustedThreshold("rally", def)
	suggested := 0.95 * 0.80
	if got <= def {
		t.Fatalf("threshold = %v, expected a move toward %v", got, suggested)
	}
	if got > def+MaxBlend*(suggested-def)+1e-9 {
		t.Fatalf("threshold = %v exceeds blend cap", got)
	}
}

func TestAdjustedThresholdOneSidedFeedback(t *testing.T) {
	f := NewFilter(nil)
	for i := 0; i < MinSamplesForAdjust+2; i++ {
		f.RecordFeedback("rally", 0.9, true, nil)
	}
	if got := f.AdjustedThreshold("rally", 0.8); got != 0.8 {
		t.Fatalf("threshold = %v, one-sided feedback must not adjust", got)
	}
}

func TestStorePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learn.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f := NewFilter(store)
	region := textureRegion(40, 40, 21)
	f.RecordFeedback("rally", 0.85, false, region)
	f.RecordFeedback("rally", 0.92, true, nil)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store2.Close()
	f2 := NewFilter(store2)

	if f2.PatternCount("rally") != 1 {
		t.Fatalf("patterns = %d after restart, want 1", f2.PatternCount("rally"))
	}
	if f2.SampleCount("rally") != 2 {
		t.Fatalf("samples = %d after restart, want 2", f2.SampleCount("rally"))
	}
	if !f2.ShouldSuppress("rally", region) {
		t.Fatal("restored pattern should still suppress")
	}
}
