package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/gamewatch/gamewatch/internal/imaging"
	"github.com/gamewatch/gamewatch/internal/resilience"
	"github.com/gamewatch/gamewatch/internal/window"
)

type fakeLocator struct {
	handle   *window.Handle
	valid    bool
	resolves int
}

func (l *fakeLocator) Resolve(title string) (*window.Handle, error) {
	l.resolves++
	if l.handle == nil {
		return nil, window.ErrNotFound
	}
	return l.handle, nil
}

func (l *fakeLocator) IsValid(h *window.Handle) bool { return l.valid }

// scriptedGrabber fails or succeeds per method and counts calls.
type scriptedGrabber struct {
	fail  map[Method]bool
	calls []Method
}

func (g *scriptedGrabber) Capture(h *window.Handle, m Method) (*imaging.Frame, error) {
	g.calls = append(g.calls, m)
	if g.fail[m] {
		return nil, ErrEmptyFrame
	}
	return imaging.NewFrame(8, 8), nil
}

func testHandle() *window.Handle {
	return &window.Handle{ID: 1, Title: "Game", Rect: window.Rect{W: 640, H: 480}, Visible: true}
}

func newTestOrchestrator(g Grabber) (*Orchestrator, *fakeLocator) {
	loc := &fakeLocator{handle: testHandle(), valid: true}
	o := NewOrchestrator(loc, g)
	o.AddSource("main", "Game")
	return o, loc
}

func TestCaptureFallsThroughToWorkingMethod(t *testing.T) {
	g := &scriptedGrabber{fail: map[Method]bool{FullContentPrint: true, BlockCopy: true}}
	o, _ := newTestOrchestrator(g)

	res, ok := o.CaptureSource("main")
	if !ok {
		t.Fatal("expected capture to succeed via fallback")
	}
	if res.Method != ScreenRegion {
		t.Fatalf("method = %v, want %v", res.Method, ScreenRegion)
	}
	want := []Method{FullContentPrint, BlockCopy, ScreenRegion}
	if len(g.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", g.calls, want)
	}
	for i, m := range want {
		if g.calls[i] != m {
			t.Fatalf("calls = %v, want %v", g.calls, want)
		}
	}
}

func TestCaptureRemembersWorkingMethod(t *testing.T) {
	g := &scriptedGrabber{fail: map[Method]bool{FullContentPrint: true}}
	o, _ := newTestOrchestrator(g)

	if _, ok := o.CaptureSource("main"); !ok {
		t.Fatal("first capture failed")
	}
	g.calls = nil

	// Subsequent cycles must use only the remembered method.
	for i := 0; i < 3; i++ {
		res, ok := o.CaptureSource("main")
		if !ok {
			t.Fatalf("cycle %d failed", i)
		}
		if res.Method != BlockCopy {
			t.Fatalf("cycle %d method = %v, want %v", i, res.Method, BlockCopy)
		}
	}
	if len(g.calls) != 3 {
		t.Fatalf("expected 3 hot-path calls, got %v", g.calls)
	}
	for _, m := range g.calls {
		if m != BlockCopy {
			t.Fatalf("hot path probed %v", g.calls)
		}
	}
}

func TestCaptureForgetsMethodOnFailure(t *testing.T) {
	g := &scriptedGrabber{fail: map[Method]bool{}}
	o, _ := newTestOrchestrator(g)

	if res, ok := o.CaptureSource("main"); !ok || res.Method != FullContentPrint {
		t.Fatal("expected first method to win initially")
	}

	// Remembered method starts failing; the full order must run again.
	g.fail[FullContentPrint] = true
	g.calls = nil
	res, ok := o.CaptureSource("main")
	if !ok {
		t.Fatal("expected fallback to recover")
	}
	if res.Method != BlockCopy {
		t.Fatalf("method = %v, want %v", res.Method, BlockCopy)
	}
	// One failed hot-path attempt, then the fallback order from the top.
	want := []Method{FullContentPrint, FullContentPrint, BlockCopy}
	if len(g.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", g.calls, want)
	}
	for i, m := range want {
		if g.calls[i] != m {
			t.Fatalf("calls = %v, want %v", g.calls, want)
		}
	}
}

func TestCaptureAllMethodsFail(t *testing.T) {
	g := &scriptedGrabber{fail: map[Method]bool{
		FullContentPrint: true, BasicPrint: true, BlockCopy: true,
		ScreenRegion: true, LibraryGrab: true,
	}}
	o, _ := newTestOrchestrator(g)

	if _, ok := o.CaptureSource("main"); ok {
		t.Fatal("expected failure when every method fails")
	}
	snap := o.Stats().Snapshot()
	if snap.SuccessfulCaptures != 0 {
		t.Fatalf("successful captures = %d, want 0", snap.SuccessfulCaptures)
	}
	if snap.TotalAttempts != int64(len(fallbackOrder)) {
		t.Fatalf("attempts = %d, want %d", snap.TotalAttempts, len(fallbackOrder))
	}
}

func TestCaptureWindowNotFound(t *testing.T) {
	g := &scriptedGrabber{}
	loc := &fakeLocator{handle: nil}
	o := NewOrchestrator(loc, g)
	o.AddSource("main", "Missing")

	if _, ok := o.CaptureSource("main"); ok {
		t.Fatal("expected failure when window is missing")
	}
	if len(g.calls) != 0 {
		t.Fatalf("grabber called %v with no window", g.calls)
	}
}

func TestCaptureReResolvesInvalidHandle(t *testing.T) {
	g := &scriptedGrabber{}
	o, loc := newTestOrchestrator(g)

	if _, ok := o.CaptureSource("main"); !ok {
		t.Fatal("first capture failed")
	}
	first := loc.resolves

	// Handle goes stale; the next cycle must resolve again.
	loc.valid = false
	if _, ok := o.CaptureSource("main"); !ok {
		t.Fatal("capture after re-resolve failed")
	}
	if loc.resolves <= first {
		t.Fatal("expected a fresh resolve for an invalid handle")
	}
}

func TestMethodHintPromotedToFront(t *testing.T) {
	g := &scriptedGrabber{fail: map[Method]bool{BasicPrint: true}}
	o, _ := newTestOrchestrator(g)
	o.SetMethodHint("main", BasicPrint)

	res, ok := o.CaptureSource("main")
	if !ok {
		t.Fatal("capture failed")
	}
	if g.calls[0] != BasicPrint {
		t.Fatalf("first probe = %v, want hint %v", g.calls[0], BasicPrint)
	}
	if res.Method != FullContentPrint {
		t.Fatalf("method = %v, want %v", res.Method, FullContentPrint)
	}
}

func TestStatsRecordAndReset(t *testing.T) {
	s := NewStats()
	s.Record(BlockCopy, true, 20*time.Millisecond)
	s.Record(BlockCopy, true, 40*time.Millisecond)
	s.Record(ScreenRegion, false, 5*time.Millisecond)

	snap := s.Snapshot()
	if snap.TotalAttempts != 3 || snap.SuccessfulCaptures != 2 {
		t.Fatalf("attempts=%d captures=%d", snap.TotalAttempts, snap.SuccessfulCaptures)
	}
	bc := snap.Methods[BlockCopy.String()]
	if bc.Attempts != 2 || bc.Successes != 2 {
		t.Fatalf("block-copy stats = %+v", bc)
	}
	if bc.AvgTimeMs != 30 {
		t.Fatalf("avg = %v, want 30", bc.AvgTimeMs)
	}

	s.Reset()
	if s.Snapshot().TotalAttempts != 0 {
		t.Fatal("reset did not zero counters")
	}
}

func TestBreakerSuspendsFailingSource(t *testing.T) {
	g := &scriptedGrabber{fail: map[Method]bool{
		FullContentPrint: true, BasicPrint: true, BlockCopy: true,
		ScreenRegion: true, LibraryGrab: true,
	}}
	o, _ := newTestOrchestrator(g)

	for i := 0; i < resilience.FastThreshold; i++ {
		if _, ok := o.CaptureSource("main"); ok {
			t.Fatalf("cycle %d unexpectedly succeeded", i)
		}
	}

	// Breaker is now open: further cycles must not touch the grabber.
	before := len(g.calls)
	if _, ok := o.CaptureSource("main"); ok {
		t.Fatal("open breaker must fail fast")
	}
	if len(g.calls) != before {
		t.Fatalf("grabber called %d times while suspended", len(g.calls)-before)
	}
}

// flappingGrabber alternates success and failure so the remembered method
// keeps getting forgotten and the full probe order stays in play.
type flappingGrabber struct {
	n int
}

func (g *flappingGrabber) Capture(h *window.Handle, m Method) (*imaging.Frame, error) {
	g.n++
	if g.n%2 == 0 {
		return nil, ErrEmptyFrame
	}
	return imaging.NewFrame(8, 8), nil
}

func TestHintUpdatesDuringCaptureCycles(t *testing.T) {
	o, _ := newTestOrchestrator(&flappingGrabber{})

	// Hint updates arrive from the config-reload goroutine while capture
	// cycles are running; both must be safe to interleave.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			o.CaptureSource("main")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			o.SetMethodHint("main", Method(i%int(methodCount)))
		}
	}()
	wg.Wait()

	o.SetMethodHint("main", BlockCopy)
	if _, ok := o.CaptureSource("main"); !ok {
		// Flapping grabber: one retry guarantees a success.
		if _, ok := o.CaptureSource("main"); !ok {
			t.Fatal("capture broken after concurrent hint updates")
		}
	}
}

func TestParseMethodRoundTrip(t *testing.T) {
	for m := Method(0); m < methodCount; m++ {
		got, err := ParseMethod(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseMethod(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMethod("teleport"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}
