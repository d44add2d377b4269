package template

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gamewatch/gamewatch/internal/imaging"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	f := imaging.NewFrame(w, h)
	seed := uint32(len(name))
	for i := range f.Pix {
		seed = seed*1664525 + 1013904223
		f.Pix[i] = byte(seed >> 24)
	}
	var buf bytes.Buffer
	if err := f.EncodePNG(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "a.png", 32, 32)
	s := NewStore(0)

	first, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := s.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached template on reload")
	}
	if s.DecodeCount() != 1 {
		t.Fatalf("decodes = %d, want 1", s.DecodeCount())
	}
	for i := range first.Frame.Pix {
		if first.Frame.Pix[i] != second.Frame.Pix[i] {
			t.Fatal("pixel buffers differ between loads")
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(0)
	if _, err := s.Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(0)
	if _, err := s.Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestEvictionDropsOldestHalf(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(4)

	paths := make([]string, 5)
	for i := range paths {
		paths[i] = writeTestPNG(t, dir, fmt.Sprintf("t%d.png", i), 16, 16)
		if _, err := s.Load(paths[i]); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	// Fifth load overflows the ceiling of 4; the oldest two go.
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3 after eviction", s.Len())
	}

	before := s.DecodeCount()
	if _, err := s.Load(paths[4]); err != nil {
		t.Fatalf("reload newest: %v", err)
	}
	if s.DecodeCount() != before {
		t.Fatal("newest entry should have survived eviction")
	}
	if _, err := s.Load(paths[0]); err != nil {
		t.Fatalf("reload oldest: %v", err)
	}
	if s.DecodeCount() != before+1 {
		t.Fatal("oldest entry should have been evicted")
	}
}

func TestPruneDropsUnconfiguredTemplates(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(0)

	kept := writeTestPNG(t, dir, "kept.png", 16, 16)
	stale := writeTestPNG(t, dir, "stale.png", 16, 16)
	for _, p := range []string{kept, stale} {
		if _, err := s.Load(p); err != nil {
			t.Fatalf("load %q: %v", p, err)
		}
	}

	if dropped := s.Prune([]string{kept}); dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1 after prune", s.Len())
	}

	before := s.DecodeCount()
	if _, err := s.Load(kept); err != nil {
		t.Fatal(err)
	}
	if s.DecodeCount() != before {
		t.Fatal("kept template should have survived the prune")
	}
	if _, err := s.Load(stale); err != nil {
		t.Fatal(err)
	}
	if s.DecodeCount() != before+1 {
		t.Fatal("stale template should have been dropped")
	}
}

func TestClearForcesRedecode(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "a.png", 20, 20)
	s := NewStore(0)

	if _, err := s.Load(path); err != nil {
		t.Fatal(err)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatal("clear left entries behind")
	}
	if _, err := s.Load(path); err != nil {
		t.Fatal(err)
	}
	if s.DecodeCount() != 2 {
		t.Fatalf("decodes = %d, want 2 after clear", s.DecodeCount())
	}
}
