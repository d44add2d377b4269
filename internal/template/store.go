// Package template loads and caches reference images used for frame matching.
package template

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	apperr "github.com/gamewatch/gamewatch/internal/errors"
	"github.com/gamewatch/gamewatch/internal/imaging"
)

const (
	// DefaultCacheCeiling bounds the number of cached templates. On
	// overflow the oldest half is dropped (generational, not strict LRU).
	DefaultCacheCeiling = 50

	// Dimension sanity bounds. Out-of-range templates still load; they
	// are only logged because they usually indicate a wrong file.
	MinSaneDim = 10
	MaxSaneDim = 800
)

// Template is one decoded reference image plus its grayscale projection.
type Template struct {
	Path  string
	Frame *imaging.Frame
	Gray  *imaging.Gray
}

type entry struct {
	tmpl *Template
	gen  uint64
}

// Store memoizes template decodes by absolute path. Reads vastly outnumber
// writes, so lookups take the read lock and only a first-time decode or an
// eviction takes the write lock.
type Store struct {
	ceiling int

	mu      sync.RWMutex
	cache   map[string]*entry
	gen     uint64
	decodes int
}

// NewStore creates a template store with the given cache ceiling.
// A ceiling of zero or below uses the default.
func NewStore(ceiling int) *Store {
	if ceiling <= 0 {
		ceiling = DefaultCacheCeiling
	}
	return &Store{
		ceiling: ceiling,
		cache:   make(map[string]*entry),
	}
}

// Load returns the decoded template for a path, decoding it at most once.
// The same path always yields the same pixel buffer until evicted.
func (s *Store) Load(path string) (*Template, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("template: resolve %q: %w", path, err)
	}

	s.mu.RLock()
	e, ok := s.cache[abs]
	s.mu.RUnlock()
	if ok {
		return e.tmpl, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache[abs]; ok {
		return e.tmpl, nil
	}

	tmpl, err := s.decode(abs)
	if err != nil {
		return nil, err
	}
	s.gen++
	s.cache[abs] = &entry{tmpl: tmpl, gen: s.gen}
	if len(s.cache) > s.ceiling {
		s.evictOldestHalf()
	}
	return tmpl, nil
}

func (s *Store) decode(abs string) (*Template, error) {
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("template: open %q: %w", abs, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindDecode, fmt.Sprintf("template %q", abs))
	}
	s.decodes++

	frame := imaging.FromImage(img)
	if frame.W == 0 || frame.H == 0 {
		return nil, apperr.Newf(apperr.KindDecode, "template %q decoded to empty image", abs)
	}
	if frame.W < MinSaneDim || frame.H < MinSaneDim {
		slog.Warn("template suspiciously small", "path", abs, "width", frame.W, "height", frame.H)
	}
	if frame.W > MaxSaneDim || frame.H > MaxSaneDim {
		slog.Warn("template suspiciously large", "path", abs, "width", frame.W, "height", frame.H)
	}

	return &Template{Path: abs, Frame: frame, Gray: frame.Gray()}, nil
}

// evictOldestHalf drops the entries with the lowest generation numbers.
// Caller holds the write lock.
func (s *Store) evictOldestHalf() {
	type aged struct {
		path string
		gen  uint64
	}
	all := make([]aged, 0, len(s.cache))
	for p, e := range s.cache {
		all = append(all, aged{p, e.gen})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].gen < all[j].gen })

	drop := len(all) / 2
	for _, a := range all[:drop] {
		delete(s.cache, a.path)
	}
	slog.Info("template cache evicted", "dropped", drop, "remaining", len(s.cache))
}

// Len reports the number of cached templates.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// DecodeCount reports how many disk decodes have happened.
func (s *Store) DecodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decodes
}

// Prune drops cached templates whose paths are not in keep and reports how
// many were dropped. The monitor runs this periodically so templates removed
// from the configuration do not linger in memory.
func (s *Store) Prune(keep []string) int {
	want := make(map[string]bool, len(keep))
	for _, p := range keep {
		if abs, err := filepath.Abs(p); err == nil {
			want[abs] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for p := range s.cache {
		if !want[p] {
			delete(s.cache, p)
			dropped++
		}
	}
	return dropped
}

// Clear empties the cache. Used by config hot-reload when template files
// change on disk.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*entry)
}
