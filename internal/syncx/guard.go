// Package syncx holds small synchronization helpers shared across the daemon.
package syncx

import "sync"

// RWGuard pairs a value with an RWMutex so callers cannot touch the value
// without holding the right lock. The monitor keeps its live configuration
// behind one of these; hot-reload swaps the whole snapshot.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard creates a guard around an initial value.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Get returns the current value under the read lock. T should be a value
// type or treated as immutable by callers.
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set replaces the value under the write lock.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Update runs fn with a pointer to the value under the write lock and
// returns fn's result.
func (g *RWGuard[T]) Update(fn func(*T) any) any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&g.value)
}
