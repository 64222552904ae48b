// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// Guard owns a value behind a single mutex. All access goes through scoped
// callbacks so the lock can never leak past them, and nothing blocking
// should run inside one.
type Guard[T any] struct {
	mu    sync.Mutex
	value T
}

func NewGuard[T any](initial T) *Guard[T] {
	return &Guard[T]{value: initial}
}

// Do runs fn with the lock held; fn may mutate the value through the pointer.
func (g *Guard[T]) Do(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}

// Apply runs fn with g's lock held and returns its result. Use it to read
// a consistent snapshot or to make a check-and-set decision atomically.
func Apply[T, R any](g *Guard[T], fn func(*T) R) R {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&g.value)
}
