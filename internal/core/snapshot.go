package core

import "sync"

// Cell is a single-writer cache holding the latest full snapshot delivered
// by a store subscription. Each delivery replaces the value wholesale;
// consumers read the cell instead of accumulating deltas, which keeps the
// store's at-least-once, order-unspecified delivery safe.
type Cell[T any] struct {
	mu  sync.RWMutex
	set bool
	v   T
}

// Store replaces the cached snapshot.
func (c *Cell[T]) Store(v T) {
	c.mu.Lock()
	c.v = v
	c.set = true
	c.mu.Unlock()
}

// Load returns the latest snapshot and whether one was ever delivered.
func (c *Cell[T]) Load() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v, c.set
}
