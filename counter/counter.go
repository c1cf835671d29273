// Package counter provides an integer counter behind a reader/writer lock.
package counter

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// Counter allows any number of concurrent readers but only one writer at a
// time. It is guarded by a sync.RWMutex, so a writer waiting for the lock
// keeps new readers out until it is done and a stream of reads cannot starve
// increments.
//
// Every read sees a value some complete sequence of writes produced; nothing
// is read outside the lock, so torn values are impossible.
type Counter[T constraints.Integer] struct {
	mu    sync.RWMutex
	count T
}

// New creates a counter at zero.
func New[T constraints.Integer]() *Counter[T] {
	return &Counter[T]{}
}

// Increment adds one under exclusive access.
func (c *Counter[T]) Increment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

// Add adds delta under exclusive access and returns the new value.
func (c *Counter[T]) Add(delta T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count += delta
	return c.count
}

// Reset sets the counter to zero and returns the previous value.
func (c *Counter[T]) Reset() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.count
	c.count = 0
	return old
}

// Get returns the current value under shared access.
func (c *Counter[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}
