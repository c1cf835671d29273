// Package cell provides a single-slot handoff buffer between producers and
// consumers.
package cell

import (
	"context"
	"sync"
	"time"

	"github.com/a2y-d5l/go-coord/internal/syncx"
	"github.com/a2y-d5l/go-coord/observability"
)

// Re-exported so callers can match errors without importing internals.
var (
	ErrInterrupted = syncx.ErrInterrupted
)

// Stats counts put/take outcomes. Respins are wake-ups after which the
// caller found the cell still in the wrong state and waited again.
type Stats = syncx.Stats

// Cell holds at most one item. Put waits while the cell is full and Take
// waits while it is empty, so items pass through strictly one at a time and
// none is ever overwritten.
//
// The zero value is not usable; create cells with New.
type Cell[T any] struct {
	mu       sync.Mutex
	notFull  *syncx.Cond
	notEmpty *syncx.Cond
	item     T
	occupied bool

	log     *observability.ComponentLogger
	tracker *syncx.Tracker
}

// New creates an empty cell.
func New[T any](opts ...Option) *Cell[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var obs syncx.Observer
	if cfg.metrics != nil {
		obs = cfg.metrics
	}

	c := &Cell[T]{
		log:     observability.NewComponentLogger(cfg.logger, cfg.name),
		tracker: syncx.NewTracker(cfg.name, obs),
	}
	c.notFull = syncx.NewCond(&c.mu)
	c.notEmpty = syncx.NewCond(&c.mu)
	return c
}

// Put stores item once the cell is empty and wakes one waiting Take.
//
// If ctx ends first the item is not stored and the returned error wraps
// both ErrInterrupted and ctx.Err().
func (c *Cell[T]) Put(ctx context.Context, item T) error {
	acq := c.tracker.Acquire()
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for c.occupied {
		if err := c.notFull.Wait(ctx); err != nil {
			acq.Fail(err)
			c.log.LogAcquireFailure(ctx, "put", time.Since(start), err)
			return err
		}
		if c.occupied {
			acq.Respin()
		}
	}
	acq.Held()

	c.item = item
	c.occupied = true
	c.notEmpty.Signal()

	acq.Release()
	return nil
}

// Take removes and returns the item once one is present and wakes one
// waiting Put.
//
// If ctx ends first nothing is removed and the returned error wraps both
// ErrInterrupted and ctx.Err().
func (c *Cell[T]) Take(ctx context.Context) (T, error) {
	acq := c.tracker.Acquire()
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for !c.occupied {
		if err := c.notEmpty.Wait(ctx); err != nil {
			acq.Fail(err)
			c.log.LogAcquireFailure(ctx, "take", time.Since(start), err)
			var zero T
			return zero, err
		}
		if !c.occupied {
			acq.Respin()
		}
	}
	acq.Held()

	item := c.take()
	c.notFull.Signal()

	acq.Release()
	return item, nil
}

// TryPut stores item only if the cell is empty right now.
func (c *Cell[T]) TryPut(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.occupied {
		return false
	}
	c.item = item
	c.occupied = true
	c.notEmpty.Signal()
	return true
}

// TryTake removes the item only if one is present right now.
func (c *Cell[T]) TryTake() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.occupied {
		var zero T
		return zero, false
	}
	item := c.take()
	c.notFull.Signal()
	return item, true
}

// Occupied reports whether the cell currently holds an item.
func (c *Cell[T]) Occupied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.occupied
}

// Stats returns the put/take outcome counts so far.
func (c *Cell[T]) Stats() Stats {
	return c.tracker.Stats()
}

// take empties the cell. Callers hold c.mu and have checked c.occupied.
func (c *Cell[T]) take() T {
	item := c.item
	var zero T
	c.item = zero
	c.occupied = false
	return item
}
