package syncx

import (
	"container/list"
	"context"
	"sync"
)

// Cond is a condition variable whose Wait can be abandoned through a context.
//
// Like sync.Cond, Wait must be called with L held and returns with L held,
// and callers re-check their predicate in a loop. Waiters are woken in the
// order they started waiting. A waiter that gives up after being signalled
// passes the signal on, so cancellation never swallows a wake-up.
type Cond struct {
	L sync.Locker

	mu      sync.Mutex
	waiters list.List // of chan struct{}
}

// NewCond returns a Cond bound to l.
func NewCond(l sync.Locker) *Cond {
	return &Cond{L: l}
}

// Wait atomically unlocks L and suspends until Signal or Broadcast wakes the
// caller or ctx ends. L is locked again before Wait returns in both cases.
// On cancellation the returned error wraps ErrInterrupted and ctx.Err().
func (c *Cond) Wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return Interrupted(ctx)
	}

	ch := make(chan struct{})
	c.mu.Lock()
	elem := c.waiters.PushBack(ch)
	c.mu.Unlock()

	c.L.Unlock()

	select {
	case <-ch:
		c.L.Lock()
		return nil
	case <-ctx.Done():
	}

	c.mu.Lock()
	signalled := false
	select {
	case <-ch:
		// Signal already unlinked us.
		signalled = true
	default:
		c.waiters.Remove(elem)
	}
	c.mu.Unlock()

	if signalled {
		c.Signal()
	}

	c.L.Lock()
	return Interrupted(ctx)
}

// Signal wakes the longest-waiting goroutine, if any.
func (c *Cond) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	front := c.waiters.Front()
	if front == nil {
		return
	}
	c.waiters.Remove(front)
	close(front.Value.(chan struct{}))
}

// Broadcast wakes every waiting goroutine.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for e := c.waiters.Front(); e != nil; e = e.Next() {
		close(e.Value.(chan struct{}))
	}
	c.waiters.Init()
}

// Waiters returns the number of goroutines currently blocked in Wait.
func (c *Cond) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.Len()
}
