// Package gate provides one-shot and cyclic rendezvous points for groups of
// goroutines: a count-down latch and a cyclic barrier.
package gate

import (
	"context"
	"sync"

	"github.com/a2y-d5l/go-coord/internal/syncx"
)

// Re-exported so callers can match errors without importing internals.
var (
	ErrInterrupted   = syncx.ErrInterrupted
	ErrBrokenBarrier = syncx.ErrBrokenBarrier
)

// Latch opens once CountDown has been called count times. It cannot be
// re-armed.
type Latch struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

// NewLatch creates a latch that opens after count calls to CountDown. A
// non-positive count yields a latch that is already open.
func NewLatch(count int) *Latch {
	l := &Latch{
		count: max(count, 0),
		done:  make(chan struct{}),
	}
	if l.count == 0 {
		close(l.done)
	}
	return l
}

// CountDown decrements the count, opening the latch when it reaches zero.
// Calls after that are no-ops.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.done)
	}
}

// Count returns the number of CountDown calls still needed.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Done returns a channel closed when the latch opens.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the latch opens or ctx ends.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	default:
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return syncx.Interrupted(ctx)
	}
}
