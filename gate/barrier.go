package gate

import (
	"context"
	"sync"

	"github.com/a2y-d5l/go-coord/internal/syncx"
)

// Barrier releases goroutines in groups of a fixed size. When the last party
// of a group arrives everyone in the group proceeds and the barrier is ready
// for the next group.
//
// A party that gives up while waiting breaks its group: the others are
// released with ErrBrokenBarrier, and later arrivals start a fresh group.
type Barrier struct {
	mu      sync.Mutex
	parties int
	gen     *generation
}

type generation struct {
	arrived int
	broken  bool
	done    chan struct{}
}

func newGeneration() *generation {
	return &generation{done: make(chan struct{})}
}

// NewBarrier creates a barrier for groups of parties goroutines. parties
// below one is treated as one.
func NewBarrier(parties int) *Barrier {
	return &Barrier{
		parties: max(parties, 1),
		gen:     newGeneration(),
	}
}

// Parties returns the group size.
func (b *Barrier) Parties() int {
	return b.parties
}

// Waiting returns how many parties of the current group have arrived.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen.arrived
}

// Await blocks until the whole group has arrived. It returns the caller's
// arrival index within the group, 0 for the first to arrive.
//
// If ctx ends first the group is broken and the error wraps ErrInterrupted;
// the other waiters of the group get ErrBrokenBarrier.
func (b *Barrier) Await(ctx context.Context) (int, error) {
	b.mu.Lock()
	g := b.gen
	index := g.arrived
	g.arrived++

	if g.arrived == b.parties {
		close(g.done)
		b.gen = newGeneration()
		b.mu.Unlock()
		return index, nil
	}
	b.mu.Unlock()

	select {
	case <-g.done:
		if g.broken {
			return index, ErrBrokenBarrier
		}
		return index, nil
	case <-ctx.Done():
	}

	b.mu.Lock()
	if g == b.gen {
		b.breakLocked()
		b.mu.Unlock()
		return index, syncx.Interrupted(ctx)
	}
	b.mu.Unlock()

	// The group tripped or broke while we were giving up.
	if g.broken {
		return index, ErrBrokenBarrier
	}
	return index, nil
}

// Reset breaks the current group, if anyone is waiting in it, and starts a
// new one.
func (b *Barrier) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen.arrived > 0 {
		b.breakLocked()
		return
	}
	b.gen = newGeneration()
}

func (b *Barrier) breakLocked() {
	b.gen.broken = true
	close(b.gen.done)
	b.gen = newGeneration()
}
