package syncx

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Mutex is a mutual exclusion lock whose acquisition can be abandoned.
type Mutex interface {
	// Lock blocks until the lock is held or ctx ends. On cancellation the
	// lock is not held and the error wraps ErrInterrupted.
	Lock(ctx context.Context) error
	// TryLock acquires the lock only if it is free right now.
	TryLock() bool
	// Unlock releases the lock. Unlocking a free lock panics with
	// ErrInvariantViolation.
	Unlock()
}

// NewMutex returns a FairMutex when fair is set and a TokenMutex otherwise.
func NewMutex(fair bool) Mutex {
	if fair {
		return NewFairMutex()
	}
	return NewTokenMutex()
}

// TokenMutex is a mutex backed by a one-slot channel: holding the lock means
// owning the slot. It makes no promise about the order in which blocked
// goroutines acquire the lock.
type TokenMutex struct {
	ch chan struct{}
}

// NewTokenMutex creates an unlocked TokenMutex
func NewTokenMutex() *TokenMutex {
	return &TokenMutex{
		ch: make(chan struct{}, 1),
	}
}

// Lock locks the mutex
func (tm *TokenMutex) Lock(ctx context.Context) error {
	if ctx.Err() != nil {
		return Interrupted(ctx)
	}

	select {
	case tm.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return Interrupted(ctx)
	}
}

// TryLock attempts to lock the mutex without blocking
func (tm *TokenMutex) TryLock() bool {
	select {
	case tm.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock unlocks the mutex
func (tm *TokenMutex) Unlock() {
	select {
	case <-tm.ch:
	default:
		panic(Invariant("unlock of unlocked TokenMutex"))
	}
}

// FairMutex grants the lock in the order Lock was called. Unlock yields the
// processor after releasing, so runnable goroutines about to call Lock get to
// queue before the releaser can ask again; a goroutine that releases and
// re-requests the lock in a loop therefore lines up behind them instead of
// winning every round. TryLock never jumps the queue.
type FairMutex struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

// NewFairMutex creates an unlocked FairMutex.
func NewFairMutex() *FairMutex {
	return &FairMutex{sem: semaphore.NewWeighted(1)}
}

func (fm *FairMutex) Lock(ctx context.Context) error {
	if err := fm.sem.Acquire(ctx, 1); err != nil {
		return Interrupted(ctx)
	}
	fm.held.Store(true)
	return nil
}

func (fm *FairMutex) TryLock() bool {
	if !fm.sem.TryAcquire(1) {
		return false
	}
	fm.held.Store(true)
	return true
}

func (fm *FairMutex) Unlock() {
	if !fm.held.CompareAndSwap(true, false) {
		panic(Invariant("unlock of unlocked FairMutex"))
	}
	fm.sem.Release(1)
	runtime.Gosched()
}

// LockWithTimeout acquires m, giving up after timeout. A non-positive timeout
// waits for as long as ctx allows.
//
// Expiry of the timeout yields ErrLockTimeout; cancellation of ctx itself
// yields ErrInterrupted wrapping ctx.Err().
func LockWithTimeout(ctx context.Context, m Mutex, timeout time.Duration) error {
	if timeout <= 0 {
		return m.Lock(ctx)
	}

	lockCtx, cancel := context.WithTimeoutCause(ctx, timeout, ErrLockTimeout)
	defer cancel()

	err := m.Lock(lockCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return Interrupted(ctx)
	}
	if errors.Is(context.Cause(lockCtx), ErrLockTimeout) {
		return fmt.Errorf("%w after %s", ErrLockTimeout, timeout)
	}
	return err
}
