// Package account provides a balance guarded by a mutual exclusion lock.
//
// An Account is configured once, at construction, for one of two acquire
// modes: an unbounded wait (the default) or a bounded wait that gives up with
// ErrLockTimeout. Fairness is a separate switch; see WithFairness.
package account

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/a2y-d5l/go-coord/internal/syncx"
	"github.com/a2y-d5l/go-coord/observability"
)

// Re-exported so callers can match errors without importing internals.
var (
	ErrInterrupted        = syncx.ErrInterrupted
	ErrLockTimeout        = syncx.ErrLockTimeout
	ErrInvariantViolation = syncx.ErrInvariantViolation
)

// Stats counts lock acquisition outcomes.
type Stats = syncx.Stats

// Account is a non-negative balance. Every read and write happens under one
// lock, so withdrawals are serializable and never observed half-applied.
type Account struct {
	mu      syncx.Mutex
	balance uint64

	fair    bool
	timeout time.Duration

	log     *observability.ComponentLogger
	tracker *syncx.Tracker
}

// New creates an account holding initial.
func New(initial uint64, opts ...Option) (*Account, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid account options: %w", err)
	}

	var obs syncx.Observer
	if cfg.metrics != nil {
		obs = cfg.metrics
	}

	return &Account{
		mu:      syncx.NewMutex(cfg.fair),
		balance: initial,
		fair:    cfg.fair,
		timeout: cfg.acquireTimeout,
		log:     observability.NewComponentLogger(cfg.logger, cfg.name),
		tracker: syncx.NewTracker(cfg.name, obs),
	}, nil
}

// Update runs fn with the current balance while holding the lock and stores
// the balance fn returns. When fn returns an error the balance is left
// unchanged and the error is returned as is. The lock is released on every
// path out of Update, including a panic in fn, which is re-raised.
func (a *Account) Update(ctx context.Context, fn func(balance uint64) (uint64, error)) error {
	acq := a.tracker.Acquire()
	start := time.Now()

	if err := syncx.LockWithTimeout(ctx, a.mu, a.timeout); err != nil {
		acq.Fail(err)
		a.log.LogAcquireFailure(ctx, "update", time.Since(start), err)
		return err
	}
	acq.Held()
	defer func() {
		acq.Release()
		a.mu.Unlock()
	}()

	next, err := fn(a.balance)
	if err != nil {
		return err
	}
	a.balance = next
	return nil
}

// Withdraw takes amount out of the balance if the balance covers it. It
// reports false, leaving the balance untouched, when it does not.
//
// A non-nil error means the lock was never acquired: ErrLockTimeout when the
// configured acquire timeout expired, ErrInterrupted (wrapping ctx.Err())
// when ctx ended first.
func (a *Account) Withdraw(ctx context.Context, amount uint64) (bool, error) {
	var (
		ok      bool
		balance uint64
	)
	err := a.Update(ctx, func(b uint64) (uint64, error) {
		if amount > b {
			balance = b
			return b, nil
		}
		ok = true
		balance = b - amount
		return balance, nil
	})
	if err != nil {
		return false, err
	}

	a.log.LogWithdrawal(ctx, amount, balance, ok)
	return ok, nil
}

// Deposit adds amount to the balance. A deposit that would overflow fails
// with ErrInvariantViolation and changes nothing.
func (a *Account) Deposit(ctx context.Context, amount uint64) error {
	return a.Update(ctx, func(b uint64) (uint64, error) {
		if b > math.MaxUint64-amount {
			return b, syncx.Invariant("deposit of %d overflows balance %d", amount, b)
		}
		return b + amount, nil
	})
}

// Balance returns the balance as of the moment the lock was held.
func (a *Account) Balance(ctx context.Context) (uint64, error) {
	var balance uint64
	err := a.Update(ctx, func(b uint64) (uint64, error) {
		balance = b
		return b, nil
	})
	return balance, err
}

// Fair reports whether the account hands its lock off in FIFO order.
func (a *Account) Fair() bool { return a.fair }

// AcquireTimeout returns the configured bound on lock waits; zero means none.
func (a *Account) AcquireTimeout() time.Duration { return a.timeout }

// Stats returns how many lock acquisitions succeeded, timed out or were
// interrupted so far.
func (a *Account) Stats() Stats { return a.tracker.Stats() }
