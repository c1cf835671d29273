package syncx

import (
	"context"
	"errors"
	"fmt"
)

// Coordination errors
var (
	ErrInterrupted        = errors.New("wait interrupted")
	ErrLockTimeout        = errors.New("lock not acquired before timeout")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrBrokenBarrier      = errors.New("barrier broken")
)

// Worker pool errors
var (
	ErrWorkerPoolAlreadyStarted  = errors.New("worker pool already started")
	ErrWorkerPoolNotStarted      = errors.New("worker pool not started")
	ErrWorkerPoolStopped         = errors.New("worker pool is stopped")
	ErrWorkerPoolAlreadyStopped  = errors.New("worker pool already stopped")
	ErrTaskDropped               = errors.New("task dropped due to backpressure")
	ErrTimeout                   = errors.New("operation timed out")
	ErrUnknownBackpressurePolicy = errors.New("unknown backpressure policy")
)

// Interrupted wraps the context error so callers can match both
// ErrInterrupted and context.Canceled / context.DeadlineExceeded.
func Interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
}

// Invariant returns an ErrInvariantViolation carrying a description.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
