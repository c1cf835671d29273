package coord

import "github.com/a2y-d5l/go-coord/internal/syncx"

var (
	// ErrInterrupted indicates a blocked wait was cancelled through its
	// context. The error also wraps the context's own error.
	ErrInterrupted = syncx.ErrInterrupted
	// ErrLockTimeout indicates a bounded lock wait expired. Retrying is up to
	// the caller.
	ErrLockTimeout = syncx.ErrLockTimeout
	// ErrInvariantViolation indicates misuse that correct programs never
	// trigger.
	ErrInvariantViolation = syncx.ErrInvariantViolation
	// ErrBrokenBarrier indicates a barrier group was broken by a party that
	// gave up or by Reset.
	ErrBrokenBarrier = syncx.ErrBrokenBarrier
)
