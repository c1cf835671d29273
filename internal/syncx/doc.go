// Package syncx provides the lock primitives behind the go-coord components.
//
// Key Components:
//
// • Cond: condition variable with context-aware Wait and FIFO wake-up order
// • Mutex: cancellable lock, as TokenMutex (no ordering promise) or FairMutex (FIFO)
// • LockWithTimeout: bounded acquisition reporting ErrLockTimeout
// • Tracker: lock state transitions (idle, acquiring, held, releasing)
// • WorkerPool: fixed-size executor with backpressure policies
//
// None of these are exposed through the public component APIs; callers only
// see the sentinel errors, which the root package re-exports.
package syncx
