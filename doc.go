// Package coord provides small, thread-safe building blocks for sharing one
// mutable resource between many goroutines.
//
// The components live in focused subpackages:
//
//   - github.com/a2y-d5l/go-coord/cell     - single-slot producer/consumer handoff
//   - github.com/a2y-d5l/go-coord/account  - balance behind a lock with timeout and fairness options
//   - github.com/a2y-d5l/go-coord/counter  - counter behind a reader/writer lock
//   - github.com/a2y-d5l/go-coord/gate     - count-down latch and cyclic barrier
//
// The root package re-exports the constructors, types and error values so
// simple programs need a single import.
//
// Example usage:
//
//	c := coord.NewCell[int]()
//	go func() {
//		for i := 1; i <= 10; i++ {
//			_ = c.Put(ctx, i)
//		}
//	}()
//	v, err := c.Take(ctx)
//
//	acct, err := coord.NewAccount(100,
//		account.WithFairness(true),
//		account.WithAcquireTimeout(time.Second))
//	ok, err := acct.Withdraw(ctx, 80)
//	if errors.Is(err, coord.ErrLockTimeout) {
//		// retry later; the account never retries on its own
//	}
//
// None of the components expose their locks, and none keeps global state:
// construct one instance and pass it to the goroutines that share it.
package coord
