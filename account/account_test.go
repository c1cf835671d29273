package account

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Options(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := defaultConfig()

		assert.Equal(t, "account", cfg.name)
		assert.False(t, cfg.fair)
		assert.Zero(t, cfg.acquireTimeout)
		assert.NoError(t, cfg.validate())
	})

	t.Run("applied", func(t *testing.T) {
		a, err := New(10, WithFairness(true), WithAcquireTimeout(time.Second))
		require.NoError(t, err)

		assert.True(t, a.Fair())
		assert.Equal(t, time.Second, a.AcquireTimeout())
	})

	t.Run("invalid options are all reported", func(t *testing.T) {
		_, err := New(10, WithName(""), WithAcquireTimeout(-time.Second))
		require.Error(t, err)

		assert.Contains(t, err.Error(), "invalid account options")
		assert.Contains(t, err.Error(), "name must not be empty")
		assert.Contains(t, err.Error(), "acquire timeout must not be negative")
	})
}

func TestAccount_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("sufficient balance", func(t *testing.T) {
		a, err := New(100)
		require.NoError(t, err)

		ok, err := a.Withdraw(ctx, 80)
		require.NoError(t, err)
		assert.True(t, ok)

		balance, err := a.Balance(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), balance)
	})

	t.Run("insufficient balance is refused", func(t *testing.T) {
		a, err := New(20)
		require.NoError(t, err)

		ok, err := a.Withdraw(ctx, 80)
		require.NoError(t, err)
		assert.False(t, ok)

		balance, err := a.Balance(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), balance)
	})

	t.Run("exact balance", func(t *testing.T) {
		a, err := New(50)
		require.NoError(t, err)

		ok, err := a.Withdraw(ctx, 50)
		require.NoError(t, err)
		assert.True(t, ok)

		balance, err := a.Balance(ctx)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("zero amount", func(t *testing.T) {
		a, err := New(0)
		require.NoError(t, err)

		ok, err := a.Withdraw(ctx, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestAccount_ConcurrentWithdrawals(t *testing.T) {
	for _, fair := range []bool{false, true} {
		mode := "unfair"
		if fair {
			mode = "fair"
		}

		t.Run(mode+"/two racing withdrawals", func(t *testing.T) {
			a, err := New(100, WithFairness(fair))
			require.NoError(t, err)

			var successes atomic.Int64
			var wg sync.WaitGroup
			start := make(chan struct{})
			for range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					ok, err := a.Withdraw(context.Background(), 80)
					assert.NoError(t, err)
					if ok {
						successes.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int64(1), successes.Load())
			balance, err := a.Balance(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(20), balance)
		})

		t.Run(mode+"/balance equals initial minus successes", func(t *testing.T) {
			const initial, amount, workers = 1000, 7, 50

			a, err := New(initial, WithFairness(fair))
			require.NoError(t, err)

			var successes atomic.Int64
			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range 10 {
						ok, err := a.Withdraw(context.Background(), amount)
						assert.NoError(t, err)
						if ok {
							successes.Add(1)
						}
					}
				}()
			}
			wg.Wait()

			balance, err := a.Balance(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(initial-successes.Load()*amount), balance)
			assert.Equal(t, int64(initial/amount), successes.Load())
		})
	}
}

// holdLock keeps a's lock until the returned release func is called.
func holdLock(t *testing.T, a *Account) (release func()) {
	t.Helper()

	held := make(chan struct{})
	unblock := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.Update(context.Background(), func(b uint64) (uint64, error) {
			close(held)
			<-unblock
			return b, nil
		})
	}()
	<-held

	return func() {
		close(unblock)
		<-done
	}
}

func TestAccount_BoundedWait(t *testing.T) {
	t.Run("times out while the lock is held", func(t *testing.T) {
		timeout := 50 * time.Millisecond
		a, err := New(100, WithAcquireTimeout(timeout))
		require.NoError(t, err)

		release := holdLock(t, a)
		defer release()

		start := time.Now()
		ok, err := a.Withdraw(context.Background(), 10)
		elapsed := time.Since(start)

		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrLockTimeout)
		assert.NotErrorIs(t, err, ErrInterrupted)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.Less(t, elapsed, timeout+time.Second)
		assert.Equal(t, int64(1), a.Stats().TimedOut)
	})

	t.Run("balance untouched after timeout", func(t *testing.T) {
		a, err := New(100, WithAcquireTimeout(20*time.Millisecond))
		require.NoError(t, err)

		release := holdLock(t, a)
		_, err = a.Withdraw(context.Background(), 10)
		require.ErrorIs(t, err, ErrLockTimeout)
		release()

		balance, err := a.Balance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(100), balance)
	})

	t.Run("succeeds when the lock frees up in time", func(t *testing.T) {
		a, err := New(100, WithAcquireTimeout(5*time.Second))
		require.NoError(t, err)

		release := holdLock(t, a)
		go func() {
			time.Sleep(20 * time.Millisecond)
			release()
		}()

		ok, err := a.Withdraw(context.Background(), 10)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestAccount_Interrupted(t *testing.T) {
	a, err := New(100)
	require.NoError(t, err)

	release := holdLock(t, a)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	ok, err := a.Withdraw(ctx, 10)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), a.Stats().Interrupted)
}

func TestAccount_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("error leaves balance unchanged", func(t *testing.T) {
		a, err := New(100)
		require.NoError(t, err)

		errNope := errors.New("nope")
		err = a.Update(ctx, func(b uint64) (uint64, error) {
			return 0, errNope
		})
		assert.ErrorIs(t, err, errNope)

		balance, err := a.Balance(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), balance)
	})

	t.Run("panic releases the lock", func(t *testing.T) {
		a, err := New(100, WithAcquireTimeout(time.Second))
		require.NoError(t, err)

		assert.Panics(t, func() {
			_ = a.Update(ctx, func(uint64) (uint64, error) {
				panic("boom")
			})
		})

		ok, err := a.Withdraw(ctx, 10)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestAccount_Deposit(t *testing.T) {
	ctx := context.Background()

	a, err := New(10)
	require.NoError(t, err)
	require.NoError(t, a.Deposit(ctx, 5))

	balance, err := a.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), balance)

	err = a.Deposit(ctx, math.MaxUint64)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	balance, err = a.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), balance)
}

func TestAccount_FairnessKeepsSpreadBounded(t *testing.T) {
	const workers, rounds = 4, 500

	a, err := New(0, WithFairness(true))
	require.NoError(t, err)

	grants := make([]int, workers)
	var total atomic.Int64
	var ready, wg sync.WaitGroup
	start := make(chan struct{})
	ready.Add(workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready.Done()
			<-start
			for total.Load() < workers*rounds {
				err := a.Update(context.Background(), func(b uint64) (uint64, error) {
					if total.Add(1) <= workers*rounds {
						grants[w]++
					}
					return b, nil
				})
				if !assert.NoError(t, err) {
					return
				}
			}
		}()
	}
	ready.Wait()
	close(start)
	wg.Wait()

	lo, hi := slices.Min(grants), slices.Max(grants)
	assert.Positive(t, lo, "every worker must be served: %v", grants)
	// Within a tenth of the average share.
	assert.LessOrEqual(t, hi-lo, rounds/10, "grants spread too wide: %v", grants)
}
