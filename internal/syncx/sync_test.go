package syncx

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"
)

func mutexes() map[string]func() Mutex {
	return map[string]func() Mutex{
		"Token": func() Mutex { return NewTokenMutex() },
		"Fair":  func() Mutex { return NewFairMutex() },
	}
}

func TestMutex_LockUnlock(t *testing.T) {
	for name, newMutex := range mutexes() {
		t.Run(name, func(t *testing.T) {
			m := newMutex()

			if err := m.Lock(context.Background()); err != nil {
				t.Fatalf("Lock failed: %v", err)
			}
			if m.TryLock() {
				t.Fatal("TryLock should fail while the lock is held")
			}
			m.Unlock()

			if !m.TryLock() {
				t.Fatal("TryLock should succeed on a free lock")
			}
			m.Unlock()
		})
	}
}

func TestMutex_MutualExclusion(t *testing.T) {
	for name, newMutex := range mutexes() {
		t.Run(name, func(t *testing.T) {
			m := newMutex()
			var inside, total int

			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range 200 {
						if err := m.Lock(context.Background()); err != nil {
							t.Errorf("Lock failed: %v", err)
							return
						}
						inside++
						if inside != 1 {
							t.Errorf("Expected exactly one holder, got %d", inside)
						}
						total++
						inside--
						m.Unlock()
					}
				}()
			}
			wg.Wait()

			if total != 8*200 {
				t.Errorf("Expected %d critical sections, got %d", 8*200, total)
			}
		})
	}
}

func TestMutex_UnlockOfFreeLockPanics(t *testing.T) {
	for name, newMutex := range mutexes() {
		t.Run(name, func(t *testing.T) {
			m := newMutex()
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok || !errors.Is(err, ErrInvariantViolation) {
					t.Errorf("Expected ErrInvariantViolation panic, got %v", r)
				}
			}()
			m.Unlock()
		})
	}
}

func TestMutex_LockInterrupted(t *testing.T) {
	for name, newMutex := range mutexes() {
		t.Run(name, func(t *testing.T) {
			m := newMutex()
			if err := m.Lock(context.Background()); err != nil {
				t.Fatalf("Lock failed: %v", err)
			}
			defer m.Unlock()

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			err := m.Lock(ctx)
			if !errors.Is(err, ErrInterrupted) {
				t.Errorf("Expected ErrInterrupted, got %v", err)
			}
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Expected error to wrap context.Canceled, got %v", err)
			}
		})
	}
}

func TestFairMutex_GrantsInRequestOrder(t *testing.T) {
	m := NewFairMutex()
	if err := m.Lock(context.Background()); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for id := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Lock(context.Background()); err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			m.Unlock()
		}()
		// Give each goroutine time to queue before the next one starts.
		time.Sleep(20 * time.Millisecond)
	}

	m.Unlock()
	wg.Wait()

	for i, id := range order {
		if id != i {
			t.Fatalf("Expected grant order [0 1 2 3 4], got %v", order)
		}
	}
}

func TestFairMutex_RepeatedReacquireSharesEvenly(t *testing.T) {
	for _, procs := range []int{1, runtime.NumCPU()} {
		prev := runtime.GOMAXPROCS(procs)

		const workers, rounds = 4, 500
		m := NewFairMutex()
		grants := make([]int, workers)
		total := 0

		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					if err := m.Lock(context.Background()); err != nil {
						t.Errorf("Lock failed: %v", err)
						return
					}
					if total == workers*rounds {
						m.Unlock()
						return
					}
					total++
					grants[w]++
					m.Unlock()
				}
			}()
		}
		wg.Wait()
		runtime.GOMAXPROCS(prev)

		lo, hi := slices.Min(grants), slices.Max(grants)
		if lo == 0 || hi-lo > rounds/10 {
			t.Errorf("GOMAXPROCS=%d: uneven grants %v (spread %d)", procs, grants, hi-lo)
		}
	}
}

func TestFairMutex_TryLockDoesNotJumpQueue(t *testing.T) {
	m := NewFairMutex()
	if err := m.Lock(context.Background()); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := m.Lock(context.Background()); err == nil {
			close(acquired)
		}
	}()
	time.Sleep(20 * time.Millisecond)

	m.Unlock()
	<-acquired

	if m.TryLock() {
		t.Fatal("TryLock should fail while the queued waiter holds the lock")
	}
	m.Unlock()
}

func TestNewMutex(t *testing.T) {
	if _, ok := NewMutex(true).(*FairMutex); !ok {
		t.Error("Expected NewMutex(true) to return a *FairMutex")
	}
	if _, ok := NewMutex(false).(*TokenMutex); !ok {
		t.Error("Expected NewMutex(false) to return a *TokenMutex")
	}
}

func TestLockWithTimeout(t *testing.T) {
	for name, newMutex := range mutexes() {
		t.Run(name+"/Expires", func(t *testing.T) {
			m := newMutex()
			if err := m.Lock(context.Background()); err != nil {
				t.Fatalf("Lock failed: %v", err)
			}
			defer m.Unlock()

			timeout := 50 * time.Millisecond
			start := time.Now()
			err := LockWithTimeout(context.Background(), m, timeout)
			elapsed := time.Since(start)

			if !errors.Is(err, ErrLockTimeout) {
				t.Fatalf("Expected ErrLockTimeout, got %v", err)
			}
			if errors.Is(err, ErrInterrupted) {
				t.Errorf("Timeout should not be reported as interruption: %v", err)
			}
			if elapsed < timeout {
				t.Errorf("Returned after %s, before the %s timeout", elapsed, timeout)
			}
			if elapsed > timeout+time.Second {
				t.Errorf("Returned after %s, long past the %s timeout", elapsed, timeout)
			}
		})

		t.Run(name+"/Interrupted", func(t *testing.T) {
			m := newMutex()
			if err := m.Lock(context.Background()); err != nil {
				t.Fatalf("Lock failed: %v", err)
			}
			defer m.Unlock()

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			err := LockWithTimeout(ctx, m, time.Minute)
			if !errors.Is(err, ErrInterrupted) {
				t.Fatalf("Expected ErrInterrupted, got %v", err)
			}
			if errors.Is(err, ErrLockTimeout) {
				t.Errorf("Interruption should not be reported as timeout: %v", err)
			}
		})

		t.Run(name+"/Acquires", func(t *testing.T) {
			m := newMutex()
			if err := LockWithTimeout(context.Background(), m, time.Second); err != nil {
				t.Fatalf("Expected free lock to be acquired, got %v", err)
			}
			m.Unlock()
		})

		t.Run(name+"/Unbounded", func(t *testing.T) {
			m := newMutex()
			if err := m.Lock(context.Background()); err != nil {
				t.Fatalf("Lock failed: %v", err)
			}

			done := make(chan error, 1)
			go func() { done <- LockWithTimeout(context.Background(), m, 0) }()

			select {
			case err := <-done:
				t.Fatalf("Zero timeout should wait without bound, returned %v", err)
			case <-time.After(50 * time.Millisecond):
			}

			m.Unlock()
			if err := <-done; err != nil {
				t.Fatalf("Expected lock after release, got %v", err)
			}
			m.Unlock()
		})
	}
}
