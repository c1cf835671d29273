package counter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_Basics(t *testing.T) {
	c := New[int]()
	assert.Zero(t, c.Get())

	c.Increment()
	c.Increment()
	assert.Equal(t, 2, c.Get())

	assert.Equal(t, 7, c.Add(5))
	assert.Equal(t, 4, c.Add(-3))

	assert.Equal(t, 4, c.Reset())
	assert.Zero(t, c.Get())
}

func TestCounter_Unsigned(t *testing.T) {
	c := New[uint8]()
	c.Add(255)
	c.Increment()

	// Integer arithmetic wraps like the underlying type.
	assert.Equal(t, uint8(0), c.Get())
}

func TestCounter_ConcurrentWriters(t *testing.T) {
	const writers, increments = 8, 1000

	c := New[int64]()
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range increments {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(writers*increments), c.Get())
}

func TestCounter_ReadersSeeMonotonicValues(t *testing.T) {
	const writers, increments, readers = 2, 2000, 4

	c := New[int64]()
	stop := make(chan struct{})

	var readersWG sync.WaitGroup
	for range readers {
		readersWG.Add(1)
		go func() {
			defer readersWG.Done()
			var last int64
			for {
				v := c.Get()
				assert.GreaterOrEqual(t, v, last)
				assert.LessOrEqual(t, v, int64(writers*increments))
				last = v

				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	var writersWG sync.WaitGroup
	for range writers {
		writersWG.Add(1)
		go func() {
			defer writersWG.Done()
			for range increments {
				c.Increment()
			}
		}()
	}
	writersWG.Wait()
	close(stop)
	readersWG.Wait()

	assert.Equal(t, int64(writers*increments), c.Get())
}

func TestCounter_PendingWriterExcludesNewReaders(t *testing.T) {
	c := New[int]()

	// Act as a long-running reader.
	c.mu.RLock()

	written := make(chan struct{})
	go func() {
		c.Increment()
		close(written)
	}()
	// Let the writer block on the held read lock.
	time.Sleep(50 * time.Millisecond)

	read := make(chan int, 1)
	go func() { read <- c.Get() }()

	select {
	case v := <-read:
		t.Fatalf("new reader got in ahead of the waiting writer, read %d", v)
	case <-written:
		t.Fatal("writer ran while a reader held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	c.mu.RUnlock()

	select {
	case <-written:
	case <-time.After(5 * time.Second):
		t.Fatal("writer never ran after the reader left")
	}
	select {
	case v := <-read:
		require.Equal(t, 1, v, "reader must see the write it waited behind")
	case <-time.After(5 * time.Second):
		t.Fatal("reader never ran after the writer finished")
	}
}
