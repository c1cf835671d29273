package syncx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Task is a unit of work run by a WorkerPool. The context is the one the
// pool was started with.
type Task func(ctx context.Context) error

// WorkerPool runs submitted tasks on a fixed number of goroutines. Tasks
// queued before Stop still run; task errors are collected and returned by
// Stop.
type WorkerPool struct {
	workers      int
	queue        chan Task
	wg           sync.WaitGroup
	metrics      *WorkerMetrics
	backpressure BackpressurePolicy

	mu      sync.RWMutex // guards sends on queue against close
	stopped bool

	errMu sync.Mutex
	errs  *multierror.Error

	started int32
}

// WorkerConfig holds configuration for creating a worker pool
type WorkerConfig struct {
	Workers      int
	QueueSize    int
	Backpressure BackpressurePolicy
	Metrics      bool
}

// BackpressurePolicy defines how the worker pool handles queue overflow
type BackpressurePolicy int

const (
	BackpressureBlock BackpressurePolicy = iota
	BackpressureDropOldest
	BackpressureDropNewest
)

// WorkerMetrics tracks worker pool performance metrics
type WorkerMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TasksDropped   uint64
	ActiveWorkers  int64
}

// NewWorkerPool creates a new worker pool with the given configuration
func NewWorkerPool(config WorkerConfig) *WorkerPool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}

	wp := &WorkerPool{
		workers:      config.Workers,
		queue:        make(chan Task, config.QueueSize),
		backpressure: config.Backpressure,
	}

	if config.Metrics {
		wp.metrics = &WorkerMetrics{}
	}

	return wp
}

// Start launches the workers. ctx is handed to every task.
func (wp *WorkerPool) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&wp.started, 0, 1) {
		return ErrWorkerPoolAlreadyStarted
	}

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}

	return nil
}

// Submit queues a task, applying the backpressure policy when the queue is
// full. Under BackpressureBlock a full queue on a pool that was never started
// fails with ErrWorkerPoolNotStarted instead of waiting forever.
func (wp *WorkerPool) Submit(task Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrWorkerPoolStopped
	}

	select {
	case wp.queue <- task:
		wp.submitted()
		return nil
	default:
		return wp.handleBackpressure(task)
	}
}

// SubmitWithTimeout queues a task, waiting at most timeout for queue space.
func (wp *WorkerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrWorkerPoolStopped
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case wp.queue <- task:
		wp.submitted()
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

// Stop refuses new tasks, lets the workers drain the queue and waits for
// them. It returns ctx.Err() if ctx ends first, otherwise the collected
// task errors.
func (wp *WorkerPool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return ErrWorkerPoolAlreadyStopped
	}
	wp.stopped = true
	close(wp.queue)
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.errMu.Lock()
		defer wp.errMu.Unlock()
		return wp.errs.ErrorOrNil()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns the current worker pool metrics
func (wp *WorkerPool) Metrics() WorkerMetrics {
	if wp.metrics == nil {
		return WorkerMetrics{}
	}

	return WorkerMetrics{
		TasksSubmitted: atomic.LoadUint64(&wp.metrics.TasksSubmitted),
		TasksCompleted: atomic.LoadUint64(&wp.metrics.TasksCompleted),
		TasksFailed:    atomic.LoadUint64(&wp.metrics.TasksFailed),
		TasksDropped:   atomic.LoadUint64(&wp.metrics.TasksDropped),
		ActiveWorkers:  atomic.LoadInt64(&wp.metrics.ActiveWorkers),
	}
}

// QueueDepth returns the current number of tasks in the queue
func (wp *WorkerPool) QueueDepth() int {
	return len(wp.queue)
}

// IsStarted returns true if the worker pool has been started
func (wp *WorkerPool) IsStarted() bool {
	return atomic.LoadInt32(&wp.started) == 1
}

// IsStopped returns true if the worker pool has been stopped
func (wp *WorkerPool) IsStopped() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.stopped
}

func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	if wp.metrics != nil {
		atomic.AddInt64(&wp.metrics.ActiveWorkers, 1)
		defer atomic.AddInt64(&wp.metrics.ActiveWorkers, -1)
	}

	for task := range wp.queue {
		if task == nil {
			continue
		}
		err := task(ctx)
		if err != nil {
			wp.errMu.Lock()
			wp.errs = multierror.Append(wp.errs, err)
			wp.errMu.Unlock()
		}
		if wp.metrics != nil {
			atomic.AddUint64(&wp.metrics.TasksCompleted, 1)
			if err != nil {
				atomic.AddUint64(&wp.metrics.TasksFailed, 1)
			}
		}
	}
}

func (wp *WorkerPool) submitted() {
	if wp.metrics != nil {
		atomic.AddUint64(&wp.metrics.TasksSubmitted, 1)
	}
}

func (wp *WorkerPool) dropped() {
	if wp.metrics != nil {
		atomic.AddUint64(&wp.metrics.TasksDropped, 1)
	}
}

// handleBackpressure applies the configured backpressure policy. Called with
// wp.mu read-locked.
func (wp *WorkerPool) handleBackpressure(task Task) error {
	switch wp.backpressure {
	case BackpressureBlock:
		// Nothing drains the queue before Start.
		if !wp.IsStarted() {
			return ErrWorkerPoolNotStarted
		}
		// Stop cannot close the queue while we hold the read lock, and the
		// workers keep draining it, so this send completes.
		wp.queue <- task
		wp.submitted()
		return nil

	case BackpressureDropOldest:
		for {
			select {
			case wp.queue <- task:
				wp.submitted()
				return nil
			default:
			}
			select {
			case <-wp.queue:
				wp.dropped()
			default:
			}
		}

	case BackpressureDropNewest:
		wp.dropped()
		return ErrTaskDropped

	default:
		return ErrUnknownBackpressurePolicy
	}
}
