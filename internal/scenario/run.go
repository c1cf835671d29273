// Package scenario drives the go-coord components under contention and
// checks their invariants afterwards.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/a2y-d5l/go-coord/account"
	"github.com/a2y-d5l/go-coord/cell"
	"github.com/a2y-d5l/go-coord/counter"
	"github.com/a2y-d5l/go-coord/gate"
	"github.com/a2y-d5l/go-coord/internal/syncx"
	"github.com/a2y-d5l/go-coord/observability"
)

// ErrCheckFailed marks a run whose invariant check did not hold.
var ErrCheckFailed = errors.New("invariant check failed")

// Result is the outcome of one scenario run.
type Result struct {
	RunID   string
	Kind    Kind
	Passed  bool
	Summary string
	Elapsed time.Duration
	Stats   syncx.Stats
}

func (r Result) String() string {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	return fmt.Sprintf("%s %-8s %s (%s)", status, r.Kind, r.Summary, r.Elapsed.Round(time.Microsecond))
}

// Runner runs scenarios with a shared logger and metrics sink.
type Runner struct {
	logger  observability.Logger
	metrics *observability.LockMetrics
}

// NewRunner creates a Runner. A nil logger discards; a nil metrics gets a
// fresh in-memory collector.
func NewRunner(logger observability.Logger, metrics *observability.LockMetrics) *Runner {
	if logger == nil {
		logger = observability.Discard()
	}
	if metrics == nil {
		metrics = observability.NewLockMetrics(nil)
	}
	return &Runner{logger: logger, metrics: metrics}
}

// Metrics returns the sink every run reports lock transitions to.
func (r *Runner) Metrics() *observability.LockMetrics {
	return r.metrics
}

// Run validates and executes s. A failed invariant check is reported in the
// result, not as an error; errors mean the run itself could not complete.
func (r *Runner) Run(ctx context.Context, s Scenario) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	ctx = observability.ContextWithRunID(ctx, runID)
	ctx = observability.ContextWithOperation(ctx, string(s.Kind))
	log := r.logger.WithContext(ctx)
	log.Info("scenario started")

	start := time.Now()
	var (
		res Result
		err error
	)
	switch s.Kind {
	case KindCell:
		res, err = r.runCell(ctx, s)
	case KindAccount:
		res, err = r.runAccount(ctx, s)
	case KindCounter:
		res, err = r.runCounter(ctx, s)
	case KindFairness:
		res, err = r.runFairness(ctx, s)
	}
	if err != nil {
		log.Error("scenario aborted", observability.ErrorField(err))
		return Result{}, fmt.Errorf("%s scenario: %w", s.Kind, err)
	}

	res.RunID = runID
	res.Kind = s.Kind
	res.Elapsed = time.Since(start)
	log.Info("scenario finished",
		observability.Duration("elapsed", res.Elapsed),
		observability.Operation(string(s.Kind)),
	)
	return res, nil
}

// RunAll runs the scenarios in order and joins the failed checks into one
// ErrCheckFailed error.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(scenarios))
	var failed []string
	for _, s := range scenarios {
		res, err := r.Run(ctx, s)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if !res.Passed {
			failed = append(failed, string(res.Kind))
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("%w: %v", ErrCheckFailed, failed)
	}
	return results, nil
}

type handoff struct {
	producer int
	seq      int
}

// runCell pairs producers and consumers 1:1. Each consumer must see every
// producer's items in increasing order, and every item exactly once overall.
func (r *Runner) runCell(ctx context.Context, s Scenario) (Result, error) {
	c := cell.New[handoff](
		cell.WithName("cell"),
		cell.WithLogger(r.logger),
		cell.WithMetrics(r.metrics),
	)

	received := make([][]handoff, s.Producers)
	g, gctx := errgroup.WithContext(ctx)
	for p := range s.Producers {
		g.Go(func() error {
			for i := range s.Items {
				if err := c.Put(gctx, handoff{producer: p, seq: i}); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for range s.Items {
				item, err := c.Take(gctx)
				if err != nil {
					return err
				}
				received[p] = append(received[p], item)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	seen := make(map[handoff]int, s.Producers*s.Items)
	ordered := true
	for _, items := range received {
		last := make(map[int]int)
		for _, it := range items {
			seen[it]++
			if prev, ok := last[it.producer]; ok && it.seq <= prev {
				ordered = false
			}
			last[it.producer] = it.seq
		}
	}
	exactlyOnce := len(seen) == s.Producers*s.Items
	for _, n := range seen {
		exactlyOnce = exactlyOnce && n == 1
	}

	return Result{
		Passed: ordered && exactlyOnce,
		Summary: fmt.Sprintf("handed off %d items, exactly-once=%t ordered=%t",
			len(seen), exactlyOnce, ordered),
		Stats: c.Stats(),
	}, nil
}

// runAccount lets every worker attempt one withdrawal at the same moment.
// With Hold set the check-and-debit is stretched over Hold while the lock is
// held, which is how contended waits and timeouts show up.
func (r *Runner) runAccount(ctx context.Context, s Scenario) (Result, error) {
	acct, err := account.New(s.Balance,
		account.WithName("account"),
		account.WithFairness(s.Fair),
		account.WithAcquireTimeout(s.Timeout),
		account.WithLogger(r.logger),
		account.WithMetrics(r.metrics),
	)
	if err != nil {
		return Result{}, err
	}

	pool := syncx.NewWorkerPool(syncx.WorkerConfig{
		Workers:   s.Workers,
		QueueSize: s.Workers,
		Metrics:   true,
	})
	if err := pool.Start(ctx); err != nil {
		return Result{}, err
	}

	var succeeded, refused, timedOut atomic.Int64
	startGate := gate.NewLatch(1)
	for range s.Workers {
		err := pool.Submit(func(ctx context.Context) error {
			if err := startGate.Wait(ctx); err != nil {
				return err
			}
			ok, err := r.withdraw(ctx, acct, s)
			switch {
			case errors.Is(err, account.ErrLockTimeout):
				timedOut.Add(1)
				return nil
			case err != nil:
				return err
			case ok:
				succeeded.Add(1)
			default:
				refused.Add(1)
			}
			return nil
		})
		if err != nil {
			startGate.CountDown()
			_ = pool.Stop(ctx)
			return Result{}, err
		}
	}
	startGate.CountDown()

	if err := pool.Stop(ctx); err != nil {
		return Result{}, err
	}

	final, err := acct.Balance(ctx)
	if err != nil {
		return Result{}, err
	}
	want := s.Balance - uint64(succeeded.Load())*s.Amount

	return Result{
		Passed: final == want && uint64(succeeded.Load())*s.Amount <= s.Balance,
		Summary: fmt.Sprintf("balance %d -> %d: %d withdrew %d, %d refused, %d timed out (fair=%t)",
			s.Balance, final, succeeded.Load(), s.Amount, refused.Load(), timedOut.Load(), s.Fair),
		Stats: acct.Stats(),
	}, nil
}

func (r *Runner) withdraw(ctx context.Context, acct *account.Account, s Scenario) (bool, error) {
	if s.Hold <= 0 {
		return acct.Withdraw(ctx, s.Amount)
	}

	var ok bool
	err := acct.Update(ctx, func(b uint64) (uint64, error) {
		if s.Amount > b {
			return b, nil
		}
		select {
		case <-time.After(s.Hold):
		case <-ctx.Done():
			return b, syncx.Interrupted(ctx)
		}
		ok = true
		return b - s.Amount, nil
	})
	return ok, err
}

// runCounter races writers against readers. Readers must only ever see a
// non-decreasing value within [0, writers*increments]; the final value must
// equal writers*increments.
func (r *Runner) runCounter(ctx context.Context, s Scenario) (Result, error) {
	ctr := counter.New[int64]()
	total := int64(s.Writers * s.Increments)

	var writersDone sync.WaitGroup
	var torn atomic.Int64
	var reads atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	writersDone.Add(s.Writers)
	for range s.Writers {
		g.Go(func() error {
			defer writersDone.Done()
			for range s.Increments {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				ctr.Increment()
			}
			return nil
		})
	}

	stop := make(chan struct{})
	for range s.Readers {
		g.Go(func() error {
			var last int64
			for {
				v := ctr.Get()
				reads.Add(1)
				if v < last || v < 0 || v > total {
					torn.Add(1)
				}
				last = v
				select {
				case <-stop:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
			}
		})
	}

	writersDone.Wait()
	close(stop)
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	final := ctr.Get()
	return Result{
		Passed: final == total && torn.Load() == 0,
		Summary: fmt.Sprintf("count %d/%d after %d reads, %d inconsistent",
			final, total, reads.Load(), torn.Load()),
	}, nil
}

// runFairness has every worker take and release the account lock in a loop
// until Acquisitions grants were made, then compares per-worker grants. In
// fair mode every worker must have been served and the gap between the most
// and least served worker must stay within FairSpreadLimit.
func (r *Runner) runFairness(ctx context.Context, s Scenario) (Result, error) {
	acct, err := account.New(0,
		account.WithName("fairness"),
		account.WithFairness(s.Fair),
		account.WithLogger(r.logger),
		account.WithMetrics(r.metrics),
	)
	if err != nil {
		return Result{}, err
	}

	grants := make([]int64, s.Workers)
	var total atomic.Int64
	startLine := gate.NewBarrier(s.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range s.Workers {
		g.Go(func() error {
			if _, err := startLine.Await(gctx); err != nil {
				return err
			}
			for total.Load() < int64(s.Acquisitions) {
				err := acct.Update(gctx, func(b uint64) (uint64, error) {
					if total.Add(1) <= int64(s.Acquisitions) {
						grants[w]++
					}
					return b, nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	lo, hi := slices.Min(grants), slices.Max(grants)
	limit := FairSpreadLimit(s.Workers, s.Acquisitions)
	return Result{
		Passed: !s.Fair || (lo > 0 && hi-lo <= limit),
		Summary: fmt.Sprintf("%d workers, grants min=%d max=%d spread=%d limit=%d (fair=%t)",
			s.Workers, lo, hi, hi-lo, limit, s.Fair),
		Stats:   acct.Stats(),
	}, nil
}

// FairSpreadLimit is the largest max-min gap in per-worker grants a fair lock
// may show: a tenth of the average share, and never less than 2.
func FairSpreadLimit(workers, acquisitions int) int64 {
	if workers <= 0 {
		return 0
	}
	return max(int64(acquisitions/workers/10), 2)
}
