package account

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/a2y-d5l/go-coord/observability"
)

// Option configures an Account.
type Option func(*config)

// config holds the tunables of an Account (via functional options).
type config struct {
	name string

	// Fair selects FIFO lock hand-off. Competing withdrawals are then served
	// in the order they asked for the lock, so none starves, at the cost of
	// throughput. Off by default.
	fair bool

	// acquireTimeout bounds how long a call waits for the lock. Zero means
	// wait until the lock is free or the caller's context ends.
	acquireTimeout time.Duration

	logger  observability.Logger
	metrics *observability.LockMetrics
}

func defaultConfig() config {
	return config{
		name:           "account",
		fair:           false,
		acquireTimeout: 0,
	}
}

func (c config) validate() error {
	var merr error
	if c.name == "" {
		merr = multierror.Append(merr, fmt.Errorf("name must not be empty"))
	}
	if c.acquireTimeout < 0 {
		merr = multierror.Append(merr, fmt.Errorf("acquire timeout must not be negative, got %s", c.acquireTimeout))
	}
	return merr
}

// WithName sets the component name used in logs and metrics (default "account").
func WithName(name string) Option { return func(c *config) { c.name = name } }

// WithFairness enables or disables FIFO lock hand-off (default off).
//
// In fair mode waiters are granted the lock in request order and a releasing
// goroutine yields before it can request again, so goroutines that withdraw
// in a tight loop share the lock evenly: the gap between the most and least
// served stays small instead of growing with the number of rounds.
func WithFairness(fair bool) Option { return func(c *config) { c.fair = fair } }

// WithAcquireTimeout bounds the lock wait; calls that cannot get the lock in
// time fail with ErrLockTimeout. Zero (the default) waits without bound.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *config) { c.acquireTimeout = d }
}

// WithLogger injects a logger.
func WithLogger(l observability.Logger) Option { return func(c *config) { c.logger = l } }

// WithMetrics records lock state transitions.
func WithMetrics(m *observability.LockMetrics) Option { return func(c *config) { c.metrics = m } }
