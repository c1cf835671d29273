package cell

import "github.com/a2y-d5l/go-coord/observability"

// Option configures a Cell.
type Option func(*config)

type config struct {
	name    string
	logger  observability.Logger
	metrics *observability.LockMetrics
}

func defaultConfig() config {
	return config{name: "cell"}
}

// WithName sets the component name used in logs and metrics (default "cell").
func WithName(name string) Option { return func(c *config) { c.name = name } }

// WithLogger injects a logger. Cancelled waits are logged at Debug.
func WithLogger(l observability.Logger) Option { return func(c *config) { c.logger = l } }

// WithMetrics records put/take state transitions.
func WithMetrics(m *observability.LockMetrics) Option { return func(c *config) { c.metrics = m } }
