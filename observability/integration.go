package observability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/a2y-d5l/go-coord/internal/syncx"
)

// ComponentLogger is a Logger scoped to one named component.
type ComponentLogger struct {
	Logger
	component string
}

// NewComponentLogger creates a logger for a component. A nil logger discards.
func NewComponentLogger(logger Logger, component string) *ComponentLogger {
	if logger == nil {
		logger = Discard()
	}
	return &ComponentLogger{
		Logger:    logger.With(Component(component)),
		component: component,
	}
}

// Name returns the component name.
func (cl *ComponentLogger) Name() string {
	return cl.component
}

// LogAcquireFailure records a wait that ended without access. Timeouts and
// interruptions are expected under contention and go out at Debug; anything
// else is a Warn.
func (cl *ComponentLogger) LogAcquireFailure(ctx context.Context, op string, waited time.Duration, err error) {
	level, msg := slog.LevelWarn, "acquire failed"
	switch {
	case errors.Is(err, syncx.ErrLockTimeout):
		level, msg = slog.LevelDebug, "lock not acquired, timed out"
	case errors.Is(err, syncx.ErrInterrupted):
		level, msg = slog.LevelDebug, "wait interrupted"
	}

	cl.Log(ctx, level, msg, contextFields(ctx,
		Operation(op),
		Duration("waited", waited),
		ErrorField(err),
	)...)
}

// LogWithdrawal records the outcome of a withdrawal at Debug. It runs on every
// withdrawal, so it logs through the component logger directly rather than
// deriving one per call.
func (cl *ComponentLogger) LogWithdrawal(ctx context.Context, amount, balance uint64, ok bool) {
	msg := "insufficient balance"
	if ok {
		msg = "withdrawal completed"
	}
	cl.Log(ctx, slog.LevelDebug, msg, contextFields(ctx,
		Amount(amount),
		slog.Uint64("balance", balance),
	)...)
}
