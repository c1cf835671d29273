package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// LogFormat represents the output format for logs
type LogFormat int

const (
	// JSON format outputs structured JSON logs
	JSON LogFormat = iota
	// Text format outputs human-readable text logs
	Text
)

// ParseFormat maps "json" to JSON and anything else to Text.
func ParseFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return JSON
	}
	return Text
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger interface defines the logging contract for the go-coord components
type Logger interface {
	Debug(msg string, fields ...slog.Attr)
	Info(msg string, fields ...slog.Attr)
	Warn(msg string, fields ...slog.Attr)
	Error(msg string, fields ...slog.Attr)
	With(fields ...slog.Attr) Logger
	WithContext(ctx context.Context) Logger
	Log(ctx context.Context, level slog.Level, msg string, fields ...slog.Attr)
}

// LoggerConfig holds configuration for creating a logger
type LoggerConfig struct {
	Level    slog.Level
	Format   LogFormat
	Output   io.Writer
	Sampling *SamplingConfig
}

// SamplingConfig controls log sampling to reduce volume under heavy contention
type SamplingConfig struct {
	Enabled      bool
	Rate         float64 // 0.0-1.0, percentage of logs to keep
	MaxPerSecond int     // Maximum logs per second
}

// Discard returns a logger that drops everything. Components use it when no
// logger is configured.
func Discard() Logger {
	return NewLogger(LoggerConfig{Level: slog.LevelError + 1, Output: io.Discard})
}

type ctxKey int

const (
	runIDKey ctxKey = iota
	operationKey
)

// ContextWithRunID tags ctx with a scenario run ID picked up by WithContext.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// ContextWithOperation tags ctx with an operation name picked up by WithContext.
func ContextWithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey, op)
}

// logger implements the Logger interface
type logger struct {
	slogger  *slog.Logger
	sampling *sampler
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config LoggerConfig) Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: config.Level,
	}

	switch config.Format {
	case JSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	var s *sampler
	if config.Sampling != nil && config.Sampling.Enabled {
		s = newSampler(config.Sampling)
	}

	return &logger{
		slogger:  slog.New(handler),
		sampling: s,
	}
}

// Slog returns the underlying *slog.Logger of a Logger built by NewLogger,
// or slog.Default() for other implementations.
func Slog(l Logger) *slog.Logger {
	if impl, ok := l.(*logger); ok {
		return impl.slogger
	}
	return slog.Default()
}

func (l *logger) Debug(msg string, fields ...slog.Attr) {
	l.log(slog.LevelDebug, msg, fields...)
}

func (l *logger) Info(msg string, fields ...slog.Attr) {
	l.log(slog.LevelInfo, msg, fields...)
}

func (l *logger) Warn(msg string, fields ...slog.Attr) {
	l.log(slog.LevelWarn, msg, fields...)
}

func (l *logger) Error(msg string, fields ...slog.Attr) {
	l.log(slog.LevelError, msg, fields...)
}

// With creates a new logger with additional structured fields
func (l *logger) With(fields ...slog.Attr) Logger {
	return &logger{
		slogger:  l.slogger.With(attrsToArgs(fields)...),
		sampling: l.sampling,
	}
}

// WithContext adds the run ID and operation carried by ctx, if any.
func (l *logger) WithContext(ctx context.Context) Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}

	return l.With(fields...)
}

// contextFields returns the run ID and operation carried by ctx.
func contextFields(ctx context.Context, extra ...slog.Attr) []slog.Attr {
	var fields []slog.Attr

	if id, ok := ctx.Value(runIDKey).(string); ok {
		fields = append(fields, RunID(id))
	}
	if op, ok := ctx.Value(operationKey).(string); ok {
		fields = append(fields, Operation(op))
	}

	return append(fields, extra...)
}

// Log logs a message at the specified level with optional structured fields
func (l *logger) Log(ctx context.Context, level slog.Level, msg string, fields ...slog.Attr) {
	if !l.slogger.Enabled(ctx, level) {
		return
	}
	if l.sampling != nil && !l.sampling.shouldLog(level) {
		return
	}

	l.slogger.LogAttrs(ctx, level, msg, fields...)
}

func (l *logger) log(level slog.Level, msg string, fields ...slog.Attr) {
	l.Log(context.Background(), level, msg, fields...)
}

func attrsToArgs(fields []slog.Attr) []any {
	args := make([]any, len(fields))
	for i, attr := range fields {
		args[i] = attr
	}
	return args
}

// sampler implements log sampling to control high-volume logging
type sampler struct {
	config   *SamplingConfig
	counter  atomic.Uint64
	lastSec  atomic.Int64
	secCount atomic.Uint64
}

func newSampler(config *SamplingConfig) *sampler {
	return &sampler{
		config: config,
	}
}

// shouldLog determines if a log entry should be written based on sampling rules
func (s *sampler) shouldLog(level slog.Level) bool {
	// Always log errors and warnings regardless of sampling
	if level >= slog.LevelWarn {
		return true
	}

	if s.config.MaxPerSecond > 0 {
		now := time.Now().Unix()
		lastSec := s.lastSec.Load()

		if now != lastSec {
			if s.lastSec.CompareAndSwap(lastSec, now) {
				s.secCount.Store(1)
			}
		} else {
			count := s.secCount.Add(1)
			if int(count) > s.config.MaxPerSecond {
				return false
			}
		}
	}

	if s.config.Rate < 1.0 {
		count := s.counter.Add(1)
		if float64(count%100)/100.0 >= s.config.Rate {
			return false
		}
	}

	return true
}

// Component creates a component name field
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration creates a duration field with appropriate precision
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Operation creates an operation field
func Operation(op string) slog.Attr {
	return slog.String("operation", op)
}

// ErrorField creates an error field
func ErrorField(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// RunID creates a scenario run ID field
func RunID(id string) slog.Attr {
	return slog.String("run_id", id)
}

// Amount creates an amount field
func Amount(v uint64) slog.Attr {
	return slog.Uint64("amount", v)
}

// WorkerCount creates a worker count field
func WorkerCount(count int) slog.Attr {
	return slog.Int("worker_count", count)
}
