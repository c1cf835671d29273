// Package observability provides structured logging and in-memory metrics for
// the go-coord components.
//
// # Structured Logging
//
// Logging is built on Go's standard slog package:
//
//	logger := observability.NewLogger(observability.LoggerConfig{
//		Level:  slog.LevelDebug,
//		Format: observability.JSON,
//		Output: os.Stdout,
//	})
//
//	logger.Info("scenario finished",
//		observability.Component("account"),
//		observability.Duration("elapsed", time.Since(start)),
//	)
//
// Components take a Logger through their WithLogger option and default to
// Discard. Contention outcomes (timeouts, interruptions) are logged at Debug.
//
// # Context-Aware Logging
//
// A run ID and operation name travel in the context:
//
//	ctx = observability.ContextWithRunID(ctx, runID)
//	logger.WithContext(ctx).Info("running") // includes run_id
//
// # High-Volume Sampling
//
// Sampling keeps Debug/Info volume bounded when thousands of goroutines
// contend; Warn and Error are never sampled out:
//
//	logger := observability.NewLogger(observability.LoggerConfig{
//		Level: slog.LevelDebug,
//		Sampling: &observability.SamplingConfig{
//			Enabled:      true,
//			Rate:         1.0,
//			MaxPerSecond: 100,
//		},
//	})
//
// # Lock Metrics
//
// LockMetrics turns lock state transitions into counters, a held gauge and a
// wait-time histogram:
//
//	metrics := observability.NewLockMetrics(nil)
//	acct, _ := account.New(100, account.WithMetrics(metrics))
//	...
//	for _, m := range metrics.Collector().GetMetrics() {
//		fmt.Println(m.Name, m.Labels, m.Value)
//	}
package observability
