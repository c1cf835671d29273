package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/a2y-d5l/go-coord/internal/scenario"
	"github.com/a2y-d5l/go-coord/observability"
)

func NewRunCmd(opts *rootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run contention scenarios against the coordination components",
		Long: "Run one scenario through its subcommand, or every scenario listed " +
			"in a YAML file through --config. The command fails when any " +
			"scenario's invariant check fails.",
		Args: cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			if configPath == "" {
				return errors.New("either choose a scenario subcommand or pass --config")
			}

			f, err := scenario.Load(configPath)
			if err != nil {
				return err
			}

			return runScenarios(cc.Context(), cc.OutOrStdout(), opts.logger, f.Scenarios)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML scenario file")

	cmd.AddCommand(
		newCellCmd(opts),
		newAccountCmd(opts),
		newCounterCmd(opts),
		newFairnessCmd(opts),
	)

	return cmd
}

func newCellCmd(opts *rootOptions) *cobra.Command {
	s := scenario.Defaults(scenario.KindCell)

	cmd := &cobra.Command{
		Use:   "cell",
		Short: "Hand items through a single-slot cell between paired producers and consumers",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			return runScenarios(cc.Context(), cc.OutOrStdout(), opts.logger, []scenario.Scenario{s})
		},
	}

	cmd.Flags().IntVar(&s.Producers, "producers", s.Producers, "Number of producer/consumer pairs")
	cmd.Flags().IntVar(&s.Items, "items", s.Items, "Items put by each producer")

	return cmd
}

func newAccountCmd(opts *rootOptions) *cobra.Command {
	s := scenario.Defaults(scenario.KindAccount)

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Race concurrent withdrawals against one guarded account",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			return runScenarios(cc.Context(), cc.OutOrStdout(), opts.logger, []scenario.Scenario{s})
		},
	}

	cmd.Flags().Uint64Var(&s.Balance, "balance", s.Balance, "Initial balance")
	cmd.Flags().IntVar(&s.Workers, "workers", s.Workers, "Concurrent withdrawals")
	cmd.Flags().Uint64Var(&s.Amount, "amount", s.Amount, "Amount each worker withdraws")
	cmd.Flags().BoolVar(&s.Fair, "fair", s.Fair, "Grant the lock in FIFO request order")
	cmd.Flags().DurationVar(&s.Timeout, "timeout", s.Timeout, "Give up on the lock after this long (0 waits without bound)")
	cmd.Flags().DurationVar(&s.Hold, "hold", s.Hold, "Time each successful withdrawal keeps the lock")

	return cmd
}

func newCounterCmd(opts *rootOptions) *cobra.Command {
	s := scenario.Defaults(scenario.KindCounter)

	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Race readers against writers on a reader/writer counter",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			return runScenarios(cc.Context(), cc.OutOrStdout(), opts.logger, []scenario.Scenario{s})
		},
	}

	cmd.Flags().IntVar(&s.Readers, "readers", s.Readers, "Concurrent readers")
	cmd.Flags().IntVar(&s.Writers, "writers", s.Writers, "Concurrent writers")
	cmd.Flags().IntVar(&s.Increments, "increments", s.Increments, "Increments per writer")

	return cmd
}

func newFairnessCmd(opts *rootOptions) *cobra.Command {
	s := scenario.Defaults(scenario.KindFairness)

	cmd := &cobra.Command{
		Use:   "fairness",
		Short: "Measure how evenly the account lock is shared between competing workers",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			return runScenarios(cc.Context(), cc.OutOrStdout(), opts.logger, []scenario.Scenario{s})
		},
	}

	cmd.Flags().IntVar(&s.Workers, "workers", s.Workers, "Competing workers")
	cmd.Flags().IntVar(&s.Acquisitions, "acquisitions", s.Acquisitions, "Total lock grants to hand out")
	cmd.Flags().BoolVar(&s.Fair, "fair", s.Fair, "Grant the lock in FIFO request order")

	return cmd
}

func runScenarios(ctx context.Context, out io.Writer, logger observability.Logger, scenarios []scenario.Scenario) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runner := scenario.NewRunner(logger, nil)
	results, err := runner.RunAll(ctx, scenarios)
	for _, res := range results {
		fmt.Fprintln(out, res.String())
	}

	for _, m := range runner.Metrics().Collector().GetMetrics() {
		attrs := []slog.Attr{slog.Float64("value", m.Value)}
		for k, v := range m.Labels {
			attrs = append(attrs, slog.String(k, v))
		}
		if m.Count > 0 {
			attrs = append(attrs, slog.Uint64("count", m.Count))
		}
		logger.Debug(m.Name, attrs...)
	}

	return err
}
