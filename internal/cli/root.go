package cli

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/a2y-d5l/go-coord/observability"
)

// rootOptions holds state shared by every subcommand.
type rootOptions struct {
	logger observability.Logger
}

func NewRootCmd(name, shortDesc, longDesc string) *cobra.Command {
	opts := &rootOptions{logger: observability.Discard()}

	cmd := &cobra.Command{
		Use:           name,
		Short:         shortDesc,
		Long:          longDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "warn", "Set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Set the log format (text, json)")

	cmd.PersistentPreRunE = func(cc *cobra.Command, _ []string) error {
		flags := cc.Flags()

		var merr error

		logLevel, err := flags.GetString("log-level")
		if err != nil {
			merr = multierror.Append(merr, err)
		}

		logFormat, err := flags.GetString("log-format")
		if err != nil {
			merr = multierror.Append(merr, err)
		}

		if merr != nil {
			return fmt.Errorf("invalid argument: %w", merr)
		}

		opts.logger = observability.NewLogger(observability.LoggerConfig{
			Level:  observability.ParseLevel(logLevel),
			Format: observability.ParseFormat(logFormat),
			Output: cc.ErrOrStderr(),
		})

		return nil
	}

	cmd.AddCommand(NewRunCmd(opts))

	return cmd
}
