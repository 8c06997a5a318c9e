package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewMonitorCommand creates the monitor command.
func NewMonitorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run captures repeatedly until interrupted",
		Long: `Run a capture immediately, then again every scheduler.interval, or
after scheduler.batchPause while a batch is still pending. Stops on
SIGINT or SIGTERM once the current run returns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := rootOpts.load(ctx, cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Monitor(ctx)
		},
	}
}
