package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"GazetteScanner/internal/usecase"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute a single capture run",
		Long: `Load the stored run state, capture every new entry of the configured
window and store the state for the next run.

Example:
  gazettescanner run --config ./gazette.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := rootOpts.load(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
}

func printReport(cmd *cobra.Command, report usecase.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", report.RunID)
	if report.Waiting {
		fmt.Fprintf(out, "waiting for %s\n", report.Next.ReferenceDate)
		return
	}
	fmt.Fprintf(out, "captured %d of %d (unseen %d)\n", report.Captured(), len(report.Outcomes), report.Unseen)
	if report.ActiveRuleSets > 0 || report.SkippedRuleSets > 0 {
		fmt.Fprintf(out, "rule sets %d active, %d skipped; %d deliveries, %d failed\n",
			report.ActiveRuleSets, report.SkippedRuleSets, report.Deliveries, report.DeliveryErrors)
	}
	fmt.Fprintf(out, "next %s sections %v", report.Next.ReferenceDate, report.Next.Sections)
	if report.Next.NextBatchPending {
		fmt.Fprint(out, " (batch pending)")
	}
	fmt.Fprintln(out)
}
