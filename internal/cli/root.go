// Package cli exposes the capture workflow as a cobra command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"GazetteScanner/internal/app"
	"GazetteScanner/internal/config"
	"GazetteScanner/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command of the scanner CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gazettescanner",
		Short: "Capture and filter Diário Oficial da União entries",
		Long: `Scan the daily sections of the Diário Oficial da União, store new
entries and deliver the ones matching subscriber filters.

The run state (reference date, sections, batch size) lives in a YAML file
or DynamoDB item and is advanced after every successful run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config (default $GAZETTE_SCANNER_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override logging.level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMonitorCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

// load reads configuration and builds the application; callers must Close it.
func (o *RootOptions) load(ctx context.Context, cmd *cobra.Command) (*app.Application, error) {
	cfg, err := config.Load(config.Path(o.ConfigPath))
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}

	log := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level)
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}
	return application, nil
}
