// =============================================================================
// Loyalty Purchase Report - Run Command
// =============================================================================
//
// This file defines the 'run' command, which builds and writes the report.
//
// COMMAND USAGE:
//   reporter run [flags]
//
// FLAGS:
//   --customers_location    : Customer roster CSV
//   --products_location     : Product catalog CSV
//   --transactions_location : Transactions directory (day partitions)
//   --output_location       : Output directory
//   --dry-run               : Build the report without writing anything
//   --workers               : Partitions aggregated concurrently
//   --xlsx                  : Also write the report as an Excel workbook
//   --skip-malformed        : Skip malformed transaction lines instead of failing
//   --no-progress           : Hide the partition progress bar
//
// EXIT STATUS:
//   0 on success, 1 on any failure. A failed run writes no output.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/errs"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/pipeline"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/tui"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun        bool
	workers       int
	writeXLSX     bool
	skipMalformed bool
	noProgress    bool
)

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the loyalty purchase report",
	Long: `The run command loads the customer roster and product catalog, aggregates
every transaction partition and writes the joined report as a JSON array to
<output_location>/output.json.

The report is written through a temporary file and renamed into place only
after it is complete. A failed or interrupted run leaves any previous report
untouched.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addLocationFlags(runCmd)

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the report without writing any file")
	runCmd.Flags().IntVar(&workers, "workers", 1, "Number of partitions aggregated concurrently")
	runCmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "Also write the report as an Excel workbook")
	runCmd.Flags().BoolVar(&skipMalformed, "skip-malformed", false, "Skip malformed transaction lines instead of failing")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the partition progress bar")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runReport resolves the configuration and executes one pipeline run.
func runReport(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if writeXLSX {
		cfg.Report.XLSX = true
	}
	if skipMalformed {
		cfg.ErrorPolicy = config.ErrorPolicySkip
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	progress := tui.NewProgress(cmd.ErrOrStderr(), !noProgress && !verbose && cfg.LogFormat != "json")

	runner := pipeline.New(cfg, pipeline.Options{
		DryRun:      dryRun,
		Logger:      logger,
		OnDiscover:  progress.Start,
		OnPartition: progress.Step,
	})

	result, err := runner.Run(cmd.Context())
	progress.Finish()
	if err != nil {
		logger.Error("run failed", "run_id", runner.RunID(), "code", errs.CodeOf(err), "error", err)
		return fmt.Errorf("report run failed: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(result.Summary))
	return nil
}
