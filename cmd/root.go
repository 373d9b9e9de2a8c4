// =============================================================================
// Loyalty Purchase Report - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reporter)
//   ├── runCmd      (reporter run)
//   ├── validateCmd (reporter validate)
//   └── versionCmd  (reporter version)
//
// CONFIGURATION PRECEDENCE (highest first):
//   1. Command-line flags that were explicitly set
//   2. The YAML configuration file (--config)
//   3. Built-in defaults
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file. A missing file
// means built-in defaults.
var cfgFile string

// verbose switches the log level to debug.
var verbose bool

// logFormat overrides the configured log format (text or json).
var logFormat string

// Input and output locations, shared by run and validate.
var (
	customersLocation    string
	productsLocation     string
	transactionsLocation string
	outputLocation       string
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reporter",
	Short: "Loyalty Purchase Report - per-customer purchase counts by product and category",
	Long: `Loyalty Purchase Report joins a customer roster, a product catalog and
day-partitioned transaction files into a JSON report with one row per
(customer, product, category) and the number of times it was purchased.

Inputs:
  - customers CSV:    customer_id, loyalty_score
  - products CSV:     product_id, product_description, product_category
  - transactions dir: one subdirectory per day, each holding
                      newline-delimited JSON transaction files

Example Usage:
  reporter run                                  # Use default locations
  reporter run --output_location ./out --xlsx   # Also write an Excel workbook
  reporter validate                             # Check inputs without running
  reporter run --config ./report.yaml -v        # Custom config, debug logs`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. SIGINT and SIGTERM cancel the command's context.
// It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (missing file means defaults)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFormat,
		"log-format",
		"",
		"Log format: text or json (overrides the configuration file)",
	)
}

// addLocationFlags registers the four location flags on cmd.
func addLocationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&customersLocation, "customers_location", config.DefaultCustomersLocation,
		"Customer roster CSV (customer_id, loyalty_score)")
	cmd.Flags().StringVar(&productsLocation, "products_location", config.DefaultProductsLocation,
		"Product catalog CSV (product_id, product_description, product_category)")
	cmd.Flags().StringVar(&transactionsLocation, "transactions_location", config.DefaultTransactionsLocation,
		"Directory of day partitions holding transaction files")
	cmd.Flags().StringVar(&outputLocation, "output_location", config.DefaultOutputLocation,
		"Directory the report is written to")
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig reads the configuration file and applies explicitly set flags.
//
// RETURNS:
//   - The resolved, validated configuration.
//   - An error if the file cannot be parsed or the result is invalid.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("customers_location") {
		cfg.CustomersLocation = customersLocation
	}
	if flags.Changed("products_location") {
		cfg.ProductsLocation = productsLocation
	}
	if flags.Changed("transactions_location") {
		cfg.TransactionsLocation = transactionsLocation
	}
	if flags.Changed("output_location") {
		cfg.OutputLocation = outputLocation
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the command logger. Logs go to w so that stdout stays
// reserved for the run summary.
func newLogger(cfg *config.MainConfig, w io.Writer) *slog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat, w)
}
