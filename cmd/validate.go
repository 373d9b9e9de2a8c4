// =============================================================================
// Loyalty Purchase Report - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the run inputs
// without aggregating or writing anything.
//
// COMMAND USAGE:
//   reporter validate [location flags]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/tui"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the input files and directories",
	Long: `The validate command checks that the customer and product files can be
parsed, that every loyalty score is an integer, that the transactions
directory holds day partitions and that the output location is usable.

Warnings describe input a run tolerates. Errors describe input that would
make a run fail, and make this command exit with status 1.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		result := validation.Preflight(cfg)
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderFindings(result))

		if !result.IsValid {
			return fmt.Errorf("validation failed with %d error(s)", result.ErrorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addLocationFlags(validateCmd)
}
