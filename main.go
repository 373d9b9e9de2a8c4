// =============================================================================
// Loyalty Purchase Report - Main Entry Point
// =============================================================================
//
// USAGE:
//   reporter run        - Build the report from the configured inputs
//   reporter validate   - Check the inputs without building the report
//   reporter version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Loaders, aggregator, report builder and pipeline
//   - pkg/utils      : File system helpers shared across packages
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/loyalty-purchase-report/cmd"
)

func main() {
	cmd.Execute()
}
