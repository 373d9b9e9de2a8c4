// =============================================================================
// Loyalty Purchase Report - Version Command
// =============================================================================
//
// This file defines the 'version' command, which displays the application
// version and build information.
//
// COMMAND USAGE:
//   reporter version           # full build information
//   reporter version --short   # version only
//
// VERSION RESOLUTION:
//   1. Version set at build time with ldflags
//   2. Module version recorded by `go install module@version`
//   3. "dev"
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// =============================================================================
// VERSION INFORMATION
// =============================================================================
// Example build command:
//   go build -ldflags "-X 'github.com/ginjaninja78/loyalty-purchase-report/cmd.Version=1.0.0' \
//     -X 'github.com/ginjaninja78/loyalty-purchase-report/cmd.BuildDate=2024-01-01'"

// Version is the application version. Empty means resolve from build info.
var Version = ""

// BuildDate is the date the application was built.
var BuildDate = "unknown"

// shortVersion prints only the version string.
var shortVersion bool

// resolveVersion returns the version following the order above.
func resolveVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}

// =============================================================================
// VERSION COMMAND DEFINITION
// =============================================================================

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the report tool version, build date and Go runtime.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if shortVersion {
			fmt.Fprintln(out, resolveVersion())
			return
		}
		fmt.Fprintln(out, "Loyalty Purchase Report")
		fmt.Fprintf(out, "Version:    %s\n", resolveVersion())
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "Print only the version")
}
