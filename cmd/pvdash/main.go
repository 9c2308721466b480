// Pvdash is a live terminal dashboard for process variables.
//
// It renders a YAML page document as a grid of fields bound to process
// variables served by a pvdash gateway: readouts, numeric setpoint
// editors, indicator lamps, and action buttons. Values update live, and
// editable fields write back through the gateway.
//
// Usage:
//
//	pvdash -c <page> [flags]
//
// The PVDASH_PATH environment variable must name the installation root;
// page documents are looked up in its pages/ directory and auxiliary
// scripts in its bin/ directory.
// See 'pvdash --help' for available flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veskel/pvdash/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pvdash",
	Short: "Live terminal dashboard for process variables",
	Long: `A terminal dashboard engine driven by YAML page documents.

Each page declares rows of fields: static text, live readouts, numeric
setpoint editors with digit stepping, indicator lamps classified against
threshold sets, and action buttons. Fields bind to process variables
through a pvdash gateway, which is located via the --gateway flag, the
PVDASH_GATEWAY environment variable, or mDNS discovery.`,
	Version:       version.Version,
	SilenceUsage:  true,
	RunE:          runDashboard,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pvdash %s (commit: %s)\n", version.Version, version.Commit)
	},
}
