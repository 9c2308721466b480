// Pvdash-sim is a standalone gateway simulator for pvdash.
//
// It serves the gateway wire protocol over a websocket and backs it with
// an in-memory table of simulated variables, so pages can be developed
// and demonstrated without a control system. Variables can random-walk
// to exercise live readouts, and writes from the dashboard land in the
// table and are broadcast back to every subscriber.
//
// Usage:
//
//	pvdash-sim [flags]
//
// See 'pvdash-sim --help' for available options.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veskel/pvdash/internal/gwsim"
	"github.com/veskel/pvdash/internal/logging"
	"github.com/veskel/pvdash/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	host       string
	port       int
	path       string
	tickSecs   float64
	varsFile   string
	noAnnounce bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "pvdash-sim",
	Short: "PV gateway simulator",
	Long: `A gateway simulator serving the pvdash wire protocol.

Without a variable definition file a small built-in demo set is served.
Definitions are a YAML list; each entry names a pv_name and may set
initial, walk (random walk amplitude per tick), precision, units, and
enums.`,
	Example: `  # Serve the built-in demo variables
  pvdash-sim

  # Serve a custom variable set on another port
  pvdash-sim --vars ring.yaml --port 9000

  # Faster random walk for stress testing pages
  pvdash-sim --tick 0.1`,
	Version: version.Version,
	RunE:    runSimulator,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&host, "host", "", "Listen address (default all interfaces)")
	rootCmd.Flags().IntVar(&port, "port", gwsim.DefaultPort, "Listen port")
	rootCmd.Flags().StringVar(&path, "path", gwsim.DefaultPath, "Websocket endpoint path")
	rootCmd.Flags().Float64Var(&tickSecs, "tick", 1.0, "Random walk interval in seconds")
	rootCmd.Flags().StringVar(&varsFile, "vars", "", "YAML variable definition file")
	rootCmd.Flags().BoolVar(&noAnnounce, "no-announce", false, "Disable mDNS advertisement")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pvdash-sim %s (commit: %s)\n", version.Version, version.Commit)
	},
}

func runSimulator(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	vars := gwsim.DemoVars()
	if varsFile != "" {
		loaded, err := gwsim.LoadVars(varsFile)
		if err != nil {
			return err
		}
		vars = loaded
	}

	server := gwsim.New(gwsim.Config{
		Host:     host,
		Port:     port,
		Path:     path,
		Tick:     time.Duration(tickSecs * float64(time.Second)),
		Announce: !noAnnounce,
		Vars:     vars,
	})

	if err := server.Start(); err != nil {
		return err
	}

	fmt.Printf("Serving %d variables at %s\n", len(vars), server.URL())
	fmt.Println("Press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("\nShutting down...")
	return server.Stop()
}
