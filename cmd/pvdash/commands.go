package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/veskel/pvdash/internal/exec"
	"github.com/veskel/pvdash/internal/logging"
	"github.com/veskel/pvdash/internal/macro"
	"github.com/veskel/pvdash/internal/paths"
	"github.com/veskel/pvdash/internal/pv"
	"github.com/veskel/pvdash/internal/pv/discovery"
	"github.com/veskel/pvdash/internal/ui"
)

// GatewayEnvVar names a gateway websocket URL, consulted when no
// --gateway flag is given.
const GatewayEnvVar = "PVDASH_GATEWAY"

// discoveryTimeout bounds the mDNS gateway lookup.
const discoveryTimeout = 5 * time.Second

// Dashboard flags
var (
	configDoc   string
	headerDoc   string
	refreshSecs float64
	macroValues []string
	verbose     bool
	gatewayURL  string
	noWatch     bool
)

func init() {
	rootCmd.Flags().StringVarP(&configDoc, "config", "c", "", "Page document to display (required)")
	rootCmd.Flags().StringVarP(&headerDoc, "header", "H", "", "Header document pinned above the page")
	rootCmd.Flags().Float64VarP(&refreshSecs, "time", "t", 0.5, "Refresh interval in seconds")
	rootCmd.Flags().StringArrayVarP(&macroValues, "macro", "m", nil, "Macro substitution value (repeatable, in index order)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose event tracing")
	rootCmd.Flags().StringVar(&gatewayURL, "gateway", "", "Gateway websocket URL (overrides "+GatewayEnvVar+" and discovery)")
	rootCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable live reload of the page document")

	_ = rootCmd.MarkFlagRequired("config")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if verbose {
		if err := logging.Initialize("debug"); err != nil {
			return err
		}
	} else if err := logging.InitializeFromEnv(); err != nil {
		return err
	}
	defer logging.Sync()

	layout, err := paths.Resolve()
	if err != nil {
		return err
	}

	document := layout.ResolveDocument(configDoc)
	header := ""
	if headerDoc != "" {
		header = layout.ResolveDocument(headerDoc)
	}

	if err := ackMacroWarnings(document, header); err != nil {
		return err
	}

	url, err := resolveGateway()
	if err != nil {
		return err
	}

	gateway := pv.NewGateway(url)
	gateway.Start()
	defer gateway.Close()

	runner := exec.NewRunner(layout.ResolveScript)

	return ui.Run(ui.Config{
		Document: document,
		Header:   header,
		Refresh:  time.Duration(refreshSecs * float64(time.Second)),
		Macros:   macroValues,
		Provider: gateway,
		Runner:   runner,
		Watch:    !noWatch,
	})
}

// ackMacroWarnings expands the documents once before the screen is taken
// over, so missing macro designators can be reviewed and acknowledged.
// The warnings are not fatal.
func ackMacroWarnings(documents ...string) error {
	var all []macro.Warning
	for _, doc := range documents {
		if doc == "" {
			continue
		}
		data, err := os.ReadFile(doc)
		if err != nil {
			return err
		}
		_, warnings := macro.Expand(filepath.Base(doc), string(data), macroValues)
		all = append(all, warnings...)
	}

	if len(all) == 0 {
		return nil
	}

	for _, w := range all {
		fmt.Fprintln(os.Stderr, "Warning:", w.String())
	}
	fmt.Fprint(os.Stderr, "Press Enter to continue...")
	_, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	return nil
}

// resolveGateway picks the gateway URL: the --gateway flag wins, then
// the PVDASH_GATEWAY environment variable, then mDNS discovery.
func resolveGateway() (string, error) {
	if gatewayURL != "" {
		return gatewayURL, nil
	}
	if url := os.Getenv(GatewayEnvVar); url != "" {
		return url, nil
	}

	fmt.Fprintln(os.Stderr, "Searching for a gateway via mDNS...")
	endpoint, err := discovery.Lookup(context.Background(), discoveryTimeout)
	if err != nil {
		return "", fmt.Errorf("no gateway configured and discovery failed: %w (set %s or pass --gateway)", err, GatewayEnvVar)
	}
	fmt.Fprintf(os.Stderr, "Using gateway %s\n", endpoint)
	return endpoint.URL(), nil
}
