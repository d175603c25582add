// Kasascan is a network scanner and controller for TP-Link Kasa smart
// power and lighting devices.
//
// It discovers devices with UDP broadcast probes, reads their state and
// energy telemetry, switches them on and off, and tracks how the device
// population changes over time through baselines and scan logs.
// Everything runs over the local network; no cloud account is required
// (the optional cloud subcommand only lists account-bound devices).
//
// Usage:
//
//	kasascan [command] [flags]
//
// Running without arguments performs a scan.
// See 'kasascan --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kasaops/kasascan/internal/config"
	"github.com/kasaops/kasascan/internal/logging"
	"github.com/kasaops/kasascan/internal/version"
)

// settings is the loaded configuration file; flags override it.
var settings = config.Default()

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if s, err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	} else {
		settings = s
	}
	applySettingDefaults()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kasascan",
	Short: "Kasa Smart Device Scanner",
	Long: `A network scanner and controller for TP-Link Kasa smart devices.

Discovers plugs, switches, and bulbs on the local network, reads their
state and energy telemetry, switches them on and off, and tracks
changes against a saved baseline.

If no command is specified, a scan runs with default settings.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: scan when no subcommand provided
		return runScan(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for baseline, snapshot, and scan log (default: platform data dir)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kasascan %s (commit: %s)\n", version.Version, version.Commit)
	},
}
