// Lockwire-cli is a control utility for BLE key controllers.
//
// It talks to devices through a BLE-to-WebSocket bridge (or a UART
// passthrough module), runs the mutual authentication handshake, and
// exposes the device command set: unlock/lock, clock sync, device info,
// record upload control and bulk lock authorization.
//
// Usage:
//
//	lockwire-cli [command] [flags]
//
// See 'lockwire-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lockwire/lockwire/internal/logging"
	"github.com/lockwire/lockwire/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging init failed: %v\n", err)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lockwire-cli",
	Short: "Lockwire Key Controller Utility",
	Long: `A standalone utility for operating BLE electronic lock/key controllers.

Provides bridge discovery, device scanning, lock and unlock control,
clock synchronization, authorization pushes and a live event monitor.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
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
		fmt.Printf("lockwire-cli %s\n", version.Full())
	},
}
