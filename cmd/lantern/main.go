// Lantern is a toolkit for the local network.
//
// It discovers and controls UPnP/DLNA renderers and Roku players, wakes
// machines with Wake-on-LAN, shares files over HTTP with a QR code for
// phones, browses mDNS services, and keeps a list of named devices.
//
// Usage:
//
//	lantern [command] [flags]
//
// See 'lantern --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/lantern/internal/logging"
	"github.com/muurk/lantern/internal/version"
)

// Global flags
var (
	configPath string
	logLevel   string
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "lantern",
	Short: "Local network toolkit",
	Long: `Lantern finds and drives the things on your local network.

Discover and control speakers, TVs and streaming players, wake sleeping
machines, share files with a QR code, and browse mDNS services.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: platform config dir/lantern/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $"+logging.LogLevelEnvVar+" or silent)")

	rootCmd.AddCommand(versionCmd)
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := printer(cmd)
		if versionJSON {
			return p.JSON(version.Get())
		}
		info := version.Get()
		p.Printf("lantern %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionJSON, "json", "j", false, "Output in JSON format")
}
