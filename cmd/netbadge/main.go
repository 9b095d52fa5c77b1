// Package main is the entry point for the netbadge CLI.
//
// NetBadge can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	netbadge serve -c config.yaml            # Serve the status API and dashboard
//	netbadge watch --url http://host:8080    # Show the badge in a terminal
//	netbadge validate -c config.yaml         # Validate configuration
//	netbadge version                         # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "netbadge",
	Short: "A network status badge for proxy and VPN setups",
	Long: `NetBadge reports which IP address your traffic leaves from.

It serves /api/network/status (origin and effective IP with location)
and keeps a badge refreshed from it every 15 seconds. The badge reads
"IP <address> | <location>" and turns amber when traffic is still on
the origin IP while a proxy is expected, or red when the lookup fails.

Quick start:
  1. Create a config file (netbadge.yaml)
  2. Run: netbadge serve -c netbadge.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  proxy: socks5h://127.0.0.1:1080
  expect_proxy: true`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this netbadge binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "netbadge %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
