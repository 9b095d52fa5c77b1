package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/netbadge"
	"github.com/spf13/cobra"
)

// watchCmd renders the badge of a remote netbadge server in the terminal.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the network badge in the terminal",
	Long: `Poll a NetBadge server's /api/network/status every 15 seconds and
print the badge as it changes:

  [network-badge] IP 203.0.113.7 | Amsterdam, North Holland, NL
  [network-badge warning] IP 198.51.100.4 | Leeds, England, GB
  [network-badge error] Network: origin lookup failed: ...

Example:
  netbadge watch --url http://localhost:8080`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("url", "http://localhost:8080", "base URL of the netbadge server")
}

func runWatch(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")

	updater, err := netbadge.NewUpdater(baseURL, netbadge.NewWriterSink(cmd.OutOrStdout()),
		netbadge.WithUpdaterLogger(newLogger()),
	)
	if err != nil {
		return fmt.Errorf("invalid --url: %w", err)
	}
	defer updater.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle := netbadge.Watch(ctx, updater)
	<-ctx.Done()
	handle.Stop()
	return nil
}
