package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/netbadge"
	"github.com/jpalmerr/netbadge/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the NetBadge server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status server and dashboard",
	Long: `Start the NetBadge server.

The server will:
  - Load configuration from the specified YAML file
  - Serve /api/network/status, /api/network/traffic and /metrics
  - Refresh the dashboard badge from the status endpoint every 15s

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  netbadge serve -c config.yaml
  netbadge serve --config /etc/netbadge/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"port", cfg.Port,
		"providers", len(cfg.Providers),
		"mullvad_socks5", cfg.MullvadSOCKS5,
	)

	opts := append(config.BuildOptions(cfg), netbadge.WithLogger(logger))

	nb, err := netbadge.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create NetBadge: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- nb.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
