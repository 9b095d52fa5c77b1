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
)

func main() {
	// start mock provider (see mock_server.go)
	go StartMockProvider(":9999")
	time.Sleep(100 * time.Millisecond)

	// the mock provider is also the proxy, so the effective IP changes
	// whenever its simulated tunnel drops
	nb, err := netbadge.New(
		netbadge.WithPort(8080),
		netbadge.WithTitle("NetBadge Demo"),
		netbadge.WithProviders(netbadge.Provider{Name: "mock", URL: "http://localhost:9999/json"}),
		netbadge.WithProxy("http://localhost:9999"),
		netbadge.WithExpectProxy(true),
		netbadge.WithBadgeCallback(func(b netbadge.Badge) {
			fmt.Printf("[%s] %s\n", b.Class(), b.Text)
		}),
	)
	if err != nil {
		slog.Error("failed to create netbadge", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  NetBadge Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  The mock tunnel drops every 20-60s; the badge turns amber until it returns.")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := nb.Start(ctx); err != nil {
		slog.Error("netbadge error", "error", err)
		os.Exit(1)
	}
}
