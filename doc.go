// Package netbadge keeps a small network status badge up to date.
//
// The badge answers one question for someone working behind a proxy or
// VPN: which IP address is my traffic leaving from right now? It polls a
// status endpoint ([StatusPath]) every [PollInterval] and renders one of
// three states:
//
//	network-badge          IP 203.0.113.7 | Amsterdam, North Holland, NL
//	network-badge warning  IP 192.0.2.1 | Leeds, England, GB
//	network-badge error    Network: origin lookup failed: ...
//
// # Updating a badge
//
// An [Updater] performs one poll cycle per [Updater.Refresh] and renders the
// outcome into a [Sink] handed to it at construction:
//
//	u, err := netbadge.NewUpdater("http://localhost:8080", netbadge.NewWriterSink(os.Stdout))
//	if err != nil {
//	    return err
//	}
//	h := netbadge.Watch(ctx, u) // first cycle runs immediately
//	defer h.Stop()
//
// Failures never escape a cycle. Transport errors, non-2xx responses and
// malformed payloads all render as an error badge, and the next tick tries
// again.
//
// # Serving the status
//
// [NetBadge] serves the status endpoint itself, resolving the origin and
// effective IP through a chain of geolocation providers, and keeps a
// dashboard badge refreshed from it:
//
//	nb, _ := netbadge.New(
//	    netbadge.WithProxy("socks5h://127.0.0.1:1080"),
//	    netbadge.WithExpectProxy(true),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	nb.Start(ctx) // blocks until context is cancelled
//
// # Architecture
//
// NetBadge consists of several internal packages (under internal/):
//
//   - internal/poller: HTTP client and single-flight interval scheduler
//   - internal/netstatus: origin/effective IP lookup over a provider chain
//   - internal/traffic: interface byte counters and throughput rates
//   - internal/store: latest badge with pub/sub for live updates
//   - internal/server: chi router with the JSON API and Server-Sent Events
//   - internal/metrics: Prometheus counters on a per-instance registry
//   - dashboard: embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package netbadge
