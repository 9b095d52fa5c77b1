// Package server provides the HTTP server for the network status API and
// the badge dashboard.
//
// It handles:
//
//   - Network status: live IP/geolocation lookup at "/api/network/status"
//   - Traffic: counters and rates at "/api/network/traffic"
//   - Badge: the latest render at "/api/badge", streamed at "/api/badge/sse"
//     and "/api/badge/ws"
//   - Metrics: Prometheus exposition at "/metrics"
//   - Dashboard: the embedded page at "/"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
