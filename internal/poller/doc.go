// Package poller provides the HTTP client and fixed-cadence scheduler used
// to poll the network status endpoint.
//
// The main components are:
//
//   - [Client]: HTTP GET wrapper with per-request timeout and body size limit
//   - [Scheduler]: Runs a single job immediately and then on a fixed interval,
//     with at most one cycle in flight
//   - [Response]: Result of a single request
//
// Users of the netbadge library should not need to interact with this
// package directly. Scheduling is exposed through netbadge.Watch.
package poller
