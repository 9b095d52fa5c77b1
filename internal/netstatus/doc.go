// Package netstatus resolves the origin and effective public IP of the host
// and the effective IP's geolocation.
//
// A lookup queries a chain of IP geolocation providers (ipinfo, ipapi,
// ipwhois by default), first directly and then through an optional proxy.
// Comparing the two answers tells whether traffic actually leaves through
// the proxy.
package netstatus
