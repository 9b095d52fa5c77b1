// Package store holds the most recently rendered network badge and fans
// renders out to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining latest-badge and subscription operations
//   - [MemoryStore]: In-memory implementation with pub/sub
//   - [Badge]: Storage representation of a rendered badge
//
// Only the latest render is kept. Subscribers receive renders via channels
// with non-blocking sends, so slow subscribers miss renders rather than
// stall a poll cycle.
package store
