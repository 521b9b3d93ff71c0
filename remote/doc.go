// Package remote talks to the servers GTFS feeds are published on.
//
// It supports two operations:
//   - Probe: a HEAD request comparing the server's Last-Modified with a local timestamp
//   - Download: fetching a feed archive into a feed directory
//
// Both share one Client so a single timeout and rate limit apply to a whole batch.
package remote
