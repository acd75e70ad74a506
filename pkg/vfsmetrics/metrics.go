// Package vfsmetrics instruments the channel and byte-store layers with
// a small interface plus a no-op default, so the core never requires a
// Prometheus registry just to run.
package vfsmetrics

import "time"

// ChannelMetrics receives instrumentation events from pkg/vfscore. All
// methods must be safe for concurrent use.
type ChannelMetrics interface {
	// ChannelOpened/ChannelClosed track the open-channel gauge.
	ChannelOpened()
	ChannelClosed()

	// BytesRead/BytesWritten increment per-operation byte counters.
	BytesRead(op string, n int64)
	BytesWritten(op string, n int64)

	// LockWait records how long a blocking operation waited to acquire
	// the file's reader/writer lock.
	LockWait(shared bool, d time.Duration)

	// PagePoolSize reports the current occupancy of a byte store's free
	// page pool.
	PagePoolSize(n int)
}
