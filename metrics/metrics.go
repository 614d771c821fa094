// Package metrics holds the lightweight atomic counters each kernel
// subsystem keeps for observability, grounded on the FileManagerStats
// counters in original_source/src/file.rs and the PoolStats struct from the
// buffer-pool reference design. None of these counters participate in any
// correctness invariant; they exist purely so an embedder can inspect
// what the kernel has been doing.
package metrics

import "sync/atomic"

// FileStats counts block-level I/O performed by a FileManager.
type FileStats struct {
	BlocksRead     atomic.Int64
	BlocksWritten  atomic.Int64
	BlocksAppended atomic.Int64
}

// BufferStats counts buffer pool activity: hits/misses on pin, evictions,
// and pool-exhaustion aborts.
type BufferStats struct {
	Pins      atomic.Int64
	Hits      atomic.Int64
	Misses    atomic.Int64
	Evictions atomic.Int64
	Exhausted atomic.Int64
	Flushes   atomic.Int64
}

// LogStats counts log manager activity.
type LogStats struct {
	RecordsAppended atomic.Int64
	Flushes         atomic.Int64
	BytesFlushed    atomic.Int64
	InvalidRecords  atomic.Int64
}

// LockStats counts lock table activity.
type LockStats struct {
	Grants   atomic.Int64
	Waits    atomic.Int64
	Timeouts atomic.Int64
}

// Snapshot is a point-in-time, non-atomic copy of every counter, suitable
// for logging or returning from an embedder-facing Stats() call.
type Snapshot struct {
	BlocksRead     int64
	BlocksWritten  int64
	BlocksAppended int64

	Pins      int64
	Hits      int64
	Misses    int64
	Evictions int64
	Exhausted int64
	Flushes   int64

	RecordsAppended int64
	LogFlushes      int64
	BytesFlushed    int64
	InvalidRecords  int64

	LockGrants   int64
	LockWaits    int64
	LockTimeouts int64
}
