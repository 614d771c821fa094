// Package tx implements block-level two-phase locking, write-ahead-logged
// undo-only recovery, and the Transaction type that composes them with the
// file, log, and buffer layers. Every update a transaction makes is logged
// before it is applied, so the recovery manager can always return the
// database to a point where every transaction is either fully committed or
// never started.
package tx

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/metrics"
)

// ErrLockTimeout is returned when a lock request waits longer than the
// table's configured timeout without being granted. The caller's
// transaction should abort: this kernel does not attempt deadlock
// detection, so an indefinite wait is the only symptom a deadlock produces.
var ErrLockTimeout = errors.New("tx: timed out waiting for lock")

// lockState tracks one block's lock: either held exclusively (value -1) or
// shared by some number of readers (value > 0). No entry for a block means
// it is unlocked.
type lockState int

const sharedUnlocked lockState = 0
const exclusive lockState = -1

// LockTable is the single source of truth for which blocks are locked and
// in which mode; it does not record which transaction holds a lock. One mutex and one condition variable guard
// the whole table: a request that can't be granted immediately waits on
// the condvar until some other transaction releases a lock and broadcasts,
// or until maxWait elapses, in which case it aborts with ErrLockTimeout.
// This kernel does not attempt deadlock detection: two transactions
// waiting on each other's locks simply both eventually time out.
type LockTable struct {
	mu      sync.Mutex
	cond    *sync.Cond
	locks   map[file.BlockID]lockState
	maxWait time.Duration

	Stats metrics.LockStats
}

// NewLockTable returns a LockTable whose requests give up after maxWait.
func NewLockTable(maxWait time.Duration) *LockTable {
	lt := &LockTable{
		locks:   make(map[file.BlockID]lockState),
		maxWait: maxWait,
	}
	lt.cond = sync.NewCond(&lt.mu)
	return lt
}

// SLock acquires a shared lock on block, waiting for any exclusive holder
// to release it first.
func (lt *LockTable) SLock(block file.BlockID) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	deadline := time.Now().Add(lt.maxWait)
	for lt.hasExclusiveLock(block) {
		if !lt.waitUntil(deadline) {
			lt.Stats.Timeouts.Add(1)
			return ErrLockTimeout
		}
	}

	lt.locks[block]++
	lt.Stats.Grants.Add(1)
	return nil
}

// XLock acquires an exclusive lock on block. The caller is expected to
// already hold the shared lock on block (the standard upgrade discipline
// enforced by ConcurrencyManager): XLock waits until it is the only
// lock holder before upgrading in place.
func (lt *LockTable) XLock(block file.BlockID) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	deadline := time.Now().Add(lt.maxWait)
	for !lt.hasOnlyThisSharedLock(block) {
		if !lt.waitUntil(deadline) {
			lt.Stats.Timeouts.Add(1)
			return ErrLockTimeout
		}
	}

	lt.locks[block] = exclusive
	lt.Stats.Grants.Add(1)
	return nil
}

// Unlock releases one shared lock on block, or the exclusive lock if block
// is held exclusively. Once a block has no remaining lock it is removed
// from the table. Every release wakes every goroutine waiting on the
// condvar to re-check whether its own request can now proceed, including
// an XLock waiting for the other shared holders to leave.
func (lt *LockTable) Unlock(block file.BlockID) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	state, ok := lt.locks[block]
	if !ok {
		return
	}

	if state > 1 {
		lt.locks[block] = state - 1
	} else {
		delete(lt.locks, block)
	}
	lt.cond.Broadcast()
}

func (lt *LockTable) hasExclusiveLock(block file.BlockID) bool {
	return lt.locks[block] == exclusive
}

// hasOnlyThisSharedLock reports whether block is held by exactly one
// shared lock (the caller's own), which is the precondition for upgrading
// that lock to exclusive.
func (lt *LockTable) hasOnlyThisSharedLock(block file.BlockID) bool {
	return lt.locks[block] == 1
}

// waitUntil blocks on the condvar until woken or deadline passes. sync.Cond
// has no built-in deadline, so a timer is armed to broadcast once the
// deadline elapses, purely to wake this goroutine back up; the return value
// is determined by checking the clock after waking, not by which source
// woke it.
func (lt *LockTable) waitUntil(deadline time.Time) bool {
	if !time.Now().Before(deadline) {
		return false
	}

	lt.Stats.Waits.Add(1)

	timer := time.AfterFunc(time.Until(deadline), func() {
		lt.mu.Lock()
		lt.cond.Broadcast()
		lt.mu.Unlock()
	})
	defer timer.Stop()

	lt.cond.Wait()
	return time.Now().Before(deadline)
}
