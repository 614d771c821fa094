package tx

import "github.com/kerndb/kerndb/file"

// ConcurrencyManager enforces strict two-phase locking for a single
// transaction: it tracks which locks that transaction holds and on what
// blocks, acquiring a shared lock the first time the transaction reads a
// block and upgrading to exclusive the first time it writes one. Locks are
// only ever released in bulk, at commit or rollback (Release), never
// early, which is what makes the discipline strict 2PL rather than plain
// 2PL. Grounded on the one-ConcurrencyManager-per-Transaction pattern the
// teacher's concurrency manager also uses, wrapping the same LockTable.
type ConcurrencyManager struct {
	lockTable *LockTable
	held      map[file.BlockID]string // "S" or "X"
}

func newConcurrencyManager(lockTable *LockTable) *ConcurrencyManager {
	return &ConcurrencyManager{
		lockTable: lockTable,
		held:      make(map[file.BlockID]string),
	}
}

// SLock acquires a shared lock on block if this transaction doesn't
// already hold some lock on it.
func (cm *ConcurrencyManager) SLock(block file.BlockID) error {
	if _, ok := cm.held[block]; ok {
		return nil
	}
	if err := cm.lockTable.SLock(block); err != nil {
		return err
	}
	cm.held[block] = "S"
	return nil
}

// XLock acquires an exclusive lock on block, first taking the shared lock
// if the transaction doesn't hold any lock on it yet (XLock always
// upgrades from S, it never requests X directly).
func (cm *ConcurrencyManager) XLock(block file.BlockID) error {
	if cm.held[block] == "X" {
		return nil
	}
	if err := cm.SLock(block); err != nil {
		return err
	}
	if err := cm.lockTable.XLock(block); err != nil {
		return err
	}
	cm.held[block] = "X"
	return nil
}

// Release drops every lock this transaction holds. Called exactly once,
// at commit or rollback.
func (cm *ConcurrencyManager) Release() {
	for block := range cm.held {
		cm.lockTable.Unlock(block)
	}
	cm.held = make(map[file.BlockID]string)
}
