package tx

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/buffer"
	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/log"
)

// eofBlockNumber is the block number of the dummy block a transaction
// locks in order to serialize Size/Append against concurrent appends to
// the same file: two transactions appending to the same file both need to
// observe a consistent file length, but there's no real block that
// "is" the file's size, so one is invented. Grounded on the teacher's
// tx.go locking the same sentinel block for Size.
const eofBlockNumber = -1

// Transaction is the unit of work over the kernel: every read and write a
// caller performs against the buffer pool goes through one, which acquires
// the appropriate lock before the access and logs the pre-image before any
// write. A Transaction is used by exactly one goroutine at a time and must
// end in exactly one Commit or Rollback call.
type Transaction struct {
	fm *file.FileManager
	lm *log.LogManager
	bm *buffer.BufferManager
	cm *ConcurrencyManager
	rm *recoveryManager

	buffers *bufferList
	txNum   int
}

// TransactionManager hands out monotonically increasing transaction
// numbers and wires each new Transaction to the kernel's shared file, log,
// buffer, and lock-table state.
type TransactionManager struct {
	fm        *file.FileManager
	lm        *log.LogManager
	bm        *buffer.BufferManager
	lockTable *LockTable

	nextTxNum atomic.Int64
}

// NewTransactionManager returns a manager whose transactions share fm, lm,
// bm, and lockTable.
func NewTransactionManager(fm *file.FileManager, lm *log.LogManager, bm *buffer.BufferManager, lockTable *LockTable) *TransactionManager {
	return &TransactionManager{fm: fm, lm: lm, bm: bm, lockTable: lockTable}
}

// NewTransaction starts a new transaction: it is assigned the next
// transaction number and logs its own start record before returning.
func (m *TransactionManager) NewTransaction() (*Transaction, error) {
	txNum := int(m.nextTxNum.Add(1))

	tx := &Transaction{
		fm:      m.fm,
		lm:      m.lm,
		bm:      m.bm,
		cm:      newConcurrencyManager(m.lockTable),
		buffers: newBufferList(m.bm),
		txNum:   txNum,
	}

	rm, err := newRecoveryManager(tx, txNum, m.lm, m.bm)
	if err != nil {
		return nil, err
	}
	tx.rm = rm

	return tx, nil
}

// Recover runs crash recovery against the shared log and buffer pool,
// using a dedicated transaction (and its own transaction number) purely
// to drive the undo passes over prior transactions' updates. Callers run
// this once at startup, before any ordinary transaction begins.
func (m *TransactionManager) Recover() error {
	tx, err := m.NewTransaction()
	if err != nil {
		return err
	}
	if err := recover(tx, m.lm, m.bm); err != nil {
		return err
	}
	tx.cm.Release()
	tx.buffers.unpinAll()
	return nil
}

// TxNum returns this transaction's assigned number.
func (tx *Transaction) TxNum() int {
	return tx.txNum
}

// Pin pins block for the duration of this transaction's interest in it.
// Multiple pins of the same block are reference-counted.
func (tx *Transaction) Pin(block file.BlockID) error {
	return tx.buffers.pin(block)
}

// Unpin releases one pin on block.
func (tx *Transaction) Unpin(block file.BlockID) {
	tx.buffers.unpin(block)
}

// GetInt returns the int at offset within block, first acquiring a shared
// lock on the block.
func (tx *Transaction) GetInt(block file.BlockID, offset int) (int, error) {
	if err := tx.cm.SLock(block); err != nil {
		return 0, err
	}
	buf := tx.buffers.getBuffer(block)
	if buf == nil {
		return 0, errors.Errorf("tx: %s is not pinned by this transaction", block)
	}
	return buf.Contents().GetInt(offset), nil
}

// GetString returns the string at offset within block, first acquiring a
// shared lock on the block.
func (tx *Transaction) GetString(block file.BlockID, offset int) (string, error) {
	if err := tx.cm.SLock(block); err != nil {
		return "", err
	}
	buf := tx.buffers.getBuffer(block)
	if buf == nil {
		return "", errors.Errorf("tx: %s is not pinned by this transaction", block)
	}
	return buf.Contents().GetString(offset), nil
}

// SetInt writes val at offset within block, first acquiring an exclusive
// lock on the block. When okToLog is true (the normal case; callers only
// pass false from inside undo, to avoid logging the undo itself), the
// pre-image is logged first so the write can be undone later.
func (tx *Transaction) SetInt(block file.BlockID, offset, val int, okToLog bool) error {
	if err := tx.cm.XLock(block); err != nil {
		return err
	}
	buf := tx.buffers.getBuffer(block)
	if buf == nil {
		return errors.Errorf("tx: %s is not pinned by this transaction", block)
	}

	lsn := -1
	if okToLog {
		var err error
		lsn, err = tx.rm.logSetInt(buf, offset)
		if err != nil {
			return err
		}
	}

	buf.Contents().SetInt(offset, val)
	buf.SetModified(tx.txNum, lsn)
	return nil
}

// SetString writes val at offset within block, first acquiring an
// exclusive lock on the block, and logs the pre-image unless okToLog is
// false.
func (tx *Transaction) SetString(block file.BlockID, offset int, val string, okToLog bool) error {
	if err := tx.cm.XLock(block); err != nil {
		return err
	}
	buf := tx.buffers.getBuffer(block)
	if buf == nil {
		return errors.Errorf("tx: %s is not pinned by this transaction", block)
	}

	lsn := -1
	if okToLog {
		var err error
		lsn, err = tx.rm.logSetString(buf, offset)
		if err != nil {
			return err
		}
	}

	buf.Contents().SetString(offset, val)
	buf.SetModified(tx.txNum, lsn)
	return nil
}

// Size returns the number of blocks in filename, locking the file's dummy
// end-of-file block so a concurrent Append to the same file serializes
// against this read.
func (tx *Transaction) Size(filename string) (int, error) {
	dummy := file.NewBlockID(filename, eofBlockNumber)
	if err := tx.cm.SLock(dummy); err != nil {
		return 0, err
	}
	return tx.fm.Length(filename)
}

// Append extends filename by one block, locking the same dummy
// end-of-file block Size locks, this time exclusively, and returns the new
// block's id.
func (tx *Transaction) Append(filename string) (file.BlockID, error) {
	dummy := file.NewBlockID(filename, eofBlockNumber)
	if err := tx.cm.XLock(dummy); err != nil {
		return file.BlockID{}, err
	}
	return tx.fm.Append(filename)
}

// BlockSize returns the file manager's fixed block size.
func (tx *Transaction) BlockSize() int {
	return tx.fm.BlockSize()
}

// AvailableBuffers returns the number of buffer pool frames not currently
// pinned by any transaction.
func (tx *Transaction) AvailableBuffers() int {
	return tx.bm.Available()
}

// Commit flushes every buffer this transaction dirtied, durably logs a
// commit record, releases every lock it holds, and unpins every buffer it
// pinned. After Commit returns (with or without error) the transaction
// must not be used again.
func (tx *Transaction) Commit() error {
	if err := tx.rm.commit(); err != nil {
		return err
	}
	tx.cm.Release()
	tx.buffers.unpinAll()
	return nil
}

// Rollback undoes every update this transaction logged, flushes the
// affected buffers, durably logs a rollback record, releases every lock it
// holds, and unpins every buffer it pinned.
func (tx *Transaction) Rollback() error {
	if err := tx.rm.rollback(); err != nil {
		return err
	}
	tx.cm.Release()
	tx.buffers.unpinAll()
	return nil
}
