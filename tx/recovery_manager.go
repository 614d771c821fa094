package tx

import (
	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/buffer"
	"github.com/kerndb/kerndb/log"
	"github.com/kerndb/kerndb/logx"
)

// recoveryManager writes the log records that make a transaction's updates
// undoable, and drives both per-transaction rollback and whole-database
// recovery after a restart. It performs no REDO: every update it logs
// carries the value being overwritten, and a crash is handled purely by
// undoing whatever was never committed. Grounded on
// original_source/src/txn/recovery.rs's RecoveryManager and the teacher's
// recoverymanager.go method set (Start/SetInt/SetString/Commit/Rollback/
// Recover), generalized to the single Update record kind in update.go.
type recoveryManager struct {
	lm    *log.LogManager
	bm    *buffer.BufferManager
	tx    *Transaction
	txNum int
}

func newRecoveryManager(tx *Transaction, txNum int, lm *log.LogManager, bm *buffer.BufferManager) (*recoveryManager, error) {
	rm := &recoveryManager{lm: lm, bm: bm, tx: tx, txNum: txNum}
	if _, err := lm.Append(encodeStart(txNum)); err != nil {
		return nil, errors.Wrap(err, "tx: logging start record")
	}
	return rm, nil
}

// logSetInt writes an update record capturing buf's current value at
// offset (the value about to be overwritten), and returns its LSN.
func (rm *recoveryManager) logSetInt(buf *buffer.Buffer, offset int) (int, error) {
	oldVal := buf.Contents().GetInt(offset)
	lsn, err := rm.lm.Append(encodeUpdateInt(rm.txNum, buf.BlockID(), offset, oldVal))
	if err != nil {
		return 0, errors.Wrap(err, "tx: logging update record")
	}
	return lsn, nil
}

// logSetString writes an update record capturing buf's current string
// value at offset, and returns its LSN.
func (rm *recoveryManager) logSetString(buf *buffer.Buffer, offset int) (int, error) {
	oldVal := buf.Contents().GetString(offset)
	lsn, err := rm.lm.Append(encodeUpdateString(rm.txNum, buf.BlockID(), offset, oldVal))
	if err != nil {
		return 0, errors.Wrap(err, "tx: logging update record")
	}
	return lsn, nil
}

// commit flushes every buffer this transaction dirtied, then writes and
// flushes a commit record. The buffer flush must happen first: once the
// commit record is durable, recovery will never again look at this
// transaction's updates, so its writes to data files must already be
// durable by then.
func (rm *recoveryManager) commit() error {
	if err := rm.bm.FlushAll(rm.txNum); err != nil {
		return err
	}
	lsn, err := rm.lm.Append(encodeCommit(rm.txNum))
	if err != nil {
		return errors.Wrap(err, "tx: logging commit record")
	}
	return rm.lm.Flush(lsn)
}

// rollback undoes every update this transaction logged, flushes the
// buffers that undo touched, then writes and flushes a rollback record.
func (rm *recoveryManager) rollback() error {
	if err := rm.undoThisTx(); err != nil {
		return err
	}
	if err := rm.bm.FlushAll(rm.txNum); err != nil {
		return err
	}
	lsn, err := rm.lm.Append(encodeRollback(rm.txNum))
	if err != nil {
		return errors.Wrap(err, "tx: logging rollback record")
	}
	return rm.lm.Flush(lsn)
}

// undoThisTx walks the log newest-to-oldest, undoing every update record
// belonging to this transaction, stopping the moment it reaches this
// transaction's own start record.
func (rm *recoveryManager) undoThisTx() error {
	iter, err := rm.lm.Iterator()
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.HasNext() {
		raw, err := iter.Next()
		if err != nil {
			return err
		}

		rec, err := decodeRecord(raw)
		if err != nil {
			rm.lm.Stats.InvalidRecords.Add(1)
			logx.Log.WithError(err).Warn("tx: unreadable log record during rollback, treating it as end of log")
			return nil
		}

		if rec.TxNum() != rm.txNum {
			continue
		}
		if rec.Kind() == kindStart {
			return nil
		}
		if err := rec.Undo(rm.tx); err != nil {
			return err
		}
	}
	return nil
}

// recover runs at startup: it undoes every update belonging to a
// transaction that neither committed nor rolled back before the crash,
// then writes a checkpoint so a future recovery never has to scan past
// this point.
func recover(tx *Transaction, lm *log.LogManager, bm *buffer.BufferManager) error {
	if err := doRecover(tx, lm); err != nil {
		return err
	}
	if err := bm.FlushAll(tx.rm.txNum); err != nil {
		return err
	}
	lsn, err := lm.Append(encodeCheckpoint())
	if err != nil {
		return errors.Wrap(err, "tx: logging checkpoint record")
	}
	return lm.Flush(lsn)
}

// doRecover walks the log newest-to-oldest, undoing the update records of
// any transaction it hasn't already seen finish (via a commit or rollback
// record), and stops at the first checkpoint record it encounters, at an
// unreadable record, or at the start of the log, whichever comes first.
func doRecover(tx *Transaction, lm *log.LogManager) error {
	finished := make(map[int]struct{})

	iter, err := lm.Iterator()
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.HasNext() {
		raw, err := iter.Next()
		if err != nil {
			return err
		}

		rec, err := decodeRecord(raw)
		if err != nil {
			lm.Stats.InvalidRecords.Add(1)
			logx.Log.WithError(err).Warn("tx: unreadable log record during recovery, treating it as end of log")
			return nil
		}

		switch rec.Kind() {
		case kindCheckpoint:
			return nil
		case kindCommit, kindRollback:
			finished[rec.TxNum()] = struct{}{}
		default:
			if _, done := finished[rec.TxNum()]; !done {
				if err := rec.Undo(tx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
