// Package kerndb assembles the file, log, buffer, and transaction layers
// into a single embeddable handle, the way db/db.go wires up the teacher's
// equivalent layers (minus the SQL planner and catalog, which are out of
// this kernel's scope: callers that need a query surface build it on top
// of Transaction themselves).
package kerndb

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/buffer"
	"github.com/kerndb/kerndb/dbconfig"
	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/log"
	"github.com/kerndb/kerndb/logx"
	"github.com/kerndb/kerndb/metrics"
	"github.com/kerndb/kerndb/tx"
)

// ErrCheckpointNotQuiescent is returned by Checkpoint when one or more
// transactions are still open against the database. Checkpoint's undo
// pass cannot tell an in-flight write from one that never finished, so
// running it concurrently with an open transaction would undo that
// transaction's own writes out from under it.
var ErrCheckpointNotQuiescent = errors.New("kerndb: checkpoint requires no open transactions")

// DB is an open storage kernel: a fixed on-disk directory, a bounded
// buffer pool over it, and the machinery to start transactions against
// both. It is the single entry point embedders use; everything else in
// this module exists to be composed by it.
type DB struct {
	fm        *file.FileManager
	lm        *log.LogManager
	bm        *buffer.BufferManager
	lockTable *tx.LockTable
	tm        *tx.TransactionManager

	cfg        dbconfig.Config
	activeTxns atomic.Int64
}

// Transaction is a unit of work against a DB. It wraps tx.Transaction
// purely to keep DB's count of open transactions accurate, so Checkpoint
// can refuse to run while one is still outstanding.
type Transaction struct {
	*tx.Transaction

	db *DB
}

// Commit commits the underlying transaction and marks it no longer open.
func (t *Transaction) Commit() error {
	defer t.db.activeTxns.Add(-1)
	return t.Transaction.Commit()
}

// Rollback rolls back the underlying transaction and marks it no longer
// open.
func (t *Transaction) Rollback() error {
	defer t.db.activeTxns.Add(-1)
	return t.Transaction.Rollback()
}

// Open creates or reopens the database directory at dir using cfg (pass
// dbconfig.Default() for documented defaults). If the directory is new,
// Open skips recovery; otherwise it runs Recover before returning, the
// same way db.NewDB decides between first-time setup and crash recovery
// by checking FileManager.IsNew.
func Open(dir string, cfg dbconfig.Config) (*DB, error) {
	fm, err := file.NewFileManager(dir, cfg.BlockSize)
	if err != nil {
		return nil, errors.Wrap(err, "kerndb: opening file manager")
	}

	lm, err := log.NewLogManager(fm, cfg.LogFile)
	if err != nil {
		return nil, errors.Wrap(err, "kerndb: opening log manager")
	}

	bm := buffer.NewBufferManager(fm, lm, cfg.PoolCapacity, cfg.EvictionPolicy)
	lockTable := tx.NewLockTable(cfg.MaxLockWait)
	tm := tx.NewTransactionManager(fm, lm, bm, lockTable)

	db := &DB{fm: fm, lm: lm, bm: bm, lockTable: lockTable, tm: tm, cfg: cfg}

	if fm.IsNew() {
		logx.Log.WithField("dir", dir).Info("kerndb: initialized new database, skipping recovery")
		return db, nil
	}

	logx.Log.WithField("dir", dir).Info("kerndb: reopening database, running recovery")
	if err := tm.Recover(); err != nil {
		return nil, errors.Wrap(err, "kerndb: recovering")
	}
	return db, nil
}

// NewTransaction starts a new transaction against this database.
func (db *DB) NewTransaction() (*Transaction, error) {
	t, err := db.tm.NewTransaction()
	if err != nil {
		return nil, err
	}
	db.activeTxns.Add(1)
	return &Transaction{Transaction: t, db: db}, nil
}

// Checkpoint runs the same undo pass Open runs at startup, flushes the
// buffers that pass dirtied, then writes a fresh checkpoint record. An
// embedder calls this between batches of work to bound how much of the
// log a future recovery has to scan, trading the cost of the pass now for
// a faster recovery later, supplementary to what spec.md asks for, since
// a kernel with no REDO pass still benefits from not scanning an
// unbounded log on every restart.
//
// Checkpoint requires that no transaction be open against this database:
// its undo pass cannot distinguish an in-flight write from one that never
// completed, so running it against a live transaction would undo that
// transaction's own writes. It returns ErrCheckpointNotQuiescent if any
// transaction started by NewTransaction has not yet committed or rolled
// back.
func (db *DB) Checkpoint() error {
	if db.activeTxns.Load() > 0 {
		return ErrCheckpointNotQuiescent
	}
	return db.tm.Recover()
}

// Close closes the underlying file handles. Any transaction still open
// against this DB becomes invalid.
func (db *DB) Close() error {
	return db.fm.Close()
}

// Stats returns a point-in-time snapshot of every subsystem's counters.
func (db *DB) Stats() metrics.Snapshot {
	return metrics.Snapshot{
		BlocksRead:     db.fm.Stats.BlocksRead.Load(),
		BlocksWritten:  db.fm.Stats.BlocksWritten.Load(),
		BlocksAppended: db.fm.Stats.BlocksAppended.Load(),

		Pins:      db.bm.Stats.Pins.Load(),
		Hits:      db.bm.Stats.Hits.Load(),
		Misses:    db.bm.Stats.Misses.Load(),
		Evictions: db.bm.Stats.Evictions.Load(),
		Exhausted: db.bm.Stats.Exhausted.Load(),
		Flushes:   db.bm.Stats.Flushes.Load(),

		RecordsAppended: db.lm.Stats.RecordsAppended.Load(),
		LogFlushes:      db.lm.Stats.Flushes.Load(),
		BytesFlushed:    db.lm.Stats.BytesFlushed.Load(),
		InvalidRecords:  db.lm.Stats.InvalidRecords.Load(),

		LockGrants:   db.lockTable.Stats.Grants.Load(),
		LockWaits:    db.lockTable.Stats.Waits.Load(),
		LockTimeouts: db.lockTable.Stats.Timeouts.Load(),
	}
}

// BlockSize returns the block size this database was opened with.
func (db *DB) BlockSize() int {
	return db.cfg.BlockSize
}
