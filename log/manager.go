// Package log implements the write-ahead log: an append-only sequence of
// variable-length records, each assigned a monotonically increasing log
// sequence number (LSN), durable once LogManager.Flush has been called with
// an LSN at or past it. The recovery manager builds Start/Commit/
// Rollback/Update/Checkpoint records on top of the plain byte records this
// package moves; LogManager itself knows nothing about record structure.
package log

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/logx"
	"github.com/kerndb/kerndb/metrics"
)

// LogManager appends records to, and flushes, a single log file. Records
// are packed into the current block back-to-front: the first four bytes of
// every block hold the "boundary" offset of the most recently written record
// in the block, and each Append writes its record just before that boundary.
// This lets an Iterator walk a block's records newest-to-oldest without ever
// having to know a record's length up front, because the previous record's
// start is the next record's end.
type LogManager struct {
	mu sync.Mutex

	fm      *file.FileManager
	logfile string

	logpage      *file.Page
	currentBlock file.BlockID
	latestLSN    int
	lastSavedLSN int

	Stats metrics.LogStats
}

// NewLogManager opens logfile within fm, creating its first block if the
// file is empty or loading the last block's tail if it already has content
// (the case after a restart).
func NewLogManager(fm *file.FileManager, logfile string) (*LogManager, error) {
	logsize, err := fm.Length(logfile)
	if err != nil {
		return nil, errors.Wrapf(err, "log: getting length of %s", logfile)
	}

	m := &LogManager{
		fm:      fm,
		logfile: logfile,
		logpage: file.NewPageWithSize(fm.BlockSize()),
	}

	if logsize == 0 {
		block, err := m.appendNewBlock()
		if err != nil {
			return nil, err
		}
		m.currentBlock = block
	} else {
		m.currentBlock = file.NewBlockID(logfile, logsize-1)
		if err := fm.Read(m.currentBlock, m.logpage); err != nil {
			return nil, errors.Wrapf(err, "log: reading tail block of %s", logfile)
		}
	}

	return m, nil
}

// Append packs record into the current block, flushing and rolling to a new
// block first if it doesn't fit, and returns the LSN assigned to it. The
// returned LSN is not yet durable; callers pass it to Flush before relying
// on its durability (the transaction manager does this at commit, and the
// buffer manager does it before evicting a dirty frame).
func (m *LogManager) Append(record []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	boundary := m.logpage.GetInt(0)
	bytesNeeded := len(record) + file.IntSize

	if bytesNeeded+file.IntSize > boundary {
		if err := m.flushLocked(); err != nil {
			return 0, err
		}
		block, err := m.appendNewBlock()
		if err != nil {
			return 0, err
		}
		m.currentBlock = block
		boundary = m.logpage.GetInt(0)
	}

	recpos := boundary - bytesNeeded
	m.logpage.SetBytes(recpos, record)
	m.logpage.SetInt(0, recpos)

	m.latestLSN++
	m.Stats.RecordsAppended.Add(1)
	return m.latestLSN, nil
}

// Flush forces the log to disk if lsn has not already been made durable by
// an earlier flush.
func (m *LogManager) Flush(lsn int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lsn <= m.lastSavedLSN {
		return nil
	}
	return m.flushLocked()
}

func (m *LogManager) flushLocked() error {
	if err := m.fm.Write(m.currentBlock, m.logpage); err != nil {
		return errors.Wrap(err, "log: flushing")
	}
	m.lastSavedLSN = m.latestLSN
	m.Stats.Flushes.Add(1)
	m.Stats.BytesFlushed.Add(int64(m.fm.BlockSize()))
	return nil
}

// Iterator flushes any buffered records and returns an Iterator positioned
// at the most recently written record, walking backwards to the start of
// the log. Recovery and rollback both rely on this newest-first order: the
// most recent update is the first one that needs undoing.
func (m *LogManager) Iterator() (*Iterator, error) {
	m.mu.Lock()
	defer func() {
		m.mu.Unlock()
	}()

	if err := m.flushLocked(); err != nil {
		return nil, err
	}
	return newIterator(m.fm, m.currentBlock)
}

func (m *LogManager) appendNewBlock() (file.BlockID, error) {
	block, err := m.fm.Append(m.logfile)
	if err != nil {
		return file.BlockID{}, errors.Wrapf(err, "log: extending %s", m.logfile)
	}

	m.logpage.SetInt(0, m.fm.BlockSize())
	if err := m.fm.Write(block, m.logpage); err != nil {
		return file.BlockID{}, errors.Wrap(err, "log: initializing new block")
	}

	logx.Log.WithField("block", block.String()).Debug("log manager rolled to new block")
	return block, nil
}
