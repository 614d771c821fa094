package buffer

import (
	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/file"
)

// Buffer pairs one frame of the pool with the block it currently holds.
// Its contents are dirty exactly when modifyingTx >= 0; flush is a no-op
// otherwise.
type Buffer struct {
	fm       fileManager
	lm       logManager
	contents *file.Page
	block    file.BlockID

	modifyingTx int
	lsn         int
}

func newBuffer(fm fileManager, lm logManager) *Buffer {
	return &Buffer{
		fm:          fm,
		lm:          lm,
		contents:    file.NewPageWithSize(fm.BlockSize()),
		modifyingTx: -1,
		lsn:         -1,
	}
}

// Contents returns the page backing this frame. Callers must hold the
// frame's pin for the duration of any access.
func (b *Buffer) Contents() *file.Page {
	return b.contents
}

// BlockID returns the block currently assigned to this frame.
func (b *Buffer) BlockID() file.BlockID {
	return b.block
}

// SetModified records that txNum dirtied this frame's contents and, if the
// write was logged, the LSN of the record describing it. lsn < 0 means the
// caller performed an unlogged write (e.g. writing a brand new page before
// any transaction could have observed its old contents).
func (b *Buffer) SetModified(txNum, lsn int) {
	b.modifyingTx = txNum
	if lsn >= 0 {
		b.lsn = lsn
	}
}

// ModifyingTx returns the transaction number that last dirtied this frame,
// or -1 if it is clean.
func (b *Buffer) ModifyingTx() int {
	return b.modifyingTx
}

// flush forces the log up to this frame's LSN, then writes the frame to
// disk, honoring write-ahead logging: the update's log record must be
// durable before the page it describes is. A clean frame is a no-op.
func (b *Buffer) flush() error {
	if b.modifyingTx < 0 {
		return nil
	}
	if err := b.lm.Flush(b.lsn); err != nil {
		return errors.Wrap(err, "buffer: flushing log before page write")
	}
	if err := b.fm.Write(b.block, b.contents); err != nil {
		return errors.Wrap(err, "buffer: writing frame to disk")
	}
	b.modifyingTx = -1
	return nil
}

// assignToBlock flushes whatever this frame currently holds, then loads
// block's contents into it. Pin counts are kept by the BufferManager.
func (b *Buffer) assignToBlock(block file.BlockID) error {
	if err := b.flush(); err != nil {
		return err
	}
	b.block = block
	if err := b.fm.Read(block, b.contents); err != nil {
		return errors.Wrapf(err, "buffer: loading %s", block)
	}
	return nil
}
