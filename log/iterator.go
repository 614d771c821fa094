package log

import (
	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/file"
)

// Iterator walks log records from newest to oldest: forward through a
// block's records (from its boundary to its end), then, once a block is
// exhausted, to the previous (lower-numbered) block. Because Append always
// writes the newest record immediately before the current boundary, the
// record at the boundary is always the newest record in the block, and
// walking forward from there yields strictly older records.
type Iterator struct {
	fm    *file.FileManager
	block file.BlockID
	page  *file.Page

	currentPos int
	boundary   int
}

func newIterator(fm *file.FileManager, start file.BlockID) (*Iterator, error) {
	it := &Iterator{
		fm:   fm,
		page: file.NewPageWithSlice(getIteratorBuf(fm.BlockSize())),
	}
	if err := it.moveToBlock(start); err != nil {
		return nil, err
	}
	return it, nil
}

// HasNext reports whether another record remains: either unread bytes in
// the current block, or a lower-numbered block still to visit.
func (it *Iterator) HasNext() bool {
	return it.currentPos < it.fm.BlockSize() || it.block.BlockNumber() > 0
}

// Next returns the next record in newest-to-oldest order.
func (it *Iterator) Next() ([]byte, error) {
	if it.currentPos == it.fm.BlockSize() {
		prev := file.NewBlockID(it.block.Filename(), it.block.BlockNumber()-1)
		if err := it.moveToBlock(prev); err != nil {
			return nil, err
		}
	}

	record := it.page.GetBytes(it.currentPos)
	it.currentPos += len(record) + file.IntSize
	return record, nil
}

// Close releases the iterator's page buffer back to the pool. Callers that
// exhaust HasNext naturally don't need to call it, but anyone abandoning an
// iterator early (e.g. rollback stopping once it finds its own Start
// record) should.
func (it *Iterator) Close() {
	if it.page != nil {
		putIteratorBuf(it.page.Contents())
		it.page = nil
	}
}

func (it *Iterator) moveToBlock(block file.BlockID) error {
	if err := it.fm.Read(block, it.page); err != nil {
		return errors.Wrapf(err, "log: reading block %s during iteration", block)
	}
	it.boundary = it.page.GetInt(0)
	it.currentPos = it.boundary
	it.block = block
	return nil
}
