package file

import "fmt"

// EOF is a sentinel block number for a "dummy" BlockID that stands in for
// the end of a file. Transaction.Size/Append lock a block with this same
// number (tx's own eofBlockNumber constant) to guard the file's size
// against concurrent Append calls.
const EOF = -1

// BlockID identifies a fixed-size block within a single file.
// It is a value type: two BlockIDs naming the same (filename, block number)
// pair compare equal and hash identically, so BlockID is usable as a map key.
type BlockID struct {
	filename    string
	blockNumber int
}

// NewBlockID returns the identifier for block number blockNumber of filename.
func NewBlockID(filename string, blockNumber int) BlockID {
	return BlockID{
		filename:    filename,
		blockNumber: blockNumber,
	}
}

func (bid BlockID) Filename() string {
	return bid.filename
}

func (bid BlockID) BlockNumber() int {
	return bid.blockNumber
}

func (bid BlockID) Equals(other BlockID) bool {
	return bid.filename == other.filename && bid.blockNumber == other.blockNumber
}

func (bid BlockID) String() string {
	return fmt.Sprintf("[file %s, block %d]", bid.filename, bid.blockNumber)
}
