package tx

import (
	"fmt"

	"github.com/kerndb/kerndb/file"
)

// commitRecord marks a transaction as having finished successfully. Once
// this record is durable, recovery will never undo any of that
// transaction's updates.
type commitRecord struct {
	txNum int
}

func (r commitRecord) Kind() kind                { return kindCommit }
func (r commitRecord) TxNum() int                { return r.txNum }
func (r commitRecord) Undo(tx *Transaction) error { return nil }
func (r commitRecord) String() string            { return fmt.Sprintf("<COMMIT %d>", r.txNum) }

func decodeCommitRecord(r *recordReader) record {
	return commitRecord{txNum: r.readInt()}
}

func encodeCommit(txNum int) []byte {
	b := newRecordBuffer(2 * file.IntSize)
	b.writeInt(int(kindCommit))
	b.writeInt(txNum)
	return b.bytes()
}
