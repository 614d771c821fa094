package tx

import (
	"fmt"

	"github.com/kerndb/kerndb/file"
)

// rollbackRecord marks a transaction as having finished via rollback.
// Exactly like commitRecord from recovery's point of view: once durable,
// that transaction's updates are never undone again.
type rollbackRecord struct {
	txNum int
}

func (r rollbackRecord) Kind() kind                { return kindRollback }
func (r rollbackRecord) TxNum() int                { return r.txNum }
func (r rollbackRecord) Undo(tx *Transaction) error { return nil }
func (r rollbackRecord) String() string            { return fmt.Sprintf("<ROLLBACK %d>", r.txNum) }

func decodeRollbackRecord(r *recordReader) record {
	return rollbackRecord{txNum: r.readInt()}
}

func encodeRollback(txNum int) []byte {
	b := newRecordBuffer(2 * file.IntSize)
	b.writeInt(int(kindRollback))
	b.writeInt(txNum)
	return b.bytes()
}
