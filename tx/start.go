package tx

import (
	"fmt"

	"github.com/kerndb/kerndb/file"
)

// startRecord marks the point a transaction began. Rollback stops undoing
// a transaction's updates as soon as it reaches that transaction's start
// record; recovery treats a transaction with no commit or rollback record
// as incomplete and undoes every update it logged.
type startRecord struct {
	txNum int
}

func (r startRecord) Kind() kind                 { return kindStart }
func (r startRecord) TxNum() int                 { return r.txNum }
func (r startRecord) Undo(tx *Transaction) error { return nil }
func (r startRecord) String() string             { return fmt.Sprintf("<START %d>", r.txNum) }

func decodeStartRecord(r *recordReader) record {
	return startRecord{txNum: r.readInt()}
}

func encodeStart(txNum int) []byte {
	b := newRecordBuffer(2 * file.IntSize)
	b.writeInt(int(kindStart))
	b.writeInt(txNum)
	return b.bytes()
}
