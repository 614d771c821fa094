package tx

import "github.com/kerndb/kerndb/file"

// checkpointRecord marks that, at the point it was written, every prior
// log record could be ignored by a subsequent recovery pass: it is written
// once recovery finishes undoing every incomplete transaction it found, so
// a crash during normal operation never needs to scan past it. This kernel
// performs no REDO pass, so the checkpoint record carries no transaction
// table or dirty-page table, unlike a full ARIES checkpoint.
type checkpointRecord struct{}

func (checkpointRecord) Kind() kind              { return kindCheckpoint }
func (checkpointRecord) TxNum() int              { return -1 }
func (checkpointRecord) Undo(tx *Transaction) error { return nil }
func (checkpointRecord) String() string          { return "<CHECKPOINT>" }

func decodeCheckpointRecord(r *recordReader) record {
	return checkpointRecord{}
}

func encodeCheckpoint() []byte {
	b := newRecordBuffer(file.IntSize)
	b.writeInt(int(kindCheckpoint))
	return b.bytes()
}
