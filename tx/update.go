package tx

import (
	"fmt"

	"github.com/kerndb/kerndb/file"
)

// updateRecord logs one write to one block, carrying the value that was
// there *before* the write (the undo image) rather than the new value:
// this kernel never replays a redo pass, so a committed update never needs
// its new value recovered from the log, only its old value restored if the
// writing transaction rolls back or never finished. Consolidates what the
// teacher splits into separate SETINT/SETSTRING record types into one
// kind tagged by UpdateValue.Kind, matching
// original_source/src/txn/recovery.rs's single LogRecord::Update variant.
type updateRecord struct {
	txNum  int
	block  file.BlockID
	offset int
	undo   UpdateValue
}

func (r updateRecord) Kind() kind { return kindUpdate }
func (r updateRecord) TxNum() int { return r.txNum }

func (r updateRecord) String() string {
	switch r.undo.Kind {
	case valueKindString:
		return fmt.Sprintf("<UPDATE %d %s %d %q>", r.txNum, r.block, r.offset, r.undo.StringVal)
	default:
		return fmt.Sprintf("<UPDATE %d %s %d %d>", r.txNum, r.block, r.offset, r.undo.IntVal)
	}
}

// Undo reapplies the pre-image this record captured, pinning and unpinning
// the block itself rather than relying on the transaction already holding
// it, since rollback and recovery both call Undo well after the
// transaction that made the original write may have unpinned the block.
func (r updateRecord) Undo(tx *Transaction) error {
	if err := tx.Pin(r.block); err != nil {
		return err
	}
	defer tx.Unpin(r.block)

	switch r.undo.Kind {
	case valueKindString:
		return tx.SetString(r.block, r.offset, r.undo.StringVal, false)
	default:
		return tx.SetInt(r.block, r.offset, r.undo.IntVal, false)
	}
}

func decodeUpdateRecord(r *recordReader) record {
	txNum := r.readInt()
	filename := r.readString()
	blockNum := r.readInt()
	vk := valueKind(r.readInt())
	offset := r.readInt()

	undo := UpdateValue{Kind: vk}
	if vk == valueKindString {
		undo.StringVal = r.readString()
	} else {
		undo.IntVal = r.readInt()
	}

	return updateRecord{
		txNum:  txNum,
		block:  file.NewBlockID(filename, blockNum),
		offset: offset,
		undo:   undo,
	}
}

func encodeUpdateInt(txNum int, block file.BlockID, offset, oldVal int) []byte {
	b := newRecordBuffer(6*file.IntSize + len(block.Filename()))
	b.writeInt(int(kindUpdate))
	b.writeInt(txNum)
	b.writeString(block.Filename())
	b.writeInt(block.BlockNumber())
	b.writeInt(int(valueKindInt))
	b.writeInt(offset)
	b.writeInt(oldVal)
	return b.bytes()
}

func encodeUpdateString(txNum int, block file.BlockID, offset int, oldVal string) []byte {
	b := newRecordBuffer(5*file.IntSize + len(block.Filename()) + file.MaxLength(len(oldVal)))
	b.writeInt(int(kindUpdate))
	b.writeInt(txNum)
	b.writeString(block.Filename())
	b.writeInt(block.BlockNumber())
	b.writeInt(int(valueKindString))
	b.writeInt(offset)
	b.writeString(oldVal)
	return b.bytes()
}
