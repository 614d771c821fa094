package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/file"
)

// kind tags the type of a log record, encoded as the first four bytes of
// every record written to the log.
type kind int32

const (
	kindCheckpoint kind = iota
	kindStart
	kindCommit
	kindRollback
	kindUpdate
)

func (k kind) String() string {
	switch k {
	case kindCheckpoint:
		return "CHECKPOINT"
	case kindStart:
		return "START"
	case kindCommit:
		return "COMMIT"
	case kindRollback:
		return "ROLLBACK"
	case kindUpdate:
		return "UPDATE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(k))
	}
}

// valueKind tags which variant of UpdateValue an update record carries.
type valueKind int32

const (
	valueKindInt valueKind = iota
	valueKindString
)

// UpdateValue is the pre-image (the value a Set* call is about to
// overwrite) an update record logs, so that undoing the record can restore
// it. Exactly one of IntVal/StringVal is meaningful, selected by Kind.
// Grounded on original_source/src/txn/recovery.rs's UpdateValue enum.
type UpdateValue struct {
	Kind      valueKind
	IntVal    int
	StringVal string
}

// record is a decoded log entry. Every kind implements it; undo is a no-op
// for every kind except update, which is the only kind recovery ever
// replays.
type record interface {
	Kind() kind
	TxNum() int
	Undo(tx *Transaction) error
	String() string
}

// recordBuffer is a small writer for a record's encoded bytes, shared by
// every record's encode logic (decoding uses recordReader). It mirrors file.Page's typed
// accessors but writes into a growing buffer rather than a fixed-size page,
// since log records vary in length.
type recordBuffer struct {
	buf    []byte
	offset int
}

func newRecordBuffer(capacity int) *recordBuffer {
	return &recordBuffer{buf: make([]byte, 0, capacity)}
}

func (r *recordBuffer) writeInt(v int) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(v)))
	r.buf = append(r.buf, b[:]...)
}

func (r *recordBuffer) writeString(v string) {
	r.writeInt(len(v))
	r.buf = append(r.buf, v...)
}

func (r *recordBuffer) bytes() []byte {
	return r.buf
}

type recordReader struct {
	buf    []byte
	offset int
}

func newRecordReader(buf []byte) *recordReader {
	return &recordReader{buf: buf}
}

func (r *recordReader) readInt() int {
	v := int(int32(binary.LittleEndian.Uint32(r.buf[r.offset:])))
	r.offset += file.IntSize
	return v
}

func (r *recordReader) readString() string {
	n := r.readInt()
	s := string(r.buf[r.offset : r.offset+n])
	r.offset += n
	return s
}

// decodeRecord parses the kind tag from buf and dispatches to the matching
// record's decoder.
func decodeRecord(buf []byte) (record, error) {
	if len(buf) < file.IntSize {
		return nil, errors.New("tx: log record too short to contain a kind tag")
	}

	r := newRecordReader(buf)
	k := kind(r.readInt())

	switch k {
	case kindCheckpoint:
		return decodeCheckpointRecord(r), nil
	case kindStart:
		return decodeStartRecord(r), nil
	case kindCommit:
		return decodeCommitRecord(r), nil
	case kindRollback:
		return decodeRollbackRecord(r), nil
	case kindUpdate:
		return decodeUpdateRecord(r), nil
	default:
		return nil, errors.Errorf("tx: unrecognized log record kind %d", int32(k))
	}
}
