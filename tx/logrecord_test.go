package tx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kerndb/kerndb/file"
)

func TestDecodeCheckpointRecord(t *testing.T) {
	rec, err := decodeRecord(encodeCheckpoint())
	require.NoError(t, err)
	require.Equal(t, kindCheckpoint, rec.Kind())
	require.Equal(t, "<CHECKPOINT>", rec.String())
}

func TestDecodeStartRecord(t *testing.T) {
	rec, err := decodeRecord(encodeStart(7))
	require.NoError(t, err)
	require.Equal(t, kindStart, rec.Kind())
	require.Equal(t, 7, rec.TxNum())
}

func TestDecodeCommitRecord(t *testing.T) {
	rec, err := decodeRecord(encodeCommit(42))
	require.NoError(t, err)
	require.Equal(t, kindCommit, rec.Kind())
	require.Equal(t, 42, rec.TxNum())
}

func TestDecodeRollbackRecord(t *testing.T) {
	rec, err := decodeRecord(encodeRollback(3))
	require.NoError(t, err)
	require.Equal(t, kindRollback, rec.Kind())
	require.Equal(t, 3, rec.TxNum())
}

func TestDecodeUpdateIntRecord(t *testing.T) {
	block := file.NewBlockID("accounts", 5)
	raw := encodeUpdateInt(9, block, 80, 123)

	rec, err := decodeRecord(raw)
	require.NoError(t, err)
	require.Equal(t, kindUpdate, rec.Kind())
	require.Equal(t, 9, rec.TxNum())

	u := rec.(updateRecord)
	require.Equal(t, block, u.block)
	require.Equal(t, 80, u.offset)
	require.Equal(t, valueKindInt, u.undo.Kind)
	require.Equal(t, 123, u.undo.IntVal)
}

func TestDecodeUpdateStringRecord(t *testing.T) {
	block := file.NewBlockID("accounts", 5)
	raw := encodeUpdateString(9, block, 40, "previous value")

	rec, err := decodeRecord(raw)
	require.NoError(t, err)

	u := rec.(updateRecord)
	require.Equal(t, valueKindString, u.undo.Kind)
	require.Equal(t, "previous value", u.undo.StringVal)
}

func TestDecodeRecordRejectsUnknownKind(t *testing.T) {
	b := newRecordBuffer(file.IntSize)
	b.writeInt(99)

	_, err := decodeRecord(b.bytes())
	require.Error(t, err)
}
