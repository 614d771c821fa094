package tx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kerndb/kerndb/buffer"
	"github.com/kerndb/kerndb/dbconfig"
	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/log"
)

func newTestTransactionManager(t *testing.T, blockSize, poolSize int) *TransactionManager {
	t.Helper()

	fm, err := file.NewFileManager(t.TempDir(), blockSize)
	require.NoError(t, err)

	lm, err := log.NewLogManager(fm, "db.log")
	require.NoError(t, err)

	bm := buffer.NewBufferManager(fm, lm, poolSize, dbconfig.EvictionLRUK)
	lockTable := NewLockTable(time.Second)

	return NewTransactionManager(fm, lm, bm, lockTable)
}

func TestTransactionCommitThenRollback(t *testing.T) {
	tm := newTestTransactionManager(t, 400, 20)
	block := file.NewBlockID("testfile", 1)

	tx1, err := tm.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, tx1.Pin(block))

	require.NoError(t, tx1.SetInt(block, 80, 1, false))
	require.NoError(t, tx1.SetString(block, 40, "one", false))
	require.NoError(t, tx1.Commit())

	// read-modify-commit

	tx2, err := tm.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, tx2.Pin(block))

	startI, err := tx2.GetInt(block, 80)
	require.NoError(t, err)
	startS, err := tx2.GetString(block, 40)
	require.NoError(t, err)

	require.Equal(t, 1, startI)
	require.Equal(t, "one", startS)

	require.NoError(t, tx2.SetInt(block, 80, startI+1, true))
	require.NoError(t, tx2.SetString(block, 40, startS+"!", true))
	require.NoError(t, tx2.Commit())

	// overwrite then roll back

	tx3, err := tm.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, tx3.Pin(block))

	postCommitI, err := tx3.GetInt(block, 80)
	require.NoError(t, err)
	postCommitS, err := tx3.GetString(block, 40)
	require.NoError(t, err)

	require.Equal(t, 2, postCommitI, "commit from tx2 not visible")
	require.Equal(t, "one!", postCommitS, "commit from tx2 not visible")

	require.NoError(t, tx3.SetInt(block, 80, 9999, true))
	gotTx3, err := tx3.GetInt(block, 80)
	require.NoError(t, err)
	require.Equal(t, 9999, gotTx3, "write not visible to tx3")

	require.NoError(t, tx3.Rollback())

	// verify rollback outcome

	tx4, err := tm.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, tx4.Pin(block))

	finalI, err := tx4.GetInt(block, 80)
	require.NoError(t, err)
	finalS, err := tx4.GetString(block, 40)
	require.NoError(t, err)

	require.Equal(t, 2, finalI, "rollback did not restore int")
	require.Equal(t, "one!", finalS, "rollback did not restore string")

	require.NoError(t, tx4.Commit())
}

func TestTransactionSizeAndAppend(t *testing.T) {
	tm := newTestTransactionManager(t, 400, 8)

	tx, err := tm.NewTransaction()
	require.NoError(t, err)

	n, err := tx.Size("sizetest")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	b0, err := tx.Append("sizetest")
	require.NoError(t, err)
	require.Equal(t, 0, b0.BlockNumber())

	n, err = tx.Size("sizetest")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, tx.Commit())
}

func TestTransactionRecoverUndoesIncompleteUpdates(t *testing.T) {
	dir := t.TempDir()
	block := file.NewBlockID("recoverme", 1)

	fm, err := file.NewFileManager(dir, 400)
	require.NoError(t, err)
	lm, err := log.NewLogManager(fm, "db.log")
	require.NoError(t, err)
	bm := buffer.NewBufferManager(fm, lm, 8, dbconfig.EvictionLRUK)
	lockTable := NewLockTable(time.Second)
	tm := NewTransactionManager(fm, lm, bm, lockTable)

	committed, err := tm.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, committed.Pin(block))
	require.NoError(t, committed.SetInt(block, 0, 111, false))
	require.NoError(t, committed.Commit())

	uncommitted, err := tm.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, uncommitted.Pin(block))
	require.NoError(t, uncommitted.SetInt(block, 0, 222, true))
	// Simulate a crash: no Commit, no Rollback, buffers just get dropped
	// (the underlying frame may or may not have made it to disk, which is
	// exactly the ambiguity Recover has to resolve). A crash also loses the
	// in-memory lock table, so drop the locks the dead transaction held.
	uncommitted.cm.Release()

	require.NoError(t, tm.Recover())

	verify, err := tm.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, verify.Pin(block))

	got, err := verify.GetInt(block, 0)
	require.NoError(t, err)
	require.Equal(t, 111, got, "recovery should have undone the uncommitted write")

	require.NoError(t, verify.Commit())
}
