package kerndb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kerndb/kerndb/dbconfig"
	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/kerndb"
)

func testConfig() dbconfig.Config {
	cfg := dbconfig.Default()
	cfg.BlockSize = 400
	cfg.PoolCapacity = 8
	return cfg
}

func TestOpenFreshDirectorySkipsRecovery(t *testing.T) {
	dir := t.TempDir()

	db, err := kerndb.Open(dir, testConfig())
	require.NoError(t, err)
	defer db.Close()

	snap := db.Stats()
	require.Zero(t, snap.BlocksRead)
}

func TestReopenAfterCrashUndoesUncommittedWrites(t *testing.T) {
	dir := t.TempDir()
	block := file.NewBlockID("accounts", 0)

	db, err := kerndb.Open(dir, testConfig())
	require.NoError(t, err)

	committed, err := db.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, committed.Pin(block))
	require.NoError(t, committed.SetInt(block, 0, 500, false))
	require.NoError(t, committed.Commit())

	uncommitted, err := db.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, uncommitted.Pin(block))
	require.NoError(t, uncommitted.SetInt(block, 0, 999, true))
	// No Commit/Rollback: simulates the process dying mid-transaction.

	require.NoError(t, db.Close())

	reopened, err := kerndb.Open(dir, testConfig())
	require.NoError(t, err)
	defer reopened.Close()

	verify, err := reopened.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, verify.Pin(block))

	got, err := verify.GetInt(block, 0)
	require.NoError(t, err)
	require.Equal(t, 500, got)
	require.NoError(t, verify.Commit())
}

func TestCheckpointFlushesDirtyBuffers(t *testing.T) {
	dir := t.TempDir()
	block := file.NewBlockID("accounts", 0)

	db, err := kerndb.Open(dir, testConfig())
	require.NoError(t, err)
	defer db.Close()

	txn, err := db.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, txn.Pin(block))
	require.NoError(t, txn.SetInt(block, 0, 42, true))
	require.NoError(t, txn.Commit())

	require.NoError(t, db.Checkpoint())

	snap := db.Stats()
	require.Greater(t, snap.Flushes, int64(0))
}

func TestCheckpointRefusesWhileTransactionOpen(t *testing.T) {
	dir := t.TempDir()
	block := file.NewBlockID("accounts", 0)

	db, err := kerndb.Open(dir, testConfig())
	require.NoError(t, err)
	defer db.Close()

	txn, err := db.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, txn.Pin(block))

	require.ErrorIs(t, db.Checkpoint(), kerndb.ErrCheckpointNotQuiescent)

	require.NoError(t, txn.Commit())
	require.NoError(t, db.Checkpoint())
}

func TestStatsReflectTransactionActivity(t *testing.T) {
	dir := t.TempDir()
	block := file.NewBlockID("accounts", 0)

	db, err := kerndb.Open(dir, testConfig())
	require.NoError(t, err)
	defer db.Close()

	txn, err := db.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, txn.Pin(block))
	require.NoError(t, txn.SetInt(block, 0, 1, true))
	require.NoError(t, txn.Commit())

	snap := db.Stats()
	require.Greater(t, snap.Pins, int64(0))
	require.Greater(t, snap.RecordsAppended, int64(0))
	require.Greater(t, snap.LockGrants, int64(0))
}
