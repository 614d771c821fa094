package tx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kerndb/kerndb/buffer"
	"github.com/kerndb/kerndb/dbconfig"
	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/log"
)

func newTestBufferList(t *testing.T, poolSize int) *bufferList {
	t.Helper()

	fm, err := file.NewFileManager(t.TempDir(), 400)
	require.NoError(t, err)
	lm, err := log.NewLogManager(fm, "db.log")
	require.NoError(t, err)
	bm := buffer.NewBufferManager(fm, lm, poolSize, dbconfig.EvictionLRUK)

	return newBufferList(bm)
}

func TestBufferListReusesPinForSameBlock(t *testing.T) {
	bl := newTestBufferList(t, 3)
	block := file.NewBlockID("test", 0)

	require.NoError(t, bl.pin(block))
	require.NoError(t, bl.pin(block))

	require.NotNil(t, bl.getBuffer(block))
	require.Equal(t, 2, bl.pins[block])
}

func TestBufferListUnpinForgetsBlockAtZero(t *testing.T) {
	bl := newTestBufferList(t, 3)
	block := file.NewBlockID("test", 0)

	require.NoError(t, bl.pin(block))
	bl.unpin(block)

	require.Nil(t, bl.getBuffer(block))
}

func TestBufferListUnpinAllReleasesEveryPin(t *testing.T) {
	bl := newTestBufferList(t, 3)
	b0 := file.NewBlockID("test", 0)
	b1 := file.NewBlockID("test", 1)

	require.NoError(t, bl.pin(b0))
	require.NoError(t, bl.pin(b0))
	require.NoError(t, bl.pin(b1))

	bl.unpinAll()

	require.Nil(t, bl.getBuffer(b0))
	require.Nil(t, bl.getBuffer(b1))
	require.Empty(t, bl.pins)
}
