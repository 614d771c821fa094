package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kerndb/kerndb/dbconfig"
	"github.com/kerndb/kerndb/file"
)

type mockFileManager struct {
	writeCalls    int
	readCalls     int
	writtenBlocks []file.BlockID
}

func (fm *mockFileManager) Write(block file.BlockID, page *file.Page) error {
	fm.writeCalls++
	fm.writtenBlocks = append(fm.writtenBlocks, block)
	return nil
}

func (fm *mockFileManager) Read(block file.BlockID, page *file.Page) error {
	fm.readCalls++
	return nil
}

func (fm *mockFileManager) BlockSize() int {
	return 512
}

type mockLogManager struct {
	flushCalls int
}

func (lm *mockLogManager) Flush(lsn int) error {
	lm.flushCalls++
	return nil
}

func TestBuffer(t *testing.T) {
	t.Run("dirty frames are flushed to disk and the log is flushed first", func(t *testing.T) {
		const (
			txNum = 123
			lsn   = 1
		)
		fm, lm := &mockFileManager{}, &mockLogManager{}

		buf := newBuffer(fm, lm)
		buf.SetModified(txNum, lsn)
		require.NoError(t, buf.flush())

		require.Equal(t, 1, lm.flushCalls)
		require.Equal(t, 1, fm.writeCalls)
	})

	t.Run("clean frames are not flushed", func(t *testing.T) {
		fm, lm := &mockFileManager{}, &mockLogManager{}

		buf := newBuffer(fm, lm)
		require.NoError(t, buf.flush())

		require.Zero(t, lm.flushCalls)
		require.Zero(t, fm.writeCalls)
	})
}

func TestBufferManagerAvailability(t *testing.T) {
	t.Run("reports available frames as they're pinned", func(t *testing.T) {
		fm, lm := &mockFileManager{}, &mockLogManager{}
		const size = 10

		bufMan := NewBufferManager(fm, lm, size, dbconfig.EvictionLRUK)
		for i := 0; i < size-1; i++ {
			_, err := bufMan.Pin(file.NewBlockID("test", i))
			require.NoError(t, err)
		}

		require.Equal(t, 1, bufMan.Available())
	})

	t.Run("exhausts once every frame is pinned", func(t *testing.T) {
		fm, lm := &mockFileManager{}, &mockLogManager{}
		const size = 10

		bufMan := NewBufferManager(fm, lm, size, dbconfig.EvictionLRUK)
		for i := 0; i < size; i++ {
			_, err := bufMan.Pin(file.NewBlockID("test", i))
			require.NoError(t, err)
		}

		require.Zero(t, bufMan.Available())
	})

	t.Run("reuses the same frame for the same block", func(t *testing.T) {
		fm, lm := &mockFileManager{}, &mockLogManager{}
		const size = 10

		bufMan := NewBufferManager(fm, lm, size, dbconfig.EvictionLRUK)
		block := file.NewBlockID("test", 1)

		_, err := bufMan.Pin(block)
		require.NoError(t, err)
		_, err = bufMan.Pin(block)
		require.NoError(t, err)

		require.Equal(t, 9, bufMan.Available())
	})

	t.Run("pinning past capacity returns ErrBufferPoolExhausted", func(t *testing.T) {
		fm, lm := &mockFileManager{}, &mockLogManager{}
		const size = 3

		bufMan := NewBufferManager(fm, lm, size, dbconfig.EvictionLRUK)
		for i := 0; i < size; i++ {
			buf, err := bufMan.Pin(file.NewBlockID("test", i))
			require.NoError(t, err)
			buf.SetModified(1, 1)
		}

		_, err := bufMan.Pin(file.NewBlockID("anotherfile", 0))
		require.ErrorIs(t, err, ErrBufferPoolExhausted)
	})

	t.Run("unpinning frees a frame for eviction", func(t *testing.T) {
		fm, lm := &mockFileManager{}, &mockLogManager{}
		const size = 3

		bufMan := NewBufferManager(fm, lm, size, dbconfig.EvictionFIFO)

		var toUnpin file.BlockID
		for i := 0; i < size; i++ {
			block := file.NewBlockID("test", i)
			buf, err := bufMan.Pin(block)
			require.NoError(t, err)
			buf.SetModified(1, 1)
			if i == 1 {
				toUnpin = block
			}
		}

		require.Zero(t, bufMan.Available())

		bufMan.Unpin(toUnpin)
		require.Equal(t, 1, bufMan.Available())

		_, err := bufMan.Pin(file.NewBlockID("anotherfile", 0))
		require.NoError(t, err)

		require.Equal(t, 1, lm.flushCalls)
		require.Equal(t, 1, fm.writeCalls)
		require.Equal(t, []file.BlockID{toUnpin}, fm.writtenBlocks)
	})
}

func TestBufferManagerFlushAll(t *testing.T) {
	fm, lm := &mockFileManager{}, &mockLogManager{}
	bufMan := NewBufferManager(fm, lm, 4, dbconfig.EvictionLRUK)

	buf1, err := bufMan.Pin(file.NewBlockID("test", 0))
	require.NoError(t, err)
	buf1.SetModified(7, 1)

	buf2, err := bufMan.Pin(file.NewBlockID("test", 1))
	require.NoError(t, err)
	buf2.SetModified(8, 1)

	require.NoError(t, bufMan.FlushAll(7))

	require.Equal(t, 1, fm.writeCalls)
	require.Equal(t, 1, lm.flushCalls)
}
