package file_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kerndb/kerndb/file"
)

func TestFileManagerReadWrite(t *testing.T) {
	dbDir := filepath.Join(t.TempDir(), "db")
	const blockSize = 400

	fm, err := file.NewFileManager(dbDir, blockSize)
	require.NoError(t, err)
	require.True(t, fm.IsNew())

	block := file.NewBlockID("testblock", 2)
	page := file.NewPageWithSize(fm.BlockSize())

	const pos = 88
	const val = "abcdefghilmno"
	const intVal = 352

	page.SetString(pos, val)
	pos2 := pos + file.MaxLength(len(val))
	page.SetInt(pos2, intVal)

	require.NoError(t, fm.Write(block, page))

	got := file.NewPageWithSize(fm.BlockSize())
	require.NoError(t, fm.Read(block, got))

	require.Equal(t, intVal, got.GetInt(pos2))
	require.Equal(t, val, got.GetString(pos))
}

func TestFileManagerAppendExtendsLength(t *testing.T) {
	dbDir := filepath.Join(t.TempDir(), "db")
	fm, err := file.NewFileManager(dbDir, 400)
	require.NoError(t, err)

	n, err := fm.Length("appendme")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	b0, err := fm.Append("appendme")
	require.NoError(t, err)
	require.Equal(t, 0, b0.BlockNumber())

	b1, err := fm.Append("appendme")
	require.NoError(t, err)
	require.Equal(t, 1, b1.BlockNumber())

	n, err = fm.Length("appendme")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestFileManagerReopenIsNotNew(t *testing.T) {
	dbDir := filepath.Join(t.TempDir(), "db")

	fm, err := file.NewFileManager(dbDir, 400)
	require.NoError(t, err)
	require.True(t, fm.IsNew())
	require.NoError(t, fm.Close())

	fm2, err := file.NewFileManager(dbDir, 400)
	require.NoError(t, err)
	require.False(t, fm2.IsNew())
}
