package file

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/logx"
	"github.com/kerndb/kerndb/metrics"
)

// openFile pairs an *os.File with the mutex that serializes reads, writes,
// and appends against it, so concurrent block accesses to the same file
// never interleave at the OS level.
type openFile struct {
	sync.Mutex
	f *os.File
}

// FileManager provides block-granular, page-sized I/O over files in a
// single database directory. Every read, write, and append touches exactly
// one block's worth of bytes at a block boundary. Files are opened lazily
// on first access and cached for the manager's lifetime; each cached file
// is guarded by its own mutex so unrelated files never contend, while
// concurrent accesses to the *same* file serialize.
type FileManager struct {
	dbDirectory string
	blockSize   int
	isNew       bool

	mu    sync.RWMutex
	files map[string]*openFile

	Stats metrics.FileStats
}

// NewFileManager opens (creating if necessary) the database directory at
// dbDirectory and returns a manager that reads and writes blockSize-byte
// blocks within it. IsNew() reports whether the directory had to be
// created, which callers use to decide whether to run first-time setup
// instead of crash recovery.
func NewFileManager(dbDirectory string, blockSize int) (*FileManager, error) {
	info, err := os.Stat(dbDirectory)
	isNew := os.IsNotExist(err)

	switch {
	case isNew:
		if err := os.MkdirAll(dbDirectory, 0o755); err != nil {
			return nil, errors.Wrapf(err, "file: creating database directory %s", dbDirectory)
		}
		logx.Log.WithField("dir", dbDirectory).Info("creating new database directory")
	case err != nil:
		return nil, errors.Wrapf(err, "file: statting database directory %s", dbDirectory)
	case !info.IsDir():
		return nil, errors.Errorf("file: %s exists and is not a directory", dbDirectory)
	default:
		logx.Log.WithField("dir", dbDirectory).Info("reopening existing database directory")
	}

	return &FileManager{
		dbDirectory: dbDirectory,
		blockSize:   blockSize,
		isNew:       isNew,
		files:       make(map[string]*openFile),
	}, nil
}

// IsNew reports whether the database directory was created by this call to
// NewFileManager, i.e. this is a fresh database with no prior log or data.
func (m *FileManager) IsNew() bool {
	return m.isNew
}

// BlockSize returns the fixed block size this manager reads and writes.
func (m *FileManager) BlockSize() int {
	return m.blockSize
}

// Read reads one block into p. Reading past the end of a file (a block
// that was never written) yields a zero-filled page, matching the
// semantics of a freshly appended block.
func (m *FileManager) Read(block BlockID, p *Page) error {
	of, err := m.open(block.Filename())
	if err != nil {
		return err
	}

	of.Lock()
	defer of.Unlock()

	offset := int64(block.BlockNumber()) * int64(m.blockSize)
	n, err := of.f.ReadAt(p.Contents(), offset)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "file: reading %s", block)
	}
	clear(p.Contents()[n:])

	m.Stats.BlocksRead.Add(1)
	return nil
}

// Write writes p to block and fsyncs the file, so the write survives a
// subsequent crash.
func (m *FileManager) Write(block BlockID, p *Page) error {
	of, err := m.open(block.Filename())
	if err != nil {
		return err
	}

	of.Lock()
	defer of.Unlock()

	offset := int64(block.BlockNumber()) * int64(m.blockSize)
	if _, err := of.f.WriteAt(p.Contents(), offset); err != nil {
		return errors.Wrapf(err, "file: writing %s", block)
	}
	if err := of.f.Sync(); err != nil {
		return errors.Wrapf(err, "file: syncing %s", block)
	}

	m.Stats.BlocksWritten.Add(1)
	return nil
}

// Append extends filename by one zero-filled block and returns its BlockID.
func (m *FileManager) Append(filename string) (BlockID, error) {
	of, err := m.open(filename)
	if err != nil {
		return BlockID{}, err
	}

	of.Lock()
	defer of.Unlock()

	n, err := m.lengthLocked(of)
	if err != nil {
		return BlockID{}, err
	}

	block := NewBlockID(filename, n)
	buf := make([]byte, m.blockSize)
	if _, err := of.f.WriteAt(buf, int64(n)*int64(m.blockSize)); err != nil {
		return BlockID{}, errors.Wrapf(err, "file: appending to %s", filename)
	}

	m.Stats.BlocksAppended.Add(1)
	return block, nil
}

// Length returns the number of blocks currently in filename.
func (m *FileManager) Length(filename string) (int, error) {
	of, err := m.open(filename)
	if err != nil {
		return 0, err
	}

	of.Lock()
	defer of.Unlock()

	return m.lengthLocked(of)
}

func (m *FileManager) lengthLocked(of *openFile) (int, error) {
	info, err := of.f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "file: stat")
	}
	return int(info.Size()) / m.blockSize, nil
}

// Close closes every file this manager has opened.
func (m *FileManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, of := range m.files {
		if err := of.f.Close(); err != nil {
			return errors.Wrapf(err, "file: closing %s", name)
		}
	}
	return nil
}

// open returns the cached *openFile for filename, opening (and caching) it
// first if necessary. The happy path only needs the read lock.
func (m *FileManager) open(filename string) (*openFile, error) {
	m.mu.RLock()
	of, ok := m.files[filename]
	m.mu.RUnlock()
	if ok {
		return of, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have opened it while we waited for the write lock.
	if of, ok := m.files[filename]; ok {
		return of, nil
	}

	path := filepath.Join(m.dbDirectory, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "file: opening %s", filename)
	}

	of = &openFile{f: f}
	m.files[filename] = of
	return of, nil
}
