package buffer

import "github.com/kerndb/kerndb/file"

// fileManager and logManager are the narrow surfaces Buffer and
// BufferManager need from file.FileManager and log.LogManager. Depending on
// interfaces rather than the concrete types keeps this package testable
// without real disk I/O.
type fileManager interface {
	BlockSize() int
	Read(block file.BlockID, page *file.Page) error
	Write(block file.BlockID, page *file.Page) error
}

type logManager interface {
	Flush(lsn int) error
}
