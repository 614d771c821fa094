package log

import "sync"

// iteratorPool recycles the page-sized buffers backing Iterator scans, so a
// transaction that walks the log during rollback or recovery doesn't force
// an allocation per block visited.
var iteratorPool = sync.Pool{}

func getIteratorBuf(size int) []byte {
	if v := iteratorPool.Get(); v != nil {
		b := v.([]byte)
		if len(b) == size {
			return b
		}
	}
	return make([]byte, size)
}

func putIteratorBuf(b []byte) {
	iteratorPool.Put(b)
}
