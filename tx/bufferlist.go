package tx

import (
	"github.com/kerndb/kerndb/buffer"
	"github.com/kerndb/kerndb/file"
)

// bufferList tracks the buffers a single transaction currently has pinned,
// so that pinning the same block twice keeps one buffer reference with a
// count of two, and unpin/unpinAll know exactly how many times to release it. Grounded on the teacher's
// BufferList, generalized to return errors from Pin (the buffer manager
// can fail to pin) instead of panicking.
type bufferList struct {
	bm      *buffer.BufferManager
	buffers map[file.BlockID]*buffer.Buffer
	pins    map[file.BlockID]int
}

func newBufferList(bm *buffer.BufferManager) *bufferList {
	return &bufferList{
		bm:      bm,
		buffers: make(map[file.BlockID]*buffer.Buffer),
		pins:    make(map[file.BlockID]int),
	}
}

// getBuffer returns the buffer pinned for block, or nil if this
// transaction hasn't pinned it.
func (l *bufferList) getBuffer(block file.BlockID) *buffer.Buffer {
	return l.buffers[block]
}

// pin pins block through the buffer manager and records the pin so
// unpin/unpinAll know how many times to release it later. Repeated pins
// of the same block each call through to bm.Pin (the buffer manager's own
// pin count tracks that), but only increment this transaction's local
// count rather than storing a second, redundant reference to the buffer.
func (l *bufferList) pin(block file.BlockID) error {
	buf, err := l.bm.Pin(block)
	if err != nil {
		return err
	}
	l.buffers[block] = buf
	l.pins[block]++
	return nil
}

// unpin releases one pin on block, forgetting it once the count reaches
// zero.
func (l *bufferList) unpin(block file.BlockID) {
	if _, ok := l.buffers[block]; !ok {
		return
	}

	l.bm.Unpin(block)
	l.pins[block]--

	if l.pins[block] <= 0 {
		delete(l.buffers, block)
		delete(l.pins, block)
	}
}

// unpinAll releases every pin this transaction holds, regardless of count,
// and forgets all of them. Called once at commit or rollback.
func (l *bufferList) unpinAll() {
	for block, n := range l.pins {
		for i := 0; i < n; i++ {
			l.bm.Unpin(block)
		}
		delete(l.buffers, block)
	}
	l.pins = make(map[file.BlockID]int)
}
