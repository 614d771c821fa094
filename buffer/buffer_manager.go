// Package buffer implements the bounded buffer pool: a fixed-size set of
// in-memory frames, each pinned to at most one disk block at a time, backed
// by a pluggable Replacer that picks an unpinned frame to evict when the
// pool is full. Every write to a frame is staged through the buffer and
// only reaches disk via flush, which enforces write-ahead logging by
// flushing the log up to the frame's LSN first.
package buffer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/kerndb/kerndb/dbconfig"
	"github.com/kerndb/kerndb/file"
	"github.com/kerndb/kerndb/metrics"
)

// ErrBufferPoolExhausted is returned by Pin when every frame is pinned and
// the replacer has nothing evictable to offer. Unlike the lock table, the
// buffer pool never makes a caller wait: exhaustion is reported immediately
// so the caller's transaction can abort and retry, the same way a failed
// lock acquisition does.
var ErrBufferPoolExhausted = errors.New("buffer: pool exhausted, no frame available to pin")

type bufferMeta struct {
	pos  int
	pins int
}

// BufferManager owns the pool's frames and the bookkeeping that maps each
// resident block to the frame holding it. All of its operations are
// serialized by a single mutex; the pool size is small enough in practice
// that this is not a bottleneck, and it keeps the free-list/replacer/
// buf-table bookkeeping trivially consistent.
type BufferManager struct {
	mu sync.Mutex

	pool     []*Buffer
	freeList []int
	bufTable map[file.BlockID]bufferMeta
	replacer Replacer

	Stats metrics.BufferStats
}

// NewBufferManager preallocates capacity frames backed by fm and lm, and
// selects a Replacer according to policy.
func NewBufferManager(fm fileManager, lm logManager, capacity int, policy dbconfig.EvictionPolicy) *BufferManager {
	pool := make([]*Buffer, capacity)
	freeList := make([]int, capacity)
	for i := range pool {
		pool[i] = newBuffer(fm, lm)
		freeList[i] = i
	}

	return &BufferManager{
		pool:     pool,
		freeList: freeList,
		bufTable: make(map[file.BlockID]bufferMeta),
		replacer: NewReplacer(string(policy)),
	}
}

// Available returns the number of frames that could be pinned right now:
// those still on the free list plus those the replacer could evict.
func (m *BufferManager) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.freeList) + m.replacer.Available()
}

// Pin returns the frame holding block, loading it from disk into a free or
// evicted frame if it isn't already resident. It never blocks: if the pool
// is full of pinned frames, it returns ErrBufferPoolExhausted immediately.
func (m *BufferManager) Pin(block file.BlockID) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if meta, ok := m.bufTable[block]; ok {
		meta.pins++
		m.bufTable[block] = meta
		m.replacer.RecordAccess(meta.pos)
		m.replacer.SetEvictable(meta.pos, false)
		m.Stats.Pins.Add(1)
		m.Stats.Hits.Add(1)
		return m.pool[meta.pos], nil
	}

	pos, ok := m.popFreeList()
	if !ok {
		pos, ok = m.replacer.Evict()
		if !ok {
			m.Stats.Exhausted.Add(1)
			return nil, ErrBufferPoolExhausted
		}
		delete(m.bufTable, m.pool[pos].BlockID())
		m.Stats.Evictions.Add(1)
	}

	buf := m.pool[pos]
	if err := buf.assignToBlock(block); err != nil {
		return nil, err
	}

	m.bufTable[block] = bufferMeta{pos: pos, pins: 1}
	m.replacer.RecordAccess(pos)
	m.replacer.SetEvictable(pos, false)
	m.Stats.Pins.Add(1)
	m.Stats.Misses.Add(1)
	return buf, nil
}

// Unpin decrements block's pin count and, once it reaches zero, marks its
// frame evictable again. The block stays resident in that frame until the
// frame is evicted.
func (m *BufferManager) Unpin(block file.BlockID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.bufTable[block]
	if !ok {
		return
	}

	meta.pins--
	if meta.pins <= 0 {
		meta.pins = 0
		m.replacer.SetEvictable(meta.pos, true)
	}
	m.bufTable[block] = meta
}

// FlushAll flushes every frame currently dirtied by txNum. A transaction
// calls this at commit time to make all of its writes durable.
func (m *BufferManager) FlushAll(txNum int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, meta := range m.bufTable {
		buf := m.pool[meta.pos]
		if buf.ModifyingTx() != txNum {
			continue
		}
		if err := buf.flush(); err != nil {
			return errors.Wrapf(err, "buffer: flushing frame for tx %d", txNum)
		}
		m.Stats.Flushes.Add(1)
	}
	return nil
}

func (m *BufferManager) popFreeList() (int, bool) {
	n := len(m.freeList)
	if n == 0 {
		return 0, false
	}
	pos := m.freeList[n-1]
	m.freeList = m.freeList[:n-1]
	return pos, true
}
