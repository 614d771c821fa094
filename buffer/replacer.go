package buffer

// Replacer tracks which frames in the buffer pool are candidates for
// eviction and picks one to evict on demand. Frames are identified by
// their index into the pool, not by the block they currently hold; the
// BufferManager is the one that knows which frame holds which block.
//
// A frame only becomes a candidate once RecordAccess has been called for
// it and SetEvictable(true) has marked it unpinned; the BufferManager
// calls SetEvictable(false) the moment it pins a frame and SetEvictable
// (true) the moment a frame's pin count drops back to zero.
type Replacer interface {
	RecordAccess(frame int)
	Evict() (frame int, ok bool)
	SetEvictable(frame int, evictable bool)
	Available() int
}

// NewReplacer builds the Replacer selected by policy.
func NewReplacer(policy string) Replacer {
	switch policy {
	case "fifo":
		return NewFifo()
	default:
		return NewLruK(2)
	}
}

// Fifo evicts the longest-resident evictable frame, breaking ties by
// insertion order. A frame's position in the queue never changes once
// recorded: repeated accesses don't move it to the back, unlike true LRU.
type Fifo struct {
	order      []int
	evictable  map[int]bool
	available  int
}

func NewFifo() *Fifo {
	return &Fifo{evictable: make(map[int]bool)}
}

func (f *Fifo) RecordAccess(frame int) {
	if _, seen := f.evictable[frame]; !seen {
		f.order = append(f.order, frame)
		f.evictable[frame] = false
		return
	}
	if f.evictable[frame] {
		f.available--
		f.evictable[frame] = false
	}
}

func (f *Fifo) Evict() (int, bool) {
	for i, frame := range f.order {
		if !f.evictable[frame] {
			continue
		}
		f.order = append(f.order[:i:i], f.order[i+1:]...)
		delete(f.evictable, frame)
		f.available--
		return frame, true
	}
	return 0, false
}

func (f *Fifo) SetEvictable(frame int, evictable bool) {
	was, ok := f.evictable[frame]
	if !ok {
		return
	}
	if evictable && !was {
		f.available++
	} else if !evictable && was {
		f.available--
	}
	f.evictable[frame] = evictable
}

func (f *Fifo) Available() int {
	return f.available
}

const lruKInf = int(^uint(0) >> 1)

type lruKNode struct {
	evictable bool
	history   []int
}

func (n *lruKNode) backwardKDistance(currentTS, k int) int {
	if len(n.history) < k {
		return lruKInf
	}
	return currentTS - n.history[0]
}

func (n *lruKNode) earliestTimestamp() int {
	return n.history[0]
}

// LruK evicts the evictable frame with the largest backward k-distance:
// the gap between now and that frame's k-th most recent access. A frame
// with fewer than k recorded accesses has infinite backward distance, so
// it's preferred for eviction over any frame with a full k-length history;
// among frames tied at infinite distance, the one recorded first goes.
// Grounded on the buffer replacer used by this kernel's reference design,
// with k defaulting to 2.
type LruK struct {
	store     map[int]*lruKNode
	k         int
	currentTS int
	available int
}

func NewLruK(k int) *LruK {
	if k <= 0 {
		k = 2
	}
	return &LruK{store: make(map[int]*lruKNode), k: k}
}

func (l *LruK) RecordAccess(frame int) {
	l.currentTS++
	node, ok := l.store[frame]
	if !ok {
		node = &lruKNode{}
		l.store[frame] = node
	}
	if node.evictable {
		l.available--
	}
	node.evictable = false
	node.history = append(node.history, l.currentTS)
	if len(node.history) > l.k {
		node.history = node.history[1:]
	}
}

func (l *LruK) Evict() (int, bool) {
	maxDist := 0
	earliestTS := lruKInf
	found := false
	var key int

	for k, node := range l.store {
		if !node.evictable {
			continue
		}
		dist := node.backwardKDistance(l.currentTS, l.k)
		if dist < maxDist {
			continue
		}
		ts := node.earliestTimestamp()
		if dist > maxDist || (dist == maxDist && ts < earliestTS) {
			maxDist = dist
			earliestTS = ts
			key = k
			found = true
		}
	}

	if !found {
		return 0, false
	}

	l.available--
	delete(l.store, key)
	return key, true
}

func (l *LruK) SetEvictable(frame int, evictable bool) {
	node, ok := l.store[frame]
	if !ok {
		return
	}
	if evictable && !node.evictable {
		l.available++
	} else if !evictable && node.evictable {
		l.available--
	}
	node.evictable = evictable
}

func (l *LruK) Available() int {
	return l.available
}
