// Package memtable implements the ordered in-memory table behind the memory
// key-value backend.
//
// The SkipList keeps one node per key. A node's value is swapped atomically on
// overwrite, and deletion installs a tombstone instead of unlinking the node,
// so readers never lock:
//   - concurrent reads are safe without locking
//   - writes require external synchronization
//   - nodes are never unlinked until the SkipList is dropped
package memtable

import (
	"bytes"
	"math/rand"
	"sync/atomic"
)

const (
	// DefaultMaxHeight is the default maximum height for skip list nodes.
	DefaultMaxHeight = 12

	// DefaultBranchingFactor is the default branching factor.
	// On average, 1/branchingFactor nodes will be promoted to next level.
	DefaultBranchingFactor = 4
)

// Comparator compares two keys and returns a negative number, zero or a
// positive number when a sorts before, equal to or after b.
type Comparator func(a, b []byte) int

// BytewiseComparator is the default comparator using bytes.Compare.
func BytewiseComparator(a, b []byte) int {
	return bytes.Compare(a, b)
}

// entry is the current state of a key. A nil entry pointer never occurs on a
// linked node.
type entry struct {
	value   []byte
	deleted bool
}

type skipNode struct {
	key   []byte
	state atomic.Pointer[entry]
	next  []atomic.Pointer[skipNode]
}

func newSkipNode(key []byte, height int) *skipNode {
	return &skipNode{
		key:  key,
		next: make([]atomic.Pointer[skipNode], height),
	}
}

func (n *skipNode) getNext(level int) *skipNode {
	return n.next[level].Load()
}

func (n *skipNode) setNext(level int, node *skipNode) {
	n.next[level].Store(node)
}

// SkipList is an ordered map from keys to values with tombstones.
// Reads are lock-free; writes require external synchronization.
type SkipList struct {
	head      *skipNode
	maxHeight atomic.Int32
	compare   Comparator
	rng       *rand.Rand

	kMaxHeight  int
	kScaledInvB uint32

	nodes atomic.Int64
	live  atomic.Int64
	bytes atomic.Int64
}

// NewSkipList creates a new skip list with the given comparator.
func NewSkipList(cmp Comparator) *SkipList {
	return NewSkipListWithParams(cmp, DefaultMaxHeight, DefaultBranchingFactor)
}

// NewSkipListWithParams creates a new skip list with custom parameters.
func NewSkipListWithParams(cmp Comparator, maxHeight, branchingFactor int) *SkipList {
	if cmp == nil {
		cmp = BytewiseComparator
	}
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}
	if branchingFactor <= 0 {
		branchingFactor = DefaultBranchingFactor
	}

	sl := &SkipList{
		head:        newSkipNode(nil, maxHeight),
		compare:     cmp,
		rng:         rand.New(rand.NewSource(0xDEADBEEF)),
		kMaxHeight:  maxHeight,
		kScaledInvB: uint32(0xFFFFFFFF) / uint32(branchingFactor),
	}
	sl.maxHeight.Store(1)
	return sl
}

// Put sets key to value. The list keeps references to both slices.
// REQUIRES: External synchronization.
func (sl *SkipList) Put(key, value []byte) {
	sl.set(key, &entry{value: value})
}

// Delete installs a tombstone for key. Deleting an absent key is a no-op.
// REQUIRES: External synchronization.
func (sl *SkipList) Delete(key []byte) {
	x := sl.findGreaterOrEqual(key, nil)
	if x == nil || sl.compare(key, x.key) != 0 {
		return
	}
	sl.set(key, &entry{deleted: true})
}

func (sl *SkipList) set(key []byte, e *entry) {
	prev := make([]*skipNode, sl.kMaxHeight)
	x := sl.findGreaterOrEqual(key, prev)

	if x != nil && sl.compare(key, x.key) == 0 {
		old := x.state.Swap(e)
		switch {
		case old.deleted && !e.deleted:
			sl.live.Add(1)
		case !old.deleted && e.deleted:
			sl.live.Add(-1)
		}
		sl.bytes.Add(int64(len(e.value) - len(old.value)))
		return
	}

	height := sl.randomHeight()

	maxH := int(sl.maxHeight.Load())
	if height > maxH {
		for i := maxH; i < height; i++ {
			prev[i] = sl.head
		}
		sl.maxHeight.Store(int32(height))
	}

	node := newSkipNode(key, height)
	node.state.Store(e)

	// Publish bottom-up so a reader that sees the node at level i can follow
	// it at every lower level.
	for i := range height {
		node.setNext(i, prev[i].getNext(i))
		prev[i].setNext(i, node)
	}

	sl.nodes.Add(1)
	sl.bytes.Add(int64(len(key) + len(e.value)))
	if !e.deleted {
		sl.live.Add(1)
	}
}

// Get returns the value stored for key.
func (sl *SkipList) Get(key []byte) ([]byte, bool) {
	x := sl.findGreaterOrEqual(key, nil)
	if x == nil || sl.compare(key, x.key) != 0 {
		return nil, false
	}
	e := x.state.Load()
	if e.deleted {
		return nil, false
	}
	return e.value, true
}

// Contains returns true if key has a live value.
func (sl *SkipList) Contains(key []byte) bool {
	_, ok := sl.Get(key)
	return ok
}

// Len returns the number of live keys.
func (sl *SkipList) Len() int64 {
	return sl.live.Load()
}

// NodeCount returns the number of nodes, including tombstoned ones.
func (sl *SkipList) NodeCount() int64 {
	return sl.nodes.Load()
}

// ApproximateSize returns the key and value bytes held by the list.
func (sl *SkipList) ApproximateSize() int64 {
	return sl.bytes.Load()
}

func (sl *SkipList) findGreaterOrEqual(key []byte, prev []*skipNode) *skipNode {
	x := sl.head
	level := int(sl.maxHeight.Load()) - 1

	for {
		next := x.getNext(level)
		if next != nil && sl.compare(key, next.key) > 0 {
			x = next
		} else {
			if prev != nil {
				prev[level] = x
			}
			if level == 0 {
				return next
			}
			level--
		}
	}
}

func (sl *SkipList) randomHeight() int {
	height := 1
	for height < sl.kMaxHeight {
		if sl.rng.Uint32() < sl.kScaledInvB {
			height++
		} else {
			break
		}
	}
	return height
}

// Iterator walks live entries in key order. Tombstoned nodes are skipped.
// It observes writes made after its creation.
type Iterator struct {
	list *SkipList
	node *skipNode
	cur  *entry
}

// NewIterator creates a new iterator over the skip list.
// The iterator is not valid until a Seek method is called.
func (sl *SkipList) NewIterator() *Iterator {
	return &Iterator{list: sl}
}

// Valid returns true if the iterator is positioned at a live entry.
func (it *Iterator) Valid() bool {
	return it.node != nil
}

// Key returns the key at the current position.
// REQUIRES: Valid()
func (it *Iterator) Key() []byte {
	if it.node == nil {
		return nil
	}
	return it.node.key
}

// Value returns the value at the current position, as loaded when the
// iterator arrived there.
// REQUIRES: Valid()
func (it *Iterator) Value() []byte {
	if it.cur == nil {
		return nil
	}
	return it.cur.value
}

// Next advances to the next live entry.
// REQUIRES: Valid()
func (it *Iterator) Next() {
	if it.node == nil {
		return
	}
	it.settle(it.node.getNext(0))
}

// Seek positions the iterator at the first live entry with key >= target.
func (it *Iterator) Seek(target []byte) {
	it.settle(it.list.findGreaterOrEqual(target, nil))
}

// SeekToFirst positions the iterator at the first live entry.
func (it *Iterator) SeekToFirst() {
	it.settle(it.list.head.getNext(0))
}

func (it *Iterator) settle(n *skipNode) {
	for n != nil {
		e := n.state.Load()
		if !e.deleted {
			it.node, it.cur = n, e
			return
		}
		n = n.getNext(0)
	}
	it.node, it.cur = nil, nil
}
