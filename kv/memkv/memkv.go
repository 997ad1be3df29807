// Package memkv is an in-memory kv.Store on the ordered skiplist.
//
// Writers are serialized by a mutex. Point reads are lock-free. Iterators
// copy their range under the read lock, so each iterator sees a consistent
// snapshot that later batches do not change.
package memkv

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/aalhour/tabletmeta/internal/memtable"
	"github.com/aalhour/tabletmeta/kv"
	"github.com/aalhour/tabletmeta/kv/internal/cfkey"
)

// Store is an in-memory kv.Store.
type Store struct {
	mu     sync.RWMutex
	list   *memtable.SkipList
	closed atomic.Bool
}

var _ kv.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{list: memtable.NewSkipList(memtable.BytewiseComparator)}
}

// Len returns the number of live keys across all column families.
func (s *Store) Len() int64 {
	return s.list.Len()
}

// Get implements kv.Store.
func (s *Store) Get(cf kv.ColumnFamily, key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, kv.ErrClosed
	}
	v, ok := s.list.Get(cfkey.Encode(uint32(cf), key))
	if !ok {
		return nil, kv.ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Put implements kv.Store.
func (s *Store) Put(cf kv.ColumnFamily, key, value []byte) error {
	b := kv.NewWriteBatch()
	b.Put(cf, key, value)
	return s.Write(b)
}

// Delete implements kv.Store.
func (s *Store) Delete(cf kv.ColumnFamily, key []byte) error {
	b := kv.NewWriteBatch()
	b.Delete(cf, key)
	return s.Write(b)
}

// Write implements kv.Store. The batch is decoded fully before any record
// is applied, so a corrupt batch changes nothing.
func (s *Store) Write(b *kv.WriteBatch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return kv.ErrClosed
	}
	return b.Iterate(applier{s.list})
}

type applier struct {
	list *memtable.SkipList
}

func (a applier) Put(cf kv.ColumnFamily, key, value []byte) error {
	// Encode copies the key; the value aliases the batch buffer.
	a.list.Put(cfkey.Encode(uint32(cf), key), bytes.Clone(value))
	return nil
}

func (a applier) Delete(cf kv.ColumnFamily, key []byte) error {
	a.list.Delete(cfkey.Encode(uint32(cf), key))
	return nil
}

func (a applier) DeleteRange(cf kv.ColumnFamily, start, end []byte) error {
	lower, upper := cfkey.Bounds(uint32(cf), start, end)
	it := a.list.NewIterator()
	for it.Seek(lower); it.Valid(); it.Next() {
		if upper != nil && bytes.Compare(it.Key(), upper) >= 0 {
			break
		}
		// Deletion installs a tombstone and never unlinks, so the
		// iterator stays valid.
		a.list.Delete(it.Key())
	}
	return nil
}

// NewIterator implements kv.Store.
func (s *Store) NewIterator(cf kv.ColumnFamily, lower, upper []byte) (kv.Iterator, error) {
	if s.closed.Load() {
		return nil, kv.ErrClosed
	}
	flatLower, flatUpper := cfkey.Bounds(uint32(cf), lower, upper)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys, values [][]byte
	it := s.list.NewIterator()
	for it.Seek(flatLower); it.Valid(); it.Next() {
		if flatUpper != nil && bytes.Compare(it.Key(), flatUpper) >= 0 {
			break
		}
		_, key := cfkey.Decode(it.Key())
		keys = append(keys, key)
		values = append(values, it.Value())
	}
	return kv.NewSliceIterator(keys, values), nil
}

// Close implements kv.Store. Data is dropped with the store.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}
