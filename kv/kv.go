// Package kv defines the ordered key-value store the tablet metadata store
// persists into, together with its atomic write batch.
//
// A Store holds independent ordered keyspaces addressed by ColumnFamily.
// Backends live in sub-packages: memkv, pebblekv, leveldbkv and boltkv. Every
// backend passes the kvtest conformance suite.
package kv

import (
	"bytes"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kv: not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kv: store closed")
)

// ColumnFamily identifies an independent keyspace within a Store.
type ColumnFamily uint32

// DefaultColumnFamily is the keyspace used when none is configured.
const DefaultColumnFamily ColumnFamily = 0

// Store is an embedded ordered key-value store.
//
// Implementations must be safe for concurrent use. Write applies a batch
// atomically: after a crash either every record of the batch is visible or
// none is.
type Store interface {
	// Get returns a copy of the value stored for key, or ErrNotFound.
	Get(cf ColumnFamily, key []byte) ([]byte, error)
	// Put stores value under key.
	Put(cf ColumnFamily, key, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(cf ColumnFamily, key []byte) error
	// Write applies every record of b atomically and in order.
	Write(b *WriteBatch) error
	// NewIterator returns an iterator over keys in [lower, upper). An empty
	// bound is unbounded on that side. The iterator reads a consistent view.
	NewIterator(cf ColumnFamily, lower, upper []byte) (Iterator, error)
	// Close releases the store.
	Close() error
}

// Iterator walks a key range in ascending order.
//
//	it, err := store.NewIterator(cf, lower, upper)
//	...
//	defer it.Close()
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	return it.Err()
//
// Key and Value are only valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// Iterate calls fn for every key with the given prefix, in order, until fn
// returns false.
func Iterate(s Store, cf ColumnFamily, prefix []byte, fn func(key, value []byte) bool) error {
	return IterateRange(s, cf, prefix, PrefixEnd(prefix), fn)
}

// IterateRange calls fn for every key in [lower, upper), in order, until fn
// returns false.
func IterateRange(s Store, cf ColumnFamily, lower, upper []byte, fn func(key, value []byte) bool) (err error) {
	it, err := s.NewIterator(cf, lower, upper)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Err()
}

// SliceIterator iterates over key-value pairs held in memory. Backends use it
// to serve snapshot copies.
type SliceIterator struct {
	keys, values [][]byte
	pos          int
	closed       bool
}

// NewSliceIterator returns an iterator over keys and values, which must have
// equal length and be sorted by key.
func NewSliceIterator(keys, values [][]byte) *SliceIterator {
	return &SliceIterator{keys: keys, values: values, pos: -1}
}

// Next implements Iterator.
func (it *SliceIterator) Next() bool {
	if it.closed || it.pos+1 >= len(it.keys) {
		it.pos = len(it.keys)
		return false
	}
	it.pos++
	return true
}

// Key implements Iterator.
func (it *SliceIterator) Key() []byte { return it.keys[it.pos] }

// Value implements Iterator.
func (it *SliceIterator) Value() []byte { return it.values[it.pos] }

// Err implements Iterator.
func (it *SliceIterator) Err() error { return nil }

// Close implements Iterator.
func (it *SliceIterator) Close() error {
	it.closed = true
	return nil
}
