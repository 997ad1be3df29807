// Package leveldbkv is a kv.Store on syndtr/goleveldb.
//
// goleveldb has no range tombstones, so DeleteRange is expanded into point
// deletions of the keys visible in a snapshot. Writers are serialized so the
// snapshot cannot miss a key written concurrently.
package leveldbkv

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/aalhour/tabletmeta/kv"
	"github.com/aalhour/tabletmeta/kv/internal/cfkey"
)

// Options configures Open.
type Options struct {
	// Sync makes every write durable before it returns.
	Sync bool
	// CreateIfMissing creates the database when dir holds none.
	CreateIfMissing bool
	// BlockCacheCapacity is the block cache size in bytes. Zero uses the
	// goleveldb default.
	BlockCacheCapacity int
}

// Store is a goleveldb-backed kv.Store.
type Store struct {
	db        *leveldb.DB
	writeOpts *opt.WriteOptions

	writeMu sync.Mutex
}

var _ kv.Store = (*Store)(nil)

// Open opens or creates a goleveldb database in dir.
func Open(dir string, opts Options) (*Store, error) {
	db, err := leveldb.OpenFile(dir, levelOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("leveldbkv: open %s: %w", dir, err)
	}
	return newStore(db, opts), nil
}

// OpenMem opens a database on in-memory storage.
func OpenMem(opts Options) (*Store, error) {
	opts.CreateIfMissing = true
	db, err := leveldb.Open(storage.NewMemStorage(), levelOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("leveldbkv: open memory storage: %w", err)
	}
	return newStore(db, opts), nil
}

func levelOptions(opts Options) *opt.Options {
	return &opt.Options{
		ErrorIfMissing:     !opts.CreateIfMissing,
		BlockCacheCapacity: opts.BlockCacheCapacity,
	}
}

func newStore(db *leveldb.DB, opts Options) *Store {
	return &Store{db: db, writeOpts: &opt.WriteOptions{Sync: opts.Sync}}
}

// Get implements kv.Store. goleveldb returns its own copy of the value.
func (s *Store) Get(cf kv.ColumnFamily, key []byte) ([]byte, error) {
	v, err := s.db.Get(cfkey.Encode(uint32(cf), key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	return v, err
}

// Put implements kv.Store.
func (s *Store) Put(cf kv.ColumnFamily, key, value []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Put(cfkey.Encode(uint32(cf), key), value, s.writeOpts)
}

// Delete implements kv.Store.
func (s *Store) Delete(cf kv.ColumnFamily, key []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Delete(cfkey.Encode(uint32(cf), key), s.writeOpts)
}

// Write implements kv.Store.
func (s *Store) Write(b *kv.WriteBatch) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.db.GetSnapshot()
	if err != nil {
		return err
	}
	defer snap.Release()

	w := &batchWriter{
		snap:  snap,
		batch: new(leveldb.Batch),
		puts:  make(map[string]struct{}),
	}
	if err := b.Iterate(w); err != nil {
		return err
	}
	if w.batch.Len() == 0 {
		return nil
	}
	return s.db.Write(w.batch, s.writeOpts)
}

// batchWriter translates records into a goleveldb batch. goleveldb applies
// batch records in order, so a put after a range deletion survives it.
type batchWriter struct {
	snap  *leveldb.Snapshot
	batch *leveldb.Batch
	// puts holds the flat keys put earlier in this batch, which a later
	// range deletion must also remove.
	puts map[string]struct{}
}

func (w *batchWriter) Put(cf kv.ColumnFamily, key, value []byte) error {
	flat := cfkey.Encode(uint32(cf), key)
	w.batch.Put(flat, value)
	w.puts[string(flat)] = struct{}{}
	return nil
}

func (w *batchWriter) Delete(cf kv.ColumnFamily, key []byte) error {
	w.batch.Delete(cfkey.Encode(uint32(cf), key))
	return nil
}

func (w *batchWriter) DeleteRange(cf kv.ColumnFamily, start, end []byte) error {
	lower, upper := cfkey.Bounds(uint32(cf), start, end)
	if upper != nil && bytes.Compare(lower, upper) >= 0 {
		return nil
	}

	it := w.snap.NewIterator(&util.Range{Start: lower, Limit: upper}, nil)
	for it.Next() {
		w.batch.Delete(it.Key())
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}

	for flat := range w.puts {
		k := []byte(flat)
		if bytes.Compare(k, lower) >= 0 && (upper == nil || bytes.Compare(k, upper) < 0) {
			w.batch.Delete(k)
			delete(w.puts, flat)
		}
	}
	return nil
}

// NewIterator implements kv.Store. goleveldb iterators hold an implicit
// snapshot.
func (s *Store) NewIterator(cf kv.ColumnFamily, lower, upper []byte) (kv.Iterator, error) {
	flatLower, flatUpper := cfkey.Bounds(uint32(cf), lower, upper)
	it := s.db.NewIterator(&util.Range{Start: flatLower, Limit: flatUpper}, nil)
	return &iterator{it: it}, nil
}

type iteratorImpl interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

type iterator struct {
	it iteratorImpl
}

func (i *iterator) Next() bool { return i.it.Next() }

func (i *iterator) Key() []byte {
	_, key := cfkey.Decode(i.it.Key())
	return key
}

func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Err() error    { return i.it.Error() }

func (i *iterator) Close() error {
	i.it.Release()
	return nil
}

// CompactAll compacts the whole keyspace.
func (s *Store) CompactAll() error {
	return s.db.CompactRange(util.Range{})
}

// Close implements kv.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
