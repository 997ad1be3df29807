// Package pebblekv is a kv.Store on cockroachdb/pebble.
//
// Column families share one pebble keyspace: each key is stored behind its
// big-endian column family id. Range deletions map to pebble range
// tombstones.
package pebblekv

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/kv"
	"github.com/aalhour/tabletmeta/kv/internal/cfkey"
)

// Options configures Open.
type Options struct {
	// Sync makes every write durable before it returns.
	Sync bool
	// CreateIfMissing creates the database when dir holds none.
	CreateIfMissing bool
	// CacheSize is the block cache size in bytes. Zero uses pebble's default.
	CacheSize int64
	// Logger receives pebble's own log output.
	Logger logging.Logger
	// FS overrides the filesystem, vfs.NewMem() for tests.
	FS vfs.FS
}

// Store is a pebble-backed kv.Store.
type Store struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

var _ kv.Store = (*Store)(nil)

// pebbleLogger routes pebble's logging into the store logger.
type pebbleLogger struct {
	log logging.Logger
}

func (l pebbleLogger) Infof(format string, args ...any) {
	l.log.Debugf(logging.NSKV+"[pebble] "+format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...any) {
	l.log.Errorf(logging.NSKV+"[pebble] "+format, args...)
}

// Fatalf logs and panics: pebble does not expect Fatalf to return.
func (l pebbleLogger) Fatalf(format string, args ...any) {
	l.log.Fatalf(logging.NSKV+"[pebble] "+format, args...)
	panic(fmt.Sprintf("pebble: "+format, args...))
}

// Open opens or creates a pebble database in dir.
func Open(dir string, opts Options) (*Store, error) {
	logger := logging.OrDefault(opts.Logger)

	pebbleOpts := &pebble.Options{
		ErrorIfNotExists: !opts.CreateIfMissing,
		Logger:           pebbleLogger{log: logger},
		FS:               opts.FS,
	}
	if opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		pebbleOpts.Cache = cache
	}

	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("pebblekv: open %s: %w", dir, err)
	}

	writeOpts := pebble.NoSync
	if opts.Sync {
		writeOpts = pebble.Sync
	}
	return &Store{db: db, writeOpts: writeOpts}, nil
}

// Get implements kv.Store.
func (s *Store) Get(cf kv.ColumnFamily, key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(cfkey.Encode(uint32(cf), key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()
	return bytes.Clone(val), nil
}

// Put implements kv.Store.
func (s *Store) Put(cf kv.ColumnFamily, key, value []byte) error {
	return s.db.Set(cfkey.Encode(uint32(cf), key), value, s.writeOpts)
}

// Delete implements kv.Store.
func (s *Store) Delete(cf kv.ColumnFamily, key []byte) error {
	return s.db.Delete(cfkey.Encode(uint32(cf), key), s.writeOpts)
}

// Write implements kv.Store. The records are staged in one pebble batch,
// which pebble commits atomically with increasing sequence numbers, so later
// records shadow earlier ones.
func (s *Store) Write(b *kv.WriteBatch) error {
	pb := s.db.NewBatch()
	defer func() { _ = pb.Close() }()

	if err := b.Iterate(batchWriter{pb}); err != nil {
		return err
	}
	return pb.Commit(s.writeOpts)
}

type batchWriter struct {
	b *pebble.Batch
}

func (w batchWriter) Put(cf kv.ColumnFamily, key, value []byte) error {
	return w.b.Set(cfkey.Encode(uint32(cf), key), value, nil)
}

func (w batchWriter) Delete(cf kv.ColumnFamily, key []byte) error {
	return w.b.Delete(cfkey.Encode(uint32(cf), key), nil)
}

func (w batchWriter) DeleteRange(cf kv.ColumnFamily, start, end []byte) error {
	lower, upper := cfkey.Bounds(uint32(cf), start, end)
	if upper == nil {
		// Last column family: the largest possible key ends the range.
		upper = bytes.Repeat([]byte{0xff}, cfkey.PrefixLen+1)
	}
	if bytes.Compare(lower, upper) >= 0 {
		return nil
	}
	return w.b.DeleteRange(lower, upper, nil)
}

// NewIterator implements kv.Store. Pebble iterators read an implicit
// snapshot taken at creation.
func (s *Store) NewIterator(cf kv.ColumnFamily, lower, upper []byte) (kv.Iterator, error) {
	flatLower, flatUpper := cfkey.Bounds(uint32(cf), lower, upper)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: flatLower,
		UpperBound: flatUpper,
	})
	if err != nil {
		return nil, err
	}
	return &iterator{it: it}, nil
}

type iterator struct {
	it      *pebble.Iterator
	started bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.started = true
		return i.it.First()
	}
	return i.it.Next()
}

func (i *iterator) Key() []byte {
	_, key := cfkey.Decode(i.it.Key())
	return key
}

func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Err() error    { return i.it.Error() }
func (i *iterator) Close() error  { return i.it.Close() }

// Metrics returns pebble's metrics report.
func (s *Store) Metrics() string {
	return s.db.Metrics().String()
}

// Flush flushes the memtable to disk.
func (s *Store) Flush() error {
	return s.db.Flush()
}

// Close implements kv.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
