// Package boltkv is a kv.Store on boltdb/bolt.
//
// Each column family is a bucket named by its big-endian id. A WriteBatch
// runs as one bolt read-write transaction. Iterators read in pages of
// pageSize entries, one read transaction per page, so a long scan never
// holds a transaction open while the caller writes; each page is consistent
// on its own.
package boltkv

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/boltdb/bolt"

	"github.com/aalhour/tabletmeta/internal/encoding"
	"github.com/aalhour/tabletmeta/kv"
)

const (
	// fileMode sets permissions so owner can read and write
	fileMode = 0600

	defaultTimeout = 1 * time.Second

	pageSize = 256
)

// Options configures Open.
type Options struct {
	// Sync makes every write durable before it returns.
	Sync bool
	// CreateIfMissing creates the database file when it does not exist.
	CreateIfMissing bool
	// Timeout bounds the wait for the file lock. Zero uses one second.
	Timeout time.Duration
}

// Store is a bolt-backed kv.Store.
type Store struct {
	db   *bolt.DB
	Path string
}

var _ kv.Store = (*Store)(nil)

// Open opens or creates the bolt database file at path.
func Open(path string, opts Options) (*Store, error) {
	if !opts.CreateIfMissing {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("boltkv: open %s: %w", path, err)
		}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("boltkv: open %s: %w", path, err)
	}
	db.NoSync = !opts.Sync
	return &Store{db: db, Path: path}, nil
}

func bucketName(cf kv.ColumnFamily) []byte {
	return encoding.AppendUint32BE(nil, uint32(cf))
}

// Get implements kv.Store.
func (s *Store) Get(cf kv.ColumnFamily, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(cf))
		if b == nil {
			return kv.ErrNotFound
		}
		// A cursor tells an empty value apart from a missing key.
		k, v := b.Cursor().Seek(key)
		if k == nil || !bytes.Equal(k, key) {
			return kv.ErrNotFound
		}
		value = bytes.Clone(v)
		if value == nil {
			value = []byte{}
		}
		return nil
	})
	return value, err
}

// Put implements kv.Store.
func (s *Store) Put(cf kv.ColumnFamily, key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return txWriter{tx}.Put(cf, key, value)
	})
}

// Delete implements kv.Store.
func (s *Store) Delete(cf kv.ColumnFamily, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return txWriter{tx}.Delete(cf, key)
	})
}

// Write implements kv.Store. A failing record rolls back the transaction.
func (s *Store) Write(b *kv.WriteBatch) error {
	if b.Count() == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return b.Iterate(txWriter{tx})
	})
}

type txWriter struct {
	tx *bolt.Tx
}

func (w txWriter) Put(cf kv.ColumnFamily, key, value []byte) error {
	b, err := w.tx.CreateBucketIfNotExists(bucketName(cf))
	if err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	return b.Put(key, value)
}

func (w txWriter) Delete(cf kv.ColumnFamily, key []byte) error {
	b := w.tx.Bucket(bucketName(cf))
	if b == nil {
		return nil
	}
	return b.Delete(key)
}

func (w txWriter) DeleteRange(cf kv.ColumnFamily, start, end []byte) error {
	b := w.tx.Bucket(bucketName(cf))
	if b == nil {
		return nil
	}
	// Deleting under a live cursor skips keys, so collect first.
	var doomed [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(start); k != nil; k, _ = c.Next() {
		if len(end) > 0 && bytes.Compare(k, end) >= 0 {
			break
		}
		doomed = append(doomed, bytes.Clone(k))
	}
	for _, k := range doomed {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// NewIterator implements kv.Store.
func (s *Store) NewIterator(cf kv.ColumnFamily, lower, upper []byte) (kv.Iterator, error) {
	return &iterator{
		db:     s.db,
		bucket: bucketName(cf),
		seek:   bytes.Clone(lower),
		upper:  bytes.Clone(upper),
		pos:    -1,
	}, nil
}

type iterator struct {
	db     *bolt.DB
	bucket []byte
	seek   []byte
	upper  []byte

	keys, values [][]byte
	pos          int
	exhausted    bool
	err          error
}

func (it *iterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.pos++
	if it.pos < len(it.keys) {
		return true
	}
	if it.exhausted {
		return false
	}
	if it.err = it.fetch(); it.err != nil {
		return false
	}
	it.pos = 0
	return len(it.keys) > 0
}

// fetch reads the next page starting at it.seek.
func (it *iterator) fetch() error {
	it.keys, it.values = it.keys[:0], it.values[:0]
	return it.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(it.bucket)
		if b == nil {
			it.exhausted = true
			return nil
		}
		c := b.Cursor()
		k, v := c.Seek(it.seek)
		for ; k != nil; k, v = c.Next() {
			if len(it.upper) > 0 && bytes.Compare(k, it.upper) >= 0 {
				break
			}
			if len(it.keys) == pageSize {
				// The next page resumes at the smallest key after the last one.
				it.seek = append(bytes.Clone(it.keys[pageSize-1]), 0)
				return nil
			}
			it.keys = append(it.keys, bytes.Clone(k))
			it.values = append(it.values, bytes.Clone(v))
		}
		it.exhausted = true
		return nil
	})
}

func (it *iterator) Key() []byte   { return it.keys[it.pos] }
func (it *iterator) Value() []byte { return it.values[it.pos] }
func (it *iterator) Err() error    { return it.err }

func (it *iterator) Close() error {
	it.exhausted = true
	it.keys, it.values = nil, nil
	it.pos = 0
	return nil
}

// Close implements kv.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// KeyCount returns the number of keys stored in cf.
func (s *Store) KeyCount(cf kv.ColumnFamily) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketName(cf)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}
