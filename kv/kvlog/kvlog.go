// Package kvlog wraps a kv.Store with zap debug logging of every call.
package kvlog

import (
	"errors"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aalhour/tabletmeta/kv"
)

var id int64

// Store logs calls before delegating them to the wrapped kv.Store.
type Store struct {
	log   *zap.Logger
	store kv.Store
}

var _ kv.Store = (*Store)(nil)

// New wraps store. Each wrapper gets a numbered child logger so output from
// several stores can be told apart.
func New(log *zap.Logger, store kv.Store) *Store {
	storeID := atomic.AddInt64(&id, 1)
	return &Store{log: log.Named(strconv.FormatInt(storeID, 10)), store: store}
}

// Get implements kv.Store.
func (s *Store) Get(cf kv.ColumnFamily, key []byte) ([]byte, error) {
	s.log.Debug("Get", zap.Uint32("cf", uint32(cf)), zap.ByteString("key", key))
	value, err := s.store.Get(cf, key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		s.log.Debug("Get failed", zap.Error(err))
	}
	return value, err
}

// Put implements kv.Store.
func (s *Store) Put(cf kv.ColumnFamily, key, value []byte) error {
	s.log.Debug("Put", zap.Uint32("cf", uint32(cf)), zap.ByteString("key", key),
		zap.Int("value length", len(value)), zap.Binary("truncated value", truncate(value)))
	return s.store.Put(cf, key, value)
}

// Delete implements kv.Store.
func (s *Store) Delete(cf kv.ColumnFamily, key []byte) error {
	s.log.Debug("Delete", zap.Uint32("cf", uint32(cf)), zap.ByteString("key", key))
	return s.store.Delete(cf, key)
}

// Write implements kv.Store.
func (s *Store) Write(b *kv.WriteBatch) error {
	if ce := s.log.Check(zap.DebugLevel, "Write"); ce != nil {
		ce.Write(zap.Int("records", b.Count()), zap.Int("bytes", b.Size()))
		_ = b.Iterate(recordLogger{s.log})
	}
	err := s.store.Write(b)
	if err != nil {
		s.log.Debug("Write failed", zap.Error(err))
	}
	return err
}

type recordLogger struct {
	log *zap.Logger
}

func (r recordLogger) Put(cf kv.ColumnFamily, key, value []byte) error {
	r.log.Debug("  put", zap.Uint32("cf", uint32(cf)), zap.ByteString("key", key), zap.Int("value length", len(value)))
	return nil
}

func (r recordLogger) Delete(cf kv.ColumnFamily, key []byte) error {
	r.log.Debug("  delete", zap.Uint32("cf", uint32(cf)), zap.ByteString("key", key))
	return nil
}

func (r recordLogger) DeleteRange(cf kv.ColumnFamily, start, end []byte) error {
	r.log.Debug("  delete range", zap.Uint32("cf", uint32(cf)), zap.ByteString("start", start), zap.ByteString("end", end))
	return nil
}

// NewIterator implements kv.Store.
func (s *Store) NewIterator(cf kv.ColumnFamily, lower, upper []byte) (kv.Iterator, error) {
	s.log.Debug("NewIterator", zap.Uint32("cf", uint32(cf)), zap.ByteString("lower", lower), zap.ByteString("upper", upper))
	it, err := s.store.NewIterator(cf, lower, upper)
	if err != nil {
		return nil, err
	}
	return &iterator{Iterator: it, log: s.log}, nil
}

type iterator struct {
	kv.Iterator
	log *zap.Logger
	n   int
}

func (it *iterator) Next() bool {
	ok := it.Iterator.Next()
	if ok {
		it.n++
		it.log.Debug("  ", zap.ByteString("key", it.Key()), zap.Int("value length", len(it.Value())))
	}
	return ok
}

func (it *iterator) Close() error {
	it.log.Debug("iterator closed", zap.Int("entries", it.n))
	return it.Iterator.Close()
}

// Close implements kv.Store.
func (s *Store) Close() error {
	s.log.Debug("Close")
	return s.store.Close()
}

func truncate(v []byte) []byte {
	if len(v) <= 10 {
		return v
	}
	return v[:10]
}
