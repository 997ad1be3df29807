package tabletmeta

import (
	"errors"
	"io"
	"path/filepath"
	"sync"

	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/internal/vfs"
	"github.com/aalhour/tabletmeta/kv"
	"github.com/aalhour/tabletmeta/kv/boltkv"
	"github.com/aalhour/tabletmeta/kv/kvlog"
	"github.com/aalhour/tabletmeta/kv/leveldbkv"
	"github.com/aalhour/tabletmeta/kv/memkv"
	"github.com/aalhour/tabletmeta/kv/pebblekv"
)

// Backend data locations inside a store directory.
const (
	pebbleDirName  = "pebble"
	leveldbDirName = "leveldb"
	boltFileName   = "meta.bolt"
)

// Store is the tablet metadata store.
type Store struct {
	kv    kv.Store
	cf    kv.ColumnFamily
	log   logging.Logger
	stats Statistics
	codec delvec.Codec
	fs    vfs.FS

	lock      io.Closer
	closeOnce sync.Once
	closeErr  error
}

// Open opens the store in dir with the backend named by opts.Backend.
//
// Open takes an exclusive LOCK file in dir and records the options in an
// OPTIONS file. Reopening a directory with a different backend than the one
// recorded fails with ErrInvalidArgument.
func Open(dir string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Backend == BackendMemory {
		return NewStore(wrapKVLogger(memkv.New(), opts), opts), nil
	}

	fs := opts.fs()
	if !fs.Exists(dir) {
		if !opts.CreateIfMissing {
			return nil, ErrInvalidArgument.New("store directory %s does not exist", dir)
		}
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, ErrIO.Wrap(err)
		}
	}
	if fs.Exists(filepath.Join(dir, OptionsFileName)) {
		recorded, err := ReadOptionsFile(fs, dir)
		if err != nil {
			return nil, ErrCorruption.New("unreadable %s: %v", OptionsFileName, err)
		}
		if recorded.Backend != opts.Backend {
			return nil, ErrInvalidArgument.New("store %s was created with backend %s, not %s", dir, recorded.Backend, opts.Backend)
		}
	}

	lock, err := fs.Lock(filepath.Join(dir, LockFileName))
	if err != nil {
		return nil, ErrIO.New("lock %s: %v", dir, err)
	}
	backend, err := openBackend(dir, opts)
	if err != nil {
		_ = lock.Close()
		return nil, err
	}
	if err := WriteOptionsFile(fs, dir, opts); err != nil {
		_ = backend.Close()
		_ = lock.Close()
		return nil, ErrIO.Wrap(err)
	}

	s := NewStore(wrapKVLogger(backend, opts), opts)
	s.lock = lock
	s.log.Infof(logging.NSMeta+"opened %s store at %s", opts.Backend, dir)
	return s, nil
}

func openBackend(dir string, opts *Options) (kv.Store, error) {
	var (
		store kv.Store
		err   error
	)
	switch opts.Backend {
	case BackendPebble:
		store, err = pebblekv.Open(filepath.Join(dir, pebbleDirName), pebblekv.Options{
			Sync:            opts.Sync,
			CreateIfMissing: opts.CreateIfMissing,
			Logger:          logging.OrDefault(opts.Logger),
		})
	case BackendLevelDB:
		store, err = leveldbkv.Open(filepath.Join(dir, leveldbDirName), leveldbkv.Options{
			Sync:            opts.Sync,
			CreateIfMissing: opts.CreateIfMissing,
		})
	case BackendBolt:
		store, err = boltkv.Open(filepath.Join(dir, boltFileName), boltkv.Options{
			Sync:            opts.Sync,
			CreateIfMissing: opts.CreateIfMissing,
		})
	default:
		return nil, ErrInvalidArgument.New("unknown backend %q", opts.Backend)
	}
	if err != nil {
		return nil, ErrIO.New("open %s backend: %v", opts.Backend, err)
	}
	return store, nil
}

func wrapKVLogger(store kv.Store, opts *Options) kv.Store {
	if opts.KVLogger == nil {
		return store
	}
	return kvlog.New(opts.KVLogger, store)
}

// NewStore returns a Store over an already open backend. Closing the Store
// closes the backend.
func NewStore(backend kv.Store, opts *Options) *Store {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Store{
		kv:    backend,
		cf:    opts.ColumnFamily,
		log:   logging.OrDefault(opts.Logger),
		stats: opts.Statistics,
		codec: opts.delVectorCodec(),
		fs:    opts.fs(),
	}
}

// KV returns the backend.
func (s *Store) KV() kv.Store { return s.kv }

// ColumnFamily returns the backend keyspace holding the metadata.
func (s *Store) ColumnFamily() kv.ColumnFamily { return s.cf }

// Statistics returns the configured statistics, or nil.
func (s *Store) Statistics() Statistics { return s.stats }

// Close closes the backend and releases the directory lock. Later calls
// return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.kv.Close()
		if s.lock != nil {
			if err := s.lock.Close(); s.closeErr == nil {
				s.closeErr = err
			}
		}
		if s.closeErr != nil {
			s.closeErr = ErrIO.Wrap(s.closeErr)
		}
	})
	return s.closeErr
}

func (s *Store) recordTick(t TickerType, n uint64) {
	if s.stats != nil {
		s.stats.RecordTick(t, n)
	}
}

func (s *Store) measure(h HistogramType, v uint64) {
	if s.stats != nil {
		s.stats.MeasureTime(h, v)
	}
}

// get reads key, mapping a missing key to ErrNotFound.
func (s *Store) get(key []byte) ([]byte, error) {
	value, err := s.kv.Get(s.cf, key)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, kv.ErrNotFound):
		return nil, ErrNotFound.New("key %q", key)
	default:
		return nil, ErrIO.Wrap(err)
	}
}

// scan iterates a key prefix. Backend failures become ErrInternal.
func (s *Store) scan(prefix []byte, fn func(key, value []byte) bool) error {
	if err := kv.Iterate(s.kv, s.cf, prefix, fn); err != nil {
		return ErrInternal.New("scan meta error: %v", err)
	}
	return nil
}

// scanRange iterates [lower, upper). Backend failures become ErrInternal.
func (s *Store) scanRange(lower, upper []byte, fn func(key, value []byte) bool) error {
	if err := kv.IterateRange(s.kv, s.cf, lower, upper, fn); err != nil {
		return ErrInternal.New("scan meta error: %v", err)
	}
	return nil
}
