package tabletmeta

// options.go implements store configuration options.

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/checksum"
	"github.com/aalhour/tabletmeta/internal/compression"
	"github.com/aalhour/tabletmeta/internal/logging"
	"github.com/aalhour/tabletmeta/internal/vfs"
	"github.com/aalhour/tabletmeta/kv"
)

// Logger is an alias for the logging.Logger interface.
// This allows users to pass their own logger implementation.
type Logger = logging.Logger

// NewZapLogger adapts a zap logger to Logger.
func NewZapLogger(log *zap.Logger) Logger {
	return logging.NewZapLogger(log)
}

// CompressionType is an alias for the compression type.
type CompressionType = compression.Type

// Compression type constants
const (
	NoCompression     = compression.NoCompression
	SnappyCompression = compression.SnappyCompression
	ZlibCompression   = compression.ZlibCompression
	LZ4Compression    = compression.LZ4Compression
	LZ4HCCompression  = compression.LZ4HCCompression
	ZstdCompression   = compression.ZstdCompression
)

// ChecksumType is an alias for the checksum type.
type ChecksumType = checksum.Type

// Checksum type constants
const (
	ChecksumTypeNoChecksum = checksum.TypeNoChecksum
	ChecksumTypeCRC32C     = checksum.TypeCRC32C
	ChecksumTypeXXH3       = checksum.TypeXXH3
)

// Backend selects the key-value engine Open uses.
type Backend string

const (
	// BackendMemory keeps everything in memory. The directory is ignored.
	BackendMemory Backend = "memory"
	// BackendPebble stores data with cockroachdb/pebble.
	BackendPebble Backend = "pebble"
	// BackendLevelDB stores data with syndtr/goleveldb.
	BackendLevelDB Backend = "leveldb"
	// BackendBolt stores data in a single boltdb file.
	BackendBolt Backend = "bolt"
)

// ParseBackend parses a backend name. Matching is case-insensitive.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendMemory, BackendPebble, BackendLevelDB, BackendBolt:
		return b, nil
	default:
		return "", fmt.Errorf("tabletmeta: unknown backend %q", name)
	}
}

// Options configures a Store.
type Options struct {
	// Backend is the key-value engine Open creates. Ignored by NewStore.
	// Default: BackendPebble
	Backend Backend

	// ColumnFamily is the keyspace of the backend holding tablet metadata.
	// Default: kv.DefaultColumnFamily
	ColumnFamily kv.ColumnFamily

	// Logger receives store messages. Nil uses a WARN level default logger.
	Logger Logger

	// KVLogger, when set, wraps the backend so that every call is logged
	// at debug level. Ignored by NewStore.
	KVLogger *zap.Logger

	// Statistics collects store counters. Nil disables collection.
	Statistics Statistics

	// DelVectorCompression compresses delete vectors written by the store.
	// Stored vectors record their own compression, so changing it is safe.
	// Default: LZ4Compression
	DelVectorCompression CompressionType

	// DelVectorChecksum protects delete vectors written by the store.
	// Default: ChecksumTypeCRC32C
	DelVectorChecksum ChecksumType

	// Sync makes every backend write durable before it returns.
	// Default: true
	Sync bool

	// CreateIfMissing creates the store directory and backend if absent.
	// Default: true
	CreateIfMissing bool

	// FS is the filesystem for the LOCK and OPTIONS files and for
	// LoadJSONMetaFile. Nil uses the OS filesystem.
	FS vfs.FS
}

// DefaultOptions returns the default store options.
func DefaultOptions() *Options {
	return &Options{
		Backend:              BackendPebble,
		ColumnFamily:         kv.DefaultColumnFamily,
		DelVectorCompression: delvec.DefaultCodec.Compression,
		DelVectorChecksum:    delvec.DefaultCodec.Checksum,
		Sync:                 true,
		CreateIfMissing:      true,
	}
}

func (o *Options) delVectorCodec() delvec.Codec {
	return delvec.Codec{Compression: o.DelVectorCompression, Checksum: o.DelVectorChecksum}
}

func (o *Options) fs() vfs.FS {
	if o.FS == nil {
		return vfs.Default()
	}
	return o.FS
}

// validate checks settings that would otherwise fail on first use.
func (o *Options) validate() error {
	if !o.DelVectorCompression.IsSupported() {
		return ErrInvalidArgument.New("unsupported delete vector compression %s", o.DelVectorCompression)
	}
	if !o.DelVectorChecksum.IsSupported() {
		return ErrInvalidArgument.New("unsupported delete vector checksum %s", o.DelVectorChecksum)
	}
	return nil
}
