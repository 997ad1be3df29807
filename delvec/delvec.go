// Package delvec implements delete vectors: the set of deleted row ids of
// one segment as of a version.
//
// A delete vector is immutable once stored. New deletes produce a new
// vector at a newer version (see AddDeletesAsNewVersion); older versions
// stay readable until they are garbage collected.
//
// Stored form:
//
//	[format: 1 byte][compression: 1 byte][checksum: 1 byte][payload][checksum: 8 bytes LE]
//
// The payload is the portable roaring bitmap serialization compressed with
// the recorded compression type. The trailing checksum covers every byte
// before it and is absent when the checksum type is none.
package delvec

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/aalhour/tabletmeta/internal/checksum"
	"github.com/aalhour/tabletmeta/internal/compression"
	"github.com/aalhour/tabletmeta/internal/encoding"
)

const (
	// FormatVersion is the only stored format understood by Load.
	FormatVersion = 1

	headerLen   = 3
	checksumLen = 8
)

var (
	// ErrCorruption is returned by Load for undecodable data.
	ErrCorruption = errors.New("delvec: corruption")
	// ErrUnsupported is returned by Save for an unsupported codec.
	ErrUnsupported = errors.New("delvec: unsupported codec")
)

// Codec selects how Save encodes a delete vector.
type Codec struct {
	Compression compression.Type
	Checksum    checksum.Type
}

// DefaultCodec compresses with LZ4 and checksums with CRC32C.
var DefaultCodec = Codec{Compression: compression.LZ4Compression, Checksum: checksum.TypeCRC32C}

func (c Codec) String() string {
	return fmt.Sprintf("%s/%s", c.Compression, c.Checksum)
}

// DelVector is a versioned set of deleted row ids.
type DelVector struct {
	version int64
	rows    *roaring.Bitmap
}

// New returns a delete vector at version containing rows.
func New(version int64, rows ...uint32) *DelVector {
	dv := &DelVector{version: version, rows: roaring.NewBitmap()}
	dv.rows.AddMany(rows)
	return dv
}

// Version returns the version the vector is valid as of.
func (dv *DelVector) Version() int64 { return dv.version }

// Add marks rows as deleted.
func (dv *DelVector) Add(rows ...uint32) { dv.rows.AddMany(rows) }

// Contains reports whether row is deleted.
func (dv *DelVector) Contains(row uint32) bool { return dv.rows.Contains(row) }

// Cardinality returns the number of deleted rows.
func (dv *DelVector) Cardinality() uint64 { return dv.rows.GetCardinality() }

// Empty reports whether no row is deleted.
func (dv *DelVector) Empty() bool { return dv.rows.IsEmpty() }

// Rows returns the deleted row ids in ascending order.
func (dv *DelVector) Rows() []uint32 { return dv.rows.ToArray() }

// AddDeletesAsNewVersion returns a copy of dv at version with rows added.
// dv itself is left unchanged.
func (dv *DelVector) AddDeletesAsNewVersion(rows []uint32, version int64) *DelVector {
	next := &DelVector{version: version, rows: dv.rows.Clone()}
	next.rows.AddMany(rows)
	return next
}

// Equal reports whether both vectors have the same version and rows.
func (dv *DelVector) Equal(other *DelVector) bool {
	if dv == nil || other == nil {
		return dv == other
	}
	return dv.version == other.version && dv.rows.Equals(other.rows)
}

func (dv *DelVector) String() string {
	return fmt.Sprintf("version:%d cardinality:%d", dv.version, dv.rows.GetCardinality())
}

// Save encodes dv with codec.
func (dv *DelVector) Save(codec Codec) ([]byte, error) {
	if !codec.Compression.IsSupported() || !codec.Checksum.IsSupported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, codec)
	}
	raw, err := dv.rows.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("delvec: serialize bitmap: %w", err)
	}
	payload, err := compression.Compress(codec.Compression, raw)
	if err != nil {
		return nil, fmt.Errorf("delvec: compress: %w", err)
	}

	out := make([]byte, 0, headerLen+len(payload)+checksumLen)
	out = append(out, FormatVersion, byte(codec.Compression), byte(codec.Checksum))
	out = append(out, payload...)
	if codec.Checksum != checksum.TypeNoChecksum {
		out = encoding.AppendFixed64(out, checksum.Compute(codec.Checksum, out))
	}
	return out, nil
}

// Load decodes a delete vector stored by Save. The version is not part of
// the stored form; callers take it from the key.
func Load(version int64, data []byte) (dv *DelVector, err error) {
	codec, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	body := data
	if codec.Checksum != checksum.TypeNoChecksum {
		if len(data) < headerLen+checksumLen {
			return nil, fmt.Errorf("%w: %d bytes is too short for a %s checksum", ErrCorruption, len(data), codec.Checksum)
		}
		body = data[:len(data)-checksumLen]
		want := encoding.DecodeFixed64(data[len(body):])
		if !checksum.Verify(codec.Checksum, body, want) {
			return nil, fmt.Errorf("%w: %s checksum mismatch", ErrCorruption, codec.Checksum)
		}
	}

	raw, err := compression.Decompress(codec.Compression, body[headerLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: decompress %s: %v", ErrCorruption, codec.Compression, err)
	}

	// roaring can panic on malformed input.
	defer func() {
		if r := recover(); r != nil {
			dv, err = nil, fmt.Errorf("%w: bitmap: %v", ErrCorruption, r)
		}
	}()
	rows := roaring.NewBitmap()
	if err := rows.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: bitmap: %v", ErrCorruption, err)
	}
	return &DelVector{version: version, rows: rows}, nil
}

// ParseHeader validates the fixed header of a stored delete vector and
// returns the codec it was saved with.
func ParseHeader(data []byte) (Codec, error) {
	if len(data) < headerLen {
		return Codec{}, fmt.Errorf("%w: %d bytes is too short", ErrCorruption, len(data))
	}
	if data[0] != FormatVersion {
		return Codec{}, fmt.Errorf("%w: unknown format %d", ErrCorruption, data[0])
	}
	codec := Codec{Compression: compression.Type(data[1]), Checksum: checksum.Type(data[2])}
	if !codec.Compression.IsSupported() {
		return Codec{}, fmt.Errorf("%w: unknown compression %d", ErrCorruption, data[1])
	}
	if !codec.Checksum.IsSupported() {
		return Codec{}, fmt.Errorf("%w: unknown checksum %d", ErrCorruption, data[2])
	}
	return codec, nil
}
