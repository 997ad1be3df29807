// Package checksum computes the integrity checksums appended to stored
// delete-vector payloads.
//
// CRC32C values are masked before storage so that a checksum of a payload
// that itself embeds a checksum stays well distributed. XXH3 values are
// stored as the full 64-bit hash.
package checksum

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/zeebo/xxh3"
)

// Type identifies a checksum algorithm. The numeric values are persisted.
type Type uint8

const (
	// TypeNoChecksum means no checksum is stored.
	TypeNoChecksum Type = 0
	// TypeCRC32C is CRC32C (Castagnoli), masked.
	TypeCRC32C Type = 1
	// TypeXXH3 is the 64-bit XXH3 hash.
	TypeXXH3 Type = 4
)

// String returns a human-readable name for the checksum type.
func (t Type) String() string {
	switch t {
	case TypeNoChecksum:
		return "NoChecksum"
	case TypeCRC32C:
		return "CRC32C"
	case TypeXXH3:
		return "XXH3"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ParseType parses a name produced by String. Matching is case-insensitive
// and "none" is accepted for TypeNoChecksum.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "nochecksum":
		return TypeNoChecksum, nil
	case "crc32c":
		return TypeCRC32C, nil
	case "xxh3":
		return TypeXXH3, nil
	default:
		return TypeNoChecksum, fmt.Errorf("checksum: unknown type %q", name)
	}
}

// IsSupported returns true if the checksum type can be computed.
func (t Type) IsSupported() bool {
	switch t {
	case TypeNoChecksum, TypeCRC32C, TypeXXH3:
		return true
	default:
		return false
	}
}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is added after rotation when masking a CRC.
const maskDelta = 0xa282ead8

// Mask returns a masked representation of crc.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask returns the crc whose masked representation is maskedCRC.
func Unmask(maskedCRC uint32) uint32 {
	rot := maskedCRC - maskDelta
	return (rot >> 17) | (rot << 15)
}

// Compute returns the checksum of data under t. TypeNoChecksum and
// unsupported types yield 0.
func Compute(t Type, data []byte) uint64 {
	switch t {
	case TypeCRC32C:
		return uint64(Mask(crc32.Checksum(data, crc32cTable)))
	case TypeXXH3:
		return xxh3.Hash(data)
	default:
		return 0
	}
}

// Verify reports whether want is the checksum of data under t.
func Verify(t Type, data []byte, want uint64) bool {
	if t == TypeNoChecksum {
		return true
	}
	return Compute(t, data) == want
}
