// Package cfkey maps column-family keys onto a single flat keyspace by
// prefixing each key with its big-endian column family id.
package cfkey

import (
	"math"

	"github.com/aalhour/tabletmeta/internal/encoding"
)

// PrefixLen is the length of the column family prefix.
const PrefixLen = 4

// Encode returns the flat key for key in column family cf.
func Encode(cf uint32, key []byte) []byte {
	b := make([]byte, 0, PrefixLen+len(key))
	b = encoding.AppendUint32BE(b, cf)
	return append(b, key...)
}

// Decode strips the column family prefix. It returns nil for keys shorter
// than the prefix.
func Decode(flat []byte) (uint32, []byte) {
	if len(flat) < PrefixLen {
		return 0, nil
	}
	return encoding.DecodeUint32BE(flat), flat[PrefixLen:]
}

// Bounds translates [lower, upper) in column family cf into flat bounds.
// An empty lower starts at the first key of cf and an empty upper ends after
// the last. The returned upper is nil only for the last column family.
func Bounds(cf uint32, lower, upper []byte) (flatLower, flatUpper []byte) {
	flatLower = Encode(cf, lower)
	switch {
	case len(upper) > 0:
		flatUpper = Encode(cf, upper)
	case cf < math.MaxUint32:
		flatUpper = encoding.AppendUint32BE(nil, cf+1)
	}
	return flatLower, flatUpper
}
