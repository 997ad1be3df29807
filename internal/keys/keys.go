// Package keys encodes and decodes the persisted key families of the tablet
// metadata store.
//
//	header        "tabletmeta_" + decimal(tablet_id) + "_" + decimal(schema_hash)
//	meta log      "tlg_" + be64(tablet_id) + be64(log_id)
//	rowset        "trs_" + be64(tablet_id) + be32(rowset_id)
//	pending       "tpr_" + be64(tablet_id) + be64(version)
//	delete vector "dlv_" + be64(tablet_id) + be32(segment_id) + be64(INT64_MAX - version)
//
// Integers are big-endian so byte order equals numeric order. The delete
// vector version is complemented so that newer versions of a segment sort
// first. Every layout is fixed on disk and must not change.
package keys

import (
	"bytes"
	"math"
	"strconv"

	"github.com/aalhour/tabletmeta/internal/encoding"
)

// Key family prefixes.
const (
	HeaderPrefix    = "tabletmeta_"
	LogPrefix       = "tlg_"
	RowsetPrefix    = "trs_"
	PendingPrefix   = "tpr_"
	DelVectorPrefix = "dlv_"

	// LegacyRowsetPrefix is the rowset namespace of non-updatable tablets.
	// It is only counted by statistics.
	LegacyRowsetPrefix = "rst_"
)

// Encoded key lengths of the binary families.
const (
	LogKeyLen       = len(LogPrefix) + 8 + 8
	RowsetKeyLen    = len(RowsetPrefix) + 8 + 4
	PendingKeyLen   = len(PendingPrefix) + 8 + 8
	DelVectorKeyLen = len(DelVectorPrefix) + 8 + 4 + 8
)

// Family identifies the key family of a raw key.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyHeader
	FamilyLog
	FamilyRowset
	FamilyPending
	FamilyDelVector
	FamilyLegacyRowset
)

// String returns the family's prefix without the trailing separator.
func (f Family) String() string {
	switch f {
	case FamilyHeader:
		return "tabletmeta"
	case FamilyLog:
		return "tlg"
	case FamilyRowset:
		return "trs"
	case FamilyPending:
		return "tpr"
	case FamilyDelVector:
		return "dlv"
	case FamilyLegacyRowset:
		return "rst"
	default:
		return "unknown"
	}
}

// FamilyOf classifies key by prefix only.
func FamilyOf(key []byte) Family {
	switch {
	case bytes.HasPrefix(key, []byte(HeaderPrefix)):
		return FamilyHeader
	case bytes.HasPrefix(key, []byte(LogPrefix)):
		return FamilyLog
	case bytes.HasPrefix(key, []byte(RowsetPrefix)):
		return FamilyRowset
	case bytes.HasPrefix(key, []byte(PendingPrefix)):
		return FamilyPending
	case bytes.HasPrefix(key, []byte(DelVectorPrefix)):
		return FamilyDelVector
	case bytes.HasPrefix(key, []byte(LegacyRowsetPrefix)):
		return FamilyLegacyRowset
	default:
		return FamilyUnknown
	}
}

// EncodeHeader returns the header key of a (tablet, schema hash) pair.
func EncodeHeader(tabletID int64, schemaHash int32) []byte {
	b := make([]byte, 0, len(HeaderPrefix)+24)
	b = append(b, HeaderPrefix...)
	b = strconv.AppendInt(b, tabletID, 10)
	b = append(b, '_')
	return strconv.AppendInt(b, int64(schemaHash), 10)
}

// HeaderTabletPrefix returns the prefix shared by every header key of
// tabletID. The trailing separator keeps tablet 1 from matching tablet 12.
func HeaderTabletPrefix(tabletID int64) []byte {
	b := append([]byte(HeaderPrefix), strconv.FormatInt(tabletID, 10)...)
	return append(b, '_')
}

// DecodeHeader parses a header key. The key is split on its final '_' and
// both halves must be canonical decimal integers.
func DecodeHeader(key []byte) (tabletID int64, schemaHash int32, ok bool) {
	if !bytes.HasPrefix(key, []byte(HeaderPrefix)) {
		return 0, 0, false
	}
	rest := key[len(HeaderPrefix):]
	sep := bytes.LastIndexByte(rest, '_')
	if sep < 0 {
		return 0, 0, false
	}
	tid, ok := parseCanonical(rest[:sep], 64)
	if !ok {
		return 0, 0, false
	}
	hash, ok := parseCanonical(rest[sep+1:], 32)
	if !ok {
		return 0, 0, false
	}
	return tid, int32(hash), true
}

// parseCanonical accepts only the text strconv.FormatInt would produce, so
// decoding is the exact inverse of encoding.
func parseCanonical(b []byte, bitSize int) (int64, bool) {
	s := string(b)
	v, err := strconv.ParseInt(s, 10, bitSize)
	if err != nil || strconv.FormatInt(v, 10) != s {
		return 0, false
	}
	return v, true
}

func appendTablet(prefix string, tabletID int64, extra int) []byte {
	b := make([]byte, 0, len(prefix)+8+extra)
	b = append(b, prefix...)
	return encoding.AppendUint64BE(b, uint64(tabletID))
}

// LogTabletPrefix returns the meta log prefix of tabletID.
func LogTabletPrefix(tabletID int64) []byte {
	return appendTablet(LogPrefix, tabletID, 0)
}

// EncodeLog returns the meta log key of (tabletID, logID).
func EncodeLog(tabletID int64, logID uint64) []byte {
	return encoding.AppendUint64BE(appendTablet(LogPrefix, tabletID, 8), logID)
}

// DecodeLog parses a meta log key.
func DecodeLog(key []byte) (tabletID int64, logID uint64, ok bool) {
	if len(key) != LogKeyLen || !bytes.HasPrefix(key, []byte(LogPrefix)) {
		return 0, 0, false
	}
	s := encoding.NewSlice(key[len(LogPrefix):])
	tid, _ := s.GetUint64BE()
	logID, _ = s.GetUint64BE()
	return int64(tid), logID, true
}

// RowsetTabletPrefix returns the committed rowset prefix of tabletID.
func RowsetTabletPrefix(tabletID int64) []byte {
	return appendTablet(RowsetPrefix, tabletID, 0)
}

// EncodeRowset returns the committed rowset key of (tabletID, rowsetID).
func EncodeRowset(tabletID int64, rowsetID uint32) []byte {
	return encoding.AppendUint32BE(appendTablet(RowsetPrefix, tabletID, 4), rowsetID)
}

// DecodeRowset parses a committed rowset key.
func DecodeRowset(key []byte) (tabletID int64, rowsetID uint32, ok bool) {
	if len(key) != RowsetKeyLen || !bytes.HasPrefix(key, []byte(RowsetPrefix)) {
		return 0, 0, false
	}
	s := encoding.NewSlice(key[len(RowsetPrefix):])
	tid, _ := s.GetUint64BE()
	rowsetID, _ = s.GetUint32BE()
	return int64(tid), rowsetID, true
}

// PendingTabletPrefix returns the pending rowset prefix of tabletID.
func PendingTabletPrefix(tabletID int64) []byte {
	return appendTablet(PendingPrefix, tabletID, 0)
}

// EncodePending returns the pending rowset key of (tabletID, version).
func EncodePending(tabletID int64, version int64) []byte {
	return encoding.AppendUint64BE(appendTablet(PendingPrefix, tabletID, 8), uint64(version))
}

// DecodePending parses a pending rowset key.
func DecodePending(key []byte) (tabletID int64, version int64, ok bool) {
	if len(key) != PendingKeyLen || !bytes.HasPrefix(key, []byte(PendingPrefix)) {
		return 0, 0, false
	}
	s := encoding.NewSlice(key[len(PendingPrefix):])
	tid, _ := s.GetUint64BE()
	v, _ := s.GetUint64BE()
	return int64(tid), int64(v), true
}

// DelVectorTabletPrefix returns the delete vector prefix of tabletID.
func DelVectorTabletPrefix(tabletID int64) []byte {
	return appendTablet(DelVectorPrefix, tabletID, 0)
}

// DelVectorSegmentPrefix returns the delete vector prefix of one segment.
func DelVectorSegmentPrefix(tabletID int64, segmentID uint32) []byte {
	return encoding.AppendUint32BE(appendTablet(DelVectorPrefix, tabletID, 4), segmentID)
}

// complementVersion maps versions to a uint64 that decreases as the version
// increases, over the whole int64 range.
func complementVersion(version int64) uint64 {
	return uint64(math.MaxInt64) - uint64(version)
}

// EncodeDelVector returns the delete vector key of (tabletID, segmentID, version).
func EncodeDelVector(tabletID int64, segmentID uint32, version int64) []byte {
	b := make([]byte, 0, DelVectorKeyLen)
	b = append(b, DelVectorPrefix...)
	b = encoding.AppendUint64BE(b, uint64(tabletID))
	b = encoding.AppendUint32BE(b, segmentID)
	return encoding.AppendUint64BE(b, complementVersion(version))
}

// DecodeDelVector parses a delete vector key.
func DecodeDelVector(key []byte) (tabletID int64, segmentID uint32, version int64, ok bool) {
	if len(key) != DelVectorKeyLen || !bytes.HasPrefix(key, []byte(DelVectorPrefix)) {
		return 0, 0, 0, false
	}
	s := encoding.NewSlice(key[len(DelVectorPrefix):])
	tid, _ := s.GetUint64BE()
	segmentID, _ = s.GetUint32BE()
	v, _ := s.GetUint64BE()
	return int64(tid), segmentID, int64(uint64(math.MaxInt64) - v), true
}

// DecodeDelVectorVersion reads only the version from the last 8 bytes of a
// delete vector key.
func DecodeDelVectorVersion(key []byte) (int64, bool) {
	if len(key) != DelVectorKeyLen {
		return 0, false
	}
	v := encoding.DecodeUint64BE(key[len(key)-8:])
	return int64(uint64(math.MaxInt64) - v), true
}
