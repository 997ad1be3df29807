package keys

import (
	"bytes"
	"math"
	"sort"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		tabletID   int64
		schemaHash int32
		want       string
	}{
		{0, 0, "tabletmeta_0_0"},
		{10001, 368169781, "tabletmeta_10001_368169781"},
		{math.MaxInt64, math.MaxInt32, "tabletmeta_9223372036854775807_2147483647"},
		{-3, -7, "tabletmeta_-3_-7"},
	}
	for _, tt := range tests {
		key := EncodeHeader(tt.tabletID, tt.schemaHash)
		if string(key) != tt.want {
			t.Errorf("EncodeHeader(%d, %d) = %q, want %q", tt.tabletID, tt.schemaHash, key, tt.want)
		}
		tid, hash, ok := DecodeHeader(key)
		if !ok || tid != tt.tabletID || hash != tt.schemaHash {
			t.Errorf("DecodeHeader(%q) = (%d, %d, %v)", key, tid, hash, ok)
		}
		if !bytes.HasPrefix(key, HeaderTabletPrefix(tt.tabletID)) {
			t.Errorf("%q lacks tablet prefix %q", key, HeaderTabletPrefix(tt.tabletID))
		}
	}
}

func TestHeaderTabletPrefixIsExact(t *testing.T) {
	if bytes.HasPrefix(EncodeHeader(12, 1), HeaderTabletPrefix(1)) {
		t.Error("tablet 12 header matches tablet 1 prefix")
	}
}

func TestDecodeHeaderRejectsMalformed(t *testing.T) {
	for _, key := range []string{
		"",
		"tabletmeta_",
		"tabletmeta_123",
		"tabletmeta__5",
		"tabletmeta_5_",
		"tabletmeta_x_5",
		"tabletmeta_5_y",
		"tabletmeta_+5_1",
		"tabletmeta_05_1",
		"tabletmeta_1_2_3",
		"tabletmeta_1_2147483648",
		"tabletmeta_99999999999999999999_1",
		"tlg_1_1",
	} {
		if _, _, ok := DecodeHeader([]byte(key)); ok {
			t.Errorf("DecodeHeader(%q) succeeded, want failure", key)
		}
	}
}

func TestBinaryKeyRoundTrip(t *testing.T) {
	tablets := []int64{0, 1, 15007, math.MaxInt64, -1}
	for _, tid := range tablets {
		for _, logID := range []uint64{0, 1, math.MaxUint64} {
			key := EncodeLog(tid, logID)
			if len(key) != LogKeyLen {
				t.Fatalf("log key length = %d, want %d", len(key), LogKeyLen)
			}
			gotTID, gotLog, ok := DecodeLog(key)
			if !ok || gotTID != tid || gotLog != logID {
				t.Errorf("DecodeLog(EncodeLog(%d, %d)) = (%d, %d, %v)", tid, logID, gotTID, gotLog, ok)
			}
		}
		for _, rid := range []uint32{0, 9, math.MaxUint32} {
			key := EncodeRowset(tid, rid)
			gotTID, gotRID, ok := DecodeRowset(key)
			if !ok || gotTID != tid || gotRID != rid {
				t.Errorf("DecodeRowset(EncodeRowset(%d, %d)) = (%d, %d, %v)", tid, rid, gotTID, gotRID, ok)
			}
		}
		for _, version := range []int64{0, 5, math.MaxInt64} {
			key := EncodePending(tid, version)
			gotTID, gotVersion, ok := DecodePending(key)
			if !ok || gotTID != tid || gotVersion != version {
				t.Errorf("DecodePending(EncodePending(%d, %d)) = (%d, %d, %v)", tid, version, gotTID, gotVersion, ok)
			}
		}
		for _, version := range []int64{math.MinInt64, -1, 0, 1, 12, math.MaxInt64} {
			key := EncodeDelVector(tid, 3, version)
			gotTID, seg, gotVersion, ok := DecodeDelVector(key)
			if !ok || gotTID != tid || seg != 3 || gotVersion != version {
				t.Errorf("DecodeDelVector(EncodeDelVector(%d, 3, %d)) = (%d, %d, %d, %v)", tid, version, gotTID, seg, gotVersion, ok)
			}
			if v, ok := DecodeDelVectorVersion(key); !ok || v != version {
				t.Errorf("DecodeDelVectorVersion = (%d, %v), want (%d, true)", v, ok, version)
			}
		}
	}
}

func TestGoldenBinaryKeys(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{
			"log",
			EncodeLog(1, 2),
			[]byte("tlg_\x00\x00\x00\x00\x00\x00\x00\x01\x00\x00\x00\x00\x00\x00\x00\x02"),
		},
		{
			"rowset",
			EncodeRowset(1, 9),
			[]byte("trs_\x00\x00\x00\x00\x00\x00\x00\x01\x00\x00\x00\x09"),
		},
		{
			"pending",
			EncodePending(1, 5),
			[]byte("tpr_\x00\x00\x00\x00\x00\x00\x00\x01\x00\x00\x00\x00\x00\x00\x00\x05"),
		},
		{
			"delvec",
			EncodeDelVector(1, 2, 3),
			[]byte("dlv_\x00\x00\x00\x00\x00\x00\x00\x01\x00\x00\x00\x02\x7f\xff\xff\xff\xff\xff\xff\xfc"),
		},
	}
	for _, tt := range tests {
		if !bytes.Equal(tt.got, tt.want) {
			t.Errorf("%s key = %x, want %x", tt.name, tt.got, tt.want)
		}
	}
}

func TestDelVectorReverseOrder(t *testing.T) {
	versions := []int64{10, 5, 1}
	var encoded [][]byte
	for _, v := range versions {
		encoded = append(encoded, EncodeDelVector(7, 3, v))
	}
	sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })
	for i, key := range encoded {
		v, _ := DecodeDelVectorVersion(key)
		if v != versions[i] {
			t.Errorf("sorted position %d has version %d, want %d", i, v, versions[i])
		}
	}
}

func TestDelVectorOrderAcrossSignBoundary(t *testing.T) {
	versions := []int64{math.MaxInt64, 1, 0, -1, math.MinInt64}
	for i := 1; i < len(versions); i++ {
		newer := EncodeDelVector(1, 0, versions[i-1])
		older := EncodeDelVector(1, 0, versions[i])
		if bytes.Compare(newer, older) >= 0 {
			t.Errorf("version %d does not sort before %d", versions[i-1], versions[i])
		}
	}
}

func TestPrefixesScopeTablet(t *testing.T) {
	if !bytes.HasPrefix(EncodeLog(4, 100), LogTabletPrefix(4)) {
		t.Error("log key outside its tablet prefix")
	}
	if !bytes.HasPrefix(EncodeRowset(4, 100), RowsetTabletPrefix(4)) {
		t.Error("rowset key outside its tablet prefix")
	}
	if !bytes.HasPrefix(EncodePending(4, 100), PendingTabletPrefix(4)) {
		t.Error("pending key outside its tablet prefix")
	}
	if !bytes.HasPrefix(EncodeDelVector(4, 8, 100), DelVectorSegmentPrefix(4, 8)) {
		t.Error("delvec key outside its segment prefix")
	}
	if !bytes.HasPrefix(DelVectorSegmentPrefix(4, 8), DelVectorTabletPrefix(4)) {
		t.Error("segment prefix outside its tablet prefix")
	}
	if bytes.HasPrefix(EncodeRowset(5, 0), RowsetTabletPrefix(4)) {
		t.Error("tablet 5 rowset inside tablet 4 prefix")
	}
}

func TestDecodeRejectsWrongLengthOrPrefix(t *testing.T) {
	log := EncodeLog(1, 1)
	if _, _, ok := DecodeLog(log[:len(log)-1]); ok {
		t.Error("DecodeLog accepted a short key")
	}
	if _, _, ok := DecodeLog(append(log, 0)); ok {
		t.Error("DecodeLog accepted a long key")
	}
	if _, _, ok := DecodeRowset(EncodePending(1, 1)[:RowsetKeyLen]); ok {
		t.Error("DecodeRowset accepted a pending prefix")
	}
	if _, _, ok := DecodePending(log); ok {
		t.Error("DecodePending accepted a log key")
	}
	if _, _, _, ok := DecodeDelVector(EncodeRowset(1, 1)); ok {
		t.Error("DecodeDelVector accepted a rowset key")
	}
	if _, ok := DecodeDelVectorVersion([]byte("dlv_")); ok {
		t.Error("DecodeDelVectorVersion accepted a short key")
	}
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		key  []byte
		want Family
	}{
		{EncodeHeader(1, 2), FamilyHeader},
		{EncodeLog(1, 2), FamilyLog},
		{EncodeRowset(1, 2), FamilyRowset},
		{EncodePending(1, 2), FamilyPending},
		{EncodeDelVector(1, 2, 3), FamilyDelVector},
		{[]byte("rst_anything"), FamilyLegacyRowset},
		{[]byte("zzz"), FamilyUnknown},
	}
	for _, tt := range tests {
		if got := FamilyOf(tt.key); got != tt.want {
			t.Errorf("FamilyOf(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func FuzzDecodeHeader(f *testing.F) {
	f.Add([]byte("tabletmeta_1_2"))
	f.Add([]byte("tabletmeta_-1_-2"))
	f.Add([]byte("tabletmeta_1__2"))
	f.Fuzz(func(t *testing.T, key []byte) {
		tid, hash, ok := DecodeHeader(key)
		if !ok {
			return
		}
		if got := EncodeHeader(tid, hash); !bytes.Equal(got, key) {
			t.Errorf("EncodeHeader(DecodeHeader(%q)) = %q", key, got)
		}
	})
}

func FuzzDelVectorKey(f *testing.F) {
	f.Add(int64(1), uint32(0), int64(0))
	f.Add(int64(-1), uint32(math.MaxUint32), int64(math.MinInt64))
	f.Fuzz(func(t *testing.T, tid int64, seg uint32, version int64) {
		gotTID, gotSeg, gotVersion, ok := DecodeDelVector(EncodeDelVector(tid, seg, version))
		if !ok || gotTID != tid || gotSeg != seg || gotVersion != version {
			t.Errorf("round trip (%d, %d, %d) = (%d, %d, %d, %v)", tid, seg, version, gotTID, gotSeg, gotVersion, ok)
		}
	})
}
