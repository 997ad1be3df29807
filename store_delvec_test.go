package tabletmeta

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aalhour/tabletmeta/delvec"
	"github.com/aalhour/tabletmeta/internal/keys"
	"github.com/aalhour/tabletmeta/kv/memkv"
)

func storeDelVectors(t *testing.T, s *Store, tabletID int64, segmentID uint32, versions ...int64) {
	t.Helper()
	for _, v := range versions {
		if err := s.SetDelVector(tabletID, segmentID, delvec.New(v, uint32(v))); err != nil {
			t.Fatalf("SetDelVector(%d): %v", v, err)
		}
	}
}

func storedVersions(t *testing.T, s *Store, tabletID int64, segmentID uint32) []int64 {
	t.Helper()
	var versions []int64
	if err := s.scan(keys.DelVectorSegmentPrefix(tabletID, segmentID), func(key, _ []byte) bool {
		v, ok := keys.DecodeDelVectorVersion(key)
		if !ok {
			t.Fatalf("bad delete vector key %q", key)
		}
		versions = append(versions, v)
		return true
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return versions
}

func TestGetDelVectorNearestVersion(t *testing.T) {
	s := newTestStore(t)
	storeDelVectors(t, s, 1, 0, 3, 7, 12)
	storeDelVectors(t, s, 1, 1, 100)

	tests := []struct {
		query       int64
		wantVersion int64
	}{
		{9, 7},
		{7, 7},
		{3, 3},
		{12, 12},
		{math.MaxInt64, 12},
	}
	for _, tt := range tests {
		dv, latest, err := s.GetDelVector(1, 0, tt.query)
		if err != nil {
			t.Fatalf("GetDelVector(%d): %v", tt.query, err)
		}
		if dv.Version() != tt.wantVersion {
			t.Errorf("GetDelVector(%d) version = %d, want %d", tt.query, dv.Version(), tt.wantVersion)
		}
		if !dv.Contains(uint32(tt.wantVersion)) {
			t.Errorf("GetDelVector(%d) loaded the wrong payload: %v", tt.query, dv)
		}
		if latest != 12 {
			t.Errorf("GetDelVector(%d) latest = %d, want 12", tt.query, latest)
		}
	}

	_, latest, err := s.GetDelVector(1, 0, 2)
	if !IsNotFound(err) {
		t.Errorf("GetDelVector(2) = %v, want not found", err)
	}
	if latest != 12 {
		t.Errorf("GetDelVector(2) latest = %d, want 12", latest)
	}

	_, latest, err = s.GetDelVector(1, 5, 10)
	if !IsNotFound(err) || latest != NoDelVector {
		t.Errorf("GetDelVector of an empty segment = (%d, %v), want (%d, not found)", latest, err, NoDelVector)
	}

	stats := s.Statistics()
	if got := stats.GetTickerCount(TickerDelVectorReads); got != uint64(len(tests)) {
		t.Errorf("TickerDelVectorReads = %d, want %d", got, len(tests))
	}
	if got := stats.GetTickerCount(TickerDelVectorMisses); got != 2 {
		t.Errorf("TickerDelVectorMisses = %d, want 2", got)
	}
}

func TestGetDelVectorCorruptPayload(t *testing.T) {
	s := newTestStore(t)
	if err := s.KV().Put(s.ColumnFamily(), keys.EncodeDelVector(1, 0, 5), []byte{1, 0, 0, 0xde, 0xad}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.GetDelVector(1, 0, 5); !IsCorruption(err) {
		t.Errorf("GetDelVector = %v, want corruption", err)
	}
}

func TestDelVectorCodecs(t *testing.T) {
	for _, codec := range []delvec.Codec{
		{Compression: NoCompression, Checksum: ChecksumTypeNoChecksum},
		{Compression: SnappyCompression, Checksum: ChecksumTypeCRC32C},
		{Compression: ZstdCompression, Checksum: ChecksumTypeXXH3},
	} {
		t.Run(codec.String(), func(t *testing.T) {
			opts := testOptions(t)
			opts.DelVectorCompression = codec.Compression
			opts.DelVectorChecksum = codec.Checksum
			s := NewStore(memkv.New(), opts)
			defer func() { _ = s.Close() }()

			want := delvec.New(4, 1, 1000, 70000)
			if err := s.SetDelVector(2, 3, want); err != nil {
				t.Fatalf("SetDelVector: %v", err)
			}
			raw, err := s.get(keys.EncodeDelVector(2, 3, 4))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got, err := delvec.ParseHeader(raw); err != nil || got != codec {
				t.Errorf("stored codec = (%v, %v), want %v", got, err, codec)
			}
			got, _, err := s.GetDelVector(2, 3, 4)
			if err != nil {
				t.Fatalf("GetDelVector: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("GetDelVector = %v, want %v", got, want)
			}
		})
	}
}

func TestListDelVector(t *testing.T) {
	s := newTestStore(t)
	storeDelVectors(t, s, 1, 0, 2, 5, 9)
	storeDelVectors(t, s, 1, 1, 10, 11)
	storeDelVectors(t, s, 1, 3, 4)
	storeDelVectors(t, s, 2, 0, 1)

	tests := []struct {
		maxVersion int64
		want       []SegmentVersion
	}{
		{math.MaxInt64, []SegmentVersion{{0, 9}, {1, 11}, {3, 4}}},
		{9, []SegmentVersion{{0, 5}, {3, 4}}},
		{5, []SegmentVersion{{0, 2}, {3, 4}}},
		{2, nil},
	}
	for _, tt := range tests {
		got, err := s.ListDelVector(1, tt.maxVersion)
		if err != nil {
			t.Fatalf("ListDelVector(%d): %v", tt.maxVersion, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ListDelVector(%d) (-want +got):\n%s", tt.maxVersion, diff)
		}
	}
}

func TestDeleteDelVectorRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end int64
		want       []int64
	}{
		{"empty range", 5, 5, []int64{12, 10, 7, 4, 1}},
		{"middle", 4, 10, []int64{12, 10, 1}},
		{"exact single", 7, 8, []int64{12, 10, 4, 1}},
		{"from minimum", math.MinInt64, 7, []int64{12, 10, 7}},
		{"everything", 0, math.MaxInt64, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			storeDelVectors(t, s, 1, 0, 1, 4, 7, 10, 12)
			storeDelVectors(t, s, 1, 1, 4)

			if err := s.DeleteDelVectorRange(1, 0, tt.start, tt.end); err != nil {
				t.Fatalf("DeleteDelVectorRange: %v", err)
			}
			if diff := cmp.Diff(tt.want, storedVersions(t, s, 1, 0)); diff != "" {
				t.Errorf("remaining versions (-want +got):\n%s", diff)
			}
			if got := storedVersions(t, s, 1, 1); len(got) != 1 {
				t.Errorf("segment 1 versions = %v, want [4]", got)
			}
		})
	}
}

func TestDeleteDelVectorRangeReversed(t *testing.T) {
	s := newTestStore(t)
	storeDelVectors(t, s, 1, 0, 5)
	if err := s.DeleteDelVectorRange(1, 0, 6, 5); !IsInvalidArgument(err) {
		t.Errorf("DeleteDelVectorRange(6, 5) = %v, want invalid argument", err)
	}
	if got := storedVersions(t, s, 1, 0); len(got) != 1 {
		t.Errorf("versions after rejected delete = %v", got)
	}
	if got := s.Statistics().GetTickerCount(TickerBatchWrites); got != 0 {
		t.Errorf("TickerBatchWrites = %d, want 0", got)
	}
}
