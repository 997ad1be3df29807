package delvec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aalhour/tabletmeta/internal/checksum"
	"github.com/aalhour/tabletmeta/internal/compression"
)

var allCompressions = []compression.Type{
	compression.NoCompression,
	compression.SnappyCompression,
	compression.ZlibCompression,
	compression.LZ4Compression,
	compression.LZ4HCCompression,
	compression.ZstdCompression,
}

var allChecksums = []checksum.Type{checksum.TypeNoChecksum, checksum.TypeCRC32C, checksum.TypeXXH3}

func sampleRows() []uint32 {
	rows := []uint32{0, 1, 2, 3, 100, 65535, 65536, 1 << 20}
	for i := uint32(5000); i < 9000; i++ {
		rows = append(rows, i)
	}
	return rows
}

func TestSaveLoad(t *testing.T) {
	inputs := map[string]*DelVector{
		"empty":  New(3),
		"single": New(7, 42),
		"dense":  New(12, sampleRows()...),
	}
	for _, comp := range allCompressions {
		for _, sum := range allChecksums {
			codec := Codec{Compression: comp, Checksum: sum}
			for name, want := range inputs {
				t.Run(codec.String()+"/"+name, func(t *testing.T) {
					data, err := want.Save(codec)
					if err != nil {
						t.Fatalf("Save: %v", err)
					}
					got, err := Load(want.Version(), data)
					if err != nil {
						t.Fatalf("Load: %v", err)
					}
					if !got.Equal(want) {
						t.Errorf("Load = %v, want %v", got, want)
					}
					parsed, err := ParseHeader(data)
					if err != nil || parsed != codec {
						t.Errorf("ParseHeader = (%v, %v), want %v", parsed, err, codec)
					}
				})
			}
		}
	}
}

func TestVectorOps(t *testing.T) {
	dv := New(1, 5, 3)
	dv.Add(9, 3)
	if dv.Cardinality() != 3 {
		t.Errorf("Cardinality() = %d, want 3", dv.Cardinality())
	}
	if diff := cmp.Diff([]uint32{3, 5, 9}, dv.Rows()); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
	if !dv.Contains(9) || dv.Contains(4) {
		t.Error("Contains reports the wrong membership")
	}
	if dv.Empty() || !New(1).Empty() {
		t.Error("Empty reports the wrong state")
	}
}

func TestAddDeletesAsNewVersion(t *testing.T) {
	base := New(4, 1, 2)
	next := base.AddDeletesAsNewVersion([]uint32{2, 10}, 6)

	if next.Version() != 6 {
		t.Errorf("next.Version() = %d, want 6", next.Version())
	}
	if diff := cmp.Diff([]uint32{1, 2, 10}, next.Rows()); diff != "" {
		t.Errorf("next rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{1, 2}, base.Rows()); diff != "" {
		t.Errorf("base was modified (-want +got):\n%s", diff)
	}
	if base.Version() != 4 {
		t.Errorf("base.Version() = %d, want 4", base.Version())
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *DelVector
		want bool
	}{
		{"same", New(1, 1, 2), New(1, 2, 1), true},
		{"version differs", New(1, 1), New(2, 1), false},
		{"rows differ", New(1, 1), New(1, 2), false},
		{"nil and nil", nil, nil, true},
		{"nil and value", nil, New(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadCorruption(t *testing.T) {
	good, err := New(2, sampleRows()...).Save(Codec{Compression: compression.ZstdCompression, Checksum: checksum.TypeXXH3})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	unchecked, err := New(2, 1, 2, 3).Save(Codec{Compression: compression.NoCompression, Checksum: checksum.TypeNoChecksum})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	flip := func(b []byte, i int) []byte {
		out := append([]byte(nil), b...)
		out[i] ^= 0x40
		return out
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", []byte{FormatVersion}},
		{"unknown format", flip(good, 0)},
		{"unknown compression", []byte{FormatVersion, 0x33, byte(checksum.TypeNoChecksum), 0}},
		{"unknown checksum", []byte{FormatVersion, 0, 0x33, 0}},
		{"payload flip", flip(good, len(good)/2)},
		{"checksum flip", flip(good, len(good)-1)},
		{"truncated checksum", good[:headerLen+4]},
		{"truncated payload", unchecked[:len(unchecked)-3]},
		{"garbage payload", []byte{FormatVersion, 0, 0, 0xde, 0xad, 0xbe, 0xef}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(2, tt.data); !errors.Is(err, ErrCorruption) {
				t.Errorf("Load error = %v, want %v", err, ErrCorruption)
			}
		})
	}
}

func TestSaveUnsupported(t *testing.T) {
	for _, codec := range []Codec{
		{Compression: compression.Type(3)},
		{Checksum: checksum.Type(2)},
	} {
		if _, err := New(1, 1).Save(codec); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Save(%v) error = %v, want %v", codec, err, ErrUnsupported)
		}
	}
}

func FuzzLoad(f *testing.F) {
	for _, comp := range allCompressions {
		data, err := New(1, 1, 2, 3, 70000).Save(Codec{Compression: comp, Checksum: checksum.TypeNoChecksum})
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		dv, err := Load(1, data)
		if err != nil {
			if !errors.Is(err, ErrCorruption) {
				t.Fatalf("Load error %v is not a corruption", err)
			}
			return
		}
		again, err := dv.Save(DefaultCodec)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		reloaded, err := Load(1, again)
		if err != nil || !reloaded.Equal(dv) {
			t.Fatalf("reload = (%v, %v), want %v", reloaded, err, dv)
		}
	})
}
