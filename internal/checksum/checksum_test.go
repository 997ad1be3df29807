package checksum

import (
	"hash/crc32"
	"testing"

	"github.com/zeebo/xxh3"
)

func TestMaskUnmask(t *testing.T) {
	for _, crc := range []uint32{0, 1, 0xdeadbeef, 0xffffffff} {
		if got := Unmask(Mask(crc)); got != crc {
			t.Errorf("Unmask(Mask(%#x)) = %#x", crc, got)
		}
		if Mask(crc) == crc {
			t.Errorf("Mask(%#x) should differ from its input", crc)
		}
	}
}

func TestCompute(t *testing.T) {
	data := []byte("delete vector payload")

	if got := Compute(TypeNoChecksum, data); got != 0 {
		t.Errorf("Compute(NoChecksum) = %d, want 0", got)
	}

	wantCRC := uint64(Mask(crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli))))
	if got := Compute(TypeCRC32C, data); got != wantCRC {
		t.Errorf("Compute(CRC32C) = %#x, want %#x", got, wantCRC)
	}

	if got := Compute(TypeXXH3, data); got != xxh3.Hash(data) {
		t.Errorf("Compute(XXH3) = %#x, want %#x", got, xxh3.Hash(data))
	}
}

func TestVerifyDetectsFlip(t *testing.T) {
	data := []byte("0123456789abcdef")
	for _, typ := range []Type{TypeCRC32C, TypeXXH3} {
		sum := Compute(typ, data)
		if !Verify(typ, data, sum) {
			t.Errorf("%s: Verify on intact data = false", typ)
		}
		flipped := append([]byte(nil), data...)
		flipped[3] ^= 0x01
		if Verify(typ, flipped, sum) {
			t.Errorf("%s: Verify on flipped data = true", typ)
		}
	}
	if !Verify(TypeNoChecksum, data, 12345) {
		t.Error("NoChecksum should always verify")
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeNoChecksum, "NoChecksum"},
		{TypeCRC32C, "CRC32C"},
		{TypeXXH3, "XXH3"},
		{Type(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
		if tt.typ.IsSupported() != (tt.want != "Unknown(9)") {
			t.Errorf("Type(%d).IsSupported() = %v", tt.typ, tt.typ.IsSupported())
		}
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{TypeNoChecksum, TypeCRC32C, TypeXXH3} {
		got, err := ParseType(typ.String())
		if err != nil || got != typ {
			t.Errorf("ParseType(%q) = (%v, %v), want %v", typ.String(), got, err, typ)
		}
	}
	if got, err := ParseType("none"); err != nil || got != TypeNoChecksum {
		t.Errorf("ParseType(none) = (%v, %v)", got, err)
	}
	if _, err := ParseType("md5"); err == nil {
		t.Error("ParseType(md5) should fail")
	}
}
