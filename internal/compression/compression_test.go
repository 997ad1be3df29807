package compression

import (
	"bytes"
	"testing"
)

var allTypes = []Type{
	NoCompression,
	SnappyCompression,
	ZlibCompression,
	LZ4Compression,
	LZ4HCCompression,
	ZstdCompression,
}

func TestCompressRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"empty":      {},
		"small":      []byte("dlv"),
		"repetitive": bytes.Repeat([]byte("0123456789"), 1000),
	}
	for _, typ := range allTypes {
		for name, data := range inputs {
			t.Run(typ.String()+"/"+name, func(t *testing.T) {
				compressed, err := Compress(typ, data)
				if err != nil {
					t.Fatalf("Compress: %v", err)
				}
				got, err := Decompress(typ, compressed)
				if err != nil {
					t.Fatalf("Decompress: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Errorf("roundtrip mismatch: got %d bytes, want %d", len(got), len(data))
				}
			})
		}
	}
}

func TestCompressShrinksRepetitiveData(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), 4096)
	for _, typ := range allTypes[1:] {
		compressed, err := Compress(typ, data)
		if err != nil {
			t.Fatalf("%s: Compress: %v", typ, err)
		}
		if len(compressed) >= len(data) {
			t.Errorf("%s: compressed size %d >= input size %d", typ, len(compressed), len(data))
		}
	}
}

func TestDecompressGarbage(t *testing.T) {
	garbage := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02}
	for _, typ := range []Type{ZlibCompression, LZ4Compression, ZstdCompression} {
		if _, err := Decompress(typ, garbage); err == nil {
			t.Errorf("%s: Decompress(garbage) succeeded, want error", typ)
		}
	}
}

func TestUnsupportedType(t *testing.T) {
	if _, err := Compress(Type(3), []byte("x")); err == nil {
		t.Error("Compress with bzip2 id should fail")
	}
	if _, err := Decompress(Type(0x42), []byte("x")); err == nil {
		t.Error("Decompress with unknown id should fail")
	}
	if Type(3).IsSupported() {
		t.Error("Type(3).IsSupported() = true")
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range allTypes {
		got, err := ParseType(typ.String())
		if err != nil {
			t.Fatalf("ParseType(%q): %v", typ.String(), err)
		}
		if got != typ {
			t.Errorf("ParseType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
	if got, err := ParseType("ZSTD"); err != nil || got != ZstdCompression {
		t.Errorf("ParseType(ZSTD) = (%v, %v)", got, err)
	}
	if _, err := ParseType("brotli"); err == nil {
		t.Error("ParseType(brotli) should fail")
	}
}
