package compress

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("x"),
		[]byte("repetitive repetitive repetitive repetitive repetitive data"),
		bytes.Repeat([]byte{0xAB}, 64*1024),
	}
	for _, codec := range []Type{None, Snappy, LZ4, Zstd} {
		for i, in := range inputs {
			enc, err := Encode(codec, in)
			if err != nil {
				t.Fatalf("%s input %d: Encode failed: %v", codec, i, err)
			}
			dec, err := Decode(codec, enc)
			if err != nil {
				t.Fatalf("%s input %d: Decode failed: %v", codec, i, err)
			}
			if !bytes.Equal(in, dec) {
				t.Errorf("%s input %d: round trip mismatch (%d bytes in, %d out)", codec, i, len(in), len(dec))
			}
		}
	}
}

func TestLZ4IncompressibleInput(t *testing.T) {
	// High-entropy input forces the stored-raw path.
	in := make([]byte, 256)
	for i := range in {
		in[i] = byte(i*7 + 13)
	}
	enc, err := Encode(LZ4, in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	dec, err := Decode(LZ4, enc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(in, dec) {
		t.Error("incompressible round trip mismatch")
	}
}

func TestParseType(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Type
	}{
		{"none", None},
		{"", None},
		{"snappy", Snappy},
		{"lz4", LZ4},
		{"zstd", Zstd},
	} {
		got, err := ParseType(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseType(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := ParseType("brotli"); err == nil {
		t.Error("ParseType should reject unknown codecs")
	}
}

func TestTypeString(t *testing.T) {
	if Snappy.String() != "snappy" || Type(42).String() != "unknown(42)" {
		t.Errorf("String() misbehaves: %s %s", Snappy, Type(42))
	}
}
