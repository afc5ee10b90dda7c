package clr

import "testing"

func TestCompressedIntRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 0x1fffffff, 12345, 65535, 65536}
	for _, v := range cases {
		encoded := encodeCompressedInt(v)
		decoded, width, ok := decodeCompressedInt(encoded)
		if !ok {
			t.Fatalf("decode(encode(%d)) failed to decode", v)
		}
		if decoded != v {
			t.Errorf("decode(encode(%d)) = %d", v, decoded)
		}
		if width != len(encoded) {
			t.Errorf("decode(encode(%d)) width = %d, want %d", v, width, len(encoded))
		}
	}
}

func TestCompressedIntWidths(t *testing.T) {
	cases := []struct {
		value uint32
		width int
	}{
		{0, 1},
		{0x7f, 1},
		{0x80, 2},
		{0x3fff, 2},
		{0x4000, 4},
		{0x1fffffff, 4},
	}
	for _, c := range cases {
		encoded := encodeCompressedInt(c.value)
		if len(encoded) != c.width {
			t.Errorf("encode(0x%x) produced %d bytes, want %d", c.value, len(encoded), c.width)
		}
	}
}

func TestDecodeCompressedIntTruncated(t *testing.T) {
	// a 2-byte-width lead byte (top two bits 10) with no second byte present.
	if _, _, ok := decodeCompressedInt([]byte{0x80}); ok {
		t.Error("decodeCompressedInt should fail on a truncated 2-byte value")
	}
	if _, _, ok := decodeCompressedInt(nil); ok {
		t.Error("decodeCompressedInt should fail on empty input")
	}
}
