package clr

// decodeCompressedInt decodes an ECMA-335 II.23.2 CompressedInt from the
// front of data. It returns the decoded value and the number of bytes the
// encoding occupied, or ok=false if data doesn't hold a complete encoding.
//
// Encoding, keyed off the lead byte's high bits:
//
//	0xxxxxxx                            -> 1 byte,  7 value bits
//	10xxxxxx xxxxxxxx                   -> 2 bytes, 14 value bits
//	110xxxxx xxxxxxxx xxxxxxxx xxxxxxxx -> 4 bytes, 29 value bits
func decodeCompressedInt(data []byte) (value uint32, width int, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}

	b0 := data[0]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, true
	case b0&0xC0 == 0x80:
		if len(data) < 2 {
			return 0, 0, false
		}
		return (uint32(b0&0x3F) << 8) | uint32(data[1]), 2, true
	case b0&0xE0 == 0xC0:
		if len(data) < 4 {
			return 0, 0, false
		}
		return (uint32(b0&0x1F) << 24) | (uint32(data[1]) << 16) | (uint32(data[2]) << 8) | uint32(data[3]), 4, true
	default:
		return 0, 0, false
	}
}

// encodeCompressedInt is the inverse of decodeCompressedInt, used by tests
// to exercise the round-trip invariant spec section 8 requires.
func encodeCompressedInt(v uint32) []byte {
	switch {
	case v <= 0x7F:
		return []byte{byte(v)}
	case v <= 0x3FFF:
		return []byte{byte(0x80 | (v >> 8)), byte(v)}
	default:
		return []byte{
			byte(0xC0 | (v >> 24)),
			byte(v >> 16),
			byte(v >> 8),
			byte(v),
		}
	}
}
