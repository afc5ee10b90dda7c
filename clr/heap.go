package clr

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// HeapItem is the common shape every heap lookup returns: the raw bytes
// read, an RVA marking where they came from, and an Absent flag. Out of
// range lookups return a HeapItem with Absent set rather than failing
// the parse, per spec section 4.2.
type HeapItem struct {
	Raw    []byte
	RVA    uint32
	Absent bool
}

// StringsHeap is the #Strings heap: NUL-terminated UTF-8 strings indexed
// by byte offset from the start of the heap.
type StringsHeap struct {
	data []byte
	rva  uint32
}

func newStringsHeap(data []byte, rva uint32) *StringsHeap {
	return &StringsHeap{data: data, rva: rva}
}

// Get returns the decoded string at byte offset index, or an absent item
// if index is out of range. Get(0) yields an empty string, per spec.
func (h *StringsHeap) Get(index uint32) (string, HeapItem) {
	if h == nil || index >= uint32(len(h.data)) {
		return "", HeapItem{Absent: true}
	}
	end := index
	for end < uint32(len(h.data)) && h.data[end] != 0 {
		end++
	}
	raw := h.data[index:end]
	return string(raw), HeapItem{Raw: raw, RVA: h.rva + index}
}

// BlobHeap is the #Blob heap: each entry is a CompressedInt length prefix
// followed by that many raw bytes, indexed by the byte offset of the
// length prefix.
type BlobHeap struct {
	data []byte
	rva  uint32
}

func newBlobHeap(data []byte, rva uint32) *BlobHeap {
	return &BlobHeap{data: data, rva: rva}
}

// Get returns the blob's payload bytes at byte offset index (the offset
// of the CompressedInt length prefix), or an absent item if the prefix
// or payload runs past the end of the heap.
func (h *BlobHeap) Get(index uint32) HeapItem {
	if h == nil || index >= uint32(len(h.data)) {
		return HeapItem{Absent: true}
	}
	length, width, ok := decodeCompressedInt(h.data[index:])
	if !ok {
		return HeapItem{Absent: true}
	}
	start := index + uint32(width)
	end := start + length
	if end < start || end > uint32(len(h.data)) {
		return HeapItem{Absent: true}
	}
	return HeapItem{Raw: h.data[start:end], RVA: h.rva + start}
}

// UserStringHeap is the #US heap: each entry is a CompressedInt length
// prefix, that many bytes of UTF-16LE, and a trailing flag byte
// indicating whether the string contains non-ASCII characters.
type UserStringHeap struct {
	data []byte
	rva  uint32
}

func newUserStringHeap(data []byte, rva uint32) *UserStringHeap {
	return &UserStringHeap{data: data, rva: rva}
}

// UserString is a decoded #US entry.
type UserString struct {
	Value      string
	HasNonASCII bool
	Item       HeapItem
}

// Get decodes the user string at byte offset index.
func (h *UserStringHeap) Get(index uint32) (UserString, bool) {
	if h == nil || index >= uint32(len(h.data)) {
		return UserString{}, false
	}
	length, width, ok := decodeCompressedInt(h.data[index:])
	if !ok || length == 0 {
		if ok && length == 0 {
			return UserString{Item: HeapItem{RVA: h.rva + index}}, true
		}
		return UserString{}, false
	}
	start := index + uint32(width)
	end := start + length
	if end < start || end > uint32(len(h.data)) {
		return UserString{}, false
	}
	payload := h.data[start:end]

	// The original dnfile source splits off a trailing flag byte only
	// when the payload length is odd; an even-length payload is treated
	// as pure UTF-16LE with no flag byte.
	hasFlag := length%2 == 1
	utf16Bytes := payload
	var hasNonASCII bool
	if hasFlag {
		utf16Bytes = payload[:len(payload)-1]
		hasNonASCII = payload[len(payload)-1] != 0
	}

	u16 := make([]uint16, len(utf16Bytes)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(utf16Bytes[i*2:])
	}
	value := string(utf16.Decode(u16))

	return UserString{
		Value:       value,
		HasNonASCII: hasNonASCII,
		Item:        HeapItem{Raw: payload, RVA: h.rva + start},
	}, true
}

// GUIDHeap is the #GUID heap: fixed 16-byte records, addressed by
// 1-based index (index 0 means "absent"). Also exposes a 0-based
// sequence view for ergonomic iteration.
type GUIDHeap struct {
	data []byte
	rva  uint32
}

func newGUIDHeap(data []byte, rva uint32) *GUIDHeap {
	return &GUIDHeap{data: data, rva: rva}
}

// Get returns the formatted GUID string for the 1-based index, or
// ("", absent) if index is 0 or out of range.
func (h *GUIDHeap) Get(index uint32) (string, HeapItem) {
	if h == nil || index == 0 {
		return "", HeapItem{Absent: true}
	}
	offset := (index - 1) * 16
	if offset+16 > uint32(len(h.data)) {
		return "", HeapItem{Absent: true}
	}
	raw := h.data[offset : offset+16]
	return formatGUID(raw), HeapItem{Raw: raw, RVA: h.rva + offset}
}

// Len returns the number of GUID records in the heap (heap size / 16).
func (h *GUIDHeap) Len() int {
	if h == nil {
		return 0
	}
	return len(h.data) / 16
}

// At returns the 0-based sequence view's i'th GUID.
func (h *GUIDHeap) At(i int) (string, HeapItem) {
	return h.Get(uint32(i) + 1)
}

// formatGUID renders a 16-byte GUID record (Data1/Data2/Data3 stored
// little-endian, Data4 stored as 8 raw bytes) as the standard
// "dddddddd-dddd-dddd-dddd-dddddddddddd" textual form.
func formatGUID(b []byte) string {
	data1 := binary.LittleEndian.Uint32(b[0:4])
	data2 := binary.LittleEndian.Uint16(b[4:6])
	data3 := binary.LittleEndian.Uint16(b[6:8])
	return fmt.Sprintf("%08x-%04x-%04x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		data1, data2, data3,
		b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
}
