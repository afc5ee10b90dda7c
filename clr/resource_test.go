package clr

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/mlsorensen/clrdump/pe"
)

func encode7BitInt(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		out = append(out, b)
		return out
	}
}

func encode7BitString(s string) []byte {
	out := encode7BitInt(uint32(len(s)))
	return append(out, []byte(s)...)
}

func utf16leBytes(s string) []byte {
	var buf bytes.Buffer
	for _, u := range utf16.Encode([]rune(s)) {
		binary.Write(&buf, binary.LittleEndian, u)
	}
	return buf.Bytes()
}

// buildResourceSet assembles a single-entry .resources payload (magic,
// header, one reader type, one declared type, one named entry) whose
// value is the raw bytes for typeName, per spec section 4.6's field
// order. The data section for the one entry is placed immediately after
// the name section.
func buildResourceSet(t *testing.T, entryName, typeName string, valueBytes []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	u32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }

	u32(resourceSetMagic)
	u32(1) // header version
	u32(1) // reader count

	readerType := encode7BitString("X")
	u32(uint32(len(readerType)))
	buf.Write(readerType)

	u32(2) // format version
	u32(1) // resource count
	u32(1) // type count
	buf.Write(encode7BitString(typeName))

	for buf.Len()%8 != 0 {
		buf.WriteByte(0)
	}

	// name hash (unused by the decoder's value interpretation, arbitrary)
	u32(0xCAFEF00D)
	// name pointer: offset 0 into the name section
	u32(0)

	nameBytes := utf16leBytes(entryName)
	nameEntry := append(encodeCompressedInt(uint32(len(nameBytes))), nameBytes...)
	nameEntry = append(nameEntry, 0, 0, 0, 0) // data offset placeholder, patched below

	dataEntry := append(encodeCompressedInt(0), valueBytes...) // typeIndex=0

	// data-section offset is absolute within the resource set, right
	// after the name section.
	dataSectionOffset := uint32(buf.Len() + 4 + len(nameEntry))
	u32(dataSectionOffset)

	binary.LittleEndian.PutUint32(nameEntry[len(nameEntry)-4:], 0) // data offset relative to data section start
	buf.Write(nameEntry)
	buf.Write(dataEntry)

	return buf.Bytes()
}

func TestParseResourceSetStringEntry(t *testing.T) {
	valueBytes := append(encodeCompressedInt(uint32(len("hello"))), []byte("hello")...)
	data := buildResourceSet(t, "greeting", "System.String", valueBytes)

	rs, err := parseResourceSet(data, newMemorySink())
	if err != nil {
		t.Fatalf("parseResourceSet failed: %v", err)
	}
	if len(rs.Entries) != 1 {
		t.Fatalf("got %d entries, want 1 (ResourceCount invariant)", len(rs.Entries))
	}
	entry := rs.Entries[0]
	if entry.Name != "greeting" {
		t.Errorf("entry.Name = %q, want %q", entry.Name, "greeting")
	}
	if entry.Warning != "" {
		t.Fatalf("unexpected warning: %s", entry.Warning)
	}
	got, ok := entry.Data.(string)
	if !ok || got != "hello" {
		t.Errorf("entry.Data = %#v, want \"hello\"", entry.Data)
	}
}

func TestParseResourceSetEntryCountMatchesHeader(t *testing.T) {
	valueBytes := append(encodeCompressedInt(uint32(len("x"))), []byte("x")...)
	data := buildResourceSet(t, "k", "System.String", valueBytes)
	rs, err := parseResourceSet(data, newMemorySink())
	if err != nil {
		t.Fatalf("parseResourceSet failed: %v", err)
	}
	if uint32(len(rs.Entries)) != rs.ResourceCount {
		t.Errorf("len(entries) = %d, header.ResourceCount = %d", len(rs.Entries), rs.ResourceCount)
	}
}

func TestDecodeInternalResourceRawBytesFallback(t *testing.T) {
	// payload that does not begin with the .resources magic should be
	// treated as a raw byte blob of the declared size, not parsed further.
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}
	img := &fakeResourceImage{
		data: buildInternalResourceBlob(payload),
	}
	sink := newMemorySink()
	res := &ClrResource{Offset: 0}
	header := &CLIHeader{ResourcesRVA: 0}

	decodeInternalResource(res, header, img, sink)

	if res.Set != nil {
		t.Fatal("non-magic payload should not decode as a ResourceSet")
	}
	if string(res.Raw) != string(payload) {
		t.Errorf("Raw = %v, want %v", res.Raw, payload)
	}
}

// buildInternalResourceBlob prepends the 4-byte little-endian size prefix
// ManifestResource's internal layout uses ahead of the raw payload.
func buildInternalResourceBlob(payload []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

// fakeResourceImage is a minimal peImage whose GetData reads directly out
// of a flat byte buffer, with RVA treated as a plain byte offset.
type fakeResourceImage struct {
	data []byte
}

func (f *fakeResourceImage) GetData(rva, length uint32) ([]byte, error) {
	if uint64(rva)+uint64(length) > uint64(len(f.data)) {
		return nil, errShort("fakeResourceImage out of range")
	}
	return f.data[rva : rva+length], nil
}

func (f *fakeResourceImage) ComDescriptorDirectory() (pe.DataDirectory, bool) {
	return pe.DataDirectory{}, false
}
