package clr

import (
	"encoding/binary"
)

const metadataSignature = 0x424A5342 // "BSJB"

// StreamHeader is one entry in the metadata root's stream directory: an
// offset (relative to the metadata root), a size, and a NUL-terminated,
// 4-byte-aligned name of at most 32 bytes.
type StreamHeader struct {
	Offset uint32
	Size   uint32
	Name   string
}

// MetadataRoot is the structure located at CLIHeader.MetaDataRVA: magic,
// version string, flags, and the stream directory. Streams are kept in
// file order; recognized-name shortcut resolution (last-one-wins, per
// spec section 4.1) is done by lastStreamNamed.
type MetadataRoot struct {
	Signature     uint32
	MajorVersion  uint16
	MinorVersion  uint16
	Reserved      uint32
	VersionLength uint32
	Version       string
	Flags         uint16
	StreamCount   uint16
	Streams       []StreamHeader

	rva  uint32
	data []byte
}

// readMetadataRoot parses the metadata root at rva within the image,
// bounded by size (the CLI header's MetaDataSize). An invalid signature
// or a directory too short to hold the fixed header is fatal; a
// truncated individual stream header is recoverable (a warning is
// raised and the directory scan stops there, keeping the streams read
// before it).
func readMetadataRoot(img peImage, rva, size uint32, sink DiagnosticSink) (*MetadataRoot, error) {
	data, err := img.GetData(rva, size)
	if err != nil {
		return nil, fatalWrap(TruncatedStructure, err, "reading metadata root")
	}
	if len(data) < 16 {
		return nil, fatalf(TruncatedStructure, "metadata root truncated: only %d bytes", len(data))
	}

	root := &MetadataRoot{rva: rva, data: data}
	root.Signature = binary.LittleEndian.Uint32(data[0:4])
	if root.Signature != metadataSignature {
		return nil, fatalf(InvalidMetadataSignature, "metadata root signature 0x%08x, want 0x%08x", root.Signature, metadataSignature)
	}
	root.MajorVersion = binary.LittleEndian.Uint16(data[4:6])
	root.MinorVersion = binary.LittleEndian.Uint16(data[6:8])
	root.Reserved = binary.LittleEndian.Uint32(data[8:12])
	root.VersionLength = binary.LittleEndian.Uint32(data[12:16])

	off := uint32(16)
	if off+root.VersionLength > uint32(len(data)) {
		return nil, fatalf(TruncatedStructure, "metadata root version string runs past end of directory")
	}
	root.Version = cStringGo(data[off : off+root.VersionLength])
	off += root.VersionLength

	if off+4 > uint32(len(data)) {
		return nil, fatalf(TruncatedStructure, "metadata root truncated before flags/stream count")
	}
	root.Flags = binary.LittleEndian.Uint16(data[off : off+2])
	root.StreamCount = binary.LittleEndian.Uint16(data[off+2 : off+4])
	off += 4

	for i := uint16(0); i < root.StreamCount; i++ {
		sh, next, ok := readStreamHeader(data, off)
		if !ok {
			sink.Warnf(TruncatedStructure, "metadata.streams", "stream header %d truncated, stopping stream directory scan", i)
			break
		}
		root.Streams = append(root.Streams, sh)
		off = next
	}

	return root, nil
}

// readStreamHeader parses one stream directory entry starting at off:
// offset (4), size (4), then a NUL-terminated name padded to a 4-byte
// boundary (including the terminator).
func readStreamHeader(data []byte, off uint32) (StreamHeader, uint32, bool) {
	if off+8 > uint32(len(data)) {
		return StreamHeader{}, off, false
	}
	sh := StreamHeader{
		Offset: binary.LittleEndian.Uint32(data[off : off+4]),
		Size:   binary.LittleEndian.Uint32(data[off+4 : off+8]),
	}
	nameStart := off + 8

	nameEnd := nameStart
	for nameEnd < uint32(len(data)) && data[nameEnd] != 0 {
		nameEnd++
	}
	if nameEnd >= uint32(len(data)) {
		return StreamHeader{}, off, false
	}
	sh.Name = string(data[nameStart:nameEnd])

	// name field occupies ceil((len+1)/4)*4 bytes from nameStart
	nameFieldLen := nameEnd + 1 - nameStart
	aligned := (nameFieldLen + 3) &^ 3
	next := nameStart + aligned
	if next > uint32(len(data)) {
		return StreamHeader{}, off, false
	}
	return sh, next, true
}

func cStringGo(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// streamData returns the raw bytes for the named stream header, bounded
// to the metadata root's own directory buffer.
func (m *MetadataRoot) streamData(sh StreamHeader) []byte {
	start := sh.Offset
	end := start + sh.Size
	if start > uint32(len(m.data)) || end > uint32(len(m.data)) || end < start {
		return nil
	}
	return m.data[start:end]
}

// streamRVA returns the absolute RVA at which a stream's bytes begin,
// used so heap items can record the RVA they were read from.
func (m *MetadataRoot) streamRVA(sh StreamHeader) uint32 {
	return m.rva + sh.Offset
}

// lastStreamNamed returns the last stream directory entry with the given
// name, per spec section 4.1's "last one wins" duplicate policy.
func (m *MetadataRoot) lastStreamNamed(name string) (StreamHeader, bool) {
	for i := len(m.Streams) - 1; i >= 0; i-- {
		if m.Streams[i].Name == name {
			return m.Streams[i], true
		}
	}
	return StreamHeader{}, false
}

// allStreamsNamed returns every stream directory entry with the given
// name, in file order, used to detect and warn about duplicates.
func (m *MetadataRoot) allStreamsNamed(name string) []StreamHeader {
	var out []StreamHeader
	for _, s := range m.Streams {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}
