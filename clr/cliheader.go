package clr

import (
	"bytes"
	"encoding/binary"

	"github.com/mlsorensen/clrdump/pe"
)

// peImage is the subset of *pe.File the CLR decoder depends on. The PE
// container parser itself is treated as an external collaborator per spec
// section 1 ("out of scope: the PE container parser... interfaces only");
// this interface is the seam, satisfied by *pe.File in production and by
// fakes in tests.
type peImage interface {
	GetData(rva, length uint32) ([]byte, error)
	ComDescriptorDirectory() (pe.DataDirectory, bool)
}

// CLIHeader is the fixed-size record ECMA-335 II.25.3.3 defines, located
// via the PE image's COM descriptor data directory.
type CLIHeader struct {
	Cb                      uint32
	MajorRuntimeVersion     uint16
	MinorRuntimeVersion     uint16
	MetaDataRVA             uint32
	MetaDataSize            uint32
	Flags                   uint32
	EntryPointToken         uint32
	ResourcesRVA            uint32
	ResourcesSize           uint32
	StrongNameSignatureRVA  uint32
	StrongNameSignatureSize uint32
	CodeManagerTableRVA     uint32
	CodeManagerTableSize    uint32
	VTableFixupsRVA         uint32
	VTableFixupsSize        uint32
	ExportAddressTableRVA   uint32
	ExportAddressTableSize  uint32
	ManagedNativeHeaderRVA  uint32
	ManagedNativeHeaderSize uint32
}

const cliHeaderSize = 72

// readCLIHeader locates and parses the CLI header. Absence of a COM
// descriptor directory, or a directory too small to hold a full header,
// is fatal: without it there is no metadata root to find.
func readCLIHeader(img peImage) (*CLIHeader, error) {
	dd, ok := img.ComDescriptorDirectory()
	if !ok {
		return nil, &FatalError{Kind: TruncatedStructure, err: ErrNoComDescriptor}
	}
	if dd.Size < cliHeaderSize {
		return nil, fatalf(TruncatedStructure, "COM descriptor directory size %d is smaller than a CLI header", dd.Size)
	}

	data, err := img.GetData(dd.VirtualAddress, cliHeaderSize)
	if err != nil {
		return nil, fatalWrap(TruncatedStructure, err, "reading CLI header")
	}
	if len(data) < cliHeaderSize {
		return nil, fatalf(TruncatedStructure, "CLI header truncated: got %d of %d bytes", len(data), cliHeaderSize)
	}

	var h CLIHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fatalWrap(TruncatedStructure, err, "decoding CLI header")
	}
	if h.MetaDataRVA == 0 {
		return nil, fatalf(TruncatedStructure, "CLI header has no metadata directory RVA")
	}
	return &h, nil
}
