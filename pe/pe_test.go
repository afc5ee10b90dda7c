package pe

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMinimalPE assembles a minimal, well-formed 32-bit PE image with a
// single ".text" section and, when comDescriptorRVA/Size are non-zero, a
// populated IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR entry pointing into it.
// Test fixtures throughout this package are built this way instead of from
// on-disk sample binaries.
func buildMinimalPE(t *testing.T, sectionData []byte, comDescriptorRVA, comDescriptorSize uint32) []byte {
	t.Helper()

	const (
		dosHeaderSize   = 64
		numDataDirs     = 16
		sectionVA       = 0x2000
		sectionFileOff  = 0x200
		fileAlignment   = 0x200
		sectionAlign    = 0x1000
		optHeaderFixed  = 96 // OptionalHeader32 fixed fields, ending at NumberOfRvaAndSizes
		peHeaderOffset  = dosHeaderSize
	)

	buf := new(bytes.Buffer)

	// DOS header: only Magic and AddressOfNewEXEHeader matter to the parser.
	dos := make([]byte, dosHeaderSize)
	binary.LittleEndian.PutUint16(dos[0:2], ImageDOSSignature)
	binary.LittleEndian.PutUint32(dos[60:64], peHeaderOffset)
	buf.Write(dos)

	// PE signature + FileHeader.
	binary.Write(buf, binary.LittleEndian, uint32(ImageNTHeaderSignature))
	fh := FileHeader{
		Machine:              0x014c, // IMAGE_FILE_MACHINE_I386
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(optHeaderFixed + numDataDirs*8),
		Characteristics:      0x0102,
	}
	binary.Write(buf, binary.LittleEndian, fh)

	oh := OptionalHeader32{
		Magic:               0x10b,
		SectionAlignment:    sectionAlign,
		FileAlignment:       fileAlignment,
		ImageBase:           0x400000,
		SizeOfImage:         sectionVA + sectionAlign,
		SizeOfHeaders:       sectionFileOff,
		NumberOfRvaAndSizes: numDataDirs,
	}
	oh.DataDirectory[ImageDirectoryEntryComDescriptor] = DataDirectory{
		VirtualAddress: comDescriptorRVA,
		Size:           comDescriptorSize,
	}

	binary.Write(buf, binary.LittleEndian, oh.Magic)
	binary.Write(buf, binary.LittleEndian, oh.MajorLinkerVersion)
	binary.Write(buf, binary.LittleEndian, oh.MinorLinkerVersion)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfCode)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfInitializedData)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfUninitializedData)
	binary.Write(buf, binary.LittleEndian, oh.AddressOfEntryPoint)
	binary.Write(buf, binary.LittleEndian, oh.BaseOfCode)
	binary.Write(buf, binary.LittleEndian, oh.BaseOfData)
	binary.Write(buf, binary.LittleEndian, oh.ImageBase)
	binary.Write(buf, binary.LittleEndian, oh.SectionAlignment)
	binary.Write(buf, binary.LittleEndian, oh.FileAlignment)
	binary.Write(buf, binary.LittleEndian, oh.MajorOperatingSystemVersion)
	binary.Write(buf, binary.LittleEndian, oh.MinorOperatingSystemVersion)
	binary.Write(buf, binary.LittleEndian, oh.MajorImageVersion)
	binary.Write(buf, binary.LittleEndian, oh.MinorImageVersion)
	binary.Write(buf, binary.LittleEndian, oh.MajorSubsystemVersion)
	binary.Write(buf, binary.LittleEndian, oh.MinorSubsystemVersion)
	binary.Write(buf, binary.LittleEndian, oh.Win32VersionValue)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfImage)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfHeaders)
	binary.Write(buf, binary.LittleEndian, oh.CheckSum)
	binary.Write(buf, binary.LittleEndian, oh.Subsystem)
	binary.Write(buf, binary.LittleEndian, oh.DllCharacteristics)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfStackReserve)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfStackCommit)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfHeapReserve)
	binary.Write(buf, binary.LittleEndian, oh.SizeOfHeapCommit)
	binary.Write(buf, binary.LittleEndian, oh.LoaderFlags)
	binary.Write(buf, binary.LittleEndian, oh.NumberOfRvaAndSizes)
	binary.Write(buf, binary.LittleEndian, oh.DataDirectory)

	sh := SectionHeader32{
		VirtualSize:      uint32(len(sectionData)),
		VirtualAddress:   sectionVA,
		SizeOfRawData:    uint32(len(sectionData)),
		PointerToRawData: sectionFileOff,
	}
	copy(sh.Name[:], ".text")
	binary.Write(buf, binary.LittleEndian, sh)

	// pad out to the section's file offset, then write section data.
	for uint32(buf.Len()) < sectionFileOff {
		buf.WriteByte(0)
	}
	buf.Write(sectionData)

	return buf.Bytes()
}

func TestNewFileFromBytes_minimalPE(t *testing.T) {
	data := buildMinimalPE(t, make([]byte, 64), 0, 0)

	f, err := NewFileFromBytes(data)
	if err != nil {
		t.Fatalf("NewFileFromBytes() error = %v", err)
	}
	defer f.Close()

	if !f.Is32 {
		t.Errorf("expected a 32-bit image")
	}
	if len(f.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(f.Sections))
	}
	if f.Sections[0].Name != ".text" {
		t.Errorf("Sections[0].Name = %q, want .text", f.Sections[0].Name)
	}
}

func TestFile_GetData_translatesRVA(t *testing.T) {
	payload := []byte("clr-metadata-payload")
	sectionData := make([]byte, 64)
	copy(sectionData, payload)

	data := buildMinimalPE(t, sectionData, 0, 0)
	f, err := NewFileFromBytes(data)
	if err != nil {
		t.Fatalf("NewFileFromBytes() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetData(0x2000, uint32(len(payload)))
	if err != nil {
		t.Fatalf("GetData() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("GetData() = %q, want %q", got, payload)
	}
}

func TestFile_ComDescriptorDirectory(t *testing.T) {
	data := buildMinimalPE(t, make([]byte, 64), 0x2010, 0x48)

	f, err := NewFileFromBytes(data)
	if err != nil {
		t.Fatalf("NewFileFromBytes() error = %v", err)
	}
	defer f.Close()

	dd, ok := f.ComDescriptorDirectory()
	if !ok {
		t.Fatal("ComDescriptorDirectory() reported absent")
	}
	if dd.VirtualAddress != 0x2010 || dd.Size != 0x48 {
		t.Errorf("ComDescriptorDirectory() = %+v, want {0x2010 0x48}", dd)
	}
}

func TestFile_ComDescriptorDirectory_absent(t *testing.T) {
	data := buildMinimalPE(t, make([]byte, 64), 0, 0)

	f, err := NewFileFromBytes(data)
	if err != nil {
		t.Fatalf("NewFileFromBytes() error = %v", err)
	}
	defer f.Close()

	if _, ok := f.ComDescriptorDirectory(); ok {
		t.Error("ComDescriptorDirectory() reported present for a zeroed entry")
	}
}
