package pe

import (
	"testing"
)

func TestFile_RichHeaderHash_absentWhenNoRichSignature(t *testing.T) {
	data := buildMinimalPE(t, make([]byte, 64), 0, 0)

	f, err := NewFileFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if f.RichHeader != nil {
		t.Fatalf("expected no Rich header to be found in a synthetic image without one, got %+v", f.RichHeader)
	}
	if got := f.RichHeaderHash(); got != "" {
		t.Errorf("File.RichHeaderHash() = %q, want empty string", got)
	}
	if got := f.RichHeaderChecksum(); got != 0 {
		t.Errorf("File.RichHeaderChecksum() = %d, want 0", got)
	}
}
