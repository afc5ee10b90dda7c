package pe

import (
	"testing"
)

func TestFile_Authentihash_lengthMatchesDigest(t *testing.T) {
	// Enough trailing section bytes that SizeOfHeaders + the checksum/data
	// directory ranges parsePEHeaderLocations carves out all fit inside the
	// image, letting Authentihash walk the whole file instead of bailing out.
	data := buildMinimalPE(t, make([]byte, 1024), 0, 0)

	f, err := NewFileFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got := f.Authentihash()
	if len(got) != 32 {
		t.Fatalf("File.Authentihash() length = %d, want 32 (sha256 digest)", len(got))
	}

	md5Sum := f.AuthentihashMd5()
	if len(md5Sum) != 16 {
		t.Errorf("File.AuthentihashMd5() length = %d, want 16", len(md5Sum))
	}

	sha1Sum := f.AuthentihashSha1()
	if len(sha1Sum) != 20 {
		t.Errorf("File.AuthentihashSha1() length = %d, want 20", len(sha1Sum))
	}
}
