package clr

import "testing"

func TestStringsHeapGet(t *testing.T) {
	data := []byte("\x00hello\x00world\x00")
	h := newStringsHeap(data, 0x1000)

	if s, item := h.Get(0); s != "" || item.Absent {
		t.Errorf("Get(0) = %q, absent=%v; want empty string, present", s, item.Absent)
	}
	if s, item := h.Get(1); s != "hello" || item.Absent {
		t.Errorf("Get(1) = %q, absent=%v; want \"hello\", present", s, item.Absent)
	}
	if s, _ := h.Get(7); s != "world" {
		t.Errorf("Get(7) = %q, want \"world\"", s)
	}
	if _, item := h.Get(uint32(len(data)) + 10); !item.Absent {
		t.Error("Get past end of heap should be absent")
	}
}

func TestBlobHeapGet(t *testing.T) {
	// blob at offset 0: length-prefix 3, payload {0xAA, 0xBB, 0xCC}
	data := []byte{0x03, 0xAA, 0xBB, 0xCC}
	h := newBlobHeap(data, 0x2000)

	item := h.Get(0)
	if item.Absent {
		t.Fatal("Get(0) should be present")
	}
	want := []byte{0xAA, 0xBB, 0xCC}
	if string(item.Raw) != string(want) {
		t.Errorf("Get(0).Raw = %v, want %v", item.Raw, want)
	}
	if item.RVA != 0x2001 {
		t.Errorf("Get(0).RVA = 0x%x, want 0x2001", item.RVA)
	}

	if item := h.Get(100); !item.Absent {
		t.Error("out-of-range blob index should be absent")
	}
}

func TestUserStringHeapOddLengthFlagByte(t *testing.T) {
	// "hi" = 0x68 0x00 0x69 0x00 (4 bytes, UTF-16LE), plus a trailing flag
	// byte set to 1 for an odd-length (5-byte) payload -> HasNonASCII.
	payload := []byte{0x68, 0x00, 0x69, 0x00, 0x01}
	data := append([]byte{byte(len(payload))}, payload...)
	h := newUserStringHeap(data, 0x3000)

	us, ok := h.Get(0)
	if !ok {
		t.Fatal("Get(0) should succeed")
	}
	if us.Value != "hi" {
		t.Errorf("Value = %q, want \"hi\"", us.Value)
	}
	if !us.HasNonASCII {
		t.Error("HasNonASCII should be true when the flag byte is 1")
	}
}

func TestUserStringHeapEvenLengthNoFlagByte(t *testing.T) {
	// even-length payload: pure UTF-16LE, no trailing flag byte.
	payload := []byte{0x68, 0x00, 0x69, 0x00}
	data := append([]byte{byte(len(payload))}, payload...)
	h := newUserStringHeap(data, 0x3000)

	us, ok := h.Get(0)
	if !ok {
		t.Fatal("Get(0) should succeed")
	}
	if us.Value != "hi" {
		t.Errorf("Value = %q, want \"hi\"", us.Value)
	}
	if us.HasNonASCII {
		t.Error("HasNonASCII should be false with no flag byte")
	}
}

func TestGUIDHeapBoundaries(t *testing.T) {
	guid1 := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
	}
	data := append([]byte{}, guid1...)
	h := newGUIDHeap(data, 0x4000)

	if _, item := h.Get(0); !item.Absent {
		t.Error("GUIDHeap.Get(0) should be absent")
	}
	if s, item := h.Get(1); item.Absent || s == "" {
		t.Error("GUIDHeap.Get(1) should be present")
	}
	if _, item := h.Get(2); !item.Absent {
		t.Error("GUIDHeap.Get(2) (past count) should be absent")
	}
	if got, want := h.Len(), 1; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestFormatGUID(t *testing.T) {
	b := []byte{
		0x04, 0x03, 0x02, 0x01, // Data1
		0x06, 0x05, // Data2
		0x08, 0x07, // Data3
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, // Data4
	}
	got := formatGUID(b)
	want := "01020304-0506-0708-090a-0b0c0d0e0f10"
	if got != want {
		t.Errorf("formatGUID() = %q, want %q", got, want)
	}
}
