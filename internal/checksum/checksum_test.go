package checksum

import (
	"hash/adler32"
	"hash/crc32"
	"math/rand"
	"testing"
)

func TestCRC32Vectors(t *testing.T) {
	tab := NewTable()
	tests := []struct {
		in   string
		want uint32
	}{
		{"", 0},
		{"123456789", 0xcbf43926},
		{"The quick brown fox jumps over the lazy dog", 0x414fa339},
		{"IEND", 0xae426082},
	}
	for _, tc := range tests {
		if got := tab.Checksum([]byte(tc.in)); got != tc.want {
			t.Errorf("CRC32(%q) = %#08x, want %#08x", tc.in, got, tc.want)
		}
	}
}

func TestCRC32Incremental(t *testing.T) {
	data := make([]byte, 10000)
	rand.New(rand.NewSource(1)).Read(data)
	tab := IEEE()
	whole := tab.Checksum(data)
	crc := uint32(0)
	for i := 0; i < len(data); i += 333 {
		end := min(i+333, len(data))
		crc = tab.Update(crc, data[i:end])
	}
	if crc != whole {
		t.Fatalf("incremental = %#08x, whole = %#08x", crc, whole)
	}
	if ref := crc32.ChecksumIEEE(data); ref != whole {
		t.Fatalf("CRC32 = %#08x, hash/crc32 = %#08x", whole, ref)
	}
}

func TestIEEEIsShared(t *testing.T) {
	if IEEE() != IEEE() {
		t.Fatal("IEEE returned different tables")
	}
	if *IEEE() != *NewTable() {
		t.Fatal("shared table differs from a fresh one")
	}
}

func TestCRC32Hash(t *testing.T) {
	h := NewCRC32(nil)
	h.Write([]byte("1234"))
	h.Write([]byte("56789"))
	if h.Sum32() != 0xcbf43926 {
		t.Fatalf("Sum32 = %#08x", h.Sum32())
	}
	sum := h.Sum(nil)
	if len(sum) != 4 || sum[0] != 0xcb || sum[3] != 0x26 {
		t.Fatalf("Sum = % x", sum)
	}
	h.Reset()
	if h.Sum32() != 0 {
		t.Fatal("Reset did not clear the running CRC")
	}
}

func TestAdler32Vectors(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"", 1},
		{"a", 0x00620062},
		{"Wikipedia", 0x11e60398},
		{"123456789", 0x091e01de},
	}
	for _, tc := range tests {
		if got := Adler32([]byte(tc.in)); got != tc.want {
			t.Errorf("Adler32(%q) = %#08x, want %#08x", tc.in, got, tc.want)
		}
	}
}

func TestAdler32LongInput(t *testing.T) {
	// Long runs of 0xff stress the deferred modulo.
	data := make([]byte, 3*adlerNMax+17)
	for i := range data {
		data[i] = 0xff
	}
	if got, want := Adler32(data), adler32.Checksum(data); got != want {
		t.Fatalf("Adler32 = %#08x, hash/adler32 = %#08x", got, want)
	}
	a := AdlerInit
	a = UpdateAdler32(a, data[:100])
	a = UpdateAdler32(a, data[100:])
	if a != Adler32(data) {
		t.Fatal("incremental Adler32 mismatch")
	}
}
