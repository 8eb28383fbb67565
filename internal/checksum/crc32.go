// Package checksum implements the two integrity checks used by PNG: CRC-32
// over chunk type and data, and Adler-32 over zlib payloads. Both are
// incremental and table- or batch-driven.
package checksum

import (
	"hash"
	"sync"
)

// ieeePoly is the reflected CRC-32 polynomial used by PNG and zlib.
const ieeePoly = 0xedb88320

// Table is a 256-entry CRC-32 lookup table. A Table is immutable once built
// and may be shared between goroutines.
type Table [256]uint32

// NewTable computes the lookup table for the IEEE polynomial.
func NewTable() *Table {
	t := new(Table)
	for n := range t {
		c := uint32(n)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = ieeePoly ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		t[n] = c
	}
	return t
}

// IEEE returns the shared, lazily built table. It is computed once on first
// use and never written afterwards.
var IEEE = sync.OnceValue(NewTable)

// Update continues a running CRC with p. Start a new checksum with crc = 0.
func (t *Table) Update(crc uint32, p []byte) uint32 {
	crc = ^crc
	for _, b := range p {
		crc = t[byte(crc)^b] ^ (crc >> 8)
	}
	return ^crc
}

// Checksum returns the CRC-32 of p.
func (t *Table) Checksum(p []byte) uint32 {
	return t.Update(0, p)
}

// CRC32 is a hash.Hash32 over a Table.
type CRC32 struct {
	tab *Table
	crc uint32
}

var _ hash.Hash32 = (*CRC32)(nil)

// NewCRC32 returns a running CRC-32 that uses tab, or the shared table when
// tab is nil.
func NewCRC32(tab *Table) *CRC32 {
	if tab == nil {
		tab = IEEE()
	}
	return &CRC32{tab: tab}
}

func (h *CRC32) Write(p []byte) (int, error) {
	h.crc = h.tab.Update(h.crc, p)
	return len(p), nil
}

func (h *CRC32) Sum32() uint32 { return h.crc }

func (h *CRC32) Sum(b []byte) []byte {
	s := h.crc
	return append(b, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (h *CRC32) Reset()         { h.crc = 0 }
func (h *CRC32) Size() int      { return 4 }
func (h *CRC32) BlockSize() int { return 1 }
