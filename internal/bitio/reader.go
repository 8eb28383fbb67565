// Package bitio implements the bit cursors used by the DEFLATE codec and the
// MSB-first packed-pixel helpers used for sub-byte PNG bit depths.
package bitio

import "github.com/deepteams/png/internal/oops"

// MaxReadBits is the largest count accepted by ReadBits and Peek.
const MaxReadBits = 32

// Reader reads bit fields from a byte slice at an absolute bit position.
//
// DEFLATE packs data elements starting at the least significant bit of each
// byte, so ReadBits accumulates LSB-first. Huffman codes are packed starting
// with their most significant bit, which ReadBitsReversed undoes.
type Reader struct {
	buf    []byte
	pos    int // absolute bit position, 0 <= pos <= bitLen
	bitLen int
}

// NewReader returns a Reader over data positioned at bit 0.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data, bitLen: len(data) * 8}
}

// BitPos returns the absolute bit position.
func (r *Reader) BitPos() int { return r.pos }

// BitsLeft returns the number of unread bits.
func (r *Reader) BitsLeft() int { return r.bitLen - r.pos }

// BytePos returns the index of the byte holding the next unread bit, rounded
// up to a whole byte.
func (r *Reader) BytePos() int { return (r.pos + 7) >> 3 }

func truncated(n, left int) error {
	return oops.New(oops.CodeTruncated, nil, "need %d bits, %d left", n, left)
}

// window loads up to 32 bits starting at pos, zero padding past the end.
func (r *Reader) window(pos int) uint32 {
	i := pos >> 3
	var acc uint64
	for k := 0; k < 5 && i+k < len(r.buf); k++ {
		acc |= uint64(r.buf[i+k]) << (8 * k)
	}
	return uint32(acc >> uint(pos&7))
}

func mask(n int) uint32 {
	if n >= 32 {
		return 0xffffffff
	}
	return uint32(1)<<uint(n) - 1
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (uint32, error) {
	if r.pos >= r.bitLen {
		return 0, truncated(1, 0)
	}
	b := uint32(r.buf[r.pos>>3]>>uint(r.pos&7)) & 1
	r.pos++
	return b, nil
}

// ReadBits reads n (0..32) bits with the first bit read landing in bit 0 of
// the result.
func (r *Reader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > MaxReadBits {
		return 0, oops.New(oops.CodeInvalidArgument, nil, "bit count %d out of range", n)
	}
	if n == 0 {
		return 0, nil
	}
	if r.pos+n > r.bitLen {
		return 0, truncated(n, r.BitsLeft())
	}
	v := r.window(r.pos) & mask(n)
	r.pos += n
	return v, nil
}

// ReadBitsReversed reads n (0..32) bits with the first bit read landing in
// the most significant position of the n-bit result.
func (r *Reader) ReadBitsReversed(n int) (uint32, error) {
	v, err := r.ReadBits(n)
	if err != nil {
		return 0, err
	}
	return Reverse(v, n), nil
}

// Peek returns the next n (0..32) bits LSB-first without advancing, zero
// padded past the end of input, and the number of those bits that are real.
func (r *Reader) Peek(n int) (bits uint32, avail int) {
	avail = r.BitsLeft()
	if avail > n {
		avail = n
	}
	return r.window(r.pos) & mask(n), avail
}

// Skip advances n bits.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > r.bitLen {
		return truncated(n, r.BitsLeft())
	}
	r.pos += n
	return nil
}

// AlignToByte skips to the next byte boundary.
func (r *Reader) AlignToByte() {
	r.pos = (r.pos + 7) &^ 7
	if r.pos > r.bitLen {
		r.pos = r.bitLen
	}
}

// ReadAlignedBytes returns the next n whole bytes. The reader must be byte
// aligned. The slice aliases the input.
func (r *Reader) ReadAlignedBytes(n int) ([]byte, error) {
	if r.pos&7 != 0 {
		return nil, oops.New(oops.CodeInvalidArgument, nil, "reader not byte aligned")
	}
	i := r.pos >> 3
	if n < 0 || i+n > len(r.buf) {
		return nil, oops.New(oops.CodeTruncated, nil, "need %d bytes, %d left", n, len(r.buf)-i)
	}
	r.pos += n * 8
	return r.buf[i : i+n], nil
}

// Reverse reverses the low n bits of v.
func Reverse(v uint32, n int) uint32 {
	var out uint32
	for i := 0; i < n; i++ {
		out = out<<1 | v&1
		v >>= 1
	}
	return out
}
