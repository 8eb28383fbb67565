package bitio

import "github.com/deepteams/png/internal/buffer"

// Writer accumulates bit fields LSB-first into an owned byte buffer, the
// mirror image of Reader.
type Writer struct {
	bits uint64 // pending bits, first written in bit 0
	used int    // number of valid bits in the accumulator
	buf  *buffer.Bytes
}

// NewWriter creates a Writer with room for expectedSize bytes.
func NewWriter(expectedSize int) *Writer {
	return &Writer{buf: buffer.NewBytes(expectedSize)}
}

// flush moves whole bytes from the accumulator to the buffer.
func (w *Writer) flush() {
	for w.used >= 8 {
		w.buf.Push(byte(w.bits))
		w.bits >>= 8
		w.used -= 8
	}
}

// WriteBit appends one bit.
func (w *Writer) WriteBit(bit uint32) {
	w.WriteBits(bit&1, 1)
}

// WriteBits appends the low n (0..32) bits of v, bit 0 first.
func (w *Writer) WriteBits(v uint32, n int) {
	if n == 0 {
		return
	}
	w.bits |= uint64(v&mask(n)) << uint(w.used)
	w.used += n
	if w.used >= 32 {
		w.flush()
	}
}

// WriteBitsReversed appends the low n bits of code, most significant first.
// This is how Huffman codes are placed in a DEFLATE stream.
func (w *Writer) WriteBitsReversed(code uint32, n int) {
	w.WriteBits(Reverse(code, n), n)
}

// AlignToByte pads with zero bits up to the next byte boundary.
func (w *Writer) AlignToByte() {
	if pad := w.used & 7; pad != 0 {
		w.used += 8 - pad
	}
	w.flush()
}

// WriteAlignedBytes pads to a byte boundary and appends p verbatim.
func (w *Writer) WriteAlignedBytes(p []byte) {
	w.AlignToByte()
	w.buf.Append(p...)
}

// BitLen returns the total number of bits written so far.
func (w *Writer) BitLen() int {
	return w.buf.Len()*8 + w.used
}

// Finish pads the final partial byte with zeros and returns the owned
// output. The Writer must not be used afterwards.
func (w *Writer) Finish() []byte {
	w.AlignToByte()
	out := w.buf.Detach()
	w.buf.Release()
	return out
}

// Release discards the output; used on error paths.
func (w *Writer) Release() {
	w.buf.Release()
	w.bits, w.used = 0, 0
}
