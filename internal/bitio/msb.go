package bitio

// PNG packs sub-byte samples starting at the most significant bit of each
// byte. These helpers address such a stream by absolute bit position.

// ReadBitMSB returns bit pos of an MSB-first packed stream.
func ReadBitMSB(buf []byte, pos int) byte {
	return (buf[pos>>3] >> uint(7-pos&7)) & 1
}

// ReadBitsMSB returns n bits starting at pos, first bit most significant.
func ReadBitsMSB(buf []byte, pos, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(ReadBitMSB(buf, pos+i))
	}
	return v
}

// SetBitMSB sets bit pos of an MSB-first packed stream to bit (0 or 1).
func SetBitMSB(buf []byte, pos int, bit byte) {
	m := byte(1) << uint(7-pos&7)
	if bit&1 != 0 {
		buf[pos>>3] |= m
	} else {
		buf[pos>>3] &^= m
	}
}

// CopyBitsMSB copies n bits from src at srcPos to dst at dstPos.
func CopyBitsMSB(dst []byte, dstPos int, src []byte, srcPos, n int) {
	for i := 0; i < n; i++ {
		SetBitMSB(dst, dstPos+i, ReadBitMSB(src, srcPos+i))
	}
}

// PadRows copies h rows of lineBits bits each from the tightly packed in to
// out, starting every row of out on a byte boundary. Padding bits are zero.
func PadRows(out, in []byte, lineBits, h int) {
	stride := (lineBits + 7) / 8
	if lineBits%8 == 0 {
		copy(out, in[:h*stride])
		return
	}
	clear(out[:h*stride])
	for y := 0; y < h; y++ {
		CopyBitsMSB(out, y*stride*8, in, y*lineBits, lineBits)
	}
}

// UnpadRows is the inverse of PadRows.
func UnpadRows(out, in []byte, lineBits, h int) {
	stride := (lineBits + 7) / 8
	if lineBits%8 == 0 {
		copy(out, in[:h*stride])
		return
	}
	clear(out[:(h*lineBits+7)/8])
	for y := 0; y < h; y++ {
		CopyBitsMSB(out, y*lineBits, in, y*stride*8, lineBits)
	}
}
