package deflate

import (
	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/huffman"
	"github.com/deepteams/png/internal/lz77"
	"github.com/deepteams/png/internal/oops"
)

// Decoder inflates one DEFLATE stream held in memory.
type Decoder struct {
	r      *bitio.Reader
	out    *buffer.Bytes
	maxOut int

	fixedLit, fixedDist *huffman.Tree
}

// NewDecoder returns a Decoder over data. A positive maxOut bounds the
// inflated size; exceeding it fails with CodeTooLarge.
func NewDecoder(data []byte, maxOut int) *Decoder {
	return &Decoder{r: bitio.NewReader(data), maxOut: maxOut}
}

// Decompress inflates a complete DEFLATE stream.
func Decompress(data []byte) ([]byte, error) {
	return NewDecoder(data, 0).Decode()
}

// DecompressLimit is Decompress with an output size limit.
func DecompressLimit(data []byte, maxOut int) ([]byte, error) {
	return NewDecoder(data, maxOut).Decode()
}

// Consumed returns the number of input bytes used by the stream so far,
// counting a partially read final byte.
func (d *Decoder) Consumed() int { return d.r.BytePos() }

// Decode inflates blocks until the final one. The returned slice is owned by
// the caller; on error nothing is returned.
func (d *Decoder) Decode() ([]byte, error) {
	hint := d.r.BitsLeft() / 8 * 3
	if d.maxOut > 0 {
		hint = min(hint, d.maxOut)
	}
	d.out = buffer.NewBytes(hint)
	for {
		final, err := d.r.ReadBit()
		if err != nil {
			d.out.Release()
			return nil, err
		}
		btype, err := d.r.ReadBits(2)
		if err != nil {
			d.out.Release()
			return nil, err
		}
		switch btype {
		case btypeStored:
			err = d.stored()
		case btypeFixed:
			if d.fixedLit == nil {
				d.fixedLit, d.fixedDist = huffman.FixedLitLen(), huffman.FixedDist()
			}
			err = d.huffmanBlock(d.fixedLit, d.fixedDist)
		case btypeDynamic:
			var lit, dist *huffman.Tree
			if lit, dist, err = d.readTrees(); err == nil {
				err = d.huffmanBlock(lit, dist)
			}
		default:
			err = oops.New(oops.CodeMalformedDeflate, nil, "reserved block type 3")
		}
		if err != nil {
			d.out.Release()
			return nil, err
		}
		if final == 1 {
			break
		}
	}
	out := d.out.Detach()
	d.out.Release()
	return out, nil
}

func (d *Decoder) grow(n int) error {
	if d.maxOut > 0 && d.out.Len()+n > d.maxOut {
		return oops.New(oops.CodeTooLarge, nil, "inflated data exceeds %d bytes", d.maxOut)
	}
	return nil
}

func (d *Decoder) stored() error {
	d.r.AlignToByte()
	hdr, err := d.r.ReadAlignedBytes(4)
	if err != nil {
		return err
	}
	n := int(hdr[0]) | int(hdr[1])<<8
	nlen := int(hdr[2]) | int(hdr[3])<<8
	if n != ^nlen&0xffff {
		return oops.New(oops.CodeMalformedDeflate, nil, "stored block length %#04x does not match complement %#04x", n, nlen)
	}
	if err := d.grow(n); err != nil {
		return err
	}
	p, err := d.r.ReadAlignedBytes(n)
	if err != nil {
		return err
	}
	d.out.Append(p...)
	return nil
}

// readTrees reads a dynamic block's code-length code and the two trees it
// transmits.
func (d *Decoder) readTrees() (lit, dist *huffman.Tree, err error) {
	v, err := d.r.ReadBits(14)
	if err != nil {
		return nil, nil, err
	}
	hlit := int(v&0x1f) + 257
	hdist := int(v>>5&0x1f) + 1
	hclen := int(v>>10) + 4
	if hlit > lz77.NumLitLenSymbols {
		return nil, nil, oops.New(oops.CodeMalformedDeflate, nil, "HLIT %d", hlit)
	}
	if hdist > lz77.NumDistanceSymbols {
		return nil, nil, oops.New(oops.CodeMalformedDeflate, nil, "HDIST %d", hdist)
	}

	var clLengths [numCodeLengthSymbols]uint8
	for i := 0; i < hclen; i++ {
		l, err := d.r.ReadBits(3)
		if err != nil {
			return nil, nil, err
		}
		clLengths[codeLengthOrder[i]] = uint8(l)
	}
	cl, err := huffman.FromLengths(clLengths[:], huffman.MaxCodeLengthBits)
	if err != nil {
		return nil, nil, err
	}

	lengths := make([]uint8, hlit+hdist)
	for i := 0; i < len(lengths); {
		sym, err := cl.Decode(d.r)
		if err != nil {
			return nil, nil, err
		}
		if sym < 16 {
			lengths[i] = uint8(sym)
			i++
			continue
		}
		var val uint8
		var rep uint32
		switch sym {
		case 16:
			if i == 0 {
				return nil, nil, oops.New(oops.CodeMalformedDeflate, nil, "repeat code with no previous length")
			}
			val = lengths[i-1]
			rep, err = d.r.ReadBits(2)
			rep += 3
		case 17:
			rep, err = d.r.ReadBits(3)
			rep += 3
		default:
			rep, err = d.r.ReadBits(7)
			rep += 11
		}
		if err != nil {
			return nil, nil, err
		}
		if i+int(rep) > len(lengths) {
			return nil, nil, oops.New(oops.CodeMalformedDeflate, nil, "code lengths overrun HLIT+HDIST")
		}
		for ; rep > 0; rep-- {
			lengths[i] = val
			i++
		}
	}
	if lengths[lz77.EndOfBlock] == 0 {
		return nil, nil, oops.New(oops.CodeMalformedDeflate, nil, "end-of-block symbol has no code")
	}
	if lit, err = huffman.FromLengths(lengths[:hlit], huffman.MaxBits); err != nil {
		return nil, nil, err
	}
	if dist, err = huffman.FromLengths(lengths[hlit:], huffman.MaxBits); err != nil {
		return nil, nil, err
	}
	return lit, dist, nil
}

// huffmanBlock decodes symbols until end-of-block.
func (d *Decoder) huffmanBlock(lit, dist *huffman.Tree) error {
	for {
		sym, err := lit.Decode(d.r)
		if err != nil {
			return err
		}
		if sym < lz77.EndOfBlock {
			if err := d.grow(1); err != nil {
				return err
			}
			d.out.Push(byte(sym))
			continue
		}
		if sym == lz77.EndOfBlock {
			return nil
		}

		li := sym - lz77.FirstLengthSymbol
		if li >= len(lz77.LengthBase) {
			return oops.New(oops.CodeMalformedDeflate, nil, "invalid length symbol %d", sym)
		}
		extra, err := d.r.ReadBits(int(lz77.LengthExtra[li]))
		if err != nil {
			return err
		}
		length := int(lz77.LengthBase[li]) + int(extra)

		dc, err := dist.Decode(d.r)
		if err != nil {
			return err
		}
		if dc >= len(lz77.DistanceBase) {
			return oops.New(oops.CodeMalformedDeflate, nil, "invalid distance code %d", dc)
		}
		extra, err = d.r.ReadBits(int(lz77.DistanceExtra[dc]))
		if err != nil {
			return err
		}
		distance := int(lz77.DistanceBase[dc]) + int(extra)
		if distance > d.out.Len() {
			return oops.New(oops.CodeMalformedDeflate, nil, "distance %d exceeds %d bytes of output", distance, d.out.Len())
		}
		if err := d.grow(length); err != nil {
			return err
		}
		d.copyBack(distance, length)
	}
}

// copyBack appends length bytes starting distance bytes back. Overlapping
// copies repeat the pattern.
func (d *Decoder) copyBack(distance, length int) {
	start := d.out.Len()
	d.out.Resize(start + length)
	buf := d.out.Slice()
	src := start - distance
	if distance >= length {
		copy(buf[start:], buf[src:src+length])
		return
	}
	for i := 0; i < length; i++ {
		buf[start+i] = buf[src+i]
	}
}
