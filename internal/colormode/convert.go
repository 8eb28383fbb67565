package colormode

import (
	"encoding/binary"
	"image/color"

	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/oops"
)

// pixel is one color with 16-bit channels, alpha not premultiplied.
type pixel struct {
	r, g, b, a uint16
}

// Luma returns the BT.601 luminance of a 16-bit color. Equal channels map to
// themselves.
func Luma(r, g, b uint16) uint16 {
	return uint16((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

// sample reads channel k of pixel i at the mode's native depth.
func sample(buf []byte, i, k, channels, depth int) uint16 {
	switch depth {
	case 16:
		off := (i*channels + k) * 2
		return binary.BigEndian.Uint16(buf[off:])
	case 8:
		return uint16(buf[i*channels+k])
	}
	return uint16(bitio.ReadBitsMSB(buf, (i*channels+k)*depth, depth))
}

func setSample(buf []byte, i, k, channels, depth int, v uint16) {
	switch depth {
	case 16:
		off := (i*channels + k) * 2
		binary.BigEndian.PutUint16(buf[off:], v)
	case 8:
		buf[i*channels+k] = byte(v)
	default:
		pos := (i*channels + k) * depth
		for b := 0; b < depth; b++ {
			bitio.SetBitMSB(buf, pos+b, byte(v>>uint(depth-1-b)))
		}
	}
}

// widen scales a native sample to 16 bits.
func widen(v uint16, depth int) uint16 {
	switch depth {
	case 16:
		return v
	case 8:
		return v * 257
	}
	return uint16(uint32(v) * 0xffff / (1<<uint(depth) - 1))
}

// narrow keeps the top depth bits of a 16-bit sample.
func narrow(v uint16, depth int) uint16 {
	return v >> uint(16-depth)
}

type reader struct {
	m   Mode
	buf []byte
}

func (r *reader) at(i int) (pixel, error) {
	m := r.m
	d := m.BitDepth
	switch m.ColorType {
	case Palette:
		idx := int(sample(r.buf, i, 0, 1, d))
		if idx >= len(m.Palette) {
			return pixel{}, oops.New(oops.CodePaletteIndex, nil, "index %d with %d palette entries", idx, len(m.Palette))
		}
		c := m.Palette[idx]
		return pixel{uint16(c.R) * 257, uint16(c.G) * 257, uint16(c.B) * 257, uint16(c.A) * 257}, nil
	case Grey:
		v := sample(r.buf, i, 0, 1, d)
		a := uint16(0xffff)
		if m.Key != nil && v == m.Key.R {
			a = 0
		}
		g := widen(v, d)
		return pixel{g, g, g, a}, nil
	case GreyAlpha:
		g := widen(sample(r.buf, i, 0, 2, d), d)
		return pixel{g, g, g, widen(sample(r.buf, i, 1, 2, d), d)}, nil
	case RGB:
		rv, gv, bv := sample(r.buf, i, 0, 3, d), sample(r.buf, i, 1, 3, d), sample(r.buf, i, 2, 3, d)
		a := uint16(0xffff)
		if m.Key != nil && rv == m.Key.R && gv == m.Key.G && bv == m.Key.B {
			a = 0
		}
		return pixel{widen(rv, d), widen(gv, d), widen(bv, d), a}, nil
	}
	return pixel{
		widen(sample(r.buf, i, 0, 4, d), d),
		widen(sample(r.buf, i, 1, 4, d), d),
		widen(sample(r.buf, i, 2, 4, d), d),
		widen(sample(r.buf, i, 3, 4, d), d),
	}, nil
}

type writer struct {
	m   Mode
	buf []byte
	// index maps 8-bit colors to palette entries.
	index       map[color.NRGBA]int
	transparent int
}

func newWriter(m Mode, buf []byte) *writer {
	w := &writer{m: m, buf: buf, transparent: -1}
	if m.ColorType == Palette {
		w.index = make(map[color.NRGBA]int, len(m.Palette))
		for i := len(m.Palette) - 1; i >= 0; i-- {
			c := m.Palette[i]
			w.index[c] = i
			if c.A == 0 {
				w.transparent = i
			}
		}
	}
	return w
}

func (w *writer) set(i int, p pixel) error {
	m := w.m
	d := m.BitDepth
	switch m.ColorType {
	case Palette:
		c := color.NRGBA{byte(p.r >> 8), byte(p.g >> 8), byte(p.b >> 8), byte(p.a >> 8)}
		idx, ok := w.index[c]
		if !ok && c.A == 0 && w.transparent >= 0 {
			idx, ok = w.transparent, true
		}
		if !ok {
			return oops.New(oops.CodeColorNotInPalette, nil, "color %v at pixel %d", c, i)
		}
		setSample(w.buf, i, 0, 1, d, uint16(idx))
	case Grey:
		v := narrow(Luma(p.r, p.g, p.b), d)
		if m.Key != nil && p.a != 0xffff {
			v = m.Key.R
		}
		setSample(w.buf, i, 0, 1, d, v)
	case GreyAlpha:
		setSample(w.buf, i, 0, 2, d, narrow(Luma(p.r, p.g, p.b), d))
		setSample(w.buf, i, 1, 2, d, narrow(p.a, d))
	case RGB:
		rv, gv, bv := narrow(p.r, d), narrow(p.g, d), narrow(p.b, d)
		if m.Key != nil && p.a != 0xffff {
			rv, gv, bv = m.Key.R, m.Key.G, m.Key.B
		}
		setSample(w.buf, i, 0, 3, d, rv)
		setSample(w.buf, i, 1, 3, d, gv)
		setSample(w.buf, i, 2, 3, d, bv)
	case RGBA:
		setSample(w.buf, i, 0, 4, d, narrow(p.r, d))
		setSample(w.buf, i, 1, 4, d, narrow(p.g, d))
		setSample(w.buf, i, 2, 4, d, narrow(p.b, d))
		setSample(w.buf, i, 3, 4, d, narrow(p.a, d))
	}
	return nil
}

// Convert converts a w×h raw buffer from inMode to outMode. Conversions that
// lose color (colour to grey, alpha to opaque) are performed silently; a
// color missing from an output palette is an error.
func Convert(out, in []byte, outMode, inMode Mode, w, h int) error {
	if err := inMode.Validate(); err != nil {
		return err
	}
	if err := outMode.Validate(); err != nil {
		return err
	}
	if w < 0 || h < 0 {
		return oops.New(oops.CodeInvalidArgument, nil, "dimensions %dx%d", w, h)
	}
	if need := inMode.RawSize(w, h); len(in) < need {
		return oops.New(oops.CodeInvalidArgument, nil, "input has %d bytes, %v needs %d", len(in), inMode, need)
	}
	size := outMode.RawSize(w, h)
	if len(out) < size {
		return oops.New(oops.CodeInvalidArgument, nil, "output has %d bytes, %v needs %d", len(out), outMode, size)
	}
	if outMode.Equal(inMode) {
		copy(out, in[:size])
		return nil
	}
	if outMode.BitDepth < 8 {
		clear(out[:size])
	}
	r := &reader{m: inMode, buf: in}
	wr := newWriter(outMode, out)
	n := w * h
	for i := 0; i < n; i++ {
		p, err := r.at(i)
		if err != nil {
			return err
		}
		if err := wr.set(i, p); err != nil {
			return err
		}
	}
	return nil
}
