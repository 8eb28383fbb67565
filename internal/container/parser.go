package container

import (
	"bytes"
	"image/color"

	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/checksum"
	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/oops"
)

// File is a parsed PNG stream.
type File struct {
	Header Header

	// Palette is the PLTE chunk with tRNS alpha merged in. Truecolor images
	// may carry a suggested palette.
	Palette []color.NRGBA

	// Key is the tRNS color of grey and RGB images.
	Key *colormode.Key

	Info Info

	// IDAT is the concatenation of all IDAT payloads.
	IDAT []byte

	// Entries lists every chunk read, in order.
	Entries []Entry
}

// Entry records one chunk seen by Parse.
type Entry struct {
	Type   Type
	Offset int
	Length int
	CRCOK  bool
}

// Mode returns the pixel format described by the header, palette and key.
func (f *File) Mode() colormode.Mode {
	m := colormode.New(f.Header.ColorType, f.Header.BitDepth)
	if f.Header.ColorType == colormode.Palette {
		m.Palette = f.Palette
	}
	if f.Key != nil {
		k := *f.Key
		m.Key = &k
	}
	return m
}

// ParseOptions controls Parse.
type ParseOptions struct {
	// CRC is the table used to check chunks. Nil uses checksum.IEEE().
	CRC *checksum.Table

	// IgnoreCRC accepts chunks whose CRC does not match.
	IgnoreCRC bool

	// IgnoreText skips tEXt, zTXt and iTXt without decoding them.
	IgnoreText bool

	// KeepUnknown stores unrecognized ancillary chunks in Info.Unknown.
	KeepUnknown bool

	// HeaderOnly stops after IHDR, PLTE and tRNS; IDAT is not required.
	HeaderOnly bool
}

// parse positions, used for ordering checks and unknown chunk placement.
const (
	posBeforePLTE = iota
	posBeforeIDAT
	posAfterIDAT
)

type parser struct {
	opts ParseOptions
	f    *File
	seen map[Type]bool
	pos  int
	// inIDAT is set while the current run of IDAT chunks continues.
	inIDAT bool
	idat   *buffer.Bytes
}

// Parse reads a complete PNG stream. Data after IEND is ignored.
func Parse(data []byte, opts ParseOptions) (*File, error) {
	if opts.CRC == nil {
		opts.CRC = checksum.IEEE()
	}
	if len(data) < SignatureSize {
		return nil, oops.New(oops.CodeTruncated, nil, "%d bytes cannot hold a PNG signature", len(data))
	}
	if !bytes.Equal(data[:SignatureSize], Signature[:]) {
		return nil, oops.New(oops.CodeBadSignature, nil, "")
	}
	p := &parser{opts: opts, f: &File{}, seen: make(map[Type]bool), idat: buffer.NewBytes(0)}
	off := SignatureSize
	for {
		if off >= len(data) {
			if opts.HeaderOnly && p.seen[TypeIHDR] {
				return p.f, nil
			}
			return nil, oops.New(oops.CodeTruncated, nil, "stream ends without IEND")
		}
		c, n, crcOK, err := readChunk(data[off:], opts.CRC, opts.IgnoreCRC)
		if err != nil {
			if opts.HeaderOnly && p.seen[TypeIHDR] && oops.Is(err, oops.CodeTruncated) {
				return p.f, nil
			}
			return nil, err
		}
		p.f.Entries = append(p.f.Entries, Entry{Type: c.Type, Offset: off, Length: len(c.Data), CRCOK: crcOK})
		off += n
		done, err := p.chunk(c)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	p.f.IDAT = p.idat.Detach()
	return p.f, nil
}

func (p *parser) once(t Type) error {
	if p.seen[t] {
		return oops.New(oops.CodeDuplicateChunk, nil, "second %v chunk", t)
	}
	p.seen[t] = true
	return nil
}

// beforeIDAT rejects chunks that must precede the image data.
func (p *parser) beforeIDAT(t Type) error {
	if p.pos == posAfterIDAT || p.inIDAT {
		return oops.New(oops.CodeChunkOrder, nil, "%v after IDAT", t)
	}
	return nil
}

// chunk processes one chunk and reports whether parsing is complete.
func (p *parser) chunk(c Chunk) (bool, error) {
	f := p.f
	if !p.seen[TypeIHDR] && c.Type != TypeIHDR {
		return false, oops.New(oops.CodeMissingChunk, nil, "first chunk is %v, not IHDR", c.Type)
	}
	if c.Type != TypeIDAT && p.inIDAT {
		p.inIDAT = false
		p.pos = posAfterIDAT
	}
	if p.opts.HeaderOnly && p.seen[TypeIHDR] {
		switch c.Type {
		case TypePLTE, TypeTRNS:
		default:
			return true, nil
		}
	}

	switch c.Type {
	case TypeIHDR:
		if err := p.once(c.Type); err != nil {
			return false, err
		}
		h, err := ParseHeader(c.Data)
		if err != nil {
			return false, err
		}
		f.Header = h

	case TypePLTE:
		if err := p.once(c.Type); err != nil {
			return false, err
		}
		if err := p.beforeIDAT(c.Type); err != nil {
			return false, err
		}
		if p.seen[TypeTRNS] || p.seen[TypeBKGD] {
			return false, oops.New(oops.CodeChunkOrder, nil, "PLTE after tRNS or bKGD")
		}
		if f.Header.ColorType == colormode.Grey || f.Header.ColorType == colormode.GreyAlpha {
			return false, oops.New(oops.CodeMalformedChunk, nil, "PLTE in a greyscale image")
		}
		n := len(c.Data) / 3
		if len(c.Data)%3 != 0 || n == 0 || n > colormode.MaxPaletteColors {
			return false, oops.New(oops.CodeMalformedChunk, nil, "PLTE has %d bytes", len(c.Data))
		}
		if f.Header.ColorType == colormode.Palette && n > 1<<uint(f.Header.BitDepth) {
			return false, oops.New(oops.CodeMalformedChunk, nil, "%d palette entries at bit depth %d", n, f.Header.BitDepth)
		}
		f.Palette = make([]color.NRGBA, n)
		for i := range f.Palette {
			f.Palette[i] = color.NRGBA{c.Data[3*i], c.Data[3*i+1], c.Data[3*i+2], 0xff}
		}
		p.pos = posBeforeIDAT

	case TypeTRNS:
		if err := p.once(c.Type); err != nil {
			return false, err
		}
		if err := p.beforeIDAT(c.Type); err != nil {
			return false, err
		}
		if err := p.transparency(c.Data); err != nil {
			return false, err
		}

	case TypeIDAT:
		if p.pos == posAfterIDAT {
			return false, oops.New(oops.CodeChunkOrder, nil, "IDAT chunks are not consecutive")
		}
		if f.Header.ColorType == colormode.Palette && f.Palette == nil {
			return false, oops.New(oops.CodeMissingChunk, nil, "palette image without PLTE")
		}
		p.seen[TypeIDAT] = true
		p.inIDAT = true
		p.idat.Append(c.Data...)

	case TypeIEND:
		if !p.seen[TypeIDAT] {
			return false, oops.New(oops.CodeMissingChunk, nil, "no IDAT before IEND")
		}
		return true, nil

	default:
		return false, p.ancillary(c)
	}
	return false, nil
}

func (p *parser) transparency(data []byte) error {
	f := p.f
	switch f.Header.ColorType {
	case colormode.Palette:
		if f.Palette == nil {
			return oops.New(oops.CodeChunkOrder, nil, "tRNS before PLTE")
		}
		if len(data) > len(f.Palette) {
			return oops.New(oops.CodeMalformedChunk, nil, "tRNS has %d entries for %d colors", len(data), len(f.Palette))
		}
		for i, a := range data {
			f.Palette[i].A = a
		}
	case colormode.Grey:
		if len(data) != 2 {
			return oops.New(oops.CodeMalformedChunk, nil, "tRNS has %d bytes", len(data))
		}
		f.Key = &colormode.Key{R: ReadBE16(data)}
	case colormode.RGB:
		if len(data) != 6 {
			return oops.New(oops.CodeMalformedChunk, nil, "tRNS has %d bytes", len(data))
		}
		f.Key = &colormode.Key{R: ReadBE16(data), G: ReadBE16(data[2:]), B: ReadBE16(data[4:])}
	default:
		return oops.New(oops.CodeMalformedChunk, nil, "tRNS in a %v image", f.Header.ColorType)
	}
	if f.Key != nil {
		limit := 1<<uint(f.Header.BitDepth) - 1
		if int(f.Key.R) > limit || int(f.Key.G) > limit || int(f.Key.B) > limit {
			return oops.New(oops.CodeMalformedChunk, nil, "tRNS key exceeds bit depth %d", f.Header.BitDepth)
		}
	}
	return nil
}

func (p *parser) ancillary(c Chunk) error {
	f := p.f
	info := &f.Info
	var err error
	switch c.Type {
	case TypeBKGD:
		if err = p.once(c.Type); err == nil {
			if err = p.beforeIDAT(c.Type); err == nil {
				if f.Header.ColorType == colormode.Palette && f.Palette == nil {
					return oops.New(oops.CodeChunkOrder, nil, "bKGD before PLTE")
				}
				info.Background, err = decodeBackground(c.Data, f.Header.ColorType, len(f.Palette))
			}
		}
	case TypePHYS:
		if err = p.once(c.Type); err == nil {
			if err = p.beforeIDAT(c.Type); err == nil {
				info.Phys, err = decodePhys(c.Data)
			}
		}
	case TypeSBIT:
		if err = p.once(c.Type); err == nil {
			if err = p.beforeIDAT(c.Type); err == nil {
				info.SignificantBits, err = decodeSignificantBits(c.Data, f.Header)
			}
		}
	case TypeGAMA:
		if err = p.once(c.Type); err == nil {
			if err = p.beforeIDAT(c.Type); err == nil {
				info.Gamma, err = decodeGamma(c.Data)
			}
		}
	case TypeCHRM:
		if err = p.once(c.Type); err == nil {
			if err = p.beforeIDAT(c.Type); err == nil {
				info.Chromaticities, err = decodeChromaticities(c.Data)
			}
		}
	case TypeSRGB:
		if err = p.once(c.Type); err == nil {
			if err = p.beforeIDAT(c.Type); err == nil {
				info.RenderingIntent, err = decodeIntent(c.Data)
			}
		}
	case TypeICCP:
		if err = p.once(c.Type); err == nil {
			if err = p.beforeIDAT(c.Type); err == nil {
				info.ICCProfile, err = decodeICCProfile(c.Data)
			}
		}
	case TypeTIME:
		if err = p.once(c.Type); err == nil {
			info.Time, err = decodeTime(c.Data)
		}
	case TypeTEXT, TypeZTXT:
		if p.opts.IgnoreText {
			return nil
		}
		var t Text
		if c.Type == TypeTEXT {
			t, err = decodeText(c.Data)
		} else {
			t, err = decodeZText(c.Data)
		}
		if err == nil {
			info.Texts = append(info.Texts, t)
		}
	case TypeITXT:
		if p.opts.IgnoreText {
			return nil
		}
		var t IText
		if t, err = decodeIText(c.Data); err == nil {
			info.ITexts = append(info.ITexts, t)
		}
	default:
		if c.Type.IsCritical() {
			return oops.New(oops.CodeUnknownCriticalChunk, nil, "%v", c.Type)
		}
		if p.opts.KeepUnknown {
			data := make([]byte, len(c.Data))
			copy(data, c.Data)
			info.Unknown[p.pos] = append(info.Unknown[p.pos], Chunk{Type: c.Type, Data: data})
		}
	}
	return err
}
