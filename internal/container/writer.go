package container

import (
	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/checksum"
	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/oops"
)

// WriteOptions controls Write.
type WriteOptions struct {
	// CRC is the table used to frame chunks. Nil uses checksum.IEEE().
	CRC *checksum.Table

	// MaxIDATSize splits the image data into IDAT chunks of at most this
	// many bytes. Zero means DefaultMaxIDATSize.
	MaxIDATSize int

	// CompressText stores every text entry compressed (zTXt, or iTXt with
	// the compression flag set).
	CompressText bool
}

type chunkWriter struct {
	out *buffer.Bytes
	crc *checksum.Table
	err error
}

func (w *chunkWriter) put(t Type, data []byte) {
	if w.err == nil {
		w.err = AppendChunk(w.out, t, data, w.crc)
	}
}

func (w *chunkWriter) unknown(chunks []Chunk) {
	for _, c := range chunks {
		if c.Type.IsCritical() || !c.Type.Valid() {
			w.fail(oops.New(oops.CodeInvalidArgument, nil, "%q cannot be stored as an unknown ancillary chunk", c.Type[:]))
			return
		}
		w.put(c.Type, c.Data)
	}
}

func (w *chunkWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Write serializes f. The IDAT field holds the complete zlib stream. Chunks
// are emitted as signature, IHDR, unknown[0], sRGB or iCCP, gAMA, cHRM, sBIT,
// PLTE, tRNS, bKGD, pHYs, unknown[1], IDAT, tIME, text chunks, unknown[2]
// and IEND.
func Write(f *File, opts WriteOptions) ([]byte, error) {
	if err := f.Header.Validate(); err != nil {
		return nil, err
	}
	h := f.Header
	if h.ColorType == colormode.Palette && len(f.Palette) == 0 {
		return nil, oops.New(oops.CodeMissingChunk, nil, "palette image without palette")
	}
	if len(f.Palette) > colormode.MaxPaletteColors {
		return nil, oops.New(oops.CodeInvalidArgument, nil, "palette of %d colors", len(f.Palette))
	}
	if opts.CRC == nil {
		opts.CRC = checksum.IEEE()
	}
	maxIDAT := opts.MaxIDATSize
	if maxIDAT <= 0 {
		maxIDAT = DefaultMaxIDATSize
	}
	maxIDAT = min(maxIDAT, MaxChunkLength)

	out := buffer.NewBytes(SignatureSize + 3*ChunkOverhead + HeaderSize + len(f.IDAT) + len(f.IDAT)/maxIDAT*ChunkOverhead)
	out.Append(Signature[:]...)
	w := &chunkWriter{out: out, crc: opts.CRC}
	info := &f.Info

	w.put(TypeIHDR, h.Bytes())
	w.unknown(info.Unknown[posBeforePLTE])

	if info.RenderingIntent != nil {
		w.put(TypeSRGB, []byte{*info.RenderingIntent})
	} else if info.ICCProfile != nil {
		data, err := info.ICCProfile.encode()
		if err != nil {
			w.fail(err)
		}
		w.put(TypeICCP, data)
	}
	if info.Gamma != nil {
		var g [4]byte
		PutBE32(g[:], *info.Gamma)
		w.put(TypeGAMA, g[:])
	}
	if info.Chromaticities != nil {
		w.put(TypeCHRM, info.Chromaticities.encode())
	}
	if info.SignificantBits != nil {
		w.put(TypeSBIT, info.SignificantBits.encode(h.ColorType))
	}

	if len(f.Palette) > 0 && h.ColorType != colormode.Grey && h.ColorType != colormode.GreyAlpha {
		plte := make([]byte, 3*len(f.Palette))
		for i, c := range f.Palette {
			plte[3*i], plte[3*i+1], plte[3*i+2] = c.R, c.G, c.B
		}
		w.put(TypePLTE, plte)
	}
	if trns := transparency(f); trns != nil {
		w.put(TypeTRNS, trns)
	}
	if info.Background != nil {
		w.put(TypeBKGD, info.Background.encode(h.ColorType))
	}
	if info.Phys != nil {
		w.put(TypePHYS, info.Phys.encode())
	}
	w.unknown(info.Unknown[posBeforeIDAT])

	idat := f.IDAT
	for {
		n := min(len(idat), maxIDAT)
		w.put(TypeIDAT, idat[:n])
		idat = idat[n:]
		if len(idat) == 0 {
			break
		}
	}

	if info.Time != nil {
		w.put(TypeTIME, encodeTime(*info.Time))
	}
	for _, t := range info.Texts {
		typ, data, err := encodeText(t, opts.CompressText)
		if err != nil {
			w.fail(err)
			break
		}
		w.put(typ, data)
	}
	for _, t := range info.ITexts {
		data, err := encodeIText(t, opts.CompressText)
		if err != nil {
			w.fail(err)
			break
		}
		w.put(TypeITXT, data)
	}
	w.unknown(info.Unknown[posAfterIDAT])
	w.put(TypeIEND, nil)

	if w.err != nil {
		out.Release()
		return nil, w.err
	}
	return out.Detach(), nil
}

// transparency encodes tRNS, or returns nil when the image needs none.
// Trailing opaque palette entries are omitted.
func transparency(f *File) []byte {
	switch f.Header.ColorType {
	case colormode.Palette:
		last := -1
		for i, c := range f.Palette {
			if c.A != 0xff {
				last = i
			}
		}
		if last < 0 {
			return nil
		}
		out := make([]byte, last+1)
		for i := range out {
			out[i] = f.Palette[i].A
		}
		return out
	case colormode.Grey:
		if f.Key == nil {
			return nil
		}
		out := make([]byte, 2)
		PutBE16(out, f.Key.R)
		return out
	case colormode.RGB:
		if f.Key == nil {
			return nil
		}
		out := make([]byte, 6)
		PutBE16(out, f.Key.R)
		PutBE16(out[2:], f.Key.G)
		PutBE16(out[4:], f.Key.B)
		return out
	}
	return nil
}
