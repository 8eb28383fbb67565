package png

import (
	"github.com/deepteams/png/internal/adam7"
	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/container"
	"github.com/deepteams/png/internal/filter"
	"github.com/deepteams/png/internal/oops"
	"github.com/deepteams/png/internal/zlib"
)

// DecoderOptions controls decoding.
type DecoderOptions struct {
	// OutputMode is the pixel format of the returned image. Nil keeps the
	// format stored in the file.
	OutputMode *ColorMode

	// IgnoreCRC accepts chunks whose CRC-32 does not match.
	IgnoreCRC bool

	// IgnoreAdler accepts image data whose Adler-32 trailer does not match.
	IgnoreAdler bool

	// IgnoreText skips tEXt, zTXt and iTXt chunks.
	IgnoreText bool

	// KeepUnknownChunks stores unrecognized ancillary chunks in
	// Info.Unknown so that Encode can write them back.
	KeepUnknownChunks bool

	// MaxPixels rejects images with more than this many pixels with
	// CodeTooLarge. Zero means no limit.
	MaxPixels int
}

// Decode decodes a complete PNG stream with a default Codec.
func Decode(data []byte, opts *DecoderOptions) (*Image, error) {
	return NewCodec().Decode(data, opts)
}

// Decode decodes a complete PNG stream. A nil opts uses the zero
// DecoderOptions.
func (c *Codec) Decode(data []byte, opts *DecoderOptions) (*Image, error) {
	if opts == nil {
		opts = &DecoderOptions{}
	}
	img, err := c.decode(data, opts)
	if err != nil {
		return nil, c.fail(err)
	}
	c.lastErr = nil
	return img, nil
}

func (c *Codec) decode(data []byte, opts *DecoderOptions) (*Image, error) {
	f, err := container.Parse(data, container.ParseOptions{
		CRC:         c.crc,
		IgnoreCRC:   opts.IgnoreCRC,
		IgnoreText:  opts.IgnoreText,
		KeepUnknown: opts.KeepUnknownChunks,
	})
	if err != nil {
		return nil, err
	}
	for _, e := range f.Entries {
		c.log.Debug().Stringer("type", e.Type).Int("offset", e.Offset).Int("length", e.Length).Msg("chunk")
		if !e.CRCOK {
			c.log.Warn().Stringer("type", e.Type).Int("offset", e.Offset).Msg("ignoring CRC mismatch")
		}
	}

	h := f.Header
	if opts.MaxPixels > 0 && int64(h.Width)*int64(h.Height) > int64(opts.MaxPixels) {
		return nil, oops.New(oops.CodeTooLarge, nil, "%dx%d exceeds %d pixels", h.Width, h.Height, opts.MaxPixels)
	}
	native := f.Mode()
	bpp := native.BitsPerPixel()
	lineBytes := filter.LineBytes(h.Width, bpp)
	if int64(h.Height)*int64(lineBytes+1) > int64(maxImageBytes) {
		return nil, oops.New(oops.CodeTooLarge, nil, "%dx%d at %d bits per pixel", h.Width, h.Height, bpp)
	}

	var passes adam7.Passes
	filtered := h.Height * (lineBytes + 1)
	if h.Interlaced() {
		passes = adam7.PassValues(h.Width, h.Height, bpp)
		filtered = passes.FilterStart[adam7.NumPasses]
	}

	c.log.Debug().Int("idat", len(f.IDAT)).Int("expected", filtered).Msg("inflating")
	raw, err := zlib.Decompress(f.IDAT, zlib.Options{IgnoreAdler: opts.IgnoreAdler, MaxOutput: filtered})
	if err != nil {
		return nil, err
	}
	if len(raw) < filtered {
		return nil, oops.New(oops.CodeTruncated, nil, "image data inflates to %d bytes, need %d", len(raw), filtered)
	}

	pix := make([]byte, native.RawSize(h.Width, h.Height))
	if h.Interlaced() {
		padded := make([]byte, passes.PaddedStart[adam7.NumPasses])
		for i := 0; i < adam7.NumPasses; i++ {
			if passes.W[i] == 0 {
				continue
			}
			if err := filter.Unfilter(padded[passes.PaddedStart[i]:], raw[passes.FilterStart[i]:passes.FilterStart[i+1]], passes.W[i], passes.H[i], bpp); err != nil {
				return nil, err
			}
		}
		if err := adam7.Deinterlace(pix, padded, h.Width, h.Height, bpp); err != nil {
			return nil, err
		}
	} else {
		padded := make([]byte, h.Height*lineBytes)
		if err := filter.Unfilter(padded, raw, h.Width, h.Height, bpp); err != nil {
			return nil, err
		}
		bitio.UnpadRows(pix, padded, h.Width*bpp, h.Height)
	}

	img := &Image{Pix: pix, Width: h.Width, Height: h.Height, Mode: native, Info: &f.Info}
	if opts.OutputMode == nil || opts.OutputMode.Equal(native) {
		return img, nil
	}

	out := *opts.OutputMode
	if err := out.Validate(); err != nil {
		return nil, err
	}
	img.Pix = make([]byte, out.RawSize(h.Width, h.Height))
	if err := colormode.Convert(img.Pix, pix, out, native, h.Width, h.Height); err != nil {
		return nil, err
	}
	img.Mode = out
	if f.Info.Background != nil {
		bg, err := convertBackground(*f.Info.Background, out, native)
		if err != nil {
			c.log.Debug().Err(err).Msg("dropping bKGD that does not convert")
		}
		img.Info.Background = bg
	}
	if f.Info.SignificantBits != nil && (out.ColorType != native.ColorType || out.BitDepth != native.BitDepth) {
		img.Info.SignificantBits = nil
	}
	c.log.Debug().Stringer("from", native).Stringer("to", out).Msg("converted")
	return img, nil
}

// maxImageBytes bounds the filtered image size so that offsets fit an int
// on every platform.
const maxImageBytes = 1<<31 - 1

// convertBackground re-expresses a bKGD color stored for mode from in mode
// to. The result is nil when the color cannot be represented in to.
func convertBackground(bg Background, to, from ColorMode) (*Background, error) {
	from.Key = nil
	src := packSamples(from, bg)
	dst := make([]byte, to.RawSize(1, 1))
	if err := colormode.Convert(dst, src, to, from, 1, 1); err != nil {
		return nil, err
	}
	out := unpackSamples(to, dst)
	return &out, nil
}

// packSamples stores bg as a single pixel of mode m. Alpha channels are
// set to opaque.
func packSamples(m ColorMode, bg Background) []byte {
	var samples []uint16
	switch m.ColorType {
	case Grey, Palette:
		samples = []uint16{bg.R}
	case GreyAlpha:
		samples = []uint16{bg.R, 1<<uint(m.BitDepth) - 1}
	case RGB:
		samples = []uint16{bg.R, bg.G, bg.B}
	default:
		samples = []uint16{bg.R, bg.G, bg.B, 1<<uint(m.BitDepth) - 1}
	}
	out := make([]byte, m.RawSize(1, 1))
	for i, v := range samples {
		switch m.BitDepth {
		case 16:
			container.PutBE16(out[2*i:], v)
		case 8:
			out[i] = byte(v)
		default:
			out[0] = byte(v) << uint(8-m.BitDepth)
		}
	}
	return out
}

// unpackSamples reads the color of a single pixel of mode m, ignoring alpha.
func unpackSamples(m ColorMode, pix []byte) Background {
	get := func(i int) uint16 {
		switch m.BitDepth {
		case 16:
			return container.ReadBE16(pix[2*i:])
		case 8:
			return uint16(pix[i])
		}
		return uint16(pix[0] >> uint(8-m.BitDepth))
	}
	switch m.ColorType {
	case RGB, RGBA:
		return Background{R: get(0), G: get(1), B: get(2)}
	}
	v := get(0)
	if m.ColorType == Palette {
		return Background{R: v}
	}
	return Background{R: v, G: v, B: v}
}
