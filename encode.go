package png

import (
	"github.com/deepteams/png/internal/adam7"
	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/container"
	"github.com/deepteams/png/internal/deflate"
	"github.com/deepteams/png/internal/filter"
	"github.com/deepteams/png/internal/lz77"
	"github.com/deepteams/png/internal/oops"
	"github.com/deepteams/png/internal/zlib"
)

// MaxDimension is the largest width or height a PNG header can carry.
const MaxDimension = container.MaxDimension

// FilterStrategy selects how the encoder picks a scanline filter per row.
type FilterStrategy = filter.Strategy

// Filter strategies.
const (
	FilterAuto    = filter.StrategyAuto
	FilterMinSum  = filter.StrategyMinSum
	FilterEntropy = filter.StrategyEntropy
	FilterFixed   = filter.StrategyFixed
)

// FilterType is one of the five PNG scanline filters.
type FilterType = filter.Type

// Filter types.
const (
	FilterNone    = filter.None
	FilterSub     = filter.Sub
	FilterUp      = filter.Up
	FilterAverage = filter.Average
	FilterPaeth   = filter.Paeth
)

// BlockType selects how DEFLATE blocks are coded.
type BlockType = deflate.BlockType

// Block types.
const (
	BlockAuto    = deflate.BlockAuto
	BlockStored  = deflate.BlockStored
	BlockFixed   = deflate.BlockFixed
	BlockDynamic = deflate.BlockDynamic
)

// EncoderOptions controls PNG encoding.
type EncoderOptions struct {
	// AutoConvert stores the image in the smallest color mode that
	// represents it without loss. Ignored when OutputMode is set.
	AutoConvert bool

	// ForcePalette makes AutoConvert choose a palette mode, failing with
	// CodeUnsupportedColor when the image has more than 256 colors or
	// 16-bit samples.
	ForcePalette bool

	// StripOpaqueAlpha lets AutoConvert drop an alpha channel in which
	// every pixel is opaque. When false an input alpha channel is kept.
	StripOpaqueAlpha bool

	// CompressText writes every text entry as zTXt or compressed iTXt.
	CompressText bool

	// Interlace writes the image with Adam7 interlacing.
	Interlace bool

	// OutputMode is the color mode stored in the file. Nil means the input
	// mode, or the AutoConvert choice.
	OutputMode *ColorMode

	// FilterStrategy picks the filter per row (default FilterAuto: None
	// for palette and sub-byte images, MinSum otherwise).
	FilterStrategy FilterStrategy

	// FilterType is the filter applied to every row by FilterFixed.
	FilterType FilterType

	// BlockType selects the DEFLATE block kind (default BlockAuto).
	BlockType BlockType

	// WindowSize is the LZ77 window, a power of two in [256, 32768].
	WindowSize int

	// MinMatch is the shortest LZ77 match emitted (3..258).
	MinMatch int

	// NiceMatch ends the match search once a match this long is found.
	NiceMatch int

	// SearchDepth bounds the hash chain candidates tried per position.
	// Higher values compress better and run slower.
	SearchDepth int

	// LazyMatching defers a match by one byte when the next position
	// holds a longer one.
	LazyMatching bool

	// DisableLZ77 codes every byte as a literal, leaving Huffman coding
	// alone to compress. Faster, and usually larger.
	DisableLZ77 bool

	// MaxIDATSize splits the compressed data into IDAT chunks of at most
	// this many bytes (default 1 MiB).
	MaxIDATSize int

	// AddID appends a tEXt chunk naming this encoder as the Software.
	AddID bool

	// Info is written as ancillary chunks. Background is given in samples
	// of the input mode and converted along with the pixels.
	Info *Info
}

// DefaultEncoderOptions returns the options used when Encode is given nil.
func DefaultEncoderOptions() *EncoderOptions {
	lz := lz77.DefaultOptions()
	return &EncoderOptions{
		AutoConvert:      true,
		StripOpaqueAlpha: true,
		FilterStrategy:   FilterAuto,
		BlockType:        BlockAuto,
		WindowSize:       lz.WindowSize,
		MinMatch:         lz.MinMatch,
		NiceMatch:        lz.NiceMatch,
		SearchDepth:      lz.SearchDepth,
		LazyMatching:     lz.Lazy,
		MaxIDATSize:      container.DefaultMaxIDATSize,
	}
}

// deflateOptions maps the matcher fields onto deflate options. Zero fields
// take the matcher defaults.
func (o *EncoderOptions) deflateOptions() deflate.Options {
	d := deflate.DefaultOptions()
	d.BlockType = o.BlockType
	if o.WindowSize != 0 {
		d.LZ77.WindowSize = o.WindowSize
	}
	if o.MinMatch != 0 {
		d.LZ77.MinMatch = o.MinMatch
	}
	if o.NiceMatch != 0 {
		d.LZ77.NiceMatch = o.NiceMatch
	}
	if o.SearchDepth != 0 {
		d.LZ77.SearchDepth = o.SearchDepth
	}
	d.LZ77.Lazy = o.LazyMatching
	d.LZ77.LiteralsOnly = o.DisableLZ77
	return d
}

// Encode encodes pix, a tightly packed w×h image in mode, with a default
// Codec.
func Encode(pix []byte, w, h int, mode ColorMode, opts *EncoderOptions) ([]byte, error) {
	return NewCodec().Encode(pix, w, h, mode, opts)
}

// Encode encodes pix, a tightly packed w×h image in mode. A nil opts uses
// DefaultEncoderOptions.
func (c *Codec) Encode(pix []byte, w, h int, mode ColorMode, opts *EncoderOptions) ([]byte, error) {
	if opts == nil {
		opts = DefaultEncoderOptions()
	}
	data, err := c.encode(pix, w, h, mode, opts)
	if err != nil {
		return nil, c.fail(err)
	}
	c.lastErr = nil
	return data, nil
}

func (c *Codec) encode(pix []byte, w, h int, in ColorMode, opts *EncoderOptions) ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return nil, oops.New(oops.CodeInvalidArgument, nil, "image size %dx%d", w, h)
	}
	if int64(w)*int64(h)*int64(in.BitsPerPixel()) > 8*int64(maxImageBytes) {
		return nil, oops.New(oops.CodeTooLarge, nil, "%dx%d at %d bits per pixel", w, h, in.BitsPerPixel())
	}
	if len(pix) < in.RawSize(w, h) {
		return nil, oops.New(oops.CodeInvalidArgument, nil, "%d bytes of pixels, %v %dx%d needs %d", len(pix), in, w, h, in.RawSize(w, h))
	}

	out, err := c.chooseMode(pix, w, h, in, opts)
	if err != nil {
		return nil, err
	}
	raw := pix
	if !out.Equal(in) {
		raw = make([]byte, out.RawSize(w, h))
		if err := colormode.Convert(raw, pix, out, in, w, h); err != nil {
			return nil, err
		}
	}

	filtered, err := c.filterImage(raw, w, h, out, opts)
	if err != nil {
		return nil, err
	}
	idat, stats, err := zlib.CompressStats(filtered, opts.deflateOptions())
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Int("filtered", len(filtered)).
		Int("compressed", len(idat)).
		Int("stored", stats.Stored).
		Int("fixed", stats.Fixed).
		Int("dynamic", stats.Dynamic).
		Msg("deflated")

	f := &container.File{
		Header: container.Header{
			Width:     w,
			Height:    h,
			BitDepth:  out.BitDepth,
			ColorType: out.ColorType,
		},
		Key:  out.Key,
		IDAT: idat,
	}
	if opts.Interlace {
		f.Header.Interlace = container.InterlaceAdam7
	}
	if out.ColorType == Palette {
		f.Palette = out.Palette
	}
	if opts.Info != nil {
		f.Info = *opts.Info
		if f.Info.Background != nil && !out.Equal(in) {
			bg, err := convertBackground(*f.Info.Background, out, in)
			if err != nil {
				c.log.Debug().Err(err).Msg("dropping bKGD that does not convert")
			}
			f.Info.Background = bg
		}
		if f.Info.SignificantBits != nil && (out.ColorType != in.ColorType || out.BitDepth != in.BitDepth) {
			c.log.Debug().Msg("dropping sBIT after color mode change")
			f.Info.SignificantBits = nil
		}
	}
	if opts.AddID {
		f.Info.Texts = withID(f.Info.Texts)
	}
	return container.Write(f, container.WriteOptions{
		CRC:          c.crc,
		MaxIDATSize:  opts.MaxIDATSize,
		CompressText: opts.CompressText,
	})
}

// Encoder identification written by EncoderOptions.AddID.
const (
	IDKeyword = "Software"
	IDText    = "github.com/deepteams/png"
)

// withID returns texts plus the encoder identification, unless an identical
// entry is already present. texts is never modified.
func withID(texts []Text) []Text {
	for _, t := range texts {
		if t.Keyword == IDKeyword && t.Text == IDText {
			return texts
		}
	}
	out := make([]Text, len(texts), len(texts)+1)
	copy(out, texts)
	return append(out, Text{Keyword: IDKeyword, Text: IDText})
}

// chooseMode returns the color mode to store: the explicit OutputMode, the
// AutoConvert choice, or the input mode.
func (c *Codec) chooseMode(pix []byte, w, h int, in ColorMode, opts *EncoderOptions) (ColorMode, error) {
	if opts.OutputMode != nil {
		out := *opts.OutputMode
		if err := out.Validate(); err != nil {
			return ColorMode{}, err
		}
		return out, nil
	}
	if !opts.AutoConvert && !opts.ForcePalette {
		return in, nil
	}
	st, err := colormode.ComputeStats(pix, w, h, in)
	if err != nil {
		return ColorMode{}, err
	}
	out, err := colormode.Choose(st, in, colormode.ChooseOptions{
		AllowPalette: true,
		ForcePalette: opts.ForcePalette,
		KeepAlpha:    !opts.StripOpaqueAlpha,
	})
	if err != nil {
		return ColorMode{}, err
	}
	if in.ColorType == Palette && out.ColorType == Palette && len(out.Palette) >= len(in.Palette) {
		// Keep the caller's palette when choosing gains nothing.
		out = in
	}
	c.log.Debug().
		Stringer("input", in).
		Stringer("chosen", out).
		Int("colors", st.NumColors).
		Msg("color mode")
	return out, nil
}

// filterImage pads rows to whole bytes (scattering into Adam7 passes when
// interlacing) and prefixes every row with its filter type.
func (c *Codec) filterImage(raw []byte, w, h int, m ColorMode, opts *EncoderOptions) ([]byte, error) {
	bpp := m.BitsPerPixel()
	fopts := filter.Options{Strategy: opts.FilterStrategy, Fixed: opts.FilterType}.Resolve(m.ColorType == Palette, m.BitDepth)

	if !opts.Interlace {
		lineBytes := filter.LineBytes(w, bpp)
		padded := make([]byte, h*lineBytes)
		bitio.PadRows(padded, raw, w*bpp, h)
		out := make([]byte, h*(lineBytes+1))
		if err := filter.Filter(out, padded, w, h, bpp, fopts); err != nil {
			return nil, err
		}
		return out, nil
	}

	p := adam7.PassValues(w, h, bpp)
	padded := make([]byte, p.PaddedStart[adam7.NumPasses])
	if err := adam7.Interlace(padded, raw, w, h, bpp); err != nil {
		return nil, err
	}
	out := make([]byte, p.FilterStart[adam7.NumPasses])
	for i := 0; i < adam7.NumPasses; i++ {
		if p.W[i] == 0 {
			continue
		}
		if err := filter.Filter(out[p.FilterStart[i]:p.FilterStart[i+1]], padded[p.PaddedStart[i]:], p.W[i], p.H[i], bpp, fopts); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ParseFilterStrategy parses "auto", "minsum", "entropy" or "fixed".
func ParseFilterStrategy(s string) (FilterStrategy, error) { return filter.ParseStrategy(s) }

// ParseFilterType parses a filter name such as "paeth".
func ParseFilterType(s string) (FilterType, error) { return filter.ParseType(s) }

// ParseBlockType parses "auto", "stored", "fixed" or "dynamic".
func ParseBlockType(s string) (BlockType, error) { return deflate.ParseBlockType(s) }
