package png

import (
	"github.com/rs/zerolog"

	"github.com/deepteams/png/internal/checksum"
	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/container"
	"github.com/deepteams/png/internal/logging"
	"github.com/deepteams/png/internal/oops"
)

// ColorMode describes a pixel format: color type, bit depth, and the palette
// or transparent key color where they apply.
type ColorMode = colormode.Mode

// ColorType is the PNG color type.
type ColorType = colormode.ColorType

// Key is a single fully transparent color of a grey or RGB image.
type Key = colormode.Key

// Color types.
const (
	Grey      = colormode.Grey
	RGB       = colormode.RGB
	Palette   = colormode.Palette
	GreyAlpha = colormode.GreyAlpha
	RGBA      = colormode.RGBA
)

// Header is the decoded IHDR chunk.
type Header = container.Header

// Info holds the ancillary chunks of an image.
type Info = container.Info

// Ancillary chunk types carried in Info.
type (
	Background      = container.Background
	Phys            = container.Phys
	Text            = container.Text
	IText           = container.IText
	Chromaticities  = container.Chromaticities
	ICCProfile      = container.ICCProfile
	SignificantBits = container.SignificantBits
	Chunk           = container.Chunk
	ChunkType       = container.Type
)

// Unknown chunk positions, indexing Info.Unknown.
const (
	BeforePLTE = 0
	BeforeIDAT = 1
	AfterIDAT  = 2
)

// NewColorMode returns a mode without palette or key.
func NewColorMode(ct ColorType, depth int) ColorMode { return colormode.New(ct, depth) }

// RGBA8 is 8-bit RGBA.
func RGBA8() ColorMode { return colormode.RGBA8() }

// RGB8 is 8-bit RGB.
func RGB8() ColorMode { return colormode.RGB8() }

// RGBA16 is 16-bit RGBA.
func RGBA16() ColorMode { return colormode.RGBA16() }

// ParseColorMode parses names such as "rgba8", "grey4" or "greyalpha16".
// Palette modes are rejected since a name cannot carry the palette.
func ParseColorMode(s string) (ColorMode, error) { return colormode.ParseMode(s) }

// Image is a decoded image: tightly packed pixels in Mode plus metadata.
// Rows below 8 bits per pixel are not padded to whole bytes.
type Image struct {
	Pix    []byte
	Width  int
	Height int
	Mode   ColorMode
	Info   *Info
}

// Codec carries the state shared by a sequence of encode and decode calls:
// the CRC table, a logger and the last error. A Codec is not safe for
// concurrent use; create one per goroutine.
type Codec struct {
	crc     *checksum.Table
	log     zerolog.Logger
	lastErr error
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) CodecOption {
	return func(c *Codec) { c.log = l }
}

// CRCTable is a CRC-32 lookup table for the IEEE polynomial.
type CRCTable = checksum.Table

// NewCRCTable builds a fresh CRC-32 table. Codecs share a read-only default
// table unless WithCRCTable supplies another.
func NewCRCTable() *CRCTable { return checksum.NewTable() }

// WithCRCTable sets the CRC-32 table used to check and frame chunks.
func WithCRCTable(t *CRCTable) CodecOption {
	return func(c *Codec) { c.crc = t }
}

// NewCodec returns a Codec with the given options applied.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{crc: checksum.IEEE(), log: logging.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// LastError returns the error of the most recent call, or nil.
func (c *Codec) LastError() error { return c.lastErr }

func (c *Codec) fail(err error) error {
	c.lastErr = err
	if err != nil {
		logging.Err(&c.log, err).Msg("png")
	}
	return err
}

// ErrorCode classifies every error returned by this package.
type ErrorCode = oops.Code

// Error codes. The hundreds digit is the category: 1 malformed input,
// 2 checksum, 3 unsupported, 4 truncated, 5 resource limit, 6 bad argument.
const (
	CodeBadSignature           = oops.CodeBadSignature
	CodeChunkOrder             = oops.CodeChunkOrder
	CodeMissingChunk           = oops.CodeMissingChunk
	CodeDuplicateChunk         = oops.CodeDuplicateChunk
	CodeUnknownCriticalChunk   = oops.CodeUnknownCriticalChunk
	CodeMalformedChunk         = oops.CodeMalformedChunk
	CodeMalformedZlibHeader    = oops.CodeMalformedZlibHeader
	CodeMalformedDeflate       = oops.CodeMalformedDeflate
	CodeMalformedHuffman       = oops.CodeMalformedHuffman
	CodePaletteIndex           = oops.CodePaletteIndex
	CodeMalformedText          = oops.CodeMalformedText
	CodeChecksumCRC            = oops.CodeChecksumCRC
	CodeChecksumAdler          = oops.CodeChecksumAdler
	CodeUnsupportedColor       = oops.CodeUnsupportedColor
	CodeUnsupportedInterlace   = oops.CodeUnsupportedInterlace
	CodeUnsupportedFilter      = oops.CodeUnsupportedFilter
	CodeUnsupportedCompression = oops.CodeUnsupportedCompression
	CodeUnsupportedDictionary  = oops.CodeUnsupportedDictionary
	CodeColorNotInPalette      = oops.CodeColorNotInPalette
	CodeTruncated              = oops.CodeTruncated
	CodeTooLarge               = oops.CodeTooLarge
	CodeInvalidArgument        = oops.CodeInvalidArgument
)

// ErrorCodeOf returns the code carried by err: 0 for nil, and
// CodeInvalidArgument for errors that do not come from this package.
func ErrorCodeOf(err error) ErrorCode { return oops.CodeOf(err) }

// Inspect reads the header, palette and transparency of a PNG stream
// without decompressing the image data.
func Inspect(data []byte) (Header, *ColorMode, error) {
	f, err := container.Parse(data, container.ParseOptions{HeaderOnly: true})
	if err != nil {
		return Header{}, nil, err
	}
	m := f.Mode()
	return f.Header, &m, nil
}
