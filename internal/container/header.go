package container

import (
	"slices"

	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/oops"
)

// Header is the content of the IHDR chunk.
type Header struct {
	Width, Height int
	BitDepth      int
	ColorType     colormode.ColorType
	Compression   uint8
	Filter        uint8
	Interlace     uint8
}

// ParseHeader decodes and validates an IHDR payload.
func ParseHeader(data []byte) (Header, error) {
	if len(data) != HeaderSize {
		return Header{}, oops.New(oops.CodeMalformedChunk, nil, "IHDR has %d bytes", len(data))
	}
	h := Header{
		Width:       int(ReadBE32(data[0:4])),
		Height:      int(ReadBE32(data[4:8])),
		BitDepth:    int(data[8]),
		ColorType:   colormode.ColorType(data[9]),
		Compression: data[10],
		Filter:      data[11],
		Interlace:   data[12],
	}
	return h, h.Validate()
}

// Validate checks dimensions, the (color type, bit depth) pair and the
// method bytes.
func (h Header) Validate() error {
	if h.Width <= 0 || h.Height <= 0 || h.Width > MaxDimension || h.Height > MaxDimension {
		return oops.New(oops.CodeMalformedChunk, nil, "image size %dx%d", h.Width, h.Height)
	}
	if h.ColorType.Channels() == 0 || !slices.Contains(h.ColorType.AllowedDepths(), h.BitDepth) {
		return oops.New(oops.CodeUnsupportedColor, nil, "color type %d with bit depth %d", uint8(h.ColorType), h.BitDepth)
	}
	if h.Compression != 0 {
		return oops.New(oops.CodeUnsupportedCompression, nil, "compression method %d", h.Compression)
	}
	if h.Filter != 0 {
		return oops.New(oops.CodeUnsupportedFilter, nil, "filter method %d", h.Filter)
	}
	if h.Interlace > InterlaceAdam7 {
		return oops.New(oops.CodeUnsupportedInterlace, nil, "interlace method %d", h.Interlace)
	}
	return nil
}

// Bytes encodes the IHDR payload.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	PutBE32(b[0:4], uint32(h.Width))
	PutBE32(b[4:8], uint32(h.Height))
	b[8] = byte(h.BitDepth)
	b[9] = byte(h.ColorType)
	b[10] = h.Compression
	b[11] = h.Filter
	b[12] = h.Interlace
	return b
}

// Interlaced reports whether the image uses Adam7.
func (h Header) Interlaced() bool { return h.Interlace == InterlaceAdam7 }
