// Package colormode describes PNG pixel formats and converts raw pixel
// buffers between them.
//
// A raw buffer holds rows back to back with no padding. Samples narrower
// than a byte are packed most significant bit first; 16-bit samples are
// big-endian.
package colormode

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/deepteams/png/internal/oops"
)

// ColorType is the IHDR color type.
type ColorType uint8

const (
	Grey      ColorType = 0
	RGB       ColorType = 2
	Palette   ColorType = 3
	GreyAlpha ColorType = 4
	RGBA      ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case Grey:
		return "grey"
	case RGB:
		return "rgb"
	case Palette:
		return "palette"
	case GreyAlpha:
		return "greyalpha"
	case RGBA:
		return "rgba"
	}
	return fmt.Sprintf("ColorType(%d)", uint8(c))
}

// Channels returns the number of samples per pixel.
func (c ColorType) Channels() int {
	switch c {
	case Grey, Palette:
		return 1
	case GreyAlpha:
		return 2
	case RGB:
		return 3
	case RGBA:
		return 4
	}
	return 0
}

// HasAlphaChannel reports whether the type carries an alpha sample.
func (c ColorType) HasAlphaChannel() bool { return c == GreyAlpha || c == RGBA }

// AllowedDepths returns the legal bit depths of c.
func (c ColorType) AllowedDepths() []int {
	switch c {
	case Grey:
		return []int{1, 2, 4, 8, 16}
	case Palette:
		return []int{1, 2, 4, 8}
	case RGB, GreyAlpha, RGBA:
		return []int{8, 16}
	}
	return nil
}

// Key is a single transparent color (tRNS for grey and RGB images), in
// samples of the image's own bit depth. Grey images use R only.
type Key struct {
	R, G, B uint16
}

// Mode is a complete pixel format.
type Mode struct {
	ColorType ColorType
	BitDepth  int
	// Palette is required for Palette and holds 1..256 entries.
	Palette []color.NRGBA
	// Key marks one color as fully transparent. Only valid for Grey and RGB.
	Key *Key
}

// New returns a mode without palette or key.
func New(ct ColorType, depth int) Mode { return Mode{ColorType: ct, BitDepth: depth} }

// RGBA8 is 8-bit RGBA, the default decode target of most callers.
func RGBA8() Mode { return New(RGBA, 8) }

// RGB8 is 8-bit RGB.
func RGB8() Mode { return New(RGB, 8) }

// RGBA16 is 16-bit RGBA.
func RGBA16() Mode { return New(RGBA, 16) }

// GreyN is greyscale at the given depth.
func GreyN(depth int) Mode { return New(Grey, depth) }

// Validate checks the (color type, bit depth) pair and the palette and key.
func (m Mode) Validate() error {
	ok := false
	for _, d := range m.ColorType.AllowedDepths() {
		if d == m.BitDepth {
			ok = true
		}
	}
	if m.ColorType.Channels() == 0 {
		return oops.New(oops.CodeUnsupportedColor, nil, "color type %d", uint8(m.ColorType))
	}
	if !ok {
		return oops.New(oops.CodeUnsupportedColor, nil, "bit depth %d is not allowed for %v", m.BitDepth, m.ColorType)
	}
	if m.ColorType == Palette {
		if len(m.Palette) == 0 || len(m.Palette) > 256 {
			return oops.New(oops.CodeUnsupportedColor, nil, "palette has %d entries", len(m.Palette))
		}
		if len(m.Palette) > 1<<uint(m.BitDepth) {
			return oops.New(oops.CodeUnsupportedColor, nil, "%d palette entries do not fit %d bits", len(m.Palette), m.BitDepth)
		}
	}
	if m.Key != nil {
		if m.ColorType != Grey && m.ColorType != RGB {
			return oops.New(oops.CodeUnsupportedColor, nil, "transparent key on %v", m.ColorType)
		}
		limit := 1<<uint(m.BitDepth) - 1
		if int(m.Key.R) > limit || m.ColorType == RGB && (int(m.Key.G) > limit || int(m.Key.B) > limit) {
			return oops.New(oops.CodeUnsupportedColor, nil, "transparent key exceeds %d bits", m.BitDepth)
		}
	}
	return nil
}

// Channels returns the number of samples per pixel.
func (m Mode) Channels() int { return m.ColorType.Channels() }

// BitsPerPixel returns the packed pixel size.
func (m Mode) BitsPerPixel() int { return m.Channels() * m.BitDepth }

// RawSize returns the size of a w×h raw buffer.
func (m Mode) RawSize(w, h int) int {
	return (w*h*m.BitsPerPixel() + 7) / 8
}

// HasAlpha reports whether any pixel can be less than fully opaque.
func (m Mode) HasAlpha() bool {
	if m.ColorType.HasAlphaChannel() || m.Key != nil {
		return true
	}
	for _, c := range m.Palette {
		if c.A != 0xff {
			return true
		}
	}
	return false
}

// IsGrey reports whether the mode stores only luminance.
func (m Mode) IsGrey() bool { return m.ColorType == Grey || m.ColorType == GreyAlpha }

// Equal reports whether raw buffers of m and o are interchangeable.
func (m Mode) Equal(o Mode) bool {
	if m.ColorType != o.ColorType || m.BitDepth != o.BitDepth {
		return false
	}
	if (m.Key == nil) != (o.Key == nil) || m.Key != nil && *m.Key != *o.Key {
		return false
	}
	if len(m.Palette) != len(o.Palette) {
		return false
	}
	for i := range m.Palette {
		if m.Palette[i] != o.Palette[i] {
			return false
		}
	}
	return true
}

func (m Mode) String() string {
	s := m.ColorType.String() + strconv.Itoa(m.BitDepth)
	if m.ColorType == Palette {
		s += fmt.Sprintf("[%d]", len(m.Palette))
	}
	if m.Key != nil {
		s += "+key"
	}
	return s
}

// ParseMode parses names such as "rgba8", "grey4" or "greyalpha16" as
// printed by String. Palette modes cannot be parsed since they need a
// palette.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexAny(s, "0123456789")
	if i <= 0 {
		return Mode{}, oops.New(oops.CodeInvalidArgument, nil, "color mode %q", s)
	}
	depth, err := strconv.Atoi(s[i:])
	if err != nil {
		return Mode{}, oops.New(oops.CodeInvalidArgument, err, "color mode %q", s)
	}
	var ct ColorType
	switch s[:i] {
	case "grey", "gray", "g":
		ct = Grey
	case "rgb":
		ct = RGB
	case "greyalpha", "grayalpha", "ga":
		ct = GreyAlpha
	case "rgba":
		ct = RGBA
	default:
		return Mode{}, oops.New(oops.CodeInvalidArgument, nil, "color mode %q", s)
	}
	m := New(ct, depth)
	if err := m.Validate(); err != nil {
		return Mode{}, err
	}
	return m, nil
}
