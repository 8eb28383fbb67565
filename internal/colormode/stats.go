package colormode

import (
	"image/color"
	"sort"

	"github.com/deepteams/png/internal/oops"
)

// MaxPaletteColors is the largest palette PNG allows.
const MaxPaletteColors = 256

// Stats summarizes the colors used by an image.
type Stats struct {
	// Colored is set when some pixel has r, g and b not all equal.
	Colored bool
	// Alpha is set when some pixel needs a real alpha channel.
	Alpha bool
	// Key is set when exactly one color is fully transparent and every
	// other pixel is opaque; KeyR, KeyG and KeyB hold it at 16 bits.
	Key              bool
	KeyR, KeyG, KeyB uint16
	// NumColors counts distinct 8-bit RGBA colors, stopping at
	// MaxPaletteColors+1.
	NumColors int
	// Palette lists the distinct colors in first-seen order while
	// NumColors <= MaxPaletteColors.
	Palette []color.NRGBA
	// Bits is the smallest bit depth that holds every sample exactly: 1, 2,
	// 4 or 8 for grey images, at least 8 otherwise, 16 when any sample has
	// different high and low bytes.
	Bits      int
	NumPixels int
}

// greyBits returns the depth needed to store the 8-bit grey value v exactly.
func greyBits(v uint8) int {
	switch {
	case v%255 == 0:
		return 1
	case v%85 == 0:
		return 2
	case v%17 == 0:
		return 4
	}
	return 8
}

func is16(v uint16) bool { return v>>8 != v&0xff }

// ComputeStats scans a w×h raw buffer in mode m.
func ComputeStats(pix []byte, w, h int, m Mode) (Stats, error) {
	var st Stats
	if err := m.Validate(); err != nil {
		return st, err
	}
	if need := m.RawSize(w, h); len(pix) < need {
		return st, oops.New(oops.CodeInvalidArgument, nil, "input has %d bytes, %v needs %d", len(pix), m, need)
	}
	st.NumPixels = w * h
	st.Bits = 1
	seen := make(map[color.NRGBA]struct{})
	r := &reader{m: m, buf: pix}
	for i := 0; i < st.NumPixels; i++ {
		p, err := r.at(i)
		if err != nil {
			return Stats{}, err
		}
		if st.Bits < 16 && (is16(p.r) || is16(p.g) || is16(p.b) || is16(p.a)) {
			st.Bits = 16
		}
		if p.r != p.g || p.g != p.b {
			st.Colored = true
		}
		if !st.Colored && st.Bits < 8 {
			st.Bits = max(st.Bits, greyBits(uint8(p.r>>8)))
		}

		matchesKey := st.Key && p.r == st.KeyR && p.g == st.KeyG && p.b == st.KeyB
		switch {
		case p.a != 0xffff && (p.a != 0 || st.Key && !matchesKey):
			st.Alpha = true
			st.Key = false
		case p.a == 0 && !st.Alpha && !st.Key:
			st.Key = true
			st.KeyR, st.KeyG, st.KeyB = p.r, p.g, p.b
		}

		if st.NumColors <= MaxPaletteColors {
			c := color.NRGBA{byte(p.r >> 8), byte(p.g >> 8), byte(p.b >> 8), byte(p.a >> 8)}
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				st.NumColors++
				if st.NumColors <= MaxPaletteColors {
					st.Palette = append(st.Palette, c)
				} else {
					st.Palette = nil
				}
			}
		}
	}
	if st.Colored || st.Alpha {
		st.Bits = max(st.Bits, 8)
	}

	// An opaque pixel with the key's color cannot be told apart from a
	// transparent one.
	if st.Key && !st.Alpha {
		for i := 0; i < st.NumPixels; i++ {
			p, _ := r.at(i)
			if p.a == 0xffff && p.r == st.KeyR && p.g == st.KeyG && p.b == st.KeyB {
				st.Alpha = true
				st.Key = false
				st.Bits = max(st.Bits, 8)
				break
			}
		}
	}
	return st, nil
}

// ChooseOptions steers Choose.
type ChooseOptions struct {
	// AllowPalette permits a palette result.
	AllowPalette bool
	// ForcePalette requires a palette result and fails when the image has
	// more than MaxPaletteColors colors.
	ForcePalette bool
	// KeepAlpha keeps an alpha channel from the input even when every
	// pixel is opaque.
	KeepAlpha bool
}

// Choose picks the smallest mode that stores the image described by st
// without loss.
func Choose(st Stats, in Mode, opts ChooseOptions) (Mode, error) {
	alpha, key := st.Alpha, st.Key
	bits := st.Bits
	if opts.KeepAlpha && in.ColorType.HasAlphaChannel() {
		alpha, key = true, false
	}
	if key && st.NumPixels <= 16 {
		// Too few pixels to pay for a tRNS chunk.
		alpha, key = true, false
	}
	if alpha {
		bits = max(bits, 8)
	}
	greyOK := !st.Colored

	n := st.NumColors
	paletteBits := 8
	switch {
	case n <= 2:
		paletteBits = 1
	case n <= 4:
		paletteBits = 2
	case n <= 16:
		paletteBits = 4
	}

	if opts.ForcePalette {
		if n > MaxPaletteColors || n == 0 {
			return Mode{}, oops.New(oops.CodeUnsupportedColor, nil, "%d colors do not fit a palette", n)
		}
		if bits == 16 {
			return Mode{}, oops.New(oops.CodeUnsupportedColor, nil, "16-bit samples do not fit a palette")
		}
		return paletteMode(st.Palette, paletteBits), nil
	}

	paletteOK := opts.AllowPalette && n != 0 && n <= MaxPaletteColors && bits <= 8
	if st.NumPixels < 2*n {
		paletteOK = false
	}
	if greyOK && !alpha && bits <= paletteBits {
		paletteOK = false
	}
	if opts.KeepAlpha && in.ColorType.HasAlphaChannel() {
		paletteOK = false
	}
	if paletteOK {
		return paletteMode(st.Palette, paletteBits), nil
	}

	var m Mode
	switch {
	case greyOK && alpha:
		m = New(GreyAlpha, bits)
	case greyOK:
		m = New(Grey, bits)
	case alpha:
		m = New(RGBA, bits)
	default:
		m = New(RGB, bits)
	}
	if key {
		m.Key = &Key{
			R: narrow(st.KeyR, bits),
			G: narrow(st.KeyG, bits),
			B: narrow(st.KeyB, bits),
		}
		if greyOK {
			m.Key.G, m.Key.B = 0, 0
		}
	}
	return m, nil
}

// paletteMode orders translucent entries first so tRNS stays short.
func paletteMode(colors []color.NRGBA, depth int) Mode {
	pal := make([]color.NRGBA, len(colors))
	copy(pal, colors)
	sort.SliceStable(pal, func(i, j int) bool {
		return pal[i].A != 0xff && pal[j].A == 0xff
	})
	return Mode{ColorType: Palette, BitDepth: depth, Palette: pal}
}
