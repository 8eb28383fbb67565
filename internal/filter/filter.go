// Package filter implements PNG scanline filtering: the five per-row
// predictors, their exact inverses, and the encoder's per-row filter choice.
package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/deepteams/png/internal/oops"
)

// Type is the filter type byte that starts every filtered scanline.
type Type uint8

const (
	None Type = iota
	Sub
	Up
	Average
	Paeth
	// NumTypes is the number of defined filter types.
	NumTypes = 5
)

var typeNames = [NumTypes]string{"none", "sub", "up", "average", "paeth"}

func (t Type) String() string {
	if t < NumTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType parses a filter type name.
func ParseType(s string) (Type, error) {
	for i, n := range typeNames {
		if strings.EqualFold(s, n) {
			return Type(i), nil
		}
	}
	return 0, oops.New(oops.CodeInvalidArgument, nil, "unknown filter type %q", s)
}

// Strategy selects how the encoder picks a filter type per row.
type Strategy int

const (
	// StrategyAuto uses None for palette and sub-byte images and MinSum
	// otherwise.
	StrategyAuto Strategy = iota
	// StrategyMinSum tries all five filters and keeps the one with the
	// smallest sum of absolute signed residuals.
	StrategyMinSum
	// StrategyEntropy keeps the filter whose residual bytes have the lowest
	// Shannon entropy.
	StrategyEntropy
	// StrategyFixed applies Options.Fixed to every row.
	StrategyFixed
)

var strategyNames = [...]string{"auto", "minsum", "entropy", "fixed"}

func (s Strategy) String() string {
	if s >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	for i, n := range strategyNames {
		if strings.EqualFold(s, n) {
			return Strategy(i), nil
		}
	}
	return 0, oops.New(oops.CodeInvalidArgument, nil, "unknown filter strategy %q", s)
}

// Options controls Filter.
type Options struct {
	Strategy Strategy
	// Fixed is the filter used by StrategyFixed.
	Fixed Type
}

// Resolve turns StrategyAuto into a concrete strategy for an image of the
// given kind: fixed None for palette and sub-byte images, MinSum otherwise.
func (o Options) Resolve(palette bool, bitDepth int) Options {
	if o.Strategy != StrategyAuto {
		return o
	}
	if palette || bitDepth < 8 {
		return Options{Strategy: StrategyFixed, Fixed: None}
	}
	return Options{Strategy: StrategyMinSum}
}

// LineBytes returns the unfiltered size of one row of w pixels.
func LineBytes(w, bitsPerPixel int) int {
	return (w*bitsPerPixel + 7) / 8
}

// pixelBytes is the distance to the "left" byte: one whole pixel, or one
// byte for sub-byte depths.
func pixelBytes(bitsPerPixel int) int {
	return max(1, bitsPerPixel/8)
}

// PaethPredictor picks whichever of a (left), b (above) and c (upper left)
// is closest to a+b-c, preferring a, then b.
func PaethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// FilterLine writes the residuals of scanline under filter t into out.
// prev is the unfiltered previous row, nil for the first row.
func FilterLine(out, scanline, prev []byte, bpp int, t Type) {
	n := len(scanline)
	bpp = min(bpp, n)
	switch t {
	case None:
		copy(out, scanline)
	case Sub:
		copy(out[:bpp], scanline[:bpp])
		for i := bpp; i < n; i++ {
			out[i] = scanline[i] - scanline[i-bpp]
		}
	case Up:
		if prev == nil {
			copy(out, scanline)
			return
		}
		for i := 0; i < n; i++ {
			out[i] = scanline[i] - prev[i]
		}
	case Average:
		if prev == nil {
			copy(out[:bpp], scanline[:bpp])
			for i := bpp; i < n; i++ {
				out[i] = scanline[i] - scanline[i-bpp]>>1
			}
			return
		}
		for i := 0; i < bpp; i++ {
			out[i] = scanline[i] - prev[i]>>1
		}
		for i := bpp; i < n; i++ {
			out[i] = scanline[i] - byte((int(scanline[i-bpp])+int(prev[i]))>>1)
		}
	case Paeth:
		if prev == nil {
			// With no row above Paeth reduces to Sub.
			copy(out[:bpp], scanline[:bpp])
			for i := bpp; i < n; i++ {
				out[i] = scanline[i] - scanline[i-bpp]
			}
			return
		}
		for i := 0; i < bpp; i++ {
			out[i] = scanline[i] - prev[i]
		}
		for i := bpp; i < n; i++ {
			out[i] = scanline[i] - PaethPredictor(scanline[i-bpp], prev[i], prev[i-bpp])
		}
	}
}

// UnfilterLine reverses FilterLine. recon and scanline may be the same
// slice. prev is the reconstructed previous row, nil for the first row.
func UnfilterLine(recon, scanline, prev []byte, bpp int, t Type) error {
	n := len(scanline)
	bpp = min(bpp, n)
	switch t {
	case None:
		copy(recon, scanline)
	case Sub:
		copy(recon[:bpp], scanline[:bpp])
		for i := bpp; i < n; i++ {
			recon[i] = scanline[i] + recon[i-bpp]
		}
	case Up:
		if prev == nil {
			copy(recon, scanline)
			return nil
		}
		for i := 0; i < n; i++ {
			recon[i] = scanline[i] + prev[i]
		}
	case Average:
		if prev == nil {
			copy(recon[:bpp], scanline[:bpp])
			for i := bpp; i < n; i++ {
				recon[i] = scanline[i] + recon[i-bpp]>>1
			}
			return nil
		}
		for i := 0; i < bpp; i++ {
			recon[i] = scanline[i] + prev[i]>>1
		}
		for i := bpp; i < n; i++ {
			recon[i] = scanline[i] + byte((int(recon[i-bpp])+int(prev[i]))>>1)
		}
	case Paeth:
		if prev == nil {
			copy(recon[:bpp], scanline[:bpp])
			for i := bpp; i < n; i++ {
				recon[i] = scanline[i] + recon[i-bpp]
			}
			return nil
		}
		for i := 0; i < bpp; i++ {
			recon[i] = scanline[i] + prev[i]
		}
		for i := bpp; i < n; i++ {
			recon[i] = scanline[i] + PaethPredictor(recon[i-bpp], prev[i], prev[i-bpp])
		}
	default:
		return oops.New(oops.CodeUnsupportedFilter, nil, "filter type %d", uint8(t))
	}
	return nil
}

// Filter filters h rows of packed pixels from in into out. Each output row
// is a filter type byte followed by LineBytes(w, bitsPerPixel) residuals.
func Filter(out, in []byte, w, h, bitsPerPixel int, opts Options) error {
	lineBytes := LineBytes(w, bitsPerPixel)
	if len(in) < h*lineBytes || len(out) < h*(lineBytes+1) {
		return oops.New(oops.CodeInvalidArgument, nil, "buffers too small for %dx%d at %d bpp", w, h, bitsPerPixel)
	}
	if opts.Strategy == StrategyFixed && opts.Fixed >= NumTypes {
		return oops.New(oops.CodeInvalidArgument, nil, "filter type %d", uint8(opts.Fixed))
	}
	bpp := pixelBytes(bitsPerPixel)

	var trial [NumTypes][]byte
	if opts.Strategy != StrategyFixed {
		for t := range trial {
			trial[t] = make([]byte, lineBytes)
		}
	}
	var prev []byte
	for y := 0; y < h; y++ {
		line := in[y*lineBytes : (y+1)*lineBytes]
		dst := out[y*(lineBytes+1) : (y+1)*(lineBytes+1)]
		if opts.Strategy == StrategyFixed {
			dst[0] = byte(opts.Fixed)
			FilterLine(dst[1:], line, prev, bpp, opts.Fixed)
		} else {
			best, bestCost := None, math.Inf(1)
			for t := None; t < NumTypes; t++ {
				FilterLine(trial[t], line, prev, bpp, t)
				var cost float64
				if opts.Strategy == StrategyEntropy {
					cost = entropy(trial[t])
				} else {
					cost = float64(absSum(trial[t]))
				}
				if cost < bestCost {
					best, bestCost = t, cost
				}
			}
			dst[0] = byte(best)
			copy(dst[1:], trial[best])
		}
		prev = line
	}
	return nil
}

// absSum sums residuals read as signed bytes.
func absSum(res []byte) int {
	s := 0
	for _, v := range res {
		s += abs(int(int8(v)))
	}
	return s
}

// entropy returns the Shannon entropy of res in bits, scaled by its length.
func entropy(res []byte) float64 {
	var hist [256]int
	for _, v := range res {
		hist[v]++
	}
	n := float64(len(res))
	var e float64
	for _, c := range hist {
		if c > 0 {
			p := float64(c) / n
			e -= float64(c) * math.Log2(p)
		}
	}
	return e
}

// Unfilter reverses Filter: in holds h filtered rows, out receives the
// packed pixels.
func Unfilter(out, in []byte, w, h, bitsPerPixel int) error {
	lineBytes := LineBytes(w, bitsPerPixel)
	if len(in) < h*(lineBytes+1) {
		return oops.New(oops.CodeTruncated, nil, "need %d filtered bytes, have %d", h*(lineBytes+1), len(in))
	}
	if len(out) < h*lineBytes {
		return oops.New(oops.CodeInvalidArgument, nil, "output too small for %dx%d at %d bpp", w, h, bitsPerPixel)
	}
	bpp := pixelBytes(bitsPerPixel)
	var prev []byte
	for y := 0; y < h; y++ {
		src := in[y*(lineBytes+1) : (y+1)*(lineBytes+1)]
		recon := out[y*lineBytes : (y+1)*lineBytes]
		if err := UnfilterLine(recon, src[1:], prev, bpp, Type(src[0])); err != nil {
			return err
		}
		prev = recon
	}
	return nil
}
