// Package adam7 implements the geometry and pixel scatter/gather of PNG's
// seven-pass Adam7 interlacing.
package adam7

import (
	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/oops"
)

// NumPasses is the number of interlace passes.
const NumPasses = 7

// Pass origins and strides.
var (
	XStart = [NumPasses]int{0, 4, 0, 2, 0, 1, 0}
	YStart = [NumPasses]int{0, 0, 4, 0, 2, 0, 1}
	XStep  = [NumPasses]int{8, 8, 4, 4, 2, 2, 1}
	YStep  = [NumPasses]int{8, 8, 8, 4, 4, 2, 2}
)

// Passes describes the reduced images of one interlaced image.
type Passes struct {
	// W and H are the pass dimensions; a pass with either zero is empty and
	// both are zero.
	W, H [NumPasses]int
	// FilterStart[i] is the offset of pass i in the filtered stream, which
	// carries a filter type byte per row.
	FilterStart [NumPasses + 1]int
	// PaddedStart[i] is the offset of pass i with each row padded to a
	// whole byte.
	PaddedStart [NumPasses + 1]int
	// PassStart[i] is the offset of pass i with pixels packed tightly.
	PassStart [NumPasses + 1]int
}

// PassValues computes the pass geometry of a w×h image at bpp bits per pixel.
func PassValues(w, h, bpp int) Passes {
	var p Passes
	for i := 0; i < NumPasses; i++ {
		pw := (w + XStep[i] - XStart[i] - 1) / XStep[i]
		ph := (h + YStep[i] - YStart[i] - 1) / YStep[i]
		if pw <= 0 || ph <= 0 {
			pw, ph = 0, 0
		}
		p.W[i], p.H[i] = pw, ph
		lineBytes := (pw*bpp + 7) / 8
		filtered := 0
		if pw > 0 {
			filtered = ph * (1 + lineBytes)
		}
		p.FilterStart[i+1] = p.FilterStart[i] + filtered
		p.PaddedStart[i+1] = p.PaddedStart[i] + ph*lineBytes
		p.PassStart[i+1] = p.PassStart[i] + (ph*pw*bpp+7)/8
	}
	return p
}

// Interlace scatters a tightly packed w×h image into its seven passes. Each
// pass is written at PaddedStart with rows padded to whole bytes, ready for
// filtering.
func Interlace(out, in []byte, w, h, bpp int) error {
	p := PassValues(w, h, bpp)
	if len(out) < p.PaddedStart[NumPasses] || len(in) < (w*h*bpp+7)/8 {
		return oops.New(oops.CodeInvalidArgument, nil, "buffers too small for interlacing %dx%d", w, h)
	}
	clear(out[:p.PaddedStart[NumPasses]])
	if bpp >= 8 {
		n := bpp / 8
		for i := 0; i < NumPasses; i++ {
			for y := 0; y < p.H[i]; y++ {
				for x := 0; x < p.W[i]; x++ {
					src := ((YStart[i]+y*YStep[i])*w + XStart[i] + x*XStep[i]) * n
					dst := p.PaddedStart[i] + (y*p.W[i]+x)*n
					copy(out[dst:dst+n], in[src:src+n])
				}
			}
		}
		return nil
	}
	for i := 0; i < NumPasses; i++ {
		lineBits := (p.W[i]*bpp + 7) / 8 * 8
		for y := 0; y < p.H[i]; y++ {
			for x := 0; x < p.W[i]; x++ {
				src := ((YStart[i]+y*YStep[i])*w + XStart[i] + x*XStep[i]) * bpp
				dst := p.PaddedStart[i]*8 + y*lineBits + x*bpp
				bitio.CopyBitsMSB(out, dst, in, src, bpp)
			}
		}
	}
	return nil
}

// Deinterlace gathers seven passes, laid out as Interlace writes them, back
// into a tightly packed w×h image.
func Deinterlace(out, in []byte, w, h, bpp int) error {
	p := PassValues(w, h, bpp)
	size := (w*h*bpp + 7) / 8
	if len(in) < p.PaddedStart[NumPasses] || len(out) < size {
		return oops.New(oops.CodeInvalidArgument, nil, "buffers too small for deinterlacing %dx%d", w, h)
	}
	if bpp >= 8 {
		n := bpp / 8
		for i := 0; i < NumPasses; i++ {
			for y := 0; y < p.H[i]; y++ {
				for x := 0; x < p.W[i]; x++ {
					src := p.PaddedStart[i] + (y*p.W[i]+x)*n
					dst := ((YStart[i]+y*YStep[i])*w + XStart[i] + x*XStep[i]) * n
					copy(out[dst:dst+n], in[src:src+n])
				}
			}
		}
		return nil
	}
	clear(out[:size])
	for i := 0; i < NumPasses; i++ {
		lineBits := (p.W[i]*bpp + 7) / 8 * 8
		for y := 0; y < p.H[i]; y++ {
			for x := 0; x < p.W[i]; x++ {
				src := p.PaddedStart[i]*8 + y*lineBits + x*bpp
				dst := ((YStart[i]+y*YStep[i])*w + XStart[i] + x*XStep[i]) * bpp
				bitio.CopyBitsMSB(out, dst, in, src, bpp)
			}
		}
	}
	return nil
}
