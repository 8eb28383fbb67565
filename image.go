package png

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/container"
	"github.com/deepteams/png/internal/oops"
)

func init() {
	image.RegisterFormat("png", string(container.Signature[:]), DecodeImage, DecodeConfig)
}

// readAll reads the entire contents of r. If r is a *bytes.Reader, it
// avoids an extra copy by reading the remaining bytes directly.
func readAll(r io.Reader) ([]byte, error) {
	if br, ok := r.(*bytes.Reader); ok {
		buf := make([]byte, br.Len())
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, oops.New(oops.CodeTruncated, err, "reading input")
		}
		return buf, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, oops.New(oops.CodeTruncated, err, "reading input")
	}
	return data, nil
}

// DecodeImage reads a PNG image from r. Grey images without a key become
// *image.Gray or *image.Gray16, palette images *image.Paletted, and all
// others *image.NRGBA or *image.NRGBA64.
func DecodeImage(r io.Reader) (image.Image, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data, nil)
	if err != nil {
		return nil, err
	}
	return img.ToImage()
}

// DecodeConfig returns the dimensions and color model of a PNG image
// without decoding its pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := readAll(r)
	if err != nil {
		return image.Config{}, err
	}
	h, m, err := Inspect(data)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: colorModel(*m), Width: h.Width, Height: h.Height}, nil
}

func colorModel(m ColorMode) color.Model {
	switch {
	case m.ColorType == Palette:
		return colorPalette(m.Palette)
	case m.ColorType == Grey && m.Key == nil && m.BitDepth == 16:
		return color.Gray16Model
	case m.ColorType == Grey && m.Key == nil:
		return color.GrayModel
	case m.BitDepth == 16:
		return color.NRGBA64Model
	}
	return color.NRGBAModel
}

func colorPalette(p []color.NRGBA) color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = c
	}
	return out
}

// ToImage converts the decoded pixels to an image.Image following the rules
// of DecodeImage.
func (img *Image) ToImage() (image.Image, error) {
	m := img.Mode
	w, h := img.Width, img.Height
	rect := image.Rect(0, 0, w, h)
	if m.ColorType == Palette {
		out := image.NewPaletted(rect, colorPalette(m.Palette))
		for i := range out.Pix {
			idx := bitio.ReadBitsMSB(img.Pix, i*m.BitDepth, m.BitDepth)
			if int(idx) >= len(m.Palette) {
				return nil, oops.New(oops.CodePaletteIndex, nil, "index %d with %d palette entries", idx, len(m.Palette))
			}
			out.Pix[i] = uint8(idx)
		}
		return out, nil
	}
	switch colorModel(m) {
	case color.GrayModel:
		out := image.NewGray(rect)
		if err := colormode.Convert(out.Pix, img.Pix, colormode.GreyN(8), m, w, h); err != nil {
			return nil, err
		}
		return out, nil
	case color.Gray16Model:
		out := image.NewGray16(rect)
		copy(out.Pix, img.Pix)
		return out, nil
	case color.NRGBA64Model:
		out := image.NewNRGBA64(rect)
		if err := colormode.Convert(out.Pix, img.Pix, colormode.RGBA16(), m, w, h); err != nil {
			return nil, err
		}
		return out, nil
	}
	out := image.NewNRGBA(rect)
	if err := colormode.Convert(out.Pix, img.Pix, colormode.RGBA8(), m, w, h); err != nil {
		return nil, err
	}
	return out, nil
}

// FromImage packs m into a tightly packed buffer and the matching color
// mode. Gray, Gray16, NRGBA, NRGBA64 and Paletted images keep their format;
// anything else is read through color.NRGBA64Model.
func FromImage(m image.Image) ([]byte, int, int, ColorMode) {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	rows := func(pix []byte, stride, rowBytes int) []byte {
		out := make([]byte, 0, rowBytes*h)
		for y := 0; y < h; y++ {
			out = append(out, pix[y*stride:y*stride+rowBytes]...)
		}
		return out
	}
	switch src := m.(type) {
	case *image.Gray:
		return rows(src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, w), w, h, colormode.GreyN(8)
	case *image.Gray16:
		return rows(src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, 2*w), w, h, colormode.GreyN(16)
	case *image.NRGBA:
		return rows(src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, 4*w), w, h, colormode.RGBA8()
	case *image.NRGBA64:
		return rows(src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, 8*w), w, h, colormode.RGBA16()
	case *image.Paletted:
		if n := len(src.Palette); n > 0 && n <= colormode.MaxPaletteColors && palettedInRange(src) {
			pal := make([]color.NRGBA, n)
			for i, c := range src.Palette {
				pal[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
			}
			mode := colormode.New(Palette, 8)
			mode.Palette = pal
			return rows(src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, w), w, h, mode
		}
	}
	pix := make([]byte, 0, 8*w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(m.At(x, y)).(color.NRGBA64)
			pix = append(pix,
				uint8(c.R>>8), uint8(c.R),
				uint8(c.G>>8), uint8(c.G),
				uint8(c.B>>8), uint8(c.B),
				uint8(c.A>>8), uint8(c.A))
		}
	}
	return pix, w, h, colormode.RGBA16()
}

func palettedInRange(p *image.Paletted) bool {
	b := p.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for _, v := range p.Pix[p.PixOffset(b.Min.X, y):p.PixOffset(b.Max.X, y)] {
			if int(v) >= len(p.Palette) {
				return false
			}
		}
	}
	return true
}

// EncodeImage writes m to w as PNG. A nil opts uses DefaultEncoderOptions,
// which stores the image in its smallest lossless color mode.
func EncodeImage(w io.Writer, m image.Image, opts *EncoderOptions) error {
	pix, width, height, mode := FromImage(m)
	data, err := Encode(pix, width, height, mode, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return oops.New(oops.CodeInvalidArgument, err, "writing PNG")
	}
	return nil
}
