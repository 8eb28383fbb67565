package colormode

import (
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/png/internal/oops"
)

func TestValidate(t *testing.T) {
	valid := []Mode{
		GreyN(1), GreyN(2), GreyN(4), GreyN(8), GreyN(16),
		RGB8(), New(RGB, 16), New(GreyAlpha, 8), New(GreyAlpha, 16), RGBA8(), RGBA16(),
		{ColorType: Palette, BitDepth: 2, Palette: make([]color.NRGBA, 4)},
		{ColorType: Grey, BitDepth: 4, Key: &Key{R: 15}},
	}
	for _, m := range valid {
		assert.NoError(t, m.Validate(), m.String())
	}
	invalid := []Mode{
		GreyN(3), New(RGB, 4), New(GreyAlpha, 1), New(RGBA, 2), New(ColorType(5), 8),
		{ColorType: Palette, BitDepth: 8},
		{ColorType: Palette, BitDepth: 1, Palette: make([]color.NRGBA, 3)},
		{ColorType: Palette, BitDepth: 16, Palette: make([]color.NRGBA, 3)},
		{ColorType: RGBA, BitDepth: 8, Key: &Key{}},
		{ColorType: Grey, BitDepth: 2, Key: &Key{R: 4}},
	}
	for _, m := range invalid {
		err := m.Validate()
		assert.True(t, oops.Is(err, oops.CodeUnsupportedColor), "%v: %v", m, err)
	}
}

func TestSizes(t *testing.T) {
	assert.Equal(t, 32, RGBA8().BitsPerPixel())
	assert.Equal(t, 64, RGBA16().BitsPerPixel())
	assert.Equal(t, 2, GreyN(1).RawSize(3, 5)) // 15 bits
	assert.Equal(t, 3*5*3, RGB8().RawSize(3, 5))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("RGBA16")
	require.NoError(t, err)
	assert.True(t, m.Equal(RGBA16()))

	m, err = ParseMode("ga8")
	require.NoError(t, err)
	assert.Equal(t, GreyAlpha, m.ColorType)

	for _, s := range []string{"", "8", "rgba", "rgb4", "palette8", "cmyk8"} {
		_, err := ParseMode(s)
		assert.Error(t, err, s)
	}
}

func TestConvertGreyDepths(t *testing.T) {
	// 2-bit grey 0,1,2,3 expands to 0, 85, 170, 255.
	in := []byte{0b00_01_10_11}
	out := make([]byte, 4)
	require.NoError(t, Convert(out, in, GreyN(8), GreyN(2), 4, 1))
	assert.Equal(t, []byte{0, 85, 170, 255}, out)

	back := make([]byte, 1)
	require.NoError(t, Convert(back, out, GreyN(2), GreyN(8), 4, 1))
	assert.Equal(t, in, back)
}

func TestConvertRGBA8ToRGBA16AndBack(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := make([]byte, 7*3*4)
	rng.Read(in)
	wide := make([]byte, len(in)*2)
	require.NoError(t, Convert(wide, in, RGBA16(), RGBA8(), 7, 3))
	assert.Equal(t, in[0], wide[0])
	assert.Equal(t, in[0], wide[1])
	back := make([]byte, len(in))
	require.NoError(t, Convert(back, wide, RGBA8(), RGBA16(), 7, 3))
	assert.Equal(t, in, back)
}

func TestConvertLuma(t *testing.T) {
	in := []byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255, 90, 90, 90, 255}
	out := make([]byte, 4)
	require.NoError(t, Convert(out, in, GreyN(8), RGBA8(), 4, 1))
	assert.Equal(t, []byte{76, 150, 29, 90}, out)
}

func TestConvertPalette(t *testing.T) {
	pal := []color.NRGBA{{0, 0, 0, 0}, {255, 0, 0, 255}, {0, 0, 255, 128}}
	m := Mode{ColorType: Palette, BitDepth: 2, Palette: pal}
	in := []byte{0b00_01_10_01}
	rgba := make([]byte, 16)
	require.NoError(t, Convert(rgba, in, RGBA8(), m, 4, 1))
	assert.Equal(t, []byte{0, 0, 0, 0, 255, 0, 0, 255, 0, 0, 255, 128, 255, 0, 0, 255}, rgba)

	back := make([]byte, 1)
	require.NoError(t, Convert(back, rgba, m, RGBA8(), 4, 1))
	assert.Equal(t, in, back)

	// A different fully transparent color still maps to the transparent entry.
	rgba[0] = 7
	require.NoError(t, Convert(back, rgba, m, RGBA8(), 4, 1))
	assert.Equal(t, in, back)

	rgba[4] = 254
	err := Convert(back, rgba, m, RGBA8(), 4, 1)
	assert.True(t, oops.Is(err, oops.CodeColorNotInPalette), "%v", err)

	err = Convert(rgba, []byte{0b11_00_00_00}, RGBA8(), m, 4, 1)
	assert.True(t, oops.Is(err, oops.CodePaletteIndex), "%v", err)
}

func TestConvertKey(t *testing.T) {
	m := Mode{ColorType: RGB, BitDepth: 8, Key: &Key{R: 1, G: 2, B: 3}}
	in := []byte{1, 2, 3, 4, 5, 6}
	out := make([]byte, 8)
	require.NoError(t, Convert(out, in, RGBA8(), m, 2, 1))
	assert.Equal(t, []byte{1, 2, 3, 0, 4, 5, 6, 255}, out)

	out[0] = 99 // transparent pixels write the key whatever their color
	back := make([]byte, 6)
	require.NoError(t, Convert(back, out, m, RGBA8(), 2, 1))
	assert.Equal(t, in, back)
}

func TestConvertErrors(t *testing.T) {
	err := Convert(make([]byte, 4), make([]byte, 3), RGBA8(), RGBA8(), 1, 1)
	assert.True(t, oops.Is(err, oops.CodeInvalidArgument))
	err = Convert(make([]byte, 3), make([]byte, 4), RGBA8(), RGBA8(), 1, 1)
	assert.True(t, oops.Is(err, oops.CodeInvalidArgument))
	err = Convert(make([]byte, 4), make([]byte, 4), RGBA8(), GreyN(3), 1, 1)
	assert.True(t, oops.Is(err, oops.CodeUnsupportedColor))
}

func rgbaImage(colors ...[4]byte) []byte {
	var b []byte
	for _, c := range colors {
		b = append(b, c[:]...)
	}
	return b
}

func repeat(c [4]byte, n int) [][4]byte {
	out := make([][4]byte, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestStatsAndChoose(t *testing.T) {
	tests := []struct {
		name   string
		pixels [][4]byte
		opts   ChooseOptions
		want   Mode
	}{
		{
			name:   "black and white",
			pixels: append(repeat([4]byte{0, 0, 0, 255}, 20), repeat([4]byte{255, 255, 255, 255}, 20)...),
			opts:   ChooseOptions{AllowPalette: true},
			want:   GreyN(1),
		},
		{
			name:   "grey levels of 17",
			pixels: append(repeat([4]byte{17, 17, 17, 255}, 20), repeat([4]byte{34, 34, 34, 255}, 20)...),
			want:   GreyN(4),
		},
		{
			name:   "grey with alpha",
			pixels: append(repeat([4]byte{10, 10, 10, 255}, 20), [4]byte{10, 10, 10, 3}),
			want:   New(GreyAlpha, 8),
		},
		{
			name:   "colored opaque",
			pixels: append(repeat([4]byte{10, 20, 30, 255}, 20), [4]byte{11, 20, 30, 255}),
			want:   RGB8(),
		},
		{
			name:   "colored with key",
			pixels: append(repeat([4]byte{10, 20, 30, 255}, 20), [4]byte{1, 2, 3, 0}),
			want:   Mode{ColorType: RGB, BitDepth: 8, Key: &Key{R: 1, G: 2, B: 3}},
		},
		{
			name:   "key color also opaque",
			pixels: append(repeat([4]byte{1, 2, 3, 255}, 20), [4]byte{1, 2, 3, 0}),
			want:   RGBA8(),
		},
		{
			name:   "tiny keyed image",
			pixels: [][4]byte{{10, 20, 30, 255}, {1, 2, 3, 0}},
			want:   RGBA8(),
		},
		{
			name: "few colors become a palette",
			pixels: append(append(repeat([4]byte{255, 0, 0, 255}, 20),
				repeat([4]byte{0, 255, 0, 255}, 20)...), repeat([4]byte{0, 0, 255, 128}, 20)...),
			opts: ChooseOptions{AllowPalette: true},
			want: Mode{ColorType: Palette, BitDepth: 2, Palette: []color.NRGBA{
				{0, 0, 255, 128}, {255, 0, 0, 255}, {0, 255, 0, 255},
			}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pix := rgbaImage(tc.pixels...)
			st, err := ComputeStats(pix, len(tc.pixels), 1, RGBA8())
			require.NoError(t, err)
			got, err := Choose(st, RGBA8(), tc.opts)
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)

			// The chosen mode must hold the image without loss.
			packed := make([]byte, got.RawSize(len(tc.pixels), 1))
			require.NoError(t, Convert(packed, pix, got, RGBA8(), len(tc.pixels), 1))
			back := make([]byte, len(pix))
			require.NoError(t, Convert(back, packed, RGBA8(), got, len(tc.pixels), 1))
			for i := 0; i < len(tc.pixels); i++ {
				if pix[i*4+3] == 0 {
					assert.Zero(t, back[i*4+3])
					continue
				}
				assert.Equal(t, pix[i*4:i*4+4], back[i*4:i*4+4], "pixel %d", i)
			}
		})
	}
}

func TestStatsSixteenBit(t *testing.T) {
	pix := []byte{0x12, 0x34, 0x12, 0x34, 0x12, 0x34, 0xff, 0xff}
	st, err := ComputeStats(pix, 1, 1, RGBA16())
	require.NoError(t, err)
	assert.Equal(t, 16, st.Bits)
	assert.False(t, st.Colored)
	assert.False(t, st.Alpha)
	got, err := Choose(st, RGBA16(), ChooseOptions{AllowPalette: true})
	require.NoError(t, err)
	assert.True(t, got.Equal(GreyN(16)), got.String())
}

func TestChooseForcePalette(t *testing.T) {
	pix := make([]byte, 300*4)
	for i := 0; i < 300; i++ {
		pix[i*4] = byte(i)
		pix[i*4+1] = byte(i >> 8)
		pix[i*4+3] = 255
	}
	st, err := ComputeStats(pix, 300, 1, RGBA8())
	require.NoError(t, err)
	assert.Equal(t, MaxPaletteColors+1, st.NumColors)
	assert.Nil(t, st.Palette)
	_, err = Choose(st, RGBA8(), ChooseOptions{ForcePalette: true})
	assert.True(t, oops.Is(err, oops.CodeUnsupportedColor))

	st, err = ComputeStats(pix[:3*4], 3, 1, RGBA8())
	require.NoError(t, err)
	got, err := Choose(st, RGBA8(), ChooseOptions{ForcePalette: true})
	require.NoError(t, err)
	assert.Equal(t, Palette, got.ColorType)
	assert.Equal(t, 2, got.BitDepth)
	assert.Len(t, got.Palette, 3)
}

func TestChooseKeepAlpha(t *testing.T) {
	pix := rgbaImage(repeat([4]byte{5, 6, 7, 255}, 40)...)
	st, err := ComputeStats(pix, 40, 1, RGBA8())
	require.NoError(t, err)
	got, err := Choose(st, RGBA8(), ChooseOptions{KeepAlpha: true, AllowPalette: true})
	require.NoError(t, err)
	assert.True(t, got.Equal(RGBA8()), got.String())
	got, err = Choose(st, RGBA8(), ChooseOptions{})
	require.NoError(t, err)
	assert.True(t, got.Equal(RGB8()), got.String())
}
