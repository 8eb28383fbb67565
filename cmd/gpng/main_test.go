package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/deepteams/png"
)

func run(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(bytes.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 12, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 20), uint8(y * 25), uint8(x * y), 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir string, info *png.Info) string {
	t.Helper()
	src := testImage()
	opts := png.DefaultEncoderOptions()
	opts.Info = info
	path := filepath.Join(dir, "in.png")
	require.NoError(t, png.EncodeFile(path, src.Pix, 12, 9, png.RGBA8(), opts))
	return path
}

func decodeRGBA(t *testing.T, data []byte) []byte {
	t.Helper()
	out := png.RGBA8()
	img, err := png.Decode(data, &png.DecoderOptions{OutputMode: &out})
	require.NoError(t, err)
	return img.Pix
}

func TestEncodeFromBMP(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage()))
	in := filepath.Join(dir, "in.bmp")
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0o644))
	out := filepath.Join(dir, "out.png")

	_, stderr, err := run(t, nil, "encode", in, "-o", out, "--interlace", "--block", "dynamic")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Encoded")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	h, _, err := png.Inspect(data)
	require.NoError(t, err)
	assert.True(t, h.Interlaced())
	assert.Equal(t, testImage().Pix, decodeRGBA(t, data))
}

func TestEncodeStdinToStdout(t *testing.T) {
	data, err := png.Encode(testImage().Pix, 12, 9, png.RGBA8(), nil)
	require.NoError(t, err)

	stdout, _, err := run(t, data, "encode", "-", "-o", "-", "--color", "rgba16")
	require.NoError(t, err)
	_, mode, err := png.Inspect([]byte(stdout))
	require.NoError(t, err)
	assert.True(t, mode.Equal(png.RGBA16()))
	assert.Equal(t, testImage().Pix, decodeRGBA(t, []byte(stdout)))
}

func TestDecodeFormats(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, nil)

	raw := filepath.Join(dir, "out.raw")
	_, _, err := run(t, nil, "decode", in, "-o", raw)
	require.NoError(t, err)
	got, err := os.ReadFile(raw)
	require.NoError(t, err)
	assert.Equal(t, testImage().Pix, got)

	stdout, _, err := run(t, nil, "decode", in, "-o", "-", "--color", "rgb8")
	require.NoError(t, err)
	assert.Len(t, stdout, 12*9*3)

	tif := filepath.Join(dir, "out.tiff")
	_, _, err = run(t, nil, "decode", in, "-o", tif)
	require.NoError(t, err)
	f, err := os.Open(tif)
	require.NoError(t, err)
	defer f.Close()
	m, err := tiff.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 9), m.Bounds())
	assert.Equal(t, testImage().NRGBAAt(5, 4), color.NRGBAModel.Convert(m.At(5, 4)))

	bmpPath := filepath.Join(dir, "out.bmp")
	_, _, err = run(t, nil, "decode", in, "-o", bmpPath)
	require.NoError(t, err)
	bf, err := os.Open(bmpPath)
	require.NoError(t, err)
	defer bf.Close()
	_, err = bmp.Decode(bf)
	require.NoError(t, err)

	_, _, err = run(t, nil, "decode", in, "-o", filepath.Join(dir, "out.xyz"))
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, &png.Info{Texts: []png.Text{{Keyword: "Comment", Text: "hello"}}})
	stdout, _, err := run(t, nil, "info", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dimensions: 12x9")
	assert.Contains(t, stdout, "Color:      rgb8")
	assert.Contains(t, stdout, `Comment = "hello"`)
	assert.Contains(t, stdout, "IHDR")
	assert.Contains(t, stdout, "IEND")
	assert.NotContains(t, stdout, "BAD")

	// Corrupt the IHDR CRC: info still lists the chunks.
	data, err := os.ReadFile(in)
	require.NoError(t, err)
	data[8+8+13] ^= 0xff
	require.NoError(t, os.WriteFile(in, data, 0o644))
	stdout, _, err = run(t, nil, "info", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "crc BAD")
}

func TestRecompress(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, &png.Info{Texts: []png.Text{{Keyword: "Title", Text: "kept"}}})
	out := filepath.Join(dir, "stored.png")

	_, stderr, err := run(t, nil, "recompress", in, "-o", out, "--block", "stored", "--compress-text")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Recompressed")

	img, err := png.DecodeFile(out, nil)
	require.NoError(t, err)
	require.Len(t, img.Info.Texts, 1)
	assert.Equal(t, png.Text{Keyword: "Title", Text: "kept", Compressed: true}, img.Info.Texts[0])

	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	stored, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Greater(t, len(stored), len(orig))
	assert.Equal(t, decodeRGBA(t, orig), decodeRGBA(t, stored))
}

func TestRecompressHuffmanOnlyWithID(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, nil)
	out := filepath.Join(dir, "literal.png")

	_, _, err := run(t, nil, "recompress", in, "-o", out, "--no-lz77", "--add-id")
	require.NoError(t, err)

	img, err := png.DecodeFile(out, nil)
	require.NoError(t, err)
	assert.Equal(t, []png.Text{{Keyword: png.IDKeyword, Text: png.IDText}}, img.Info.Texts)

	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	literal, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, decodeRGBA(t, orig), decodeRGBA(t, literal))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, nil)
	conf := filepath.Join(dir, "gpng.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("INTERLACE: true\nFILTER: fixed\nFILTER_TYPE: paeth\nLOG_LEVEL: debug\n"), 0o644))
	out := filepath.Join(dir, "out.png")

	_, stderr, err := run(t, nil, "--config", conf, "recompress", in, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"level":"debug"`)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	h, _, err := png.Inspect(data)
	require.NoError(t, err)
	assert.True(t, h.Interlaced())

	// Flags given on the command line win over the file.
	_, _, err = run(t, nil, "--config", conf, "recompress", in, "-o", out, "--interlace=false")
	require.NoError(t, err)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	h, _, err = png.Inspect(data)
	require.NoError(t, err)
	assert.False(t, h.Interlaced())

	require.NoError(t, os.WriteFile(conf, []byte("WINDOW: lots\n"), 0o644))
	_, _, err = run(t, nil, "--config", conf, "recompress", in, "-o", out)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "WINDOW"))
}

func TestBadArguments(t *testing.T) {
	dir := t.TempDir()
	in := writePNG(t, dir, nil)

	_, _, err := run(t, nil, "encode", in, "--block", "huge")
	assert.Equal(t, png.CodeInvalidArgument, png.ErrorCodeOf(err))

	_, _, err = run(t, nil, "encode", in, "--color", "rgb3")
	assert.Error(t, err)

	_, _, err = run(t, nil, "--log-level", "loud", "info", in)
	assert.Equal(t, png.CodeInvalidArgument, png.ErrorCodeOf(err))

	_, _, err = run(t, nil, "info")
	assert.Error(t, err)

	_, _, err = run(t, nil, "decode", filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
