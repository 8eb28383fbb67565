package container

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/checksum"
	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/oops"
)

func stream(t *testing.T, chunks ...Chunk) []byte {
	t.Helper()
	out := buffer.NewBytes(0)
	out.Append(Signature[:]...)
	for _, c := range chunks {
		require.NoError(t, AppendChunk(out, c.Type, c.Data, checksum.IEEE()))
	}
	return out.Detach()
}

func ihdr(w, h, depth int, ct colormode.ColorType) Chunk {
	return Chunk{Type: TypeIHDR, Data: Header{Width: w, Height: h, BitDepth: depth, ColorType: ct}.Bytes()}
}

var (
	idat = Chunk{Type: TypeIDAT, Data: []byte{1, 2, 3}}
	iend = Chunk{Type: TypeIEND}
	plte = Chunk{Type: TypePLTE, Data: []byte{255, 0, 0, 0, 255, 0}}
)

func TestTypeProperties(t *testing.T) {
	assert.True(t, TypeIHDR.IsCritical())
	assert.False(t, TypeTEXT.IsCritical())
	assert.True(t, TypeIHDR.IsPublic())
	assert.False(t, TypeOf("prVt").IsPublic())
	assert.True(t, TypeIHDR.IsReservedValid())
	assert.False(t, TypeOf("abcd").IsReservedValid())
	assert.True(t, TypePHYS.IsSafeToCopy())
	assert.False(t, TypeIHDR.IsSafeToCopy())
	assert.True(t, TypeOf("zzZz").Valid())
	assert.False(t, TypeOf("a1cd").Valid())
	assert.Equal(t, "IDAT", TypeIDAT.String())
}

func TestReadChunk(t *testing.T) {
	out := buffer.NewBytes(0)
	require.NoError(t, AppendChunk(out, TypeTEXT, []byte("k\x00v"), checksum.IEEE()))
	data := out.Detach()
	assert.Equal(t, ChunkOverhead+3, len(data))

	c, n, err := ReadChunk(data, checksum.IEEE(), false)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, TypeTEXT, c.Type)
	assert.Equal(t, []byte("k\x00v"), c.Data)

	iend := buffer.NewBytes(0)
	require.NoError(t, AppendChunk(iend, TypeIEND, nil, checksum.IEEE()))
	assert.Equal(t, []byte{0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xae, 0x42, 0x60, 0x82}, iend.Detach())

	data[len(data)-1] ^= 1
	_, _, err = ReadChunk(data, checksum.IEEE(), false)
	assert.True(t, oops.Is(err, oops.CodeChecksumCRC), "%v", err)
	_, _, err = ReadChunk(data, checksum.IEEE(), true)
	assert.NoError(t, err)

	_, _, err = ReadChunk(data[:len(data)-2], checksum.IEEE(), true)
	assert.True(t, oops.Is(err, oops.CodeTruncated), "%v", err)

	bad := append([]byte(nil), data...)
	bad[5] = '1'
	_, _, err = ReadChunk(bad, checksum.IEEE(), true)
	assert.True(t, oops.Is(err, oops.CodeMalformedChunk), "%v", err)

	huge := []byte{0x80, 0, 0, 0, 'I', 'D', 'A', 'T'}
	_, _, err = ReadChunk(huge, checksum.IEEE(), false)
	assert.True(t, oops.Is(err, oops.CodeMalformedChunk), "%v", err)
}

func TestParseHeader(t *testing.T) {
	h := Header{Width: 7, Height: 3, BitDepth: 4, ColorType: colormode.Palette, Interlace: InterlaceAdam7}
	got, err := ParseHeader(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.True(t, got.Interlaced())

	tests := []struct {
		name string
		h    Header
		code oops.Code
	}{
		{"zero width", Header{Width: 0, Height: 1, BitDepth: 8}, oops.CodeMalformedChunk},
		{"bad depth", Header{Width: 1, Height: 1, BitDepth: 4, ColorType: colormode.RGB}, oops.CodeUnsupportedColor},
		{"bad color type", Header{Width: 1, Height: 1, BitDepth: 8, ColorType: 1}, oops.CodeUnsupportedColor},
		{"compression", Header{Width: 1, Height: 1, BitDepth: 8, Compression: 1}, oops.CodeUnsupportedCompression},
		{"filter", Header{Width: 1, Height: 1, BitDepth: 8, Filter: 1}, oops.CodeUnsupportedFilter},
		{"interlace", Header{Width: 1, Height: 1, BitDepth: 8, Interlace: 2}, oops.CodeUnsupportedInterlace},
	}
	for _, tc := range tests {
		_, err := ParseHeader(tc.h.Bytes())
		assert.True(t, oops.Is(err, tc.code), "%s: %v", tc.name, err)
	}
	_, err = ParseHeader(make([]byte, 12))
	assert.True(t, oops.Is(err, oops.CodeMalformedChunk))
}

func TestParseMinimal(t *testing.T) {
	data := stream(t, ihdr(2, 2, 8, colormode.RGBA), idat, Chunk{Type: TypeIDAT, Data: []byte{4, 5}}, iend)
	data = append(data, "trailing garbage"...)
	f, err := Parse(data, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Header.Width)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, f.IDAT)
	require.Len(t, f.Entries, 4)
	assert.Equal(t, TypeIDAT, f.Entries[2].Type)
	assert.Equal(t, SignatureSize+ChunkOverhead+HeaderSize+ChunkOverhead+3, f.Entries[2].Offset)
	assert.True(t, f.Entries[2].CRCOK)
	assert.True(t, f.Mode().Equal(colormode.RGBA8()))
}

func TestParsePaletteAndTransparency(t *testing.T) {
	trns := Chunk{Type: TypeTRNS, Data: []byte{0}}
	f, err := Parse(stream(t, ihdr(1, 1, 1, colormode.Palette), plte, trns, idat, iend), ParseOptions{})
	require.NoError(t, err)
	m := f.Mode()
	require.Len(t, m.Palette, 2)
	assert.Equal(t, uint8(0), m.Palette[0].A)
	assert.Equal(t, uint8(255), m.Palette[1].A)
	assert.NoError(t, m.Validate())

	key := Chunk{Type: TypeTRNS, Data: []byte{0, 1, 0, 2, 0, 3}}
	f, err = Parse(stream(t, ihdr(1, 1, 8, colormode.RGB), key, idat, iend), ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, &colormode.Key{R: 1, G: 2, B: 3}, f.Key)
}

func TestParseErrors(t *testing.T) {
	rgba := ihdr(1, 1, 8, colormode.RGBA)
	pal := ihdr(1, 1, 1, colormode.Palette)
	grey := ihdr(1, 1, 2, colormode.Grey)
	text := Chunk{Type: TypeTEXT, Data: []byte("a\x00b")}
	tests := []struct {
		name   string
		chunks []Chunk
		code   oops.Code
	}{
		{"no IHDR", []Chunk{idat, iend}, oops.CodeMissingChunk},
		{"two IHDR", []Chunk{rgba, rgba, idat, iend}, oops.CodeDuplicateChunk},
		{"no IDAT", []Chunk{rgba, iend}, oops.CodeMissingChunk},
		{"no IEND", []Chunk{rgba, idat}, oops.CodeTruncated},
		{"split IDAT", []Chunk{rgba, idat, text, idat, iend}, oops.CodeChunkOrder},
		{"PLTE after IDAT", []Chunk{ihdr(1, 1, 8, colormode.RGB), idat, plte, iend}, oops.CodeChunkOrder},
		{"missing PLTE", []Chunk{pal, idat, iend}, oops.CodeMissingChunk},
		{"two PLTE", []Chunk{pal, plte, plte, idat, iend}, oops.CodeDuplicateChunk},
		{"PLTE in grey", []Chunk{grey, plte, idat, iend}, oops.CodeMalformedChunk},
		{"PLTE too big for depth", []Chunk{pal, {Type: TypePLTE, Data: make([]byte, 9)}, idat, iend}, oops.CodeMalformedChunk},
		{"PLTE not triples", []Chunk{rgba, {Type: TypePLTE, Data: make([]byte, 4)}, idat, iend}, oops.CodeMalformedChunk},
		{"tRNS before PLTE", []Chunk{pal, {Type: TypeTRNS, Data: []byte{0}}, plte, idat, iend}, oops.CodeChunkOrder},
		{"tRNS too long", []Chunk{pal, plte, {Type: TypeTRNS, Data: []byte{0, 0, 0}}, idat, iend}, oops.CodeMalformedChunk},
		{"tRNS on RGBA", []Chunk{rgba, {Type: TypeTRNS, Data: make([]byte, 6)}, idat, iend}, oops.CodeMalformedChunk},
		{"tRNS key too deep", []Chunk{grey, {Type: TypeTRNS, Data: []byte{0, 4}}, idat, iend}, oops.CodeMalformedChunk},
		{"gAMA after IDAT", []Chunk{rgba, idat, {Type: TypeGAMA, Data: make([]byte, 4)}, iend}, oops.CodeChunkOrder},
		{"two pHYs", []Chunk{rgba, {Type: TypePHYS, Data: make([]byte, 9)}, {Type: TypePHYS, Data: make([]byte, 9)}, idat, iend}, oops.CodeDuplicateChunk},
		{"bKGD index", []Chunk{pal, plte, {Type: TypeBKGD, Data: []byte{2}}, idat, iend}, oops.CodePaletteIndex},
		{"unknown critical", []Chunk{rgba, {Type: TypeOf("CRIT")}, idat, iend}, oops.CodeUnknownCriticalChunk},
		{"bad tIME", []Chunk{rgba, idat, {Type: TypeTIME, Data: []byte{7, 0xe0, 13, 1, 0, 0, 0}}, iend}, oops.CodeMalformedChunk},
		{"keyword too long", []Chunk{rgba, {Type: TypeTEXT, Data: append(bytes.Repeat([]byte("a"), 80), 0)}, idat, iend}, oops.CodeMalformedText},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(stream(t, tc.chunks...), ParseOptions{})
			assert.True(t, oops.Is(err, tc.code), "got %v (code %d), want code %d", err, oops.CodeOf(err), tc.code)
		})
	}
}

func TestParseSignature(t *testing.T) {
	_, err := Parse([]byte("GIF89a.."), ParseOptions{})
	assert.True(t, oops.Is(err, oops.CodeBadSignature))
	_, err = Parse(Signature[:4], ParseOptions{})
	assert.True(t, oops.Is(err, oops.CodeTruncated))
}

func TestParseUnknownChunks(t *testing.T) {
	chunks := []Chunk{
		ihdr(1, 1, 8, colormode.RGB),
		{Type: TypeOf("abCd"), Data: []byte{1}},
		plte,
		{Type: TypeOf("efGh"), Data: []byte{2}},
		idat,
		{Type: TypeOf("ijKl"), Data: []byte{3}},
		iend,
	}
	data := stream(t, chunks...)
	f, err := Parse(data, ParseOptions{KeepUnknown: true})
	require.NoError(t, err)
	assert.Equal(t, []Chunk{{Type: TypeOf("abCd"), Data: []byte{1}}}, f.Info.Unknown[0])
	assert.Equal(t, []Chunk{{Type: TypeOf("efGh"), Data: []byte{2}}}, f.Info.Unknown[1])
	assert.Equal(t, []Chunk{{Type: TypeOf("ijKl"), Data: []byte{3}}}, f.Info.Unknown[2])

	f, err = Parse(data, ParseOptions{})
	require.NoError(t, err)
	for _, u := range f.Info.Unknown {
		assert.Empty(t, u)
	}
}

func TestParseIgnoreCRC(t *testing.T) {
	data := stream(t, ihdr(1, 1, 8, colormode.Grey), idat, iend)
	// Corrupt the IDAT CRC.
	off := SignatureSize + ChunkOverhead + HeaderSize + ChunkHeaderSize + 3
	data[off] ^= 0xff
	_, err := Parse(data, ParseOptions{})
	assert.True(t, oops.Is(err, oops.CodeChecksumCRC))
	f, err := Parse(data, ParseOptions{IgnoreCRC: true})
	require.NoError(t, err)
	assert.False(t, f.Entries[1].CRCOK)
	assert.True(t, f.Entries[2].CRCOK)
}

func TestParseHeaderOnly(t *testing.T) {
	full := stream(t, ihdr(3, 4, 2, colormode.Palette), plte, Chunk{Type: TypeTRNS, Data: []byte{9}}, idat, iend)
	cut := full[:len(full)-ChunkOverhead-3-ChunkOverhead+2]
	f, err := Parse(cut, ParseOptions{HeaderOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 4, f.Header.Height)
	require.Len(t, f.Palette, 2)
	assert.Equal(t, uint8(9), f.Palette[0].A)
	assert.Nil(t, f.IDAT)
}
