// Package zlib frames DEFLATE streams with the RFC 1950 header and Adler-32
// trailer.
package zlib

import (
	"encoding/binary"

	"github.com/deepteams/png/internal/checksum"
	"github.com/deepteams/png/internal/deflate"
	"github.com/deepteams/png/internal/lz77"
	"github.com/deepteams/png/internal/oops"
)

const (
	methodDeflate = 8
	flagDict      = 0x20

	headerLen  = 2
	trailerLen = 4
)

// Compression levels carried in FLEVEL.
const (
	LevelFastest = 0
	LevelFast    = 1
	LevelDefault = 2
	LevelMax     = 3
)

// Level maps deflate options onto the advisory FLEVEL field.
func Level(opts deflate.Options) int {
	switch {
	case opts.BlockType == deflate.BlockStored, opts.LZ77.LiteralsOnly:
		return LevelFastest
	case opts.LZ77.SearchDepth < 32:
		return LevelFast
	case opts.LZ77.SearchDepth > 1024:
		return LevelMax
	}
	return LevelDefault
}

// Header returns the two header bytes for the given window size and level.
func Header(windowSize, level int) [2]byte {
	cinfo := 0
	for w := 256; w < windowSize && cinfo < 7; w <<= 1 {
		cinfo++
	}
	cmf := byte(cinfo<<4 | methodDeflate)
	flg := byte(level&3) << 6
	if r := (int(cmf)<<8 | int(flg)) % 31; r != 0 {
		flg += byte(31 - r)
	}
	return [2]byte{cmf, flg}
}

// Compress deflates data and wraps it in a zlib stream.
func Compress(data []byte, opts deflate.Options) ([]byte, error) {
	out, _, err := CompressStats(data, opts)
	return out, err
}

// CompressStats is Compress that also returns the deflate block statistics.
func CompressStats(data []byte, opts deflate.Options) ([]byte, deflate.Stats, error) {
	body, stats, err := deflate.CompressStats(data, opts)
	if err != nil {
		return nil, stats, err
	}
	window := opts.LZ77.WindowSize
	if window == 0 || opts.BlockType == deflate.BlockStored {
		window = lz77.MaxWindowSize
	}
	hdr := Header(window, Level(opts))
	out := make([]byte, 0, headerLen+len(body)+trailerLen)
	out = append(out, hdr[:]...)
	out = append(out, body...)
	out = binary.BigEndian.AppendUint32(out, checksum.Adler32(data))
	return out, stats, nil
}

// Options controls decompression.
type Options struct {
	// IgnoreAdler skips trailer verification.
	IgnoreAdler bool
	// MaxOutput bounds the inflated size when positive.
	MaxOutput int
}

// CheckHeader validates the two header bytes.
func CheckHeader(cmf, flg byte) error {
	if (int(cmf)<<8|int(flg))%31 != 0 {
		return oops.New(oops.CodeMalformedZlibHeader, nil, "FCHECK mismatch in %02x %02x", cmf, flg)
	}
	if cmf&0x0f != methodDeflate {
		return oops.New(oops.CodeUnsupportedCompression, nil, "compression method %d", cmf&0x0f)
	}
	if cmf>>4 > 7 {
		return oops.New(oops.CodeMalformedZlibHeader, nil, "window size exponent %d", cmf>>4)
	}
	if flg&flagDict != 0 {
		return oops.New(oops.CodeUnsupportedDictionary, nil, "")
	}
	return nil
}

// Decompress validates the header, inflates the body and checks the
// Adler-32 trailer. On a trailer mismatch the inflated data is returned
// together with a CodeChecksumAdler error.
func Decompress(data []byte, opts Options) ([]byte, error) {
	if len(data) < headerLen {
		return nil, oops.New(oops.CodeTruncated, nil, "zlib header needs %d bytes, have %d", headerLen, len(data))
	}
	if err := CheckHeader(data[0], data[1]); err != nil {
		return nil, err
	}
	d := deflate.NewDecoder(data[headerLen:], opts.MaxOutput)
	out, err := d.Decode()
	if err != nil {
		return nil, err
	}
	if opts.IgnoreAdler {
		return out, nil
	}
	rest := data[headerLen+d.Consumed():]
	if len(rest) < trailerLen {
		return nil, oops.New(oops.CodeTruncated, nil, "Adler-32 trailer needs %d bytes, have %d", trailerLen, len(rest))
	}
	want := binary.BigEndian.Uint32(rest)
	if got := checksum.Adler32(out); got != want {
		return out, oops.New(oops.CodeChecksumAdler, nil, "stream has %08x, data has %08x", want, got)
	}
	return out, nil
}
