// Package container implements the PNG chunk layer: the signature, chunk
// framing with CRC-32, the IHDR header, the ancillary chunks carried in Info,
// and the ordering rules between them.
package container

import "encoding/binary"

// Signature is the eight-byte PNG file signature.
var Signature = [SignatureSize]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Chunk types.
var (
	TypeIHDR = Type{'I', 'H', 'D', 'R'}
	TypePLTE = Type{'P', 'L', 'T', 'E'}
	TypeIDAT = Type{'I', 'D', 'A', 'T'}
	TypeIEND = Type{'I', 'E', 'N', 'D'}
	TypeTRNS = Type{'t', 'R', 'N', 'S'}
	TypeBKGD = Type{'b', 'K', 'G', 'D'}
	TypePHYS = Type{'p', 'H', 'Y', 's'}
	TypeTIME = Type{'t', 'I', 'M', 'E'}
	TypeTEXT = Type{'t', 'E', 'X', 't'}
	TypeZTXT = Type{'z', 'T', 'X', 't'}
	TypeITXT = Type{'i', 'T', 'X', 't'}
	TypeGAMA = Type{'g', 'A', 'M', 'A'}
	TypeCHRM = Type{'c', 'H', 'R', 'M'}
	TypeSRGB = Type{'s', 'R', 'G', 'B'}
	TypeICCP = Type{'i', 'C', 'C', 'P'}
	TypeSBIT = Type{'s', 'B', 'I', 'T'}
)

// Framing sizes.
const (
	SignatureSize   = 8
	ChunkHeaderSize = 8  // length + type
	ChunkCRCSize    = 4  // trailing CRC-32
	ChunkOverhead   = 12 // header + CRC
	HeaderSize      = 13 // IHDR payload
)

// Limits.
const (
	MaxChunkLength     = 1<<31 - 1
	MaxDimension       = 1<<31 - 1
	MaxKeywordLength   = 79
	DefaultMaxIDATSize = 1 << 20
	// maxTextSize bounds the inflated size of zTXt, iTXt and iCCP payloads.
	maxTextSize = 1 << 26
)

// Interlace methods.
const (
	InterlaceNone  = 0
	InterlaceAdam7 = 1
)

// Physical pixel dimension units.
const (
	UnitUnknown = 0
	UnitMeter   = 1
)

// Rendering intents of the sRGB chunk.
const (
	IntentPerceptual = iota
	IntentRelative
	IntentSaturation
	IntentAbsolute
)

// ReadBE16 reads a big-endian uint16 from data.
func ReadBE16(data []byte) uint16 {
	return binary.BigEndian.Uint16(data)
}

// ReadBE32 reads a big-endian uint32 from data.
func ReadBE32(data []byte) uint32 {
	return binary.BigEndian.Uint32(data)
}

// PutBE16 writes a big-endian uint16 to data.
func PutBE16(data []byte, v uint16) {
	binary.BigEndian.PutUint16(data, v)
}

// PutBE32 writes a big-endian uint32 to data.
func PutBE32(data []byte, v uint32) {
	binary.BigEndian.PutUint32(data, v)
}
